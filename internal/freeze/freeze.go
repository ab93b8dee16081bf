// Package freeze renders every route of the site once, in process, and
// writes the responses to an output directory as static files.
package freeze

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/starford/bloggen/internal/storage"
)

// RouteLister enumerates the routes to freeze.
type RouteLister interface {
	Routes() ([]string, error)
}

// StatusError reports a route that did not answer 200.
type StatusError struct {
	Route  string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("freeze: %s: status %d", e.Route, e.Status)
}

// Freezer writes the output of Handler for every route of Routes into Out.
type Freezer struct {
	Handler http.Handler
	Routes  RouteLister
	Out     storage.Writer
	Logger  *slog.Logger
}

// Report summarizes a freeze run.
type Report struct {
	Destination string
	Files       []string
	// Removed lists files from an earlier run that no route produced.
	Removed []string
	Bytes       int64
	Elapsed     time.Duration
}

// Freeze requests every route and writes its body. It stops at the first
// route that fails; files already written stay in place. After every route
// succeeds, files in Out that no route produced are pruned.
func (f *Freezer) Freeze(ctx context.Context) (*Report, error) {
	start := time.Now()
	routes, err := f.Routes.Routes()
	if err != nil {
		return nil, fmt.Errorf("freeze: list routes: %w", err)
	}

	report := &Report{Destination: f.Out.Root()}
	for _, route := range routes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		body, err := f.fetch(ctx, route)
		if err != nil {
			return report, err
		}
		file, err := OutputPath(route)
		if err != nil {
			return report, fmt.Errorf("freeze: %s: %w", route, err)
		}
		if err := f.Out.Write(file, body); err != nil {
			return report, fmt.Errorf("freeze: %s: %w", route, err)
		}
		report.Files = append(report.Files, file)
		report.Bytes += int64(len(body))
		f.logger().Debug("freeze: wrote", slog.String("route", route), slog.String("file", file))
	}
	removed, err := f.Out.Prune(report.Files)
	report.Removed = removed
	if err != nil {
		return report, fmt.Errorf("freeze: prune: %w", err)
	}
	report.Elapsed = time.Since(start)

	f.logger().Info("freeze: done",
		slog.String("destination", report.Destination),
		slog.Int("files", len(report.Files)),
		slog.Int("removed", len(report.Removed)),
		slog.Duration("elapsed", report.Elapsed))
	return report, nil
}

func (f *Freezer) fetch(ctx context.Context, route string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, route, nil)
	if err != nil {
		return nil, fmt.Errorf("freeze: %s: %w", route, err)
	}
	req.RequestURI = route
	w := httptest.NewRecorder()
	f.Handler.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, &StatusError{Route: route, Status: res.StatusCode}
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("freeze: %s: %w", route, err)
	}
	return body, nil
}

func (f *Freezer) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

// OutputPath maps a route to the slash-separated file it is frozen to:
// "/" becomes "index.html", a route ending in "/" gets "index.html"
// appended, anything else keeps its own path.
func OutputPath(route string) (string, error) {
	p, err := url.PathUnescape(route)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(p, "/") {
		p += "index.html"
	}
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "" {
		return "", fmt.Errorf("empty output path for %q", route)
	}
	return p, nil
}
