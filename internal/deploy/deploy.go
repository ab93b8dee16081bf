// Package deploy uploads a frozen site to object storage. Object keys are the
// slash-separated file paths relative to the frozen root.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/bloggen/internal/apperr"
	"github.com/starford/bloggen/internal/checksum"
	"github.com/starford/bloggen/internal/ledger"
	"github.com/starford/bloggen/internal/storage"
)

const defaultContentType = "application/octet-stream"

// UploadError reports a file the bucket rejected.
type UploadError struct {
	Key  string
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("deploy: upload %s: %v", e.Key, e.Err)
}

// Unwrap exposes both the sentinel and the transport error.
func (e *UploadError) Unwrap() []error {
	return []error{apperr.ErrUploadFailure, e.Err}
}

// Recorder keeps a history of deploy runs. *ledger.DB implements it.
type Recorder interface {
	BeginRun(id, endpoint string, startedAt time.Time) error
	RecordObject(runID string, o ledger.Object) error
	FinishRun(id string, finishedAt time.Time, failures int) error
}

// Deployer uploads every file under a root directory to Bucket.
type Deployer struct {
	Bucket Bucket
	// Concurrency is the number of parallel uploads; values below 2 upload
	// sequentially in walk order.
	Concurrency int
	// ContinueOnError attempts every file and reports all failures instead
	// of stopping at the first one.
	ContinueOnError bool
	// Recorder, if set, receives the run and each uploaded object.
	Recorder Recorder
	Logger   *slog.Logger
}

// Report summarizes a deploy run.
type Report struct {
	RunID    string
	Endpoint string
	Objects  int
	Bytes    int64
	Failures []*UploadError
	Elapsed  time.Duration
}

// ObjectKey maps a file under root to its object key.
func ObjectKey(root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", fmt.Errorf("deploy: object key: %w", err)
	}
	key := strings.TrimLeft(path.Clean(filepath.ToSlash(rel)), "/")
	if key == "." || key == "" || key == ".." || strings.HasPrefix(key, "../") {
		return "", fmt.Errorf("deploy: %s is not under %s", file, root)
	}
	return key, nil
}

// ContentType guesses a MIME type from the key's extension.
func ContentType(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return defaultContentType
}

type upload struct {
	key  string
	path string
}

// Deploy uploads the tree under root. Each file is put once per run;
// re-running overwrites the same keys.
func (d *Deployer) Deploy(ctx context.Context, root string) (*Report, error) {
	start := time.Now()
	logger := d.logger()

	src, err := storage.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	files, err := src.List("")
	if err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	uploads := make([]upload, 0, len(files))
	for _, f := range files {
		key, err := ObjectKey(src.Root(), filepath.Join(src.Root(), f.Path))
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload{key: key, path: f.Path})
	}

	report := &Report{RunID: uuid.NewString(), Endpoint: d.Bucket.Endpoint()}
	d.record(func(r Recorder) error { return r.BeginRun(report.RunID, report.Endpoint, start) })

	var mu sync.Mutex
	put := func(ctx context.Context, u upload) error {
		data, err := src.Read(u.path)
		if err != nil {
			return &UploadError{Key: u.key, Path: u.path, Err: err}
		}
		if err := d.Bucket.PutObject(ctx, u.key, data, ContentType(u.key)); err != nil {
			return &UploadError{Key: u.key, Path: u.path, Err: err}
		}

		mu.Lock()
		report.Objects++
		report.Bytes += int64(len(data))
		mu.Unlock()

		d.record(func(r Recorder) error {
			return r.RecordObject(report.RunID, ledger.Object{
				Key:        u.key,
				Checksum:   checksum.Sum(data),
				Size:       int64(len(data)),
				UploadedAt: time.Now(),
			})
		})
		logger.Debug("deploy: uploaded", slog.String("key", u.key), slog.Int("bytes", len(data)))
		return nil
	}
	fail := func(err error) error {
		var ue *UploadError
		if !errors.As(err, &ue) {
			return err
		}
		if !d.ContinueOnError && errors.Is(ue.Err, context.Canceled) {
			return err
		}
		mu.Lock()
		report.Failures = append(report.Failures, ue)
		mu.Unlock()
		logger.Warn("deploy: upload failed", slog.String("key", ue.Key), slog.String("error", ue.Err.Error()))
		if d.ContinueOnError {
			return nil
		}
		return err
	}

	var runErr error
	if d.Concurrency < 2 {
		for _, u := range uploads {
			if err := ctx.Err(); err != nil {
				runErr = err
				break
			}
			if err := put(ctx, u); err != nil {
				if runErr = fail(err); runErr != nil {
					break
				}
			}
		}
	} else {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(d.Concurrency)
		for _, u := range uploads {
			g.Go(func() error {
				if err := gCtx.Err(); err != nil {
					return err
				}
				if err := put(gCtx, u); err != nil {
					return fail(err)
				}
				return nil
			})
		}
		runErr = g.Wait()
	}

	if runErr == nil && len(report.Failures) > 0 {
		errs := make([]error, len(report.Failures))
		for i, f := range report.Failures {
			errs[i] = f
		}
		runErr = errors.Join(errs...)
	}

	report.Elapsed = time.Since(start)
	failures := len(report.Failures)
	if runErr != nil && failures == 0 {
		failures = 1
	}
	d.record(func(r Recorder) error { return r.FinishRun(report.RunID, time.Now(), failures) })

	if runErr != nil {
		return report, runErr
	}
	logger.Info("deploy: done",
		slog.String("run_id", report.RunID),
		slog.String("endpoint", report.Endpoint),
		slog.Int("objects", report.Objects),
		slog.Duration("elapsed", report.Elapsed))
	return report, nil
}

// record forwards to the recorder; ledger failures never fail a deploy.
func (d *Deployer) record(fn func(Recorder) error) {
	if d.Recorder == nil {
		return
	}
	if err := fn(d.Recorder); err != nil {
		d.logger().Warn("deploy: ledger write failed", slog.String("error", err.Error()))
	}
}

func (d *Deployer) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
