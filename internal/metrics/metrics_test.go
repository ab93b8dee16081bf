package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", w.Code)
	}
	return w.Body.String()
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New(nil)
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/blog/*", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })

	for _, p := range []string{"/blog/a/", "/blog/b/", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	out := scrape(t, m)
	if !strings.Contains(out, `bloggen_http_requests_total{method="GET",route="/blog/*",status="200"} 2`) {
		t.Errorf("missing post series:\n%s", out)
	}
	if !strings.Contains(out, `status="404"`) {
		t.Errorf("missing 404 series:\n%s", out)
	}
}

func TestObserveIndexAndRebuild(t *testing.T) {
	m := New(nil)
	m.ObserveIndex(7)
	m.ObserveRebuild(nil)
	m.ObserveRebuild(errors.New("bad"))

	out := scrape(t, m)
	for _, want := range []string{
		"bloggen_index_posts 7",
		`bloggen_index_rebuilds_total{result="ok"} 1`,
		`bloggen_index_rebuilds_total{result="error"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}
