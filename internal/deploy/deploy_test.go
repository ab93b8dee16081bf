package deploy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/bloggen/internal/apperr"
	"github.com/starford/bloggen/internal/ledger"
	"github.com/starford/bloggen/internal/testutil"
)

type memBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	puts    map[string]int
	fail    map[string]error
}

func newMemBucket() *memBucket {
	return &memBucket{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		puts:    make(map[string]int),
		fail:    make(map[string]error),
	}
}

func (b *memBucket) PutObject(_ context.Context, key string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts[key]++
	if err := b.fail[key]; err != nil {
		return err
	}
	b.objects[key] = append([]byte(nil), data...)
	b.types[key] = contentType
	return nil
}

func (b *memBucket) Endpoint() string { return "mem://test" }

func (b *memBucket) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for k := range b.objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func siteDir(t *testing.T) string {
	t.Helper()
	dir, _ := testutil.ContentDir(t, map[string]string{
		"index.html":                  "<html>home</html>",
		"feed.atom":                   "<feed/>",
		"blog/a/index.html":           "<html>a</html>",
		"blog/2013/launch/index.html": "<html>launch</html>",
		"static/style.css":            "body{}",
	})
	return dir
}

var siteKeys = []string{
	"blog/2013/launch/index.html",
	"blog/a/index.html",
	"feed.atom",
	"index.html",
	"static/style.css",
}

func TestObjectKey(t *testing.T) {
	root := filepath.FromSlash("/tmp/build")
	cases := map[string]string{
		filepath.Join(root, "index.html"):         "index.html",
		filepath.Join(root, "blog", "a", "x.css"): "blog/a/x.css",
	}
	for file, want := range cases {
		got, err := ObjectKey(root, file)
		if err != nil || got != want {
			t.Errorf("ObjectKey(%q) = %q, %v; want %q", file, got, err, want)
		}
	}
	if _, err := ObjectKey(root, root); err == nil {
		t.Error("root itself accepted as a key")
	}
	if _, err := ObjectKey(root, filepath.FromSlash("/tmp/other/x")); err == nil {
		t.Error("path outside root accepted")
	}
}

func TestContentType(t *testing.T) {
	if ct := ContentType("blog/a/index.html"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("html = %q", ct)
	}
	if ct := ContentType("static/style.css"); !strings.HasPrefix(ct, "text/css") {
		t.Errorf("css = %q", ct)
	}
	if ct := ContentType("LICENSE"); ct != defaultContentType {
		t.Errorf("no ext = %q", ct)
	}
}

func TestDeploy_UploadsEveryFileOnce(t *testing.T) {
	for _, conc := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency=%d", conc), func(t *testing.T) {
			bucket := newMemBucket()
			d := &Deployer{Bucket: bucket, Concurrency: conc, Logger: testutil.Logger()}
			report, err := d.Deploy(context.Background(), siteDir(t))
			if err != nil {
				t.Fatalf("Deploy: %v", err)
			}
			if got := bucket.keys(); !slices.Equal(got, siteKeys) {
				t.Errorf("keys = %v", got)
			}
			for k, n := range bucket.puts {
				if n != 1 {
					t.Errorf("%s uploaded %d times", k, n)
				}
			}
			if report.Objects != len(siteKeys) || report.RunID == "" || report.Endpoint != "mem://test" {
				t.Errorf("report = %+v", report)
			}
		})
	}
}

func TestDeploy_Idempotent(t *testing.T) {
	bucket := newMemBucket()
	dir := siteDir(t)
	d := &Deployer{Bucket: bucket, Logger: testutil.Logger()}
	first, err := d.Deploy(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	second, err := d.Deploy(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := bucket.keys(); !slices.Equal(got, siteKeys) {
		t.Errorf("keys after redeploy = %v", got)
	}
	if string(bucket.objects["index.html"]) != "<html>home</html>" {
		t.Errorf("index = %q", bucket.objects["index.html"])
	}
	if first.RunID == second.RunID {
		t.Error("run IDs repeat")
	}
}

func TestDeploy_AbortsOnFirstFailure(t *testing.T) {
	bucket := newMemBucket()
	transport := errors.New("connection reset")
	bucket.fail["blog/a/index.html"] = transport

	d := &Deployer{Bucket: bucket, Logger: testutil.Logger()}
	report, err := d.Deploy(context.Background(), siteDir(t))

	var ue *UploadError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UploadError", err)
	}
	if ue.Key != "blog/a/index.html" {
		t.Errorf("failed key = %q", ue.Key)
	}
	if !errors.Is(err, apperr.ErrUploadFailure) || !errors.Is(err, transport) {
		t.Errorf("err does not unwrap to sentinel and cause: %v", err)
	}
	// Walk order puts blog/2013/... first; nothing after the failure is sent.
	if got := bucket.keys(); !slices.Equal(got, []string{"blog/2013/launch/index.html"}) {
		t.Errorf("uploaded = %v", got)
	}
	if len(report.Failures) != 1 {
		t.Errorf("failures = %v", report.Failures)
	}
}

func TestDeploy_ContinueOnError(t *testing.T) {
	bucket := newMemBucket()
	bucket.fail["feed.atom"] = errors.New("denied")
	bucket.fail["static/style.css"] = errors.New("denied")

	d := &Deployer{Bucket: bucket, ContinueOnError: true, Concurrency: 2, Logger: testutil.Logger()}
	report, err := d.Deploy(context.Background(), siteDir(t))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if !errors.Is(err, apperr.ErrUploadFailure) {
		t.Errorf("err = %v", err)
	}
	if len(report.Failures) != 2 {
		t.Errorf("failures = %v", report.Failures)
	}
	if report.Objects != 3 || len(bucket.keys()) != 3 {
		t.Errorf("objects = %d keys = %v", report.Objects, bucket.keys())
	}
	for _, k := range siteKeys {
		if bucket.puts[k] != 1 {
			t.Errorf("%s attempted %d times", k, bucket.puts[k])
		}
	}
}

func TestDeploy_RecordsLedger(t *testing.T) {
	db, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	d := &Deployer{Bucket: newMemBucket(), Recorder: db, Logger: testutil.Logger()}
	report, err := d.Deploy(context.Background(), siteDir(t))
	if err != nil {
		t.Fatal(err)
	}

	run, err := db.LastRun()
	if err != nil {
		t.Fatal(err)
	}
	if run.ID != report.RunID || run.Status != ledger.StatusOK || run.Objects != len(siteKeys) {
		t.Errorf("run = %+v", run)
	}
	objs, err := db.Objects(report.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != len(siteKeys) || objs[0].Key != siteKeys[0] || len(objs[0].Checksum) != 64 {
		t.Errorf("objects = %+v", objs)
	}
}

func TestDeploy_MissingRoot(t *testing.T) {
	d := &Deployer{Bucket: newMemBucket(), Logger: testutil.Logger()}
	if _, err := d.Deploy(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestS3Bucket_PutObject(t *testing.T) {
	var (
		mu   sync.Mutex
		got  = map[string]string{}
		ctyp string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusOK)
			return
		}
		mu.Lock()
		got[r.URL.Path] = r.Method
		ctyp = r.Header.Get("Content-Type")
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewS3Bucket(S3Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		Bucket:    "blog",
		Region:    "us-east-1",
		AccessKey: "key",
		SecretKey: "secret",
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.PutObject(ctx, "blog/a/index.html", []byte("hello"), "text/html"); err != nil {
		t.Fatalf("PutObject: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got["/blog/blog/a/index.html"] != http.MethodPut {
		t.Errorf("requests = %v", got)
	}
	if ctyp != "text/html" {
		t.Errorf("Content-Type = %q", ctyp)
	}
	if !strings.HasSuffix(b.Endpoint(), "/blog") {
		t.Errorf("Endpoint = %q", b.Endpoint())
	}
}
