package ledger

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/bloggen/internal/apperr"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)
	start := time.Date(2013, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := db.BeginRun("run-1", "https://s3.example.com", start); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	for _, key := range []string{"index.html", "blog/a/index.html"} {
		if err := db.RecordObject("run-1", Object{Key: key, Checksum: "abc", Size: 10, UploadedAt: start}); err != nil {
			t.Fatalf("RecordObject: %v", err)
		}
	}
	// Re-recording a key replaces it.
	if err := db.RecordObject("run-1", Object{Key: "index.html", Checksum: "def", Size: 12, UploadedAt: start}); err != nil {
		t.Fatalf("RecordObject: %v", err)
	}
	if err := db.FinishRun("run-1", start.Add(time.Second), 0); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	objs, err := db.Objects("run-1")
	if err != nil {
		t.Fatalf("Objects: %v", err)
	}
	if len(objs) != 2 || objs[0].Key != "blog/a/index.html" || objs[1].Checksum != "def" {
		t.Errorf("objects = %+v", objs)
	}

	run, err := db.LastRun()
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if run.ID != "run-1" || run.Objects != 2 || run.Status != StatusOK {
		t.Errorf("run = %+v", run)
	}
	if run.FinishedAt.IsZero() {
		t.Error("FinishedAt not set")
	}
}

func TestFinishRun_Failures(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()
	_ = db.BeginRun("run-1", "", now)
	if err := db.FinishRun("run-1", now, 2); err != nil {
		t.Fatal(err)
	}
	run, err := db.LastRun()
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != StatusFailed || run.Failures != 2 {
		t.Errorf("run = %+v", run)
	}
}

func TestLastRun_PicksNewest(t *testing.T) {
	db := openTestDB(t)
	t0 := time.Date(2013, 6, 1, 0, 0, 0, 0, time.UTC)
	_ = db.BeginRun("old", "", t0)
	_ = db.BeginRun("new", "", t0.Add(time.Hour))

	run, err := db.LastRun()
	if err != nil {
		t.Fatal(err)
	}
	if run.ID != "new" || run.Status != StatusRunning {
		t.Errorf("run = %+v", run)
	}
}

func TestNotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.LastRun(); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("LastRun on empty ledger: %v", err)
	}
	if err := db.FinishRun("missing", time.Now(), 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("FinishRun missing: %v", err)
	}
}
