package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("date: 2013-06-01\n\nBody\n")
	if err := s.Write("post.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("post.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("blog/a/index.html", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("blog/a/index.html")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteOverwrites(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("index.html", []byte("old"))
	if err := s.Write("index.html", []byte("new")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("index.html")
	if string(got) != "new" {
		t.Errorf("expected overwrite, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".bloggen-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestList_FiltersByExtension(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not md"))

	items, err := s.List(".md")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "a.md" || items[1].Path != filepath.Join("sub", "b.md") {
		t.Errorf("unexpected order: %+v", items)
	}

	all, err := s.List("")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len(all) = %d, want 3", len(all))
	}
}

func TestReadMissingWrapsNotExist(t *testing.T) {
	s := tempRoot(t)
	_, err := s.Read("gone.md")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestEnsureFS_CreatesRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "site")
	s, err := EnsureFS(dir)
	if err != nil {
		t.Fatalf("EnsureFS: %v", err)
	}
	if info, err := os.Stat(s.Root()); err != nil || !info.IsDir() {
		t.Errorf("root not created: %v", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "bloggen-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestPrune_RemovesUnlistedFilesAndEmptyDirs(t *testing.T) {
	s := tempRoot(t)
	for _, rel := range []string{"index.html", "blog/a/index.html", "blog/old/index.html", "static/my file.css"} {
		if err := s.Write(rel, []byte(rel)); err != nil {
			t.Fatalf("Write %s: %v", rel, err)
		}
	}
	if err := os.WriteFile(filepath.Join(s.root, ".bloggen-tmp-123"), []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Prune([]string{"index.html", "blog/a/index.html", "static/my file.css"})
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("removed = %v, want the stale page and the temp file", removed)
	}
	if _, err := os.Stat(filepath.Join(s.root, "blog", "old")); !os.IsNotExist(err) {
		t.Error("emptied directory blog/old still exists")
	}
	if _, err := os.Stat(filepath.Join(s.root, ".bloggen-tmp-123")); !os.IsNotExist(err) {
		t.Error("temp file survived prune")
	}
	for _, rel := range []string{"index.html", "blog/a/index.html", "static/my file.css"} {
		if _, err := s.Read(rel); err != nil {
			t.Errorf("kept file %s: %v", rel, err)
		}
	}
}
