// Package testutil provides shared test helpers for content fixtures.
package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/bloggen/internal/models"
	"github.com/starford/bloggen/internal/storage"
)

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// PostSource formats a source file with the given metadata lines and body.
func PostSource(date, title string, published bool, body string) string {
	return fmt.Sprintf("date: %s\ntitle: %s\npublished: %t\n\n%s", date, title, published, body)
}

// WriteFile writes content to rel under dir, creating parents.
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// ContentDir creates a temporary content directory holding files
// (relative path → content) and returns it with a storage provider.
func ContentDir(t *testing.T, files map[string]string) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		WriteFile(t, dir, rel, content)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// CountingReader wraps a storage.Reader and counts Read calls per path.
type CountingReader struct {
	storage.Reader

	mu    sync.Mutex
	reads map[string]int
}

// NewCountingReader wraps r.
func NewCountingReader(r storage.Reader) *CountingReader {
	return &CountingReader{Reader: r, reads: make(map[string]int)}
}

// Read counts and delegates.
func (c *CountingReader) Read(path string) ([]byte, error) {
	c.mu.Lock()
	c.reads[path]++
	c.mu.Unlock()
	return c.Reader.Read(path)
}

// List delegates.
func (c *CountingReader) List(ext string) ([]models.SourceFile, error) {
	return c.Reader.List(ext)
}

// Reads returns how many times path was read.
func (c *CountingReader) Reads(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads[path]
}
