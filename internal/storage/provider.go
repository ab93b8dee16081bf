// Package storage defines the file-system abstraction for content and frozen output.
package storage

import "github.com/starford/bloggen/internal/models"

// Reader is the read side used by the content index.
type Reader interface {
	// Root returns the absolute directory the provider is rooted at.
	Root() string
	// List returns every file under the root whose extension equals ext,
	// in lexical walk order. An empty ext matches every file.
	List(ext string) ([]models.SourceFile, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
}

// Writer is the write side used by the freezer.
type Writer interface {
	Root() string
	// Write atomically writes content to path (relative to root),
	// replacing any existing file.
	Write(path string, content []byte) error
	// Prune deletes every file not listed in keep (slash-separated, relative
	// to root) and returns what it deleted.
	Prune(keep []string) ([]string, error)
}

// Provider combines both sides.
type Provider interface {
	Reader
	Writer
}
