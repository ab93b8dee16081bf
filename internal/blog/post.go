// Package blog holds the content index: posts parsed from a directory of
// Markdown sources, ordered newest first.
package blog

import (
	"fmt"
	"html/template"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/starford/bloggen/internal/apperr"
	"github.com/starford/bloggen/internal/parser"
	"github.com/starford/bloggen/internal/storage"
)

// Renderer converts a Markdown body to HTML.
type Renderer interface {
	Convert(src []byte) (string, error)
}

// URLResolver maps a post identity to an externally addressable path.
type URLResolver func(identity string) string

// Post is one source file. Metadata is decoded at construction; the HTML
// body is rendered on first use and cached for the life of the Post.
type Post struct {
	identity string
	relPath  string
	store    storage.Reader
	meta     parser.Metadata

	mu   sync.Mutex
	html *template.HTML
}

// Identity derives a post identity from a root-relative path: separators
// are normalized to "/", leading and trailing ones are stripped, and the
// extension is dropped.
func Identity(relPath string) string {
	p := strings.Trim(filepath.ToSlash(relPath), "/")
	return strings.TrimSuffix(p, path.Ext(p))
}

// NewPost reads relPath from store and decodes its metadata block.
func NewPost(store storage.Reader, relPath string) (*Post, error) {
	data, err := store.Read(relPath)
	if err != nil {
		return nil, fmt.Errorf("blog: %s: %w: %w", relPath, apperr.ErrSourceUnavailable, err)
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("blog: %s: %w", relPath, err)
	}
	return &Post{
		identity: Identity(relPath),
		relPath:  relPath,
		store:    store,
		meta:     res.Meta,
	}, nil
}

func (p *Post) Identity() string { return p.identity }

// RelPath returns the path relative to the content root.
func (p *Post) RelPath() string { return p.relPath }

func (p *Post) Meta() parser.Metadata { return p.meta }

func (p *Post) Title() string { return p.meta.Title }

func (p *Post) Subtitle() string { return p.meta.Subtitle }

func (p *Post) Date() time.Time { return p.meta.Date }

func (p *Post) Published() bool { return p.meta.Published }

// Field returns a raw metadata value, or nil.
func (p *Post) Field(name string) any { return p.meta.Fields[name] }

// SourcePath returns the file location on disk.
func (p *Post) SourcePath() string {
	return filepath.Join(p.store.Root(), p.relPath)
}

// DisplayTitle joins title and subtitle as "<title>: <subtitle>".
func (p *Post) DisplayTitle() string {
	if p.meta.Subtitle == "" {
		return p.meta.Title
	}
	return p.meta.Title + ": " + p.meta.Subtitle
}

// URL returns the post's path as produced by resolve.
func (p *Post) URL(resolve URLResolver) string {
	return resolve(p.identity)
}

// Render returns the HTML body. The first successful call reads the source
// and converts it; later calls return the stored result. Concurrent callers
// wait for the one in progress. Failures are not cached.
func (p *Post) Render(r Renderer) (template.HTML, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.html != nil {
		return *p.html, nil
	}

	data, err := p.store.Read(p.relPath)
	if err != nil {
		return "", fmt.Errorf("blog: render %s: %w: %w", p.identity, apperr.ErrSourceUnavailable, err)
	}
	body, err := parser.Split(data)
	if err != nil {
		return "", fmt.Errorf("blog: render %s: %w", p.identity, err)
	}
	out, err := r.Convert(body)
	if err != nil {
		return "", fmt.Errorf("blog: render %s: %w", p.identity, err)
	}

	html := template.HTML(out) //nolint:gosec // post bodies are author-controlled
	p.html = &html
	return html, nil
}

// IsRendered reports whether the HTML body has been cached.
func (p *Post) IsRendered() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html != nil
}
