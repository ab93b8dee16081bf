package blog

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/starford/bloggen/internal/apperr"
	"github.com/starford/bloggen/internal/orderedmap"
	"github.com/starford/bloggen/internal/storage"
)

// DefaultExtension is the source file extension when none is configured.
const DefaultExtension = ".md"

// Blog is the content index. It is built once and read-only afterwards;
// content changes require a new Build.
type Blog struct {
	root  string
	ext   string
	posts *orderedmap.Map[string, *Post]
}

// Build walks every file under store's root whose extension is ext and
// indexes it by identity, newest first. One malformed source aborts the
// whole build and no index is returned.
func Build(store storage.Reader, ext string, logger *slog.Logger) (*Blog, error) {
	if ext == "" {
		ext = DefaultExtension
	}
	start := time.Now()

	files, err := store.List(ext)
	if err != nil {
		return nil, fmt.Errorf("blog: build: %w", err)
	}

	b := &Blog{
		root:  store.Root(),
		ext:   ext,
		posts: orderedmap.New[string](orderedmap.ByTime((*Post).Date), orderedmap.Descending),
	}
	for _, f := range files {
		p, err := NewPost(store, f.Path)
		if err != nil {
			return nil, fmt.Errorf("blog: build: %w", err)
		}
		if p.Title() == "" {
			logger.Warn("blog: post has no title", slog.String("identity", p.Identity()), slog.String("path", f.Path))
		}
		if b.posts.Has(p.Identity()) {
			logger.Warn("blog: duplicate identity replaced", slog.String("identity", p.Identity()), slog.String("path", f.Path))
		}
		b.posts.Set(p.Identity(), p)
	}

	logger.Info("blog: index built",
		slog.String("root", b.root),
		slog.Int("posts", b.posts.Len()),
		slog.Duration("elapsed", time.Since(start)))
	return b, nil
}

// Root returns the content directory.
func (b *Blog) Root() string { return b.root }

// Extension returns the source extension filter.
func (b *Blog) Extension() string { return b.ext }

// Len returns the number of indexed posts, drafts included.
func (b *Blog) Len() int { return b.posts.Len() }

// Posts returns the posts newest first. Outside debug mode only published
// posts are included.
func (b *Blog) Posts(debug bool) []*Post {
	all := b.posts.Values()
	if debug {
		return all
	}
	out := make([]*Post, 0, len(all))
	for _, p := range all {
		if p.Published() {
			out = append(out, p)
		}
	}
	return out
}

// GetOrNotFound looks up a post by identity.
func (b *Blog) GetOrNotFound(identity string) (*Post, error) {
	p, err := b.posts.Get(identity)
	if err != nil {
		return nil, fmt.Errorf("blog: post %q: %w", identity, apperr.ErrNotFound)
	}
	return p, nil
}

// Holder publishes the current Blog to concurrent readers. A rebuild swaps
// the whole index; readers never observe a partially built one.
type Holder struct {
	current atomic.Pointer[Blog]
}

// NewHolder returns a holder serving b.
func NewHolder(b *Blog) *Holder {
	h := &Holder{}
	h.current.Store(b)
	return h
}

// Load returns the current Blog.
func (h *Holder) Load() *Blog { return h.current.Load() }

// Swap installs b and returns the previous Blog.
func (h *Holder) Swap(b *Blog) *Blog { return h.current.Swap(b) }
