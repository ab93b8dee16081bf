package site

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/starford/bloggen/internal/blog"
	"github.com/starford/bloggen/internal/storage"
)

// Routes lists every resolvable GET route for b: the index, the feed, one
// page per visible post and one route per file under staticDir.
func Routes(b *blog.Blog, debug bool, staticDir string) ([]string, error) {
	routes := []string{"/", FeedPath}
	for _, p := range b.Posts(debug) {
		routes = append(routes, p.URL(PostPath))
	}

	if staticDir == "" {
		return routes, nil
	}
	if _, err := os.Stat(staticDir); errors.Is(err, fs.ErrNotExist) {
		return routes, nil
	}
	static, err := storage.NewFS(staticDir)
	if err != nil {
		return nil, fmt.Errorf("site: routes: %w", err)
	}
	files, err := static.List("")
	if err != nil {
		return nil, fmt.Errorf("site: routes: %w", err)
	}
	for _, f := range files {
		routes = append(routes, StaticPath(filepath.ToSlash(f.Path)))
	}
	return routes, nil
}

// RouteLister adapts a holder to the freezer's route source.
type RouteLister struct {
	Blogs     *blog.Holder
	Debug     bool
	StaticDir string
}

// Routes lists the routes of the current blog.
func (l RouteLister) Routes() ([]string, error) {
	return Routes(l.Blogs.Load(), l.Debug, l.StaticDir)
}
