// Package site serves the content index over HTTP: an index page, one page
// per post, the Atom feed and static assets.
package site

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bloggen/internal/blog"
	"github.com/starford/bloggen/internal/feed"
)

// Route paths.
const (
	FeedPath     = "/feed.atom"
	StaticPrefix = "/static/"
	postPrefix   = "/blog/"
	EventsPath   = "/events"
)

// PostPath maps a post identity to its page path. It is the URL resolver
// handed to posts and the feed builder.
func PostPath(identity string) string {
	return postPrefix + escapeSegments(identity) + "/"
}

// StaticPath maps a slash-separated file path under the static directory
// to its route.
func StaticPath(rel string) string {
	return StaticPrefix + escapeSegments(rel)
}

func escapeSegments(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// Options configure the router.
type Options struct {
	// Debug shows drafts, disables caching and enables live reload.
	Debug     bool
	Site      feed.SiteInfo
	StaticDir string
	Templates *Templates
	Renderer  blog.Renderer
	// Logger receives request failures; nil means slog.Default().
	Logger *slog.Logger
	// Events, if non-nil and Debug is set, is mounted at EventsPath.
	Events http.Handler
}

// NewRouter creates a chi router serving the blog held by h.
func NewRouter(h *blog.Holder, opts Options) chi.Router {
	opts.Site.FeedPath = FeedPath
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	hd := &Handler{
		blogs: h,
		opts:  opts,
		feed: &feed.Builder{
			Author:   opts.Site.Author,
			Renderer: opts.Renderer,
			URL:      PostPath,
			BaseURL:  opts.Site.BaseURL,
		},
	}

	r := chi.NewRouter()
	if opts.Debug {
		r.Use(NoCache)
	}

	r.Get("/health/live", hd.Live)
	r.Get("/health/ready", hd.Ready)

	r.Get("/", hd.Index)
	r.Get(postPrefix+"*", hd.Post)
	r.Get(FeedPath, hd.Feed)

	if opts.StaticDir != "" {
		r.Handle(StaticPrefix+"*", http.StripPrefix(StaticPrefix, http.FileServer(http.Dir(opts.StaticDir))))
	}
	if opts.Debug && opts.Events != nil {
		r.Get(EventsPath, opts.Events.ServeHTTP)
	}
	return r
}
