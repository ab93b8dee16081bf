package site

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bloggen/internal/apperr"
	"github.com/starford/bloggen/internal/blog"
	"github.com/starford/bloggen/internal/checksum"
	"github.com/starford/bloggen/internal/feed"
)

// Handler holds the page handlers.
type Handler struct {
	blogs *blog.Holder
	opts  Options
	feed  *feed.Builder
}

type postView struct {
	Identity     string
	Title        string
	Subtitle     string
	DisplayTitle string
	Date         time.Time
	Published    bool
	URL          string
	HTML         template.HTML
}

type pageData struct {
	Site       feed.SiteInfo
	FeedPath   string
	LiveReload bool
	Posts      []postView
	Post       *postView
}

func viewOf(p *blog.Post) postView {
	return postView{
		Identity:     p.Identity(),
		Title:        p.Title(),
		Subtitle:     p.Subtitle(),
		DisplayTitle: p.DisplayTitle(),
		Date:         p.Date(),
		Published:    p.Published(),
		URL:          p.URL(PostPath),
	}
}

func (h *Handler) page() pageData {
	return pageData{
		Site:       h.opts.Site,
		FeedPath:   FeedPath,
		LiveReload: h.opts.Debug && h.opts.Events != nil,
	}
}

// Index handles GET /.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	posts := h.blogs.Load().Posts(h.opts.Debug)
	data := h.page()
	data.Posts = make([]postView, len(posts))
	for i, p := range posts {
		data.Posts[i] = viewOf(p)
	}
	h.render(w, PageIndex, data)
}

// Post handles GET /blog/{identity}/.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "*")
	if raw != "" && !strings.HasSuffix(raw, "/") {
		http.Redirect(w, r, r.URL.EscapedPath()+"/", http.StatusMovedPermanently)
		return
	}
	// chi matches on RawPath when it is set and on the decoded Path otherwise.
	identity := strings.Trim(raw, "/")
	if r.URL.RawPath != "" {
		var err error
		if identity, err = url.PathUnescape(identity); err != nil {
			http.NotFound(w, r)
			return
		}
	}
	if identity == "" {
		http.NotFound(w, r)
		return
	}

	post, err := h.blogs.Load().GetOrNotFound(identity)
	if err == nil && !post.Published() && !h.opts.Debug {
		err = apperr.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.NotFound(w, r)
		} else {
			h.opts.Logger.Error("post lookup failed", slog.String("identity", identity), slog.String("error", err.Error()))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	html, err := post.Render(h.opts.Renderer)
	if err != nil {
		h.opts.Logger.Error("post render failed", slog.String("identity", identity), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	view := viewOf(post)
	view.HTML = html
	data := h.page()
	data.Post = &view
	h.render(w, PagePost, data)
}

// Feed handles GET /feed.atom.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	entries, err := h.feed.Build(h.blogs.Load().Posts(h.opts.Debug))
	if err != nil {
		h.opts.Logger.Error("feed build failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out, err := feed.Atom(h.opts.Site, entries)
	if err != nil {
		h.opts.Logger.Error("feed render failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	body := []byte(out)
	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	w.Header().Set("ETag", checksum.ETag(body))
	_, _ = w.Write(body)
}

// Live handles GET /health/live.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(h.opts.Logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready.
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	b := h.blogs.Load()
	if b == nil {
		writeJSON(h.opts.Logger, w, http.StatusServiceUnavailable, map[string]string{"status": "building"})
		return
	}
	writeJSON(h.opts.Logger, w, http.StatusOK, map[string]any{"status": "ok", "posts": b.Len()})
}

func (h *Handler) render(w http.ResponseWriter, page string, data pageData) {
	var buf strings.Builder
	if err := h.opts.Templates.Render(&buf, page, data); err != nil {
		h.opts.Logger.Error("template render failed", slog.String("page", page), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	body := []byte(buf.String())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", checksum.ETag(body))
	_, _ = w.Write(body)
}
