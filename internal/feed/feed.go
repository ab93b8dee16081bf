// Package feed turns the ordered post view into syndication entries and
// renders them as an Atom document.
package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/starford/bloggen/internal/blog"
)

// Entry is one syndication item.
type Entry struct {
	ID        string
	Title     string
	Content   string
	Author    string
	URL       string
	Updated   time.Time
	Published time.Time
}

// Builder produces entries from posts.
type Builder struct {
	Author   string
	Renderer blog.Renderer
	// URL maps an identity to a site path such as "/blog/x/".
	URL blog.URLResolver
	// BaseURL is prefixed to paths to make entry links absolute.
	BaseURL string
}

// Build returns one entry per post, in the order given. The first post that
// fails to render aborts the feed.
func (b *Builder) Build(posts []*blog.Post) ([]Entry, error) {
	entries := make([]Entry, 0, len(posts))
	for _, p := range posts {
		html, err := p.Render(b.Renderer)
		if err != nil {
			return nil, fmt.Errorf("feed: %w", err)
		}
		link := absolute(b.BaseURL, p.URL(b.URL))
		entries = append(entries, Entry{
			ID:        link,
			Title:     p.DisplayTitle(),
			Content:   string(html),
			Author:    b.Author,
			URL:       link,
			Updated:   p.Date(),
			Published: p.Date(),
		})
	}
	return entries, nil
}

// SiteInfo describes the feed as a whole.
type SiteInfo struct {
	Title    string
	Subtitle string
	Author   string
	BaseURL  string
	// FeedPath is the path the feed is served from, e.g. "/feed.atom".
	FeedPath string
}

// Atom renders entries as an Atom 1.0 document. The feed's updated time is
// the first entry's date (the newest, given ordered input) so the output is
// stable for a given set of posts.
func Atom(site SiteInfo, entries []Entry) (string, error) {
	updated := time.Unix(0, 0).UTC()
	if len(entries) > 0 {
		updated = entries[0].Updated
	}

	f := &feeds.Feed{
		Id:          absolute(site.BaseURL, site.FeedPath),
		Title:       site.Title,
		Subtitle:    site.Subtitle,
		Description: site.Subtitle,
		Link:        &feeds.Link{Href: absolute(site.BaseURL, "/")},
		Updated:     updated,
	}
	if site.Author != "" {
		f.Author = &feeds.Author{Name: site.Author}
	}

	for _, e := range entries {
		item := &feeds.Item{
			Id:      e.ID,
			Title:   e.Title,
			Link:    &feeds.Link{Href: e.URL},
			Content: e.Content,
			Updated: e.Updated,
			Created: e.Published,
		}
		if e.Author != "" {
			item.Author = &feeds.Author{Name: e.Author}
		}
		f.Items = append(f.Items, item)
	}

	// Build the Atom tree directly so feed id and entry published stamps
	// are set explicitly.
	atom := (&feeds.Atom{Feed: f}).AtomFeed()
	atom.Id = f.Id
	for i, e := range atom.Entries {
		e.Published = entries[i].Published.Format(time.RFC3339)
	}

	out, err := feeds.ToXML(atom)
	if err != nil {
		return "", fmt.Errorf("feed: atom: %w", err)
	}
	return out, nil
}

func absolute(base, path string) string {
	if base == "" {
		return path
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
