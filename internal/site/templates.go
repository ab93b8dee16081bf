package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"time"
)

//go:embed templates/*.html
var embedded embed.FS

// Page template names.
const (
	PageIndex = "index"
	PagePost  = "post"
)

var funcs = template.FuncMap{
	"date":    func(t time.Time) string { return t.Format("January 2, 2006") },
	"isodate": func(t time.Time) string { return t.Format("2006-01-02") },
}

// Templates holds one parsed set per page, each layered over the layout.
type Templates struct {
	pages map[string]*template.Template
}

// LoadTemplates parses layout.html plus one file per page from dir, or from
// the embedded defaults when dir is empty.
func LoadTemplates(dir string) (*Templates, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	} else {
		fsys = os.DirFS(dir)
	}

	t := &Templates{pages: make(map[string]*template.Template)}
	for _, page := range []string{PageIndex, PagePost} {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(fsys, "layout.html", page+".html")
		if err != nil {
			return nil, fmt.Errorf("site: parse %s template: %w", page, err)
		}
		t.pages[page] = tmpl
	}
	return t, nil
}

// Render executes the named page into w. Output is buffered so a template
// error never leaves a half-written response.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("site: unknown template %q", page)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("site: render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
