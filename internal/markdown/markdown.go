// Package markdown converts post bodies to HTML with goldmark.
package markdown

import (
	"bytes"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// DefaultStyle is the chroma style used when none is configured.
const DefaultStyle = "monokai"

// Options configure the converter.
type Options struct {
	// HighlightStyle names a chroma style for fenced code blocks.
	HighlightStyle string
	// LineNumbers adds line numbers to highlighted code.
	LineNumbers bool
}

// Converter renders Markdown to HTML. A single instance is safe for
// concurrent use; goldmark engines hold no per-call state.
type Converter struct {
	md goldmark.Markdown
}

// New builds a converter with GFM extensions and syntax highlighting.
func New(opts Options) *Converter {
	style := opts.HighlightStyle
	if style == "" {
		style = DefaultStyle
	}

	format := []chromahtml.Option{chromahtml.WithClasses(false)}
	if opts.LineNumbers {
		format = append(format, chromahtml.WithLineNumbers(true))
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(format...),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return &Converter{md: md}
}

// Convert renders src to HTML.
func (c *Converter) Convert(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("markdown: convert: %w", err)
	}
	return buf.String(), nil
}
