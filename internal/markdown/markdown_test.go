package markdown

import (
	"strings"
	"testing"
)

func TestConvert_BasicMarkup(t *testing.T) {
	c := New(Options{})
	out, err := c.Convert([]byte("# Title\n\nSome *emphasis* and ~~strike~~.\n"))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !strings.Contains(out, `<h1 id="title">Title</h1>`) {
		t.Errorf("missing heading in %q", out)
	}
	if !strings.Contains(out, "<em>emphasis</em>") || !strings.Contains(out, "<del>strike</del>") {
		t.Errorf("missing inline markup in %q", out)
	}
}

func TestConvert_HighlightsFencedCode(t *testing.T) {
	c := New(Options{HighlightStyle: "github"})
	out, err := c.Convert([]byte("```go\nfunc main() {}\n```\n"))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !strings.Contains(out, "<pre") || !strings.Contains(out, "style=") {
		t.Errorf("expected inline-styled highlighted block, got %q", out)
	}
}

func TestConvert_Deterministic(t *testing.T) {
	c := New(Options{LineNumbers: true})
	src := []byte("Para\n\n```python\nprint('x')\n```\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	first, err := c.Convert(src)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	second, _ := c.Convert(src)
	if first != second {
		t.Error("conversion is not deterministic")
	}
	if !strings.Contains(first, "<table>") {
		t.Errorf("expected GFM table in %q", first)
	}
}
