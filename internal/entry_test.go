package internal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/bloggen/internal/apperr"
	"github.com/starford/bloggen/internal/testutil"
)

func testConfig(t *testing.T, files map[string]string) *Config {
	t.Helper()
	content, _ := testutil.ContentDir(t, files)
	static := t.TempDir()
	testutil.WriteFile(t, static, "style.css", "body{}")

	cfg := NewDefaultConfig()
	cfg.Content.Path = content
	cfg.Site.StaticPath = static
	cfg.Site.BaseURL = "https://example.com"
	cfg.Freeze.Destination = filepath.Join(t.TempDir(), "build")
	return cfg
}

func TestBuild_FreezesPublishedSite(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"hello.md":       testutil.PostSource("2013-06-01", "Hello", true, "hi"),
		"2013/launch.md": testutil.PostSource("2013-05-01", "Launch", true, "go"),
		"draft.md":       testutil.PostSource("2013-07-01", "Draft", false, "wip"),
	})

	var logs bytes.Buffer
	report, err := Build(context.Background(), WithConfig(cfg), WithLogOutput(&logs))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	dest := cfg.Freeze.Destination
	for _, rel := range []string{
		"index.html",
		"feed.atom",
		"blog/hello/index.html",
		"blog/2013/launch/index.html",
		"static/style.css",
	} {
		if _, err := os.Stat(filepath.Join(dest, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dest, "blog", "draft")); !os.IsNotExist(err) {
		t.Error("draft was frozen")
	}
	if len(report.Files) != 5 {
		t.Errorf("files = %v", report.Files)
	}
	if !strings.Contains(logs.String(), "freeze: done") {
		t.Errorf("logs missing freeze summary: %s", logs.String())
	}
}

func TestBuild_EscapedNames(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"100%-done.md":   testutil.PostSource("2013-06-01", "Done", true, "done"),
		"hello world.md": testutil.PostSource("2013-06-02", "Hello", true, "hi"),
	})
	testutil.WriteFile(t, cfg.Site.StaticPath, "my file.css", "p{}")

	if _, err := Build(context.Background(), WithConfig(cfg), WithLogOutput(&bytes.Buffer{})); err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, rel := range []string{
		"blog/100%-done/index.html",
		"blog/hello world/index.html",
		"static/my file.css",
	} {
		if _, err := os.Stat(filepath.Join(cfg.Freeze.Destination, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}
}

func TestBuild_UnpublishedPostRemovedOnRebuild(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"hello.md": testutil.PostSource("2013-06-01", "Hello", true, "hi"),
		"later.md": testutil.PostSource("2013-06-02", "Later", true, "soon"),
	})
	if _, err := Build(context.Background(), WithConfig(cfg), WithLogOutput(&bytes.Buffer{})); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	page := filepath.Join(cfg.Freeze.Destination, "blog", "later", "index.html")
	if _, err := os.Stat(page); err != nil {
		t.Fatalf("first build missing later: %v", err)
	}

	testutil.WriteFile(t, cfg.Content.Path, "later.md", testutil.PostSource("2013-06-02", "Later", false, "soon"))
	report, err := Build(context.Background(), WithConfig(cfg), WithLogOutput(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if _, err := os.Stat(page); !os.IsNotExist(err) {
		t.Error("unpublished post still in output")
	}
	if len(report.Removed) != 1 || report.Removed[0] != "blog/later/index.html" {
		t.Errorf("removed = %v", report.Removed)
	}
}

func TestBuild_MalformedSourceAborts(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"good.md": testutil.PostSource("2013-06-01", "Good", true, "ok"),
		"bad.md":  "title: no blank line or date",
	})
	_, err := Build(context.Background(), WithConfig(cfg), WithLogOutput(&bytes.Buffer{}))
	if !errors.Is(err, apperr.ErrMalformedMetadata) {
		t.Fatalf("err = %v, want ErrMalformedMetadata", err)
	}
	if _, statErr := os.Stat(cfg.Freeze.Destination); !os.IsNotExist(statErr) {
		t.Error("destination created despite build failure")
	}
}

func TestDeploy_RequiresTarget(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"hello.md": testutil.PostSource("2013-06-01", "Hello", true, "hi"),
	})
	_, err := Deploy(context.Background(), WithConfig(cfg), WithLogOutput(&bytes.Buffer{}))
	if err == nil || !strings.Contains(err.Error(), "deploy config") {
		t.Fatalf("err = %v", err)
	}
}

func TestSetup_RequiresConfig(t *testing.T) {
	if _, err := Build(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}
