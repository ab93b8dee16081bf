package internal

import (
	"strings"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestContentConfig_Extension(t *testing.T) {
	for _, ext := range []string{".md", ".markdown", ".txt"} {
		c := ContentConfig{Path: "content", Extension: ext}
		if err := c.Validate(); err != nil {
			t.Errorf("%q rejected: %v", ext, err)
		}
	}
	for _, ext := range []string{"md", "", ".m/d"} {
		c := ContentConfig{Path: "content", Extension: ext}
		if err := c.Validate(); err == nil {
			t.Errorf("%q accepted", ext)
		}
	}
}

func TestSiteConfig_BaseURL(t *testing.T) {
	c := SiteConfig{Title: "t", BaseURL: "https://example.com/blog"}
	if err := c.Validate(); err != nil {
		t.Fatalf("valid base url rejected: %v", err)
	}
	c.BaseURL = "example.com"
	if err := c.Validate(); err == nil {
		t.Fatal("base url without scheme accepted")
	}
}

func TestFullConfig_ReportsSection(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.HTTP.Port = 0
	err := cfg.Validate()
	if err == nil || !strings.HasPrefix(err.Error(), "app:") {
		t.Fatalf("err = %v", err)
	}

	cfg = NewDefaultConfig()
	cfg.Deploy.Concurrency = 0
	err = cfg.Validate()
	if err == nil || !strings.HasPrefix(err.Error(), "deploy:") {
		t.Fatalf("err = %v", err)
	}
}

func TestDeployConfig_ValidateTarget(t *testing.T) {
	c := NewDefaultConfig().Deploy
	if err := c.ValidateTarget(); err == nil {
		t.Fatal("empty target accepted")
	}
	c.Endpoint = "s3.example.com"
	c.Bucket = "blog"
	c.AccessKey = "key"
	c.SecretKey = "secret"
	if err := c.ValidateTarget(); err != nil {
		t.Fatalf("complete target rejected: %v", err)
	}
	if s3 := c.S3(); s3.Bucket != "blog" || !s3.UseSSL {
		t.Errorf("S3() = %+v", s3)
	}
}
