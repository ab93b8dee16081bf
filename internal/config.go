package internal

import (
	"fmt"
	"log/slog"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/bloggen/internal/blog"
	"github.com/starford/bloggen/internal/deploy"
	"github.com/starford/bloggen/internal/feed"
	"github.com/starford/bloggen/internal/markdown"
)

var (
	extPattern     = regexp.MustCompile(`^\.[A-Za-z0-9]+$`)
	baseURLPattern = regexp.MustCompile(`^https?://[^/\s]+(/\S*)?$`)
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Content  ContentConfig     `yaml:"content"`
	Site     SiteConfig        `yaml:"site"`
	Markdown MarkdownConfig    `yaml:"markdown"`
	Freeze   FreezeConfig      `yaml:"freeze"`
	Deploy   DeployConfig      `yaml:"deploy"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Content.Validate(); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	if err := c.Freeze.Validate(); err != nil {
		return fmt.Errorf("freeze: %w", err)
	}
	if err := c.Deploy.Validate(); err != nil {
		return fmt.Errorf("deploy: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// Debug shows drafts, disables caching and enables live reload.
	Debug bool       `yaml:"debug"`
	HTTP  HTTPConfig `yaml:"http"`
	// Watch rebuilds the index when content files change.
	Watch bool `yaml:"watch"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ContentConfig locates the post sources.
type ContentConfig struct {
	Path      string `yaml:"path"`
	Extension string `yaml:"extension"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Extension, validation.Required, validation.Match(extPattern)),
	)
}

// SiteConfig holds what the pages and the feed say about the site.
type SiteConfig struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Author   string `yaml:"author"`
	// BaseURL makes feed links absolute.
	BaseURL       string `yaml:"base_url"`
	StaticPath    string `yaml:"static_path"`
	TemplatesPath string `yaml:"templates_path"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Title, validation.Required),
		validation.Field(&c.BaseURL, validation.Match(baseURLPattern)),
	)
}

// Info returns the feed and page metadata.
func (c *SiteConfig) Info() feed.SiteInfo {
	return feed.SiteInfo{
		Title:    c.Title,
		Subtitle: c.Subtitle,
		Author:   c.Author,
		BaseURL:  c.BaseURL,
	}
}

// MarkdownConfig holds rendering options.
type MarkdownConfig struct {
	HighlightStyle string `yaml:"highlight_style"`
	LineNumbers    bool   `yaml:"line_numbers"`
}

// Options returns the converter options.
func (c *MarkdownConfig) Options() markdown.Options {
	return markdown.Options{HighlightStyle: c.HighlightStyle, LineNumbers: c.LineNumbers}
}

// FreezeConfig holds the build output directory.
type FreezeConfig struct {
	Destination string `yaml:"destination"`
}

// Validate validates the freeze configuration.
func (c *FreezeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Destination, validation.Required),
	)
}

// DeployConfig locates the target bucket.
type DeployConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	AccessKey       string `yaml:"access_key"`
	SecretKey       string `yaml:"secret_key"`
	UseSSL          bool   `yaml:"use_ssl"`
	Concurrency     int    `yaml:"concurrency"`
	ContinueOnError bool   `yaml:"continue_on_error"`
	// LedgerPath is the SQLite deploy history; empty disables it.
	LedgerPath string `yaml:"ledger_path"`
}

// Validate checks the fields that matter in every mode. The bucket
// itself is checked by ValidateTarget when a deploy starts.
func (c *DeployConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Concurrency, validation.Min(1), validation.Max(64)),
	)
}

// ValidateTarget validates the bucket coordinates.
func (c *DeployConfig) ValidateTarget() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, validation.Required),
		validation.Field(&c.Bucket, validation.Required),
		validation.Field(&c.AccessKey, validation.Required),
		validation.Field(&c.SecretKey, validation.Required),
	)
}

// S3 returns the bucket client configuration.
func (c *DeployConfig) S3() deploy.S3Config {
	return deploy.S3Config{
		Endpoint:  c.Endpoint,
		Bucket:    c.Bucket,
		Region:    c.Region,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		UseSSL:    c.UseSSL,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Content: ContentConfig{
			Path:      "./content",
			Extension: blog.DefaultExtension,
		},
		Site: SiteConfig{
			Title:      "bloggen",
			StaticPath: "./static",
		},
		Markdown: MarkdownConfig{
			HighlightStyle: markdown.DefaultStyle,
		},
		Freeze: FreezeConfig{
			Destination: "./build",
		},
		Deploy: DeployConfig{
			UseSSL:      true,
			Concurrency: 4,
		},
	}
}
