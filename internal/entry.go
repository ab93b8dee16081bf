// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/bloggen/internal/blog"
	"github.com/starford/bloggen/internal/deploy"
	"github.com/starford/bloggen/internal/freeze"
	"github.com/starford/bloggen/internal/ledger"
	"github.com/starford/bloggen/internal/markdown"
	"github.com/starford/bloggen/internal/mcpserver"
	"github.com/starford/bloggen/internal/metrics"
	"github.com/starford/bloggen/internal/site"
	"github.com/starford/bloggen/internal/sse"
	"github.com/starford/bloggen/internal/storage"
)

// runtime is the state shared by every mode: the content store, the
// current index and the rendering collaborators.
type runtime struct {
	cfg       *Config
	logger    *slog.Logger
	debug     bool
	store     *storage.FS
	blogs     *blog.Holder
	renderer  *markdown.Converter
	templates *site.Templates
}

func setup(opts []Option) (*runtime, error) {
	app := newApplication(opts)
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	debug := app.debug || cfg.App.Debug
	logger.Info("Configuration loaded",
		slog.String("content_path", cfg.Content.Path),
		slog.String("extension", cfg.Content.Extension),
		slog.Bool("debug", debug),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Content.Path)
	if err != nil {
		return nil, fmt.Errorf("init content: %w", err)
	}

	b, err := blog.Build(store, cfg.Content.Extension, logger)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	templates, err := site.LoadTemplates(cfg.Site.TemplatesPath)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		debug:     debug,
		store:     store,
		blogs:     blog.NewHolder(b),
		renderer:  markdown.New(cfg.Markdown.Options()),
		templates: templates,
	}, nil
}

func (rt *runtime) router(debug bool, events http.Handler) chi.Router {
	return site.NewRouter(rt.blogs, site.Options{
		Debug:     debug,
		Site:      rt.cfg.Site.Info(),
		StaticDir: rt.cfg.Site.StaticPath,
		Templates: rt.templates,
		Renderer:  rt.renderer,
		Logger:    rt.logger,
		Events:    events,
	})
}

// freeze writes every published route to the freeze destination.
func (rt *runtime) freeze(ctx context.Context) (*freeze.Report, error) {
	out, err := storage.EnsureFS(rt.cfg.Freeze.Destination)
	if err != nil {
		return nil, fmt.Errorf("init destination: %w", err)
	}
	f := &freeze.Freezer{
		Handler: rt.router(false, nil),
		Routes:  site.RouteLister{Blogs: rt.blogs, StaticDir: rt.cfg.Site.StaticPath},
		Out:     out,
		Logger:  rt.logger,
	}
	return f.Freeze(ctx)
}

// Run serves the site until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	cfg, logger := rt.cfg, rt.logger

	// SSE broker for live reload.
	broker := sse.NewBroker(sse.DefaultHeartbeat)
	defer broker.Close()

	m := metrics.New(nil)
	m.ObserveIndex(rt.blogs.Load().Len())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)
	r.Handle("/metrics", m.Handler())
	r.Mount("/", rt.router(rt.debug, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.App.Watch || rt.debug {
		rebuild := blog.Rebuilder(rt.blogs, rt.store, cfg.Content.Extension, logger, func(b *blog.Blog, err error) {
			m.ObserveRebuild(err)
			if err != nil {
				return
			}
			m.ObserveIndex(b.Len())
			broker.PublishReload(b.Len())
		})
		g.Go(func() error {
			if err := blog.Watch(gCtx, rt.store.Root(), cfg.Content.Extension, blog.DefaultDebounce, logger, rebuild); err != nil {
				logger.Warn("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// Build freezes the published site to the freeze destination.
func Build(ctx context.Context, opts ...Option) (*freeze.Report, error) {
	rt, err := setup(opts)
	if err != nil {
		return nil, err
	}
	return rt.freeze(ctx)
}

// Deploy freezes the site and uploads the result to the configured bucket.
func Deploy(ctx context.Context, opts ...Option) (*deploy.Report, error) {
	rt, err := setup(opts)
	if err != nil {
		return nil, err
	}
	cfg := rt.cfg
	if err := cfg.Deploy.ValidateTarget(); err != nil {
		return nil, fmt.Errorf("deploy config: %w", err)
	}

	frozen, err := rt.freeze(ctx)
	if err != nil {
		return nil, err
	}

	bucket, err := deploy.NewS3Bucket(cfg.Deploy.S3())
	if err != nil {
		return nil, err
	}
	if err := bucket.Check(ctx); err != nil {
		return nil, err
	}

	d := &deploy.Deployer{
		Bucket:          bucket,
		Concurrency:     cfg.Deploy.Concurrency,
		ContinueOnError: cfg.Deploy.ContinueOnError,
		Logger:          rt.logger,
	}
	if cfg.Deploy.LedgerPath != "" {
		db, err := ledger.Open(cfg.Deploy.LedgerPath)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		d.Recorder = db
	}
	return d.Deploy(ctx, frozen.Destination)
}

// ServeMCP serves the read-only MCP tools on stdio. Logs must not share
// stdout with the protocol, so callers pass WithLogOutput(os.Stderr).
func ServeMCP(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}

	var history mcpserver.DeployHistory
	if path := rt.cfg.Deploy.LedgerPath; path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			db, err := ledger.Open(path)
			if err != nil {
				return err
			}
			defer db.Close()
			history = db
		}
	}

	srv := mcpserver.New(rt.blogs, rt.renderer, site.PostPath, history)

	watchCtx, stop := context.WithCancel(ctx)
	defer stop()
	var g errgroup.Group
	if rt.cfg.App.Watch {
		rebuild := blog.Rebuilder(rt.blogs, rt.store, rt.cfg.Content.Extension, rt.logger, nil)
		g.Go(func() error {
			return blog.Watch(watchCtx, rt.store.Root(), rt.cfg.Content.Extension, blog.DefaultDebounce, rt.logger, rebuild)
		})
	}

	serveErr := srv.ServeStdio()
	stop()
	return errors.Join(serveErr, g.Wait())
}
