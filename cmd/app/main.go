package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/bloggen/internal"
	pkgconfig "github.com/starford/bloggen/pkg/config"
)

const defaultConfigPath = "config/config.yaml"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cmd.IsSet("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithDebug(cmd.Bool("debug")),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func build(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	report, err := internal.Build(ctx, internal.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("build error: %w", err)
	}
	slog.Info("build finished",
		slog.String("destination", report.Destination),
		slog.Int("files", len(report.Files)))
	return nil
}

func deploy(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	report, err := internal.Deploy(ctx, internal.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("deploy error: %w", err)
	}
	slog.Info("deploy finished",
		slog.String("run_id", report.RunID),
		slog.String("endpoint", report.Endpoint),
		slog.Int("objects", report.Objects))
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr))
}

func main() {
	cmd := &cli.Command{
		Name:   "bloggen",
		Usage:  "Markdown blog server with static freeze and S3 deploy",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigPath,
				Value:       defaultConfigPath,
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Show drafts, disable caching and enable live reload",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Freeze every published page to the build directory",
				Action: build,
			},
			{
				Name:   "deploy",
				Usage:  "Build, then upload the build directory to the configured bucket",
				Action: deploy,
			},
			{
				Name:   "mcp",
				Usage:  "Serve read-only post tools over MCP on stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
