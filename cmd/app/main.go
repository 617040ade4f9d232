package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/othalahq/othala/internal"
	pkgconfig "github.com/othalahq/othala/pkg/config"
)

// loadConfig reads the config file named by the --config flag. A missing
// file is only an error when the flag was set explicitly; otherwise the
// built-in defaults apply.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	path := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !cmd.IsSet("config") {
			return cfg, nil
		}
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if err := pkgconfig.Load(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// openEnv builds the shared environment for one-shot commands and
// refreshes the usage cache so tag counts are current. Logs go to stderr
// to keep stdout clean for command output.
func openEnv(cmd *cli.Command) (*internal.Env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(cfg.App.LogLevel, os.Stderr)
	env, err := internal.NewEnv(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	env.SyncIndex()
	return env, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runMCP(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(cfg)
}

func main() {
	cmd := &cli.Command{
		Name:   "othala",
		Usage:  "Tag vocabulary manager for Markdown image vaults: consistent tags, usage counts, and generated reference notes",
		Action: runServe,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("OTHALA_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server and vault watcher",
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Serve othala tools over the Model Context Protocol on stdio",
				Action: runMCP,
			},
			scanCommand(),
			tagsCommand(),
			noteCommand(),
			imagesCommand(),
			settingsCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
