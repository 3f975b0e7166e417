package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/vaultmcp/internal"
	pkgconfig "github.com/starford/vaultmcp/pkg/config"
)

var version = "dev"

func run(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Read(configPath, cfg); err != nil {
		// The default path is optional; flags and env may carry everything.
		if !errors.Is(err, os.ErrNotExist) || cmd.IsSet("config") {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if cmd.IsSet("vault-url") {
		cfg.Vault.BaseURL = cmd.String("vault-url")
	}
	if cmd.IsSet("api-key") {
		cfg.Vault.APIKey = cmd.String("api-key")
	}
	if cmd.IsSet("vault-path") {
		cfg.Vault.Mode = internal.VaultModeFS
		cfg.Vault.Path = cmd.String("vault-path")
	}
	if err := pkgconfig.Validate(cfg); err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithStdio(cmd.Bool("stdio")),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "vaultmcp",
		Usage:   "MCP and REST access to an Obsidian vault through the Local REST API",
		Version: version,
		Action:  run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "stdio",
				Usage: "Serve MCP on stdin/stdout instead of HTTP",
			},
			&cli.StringFlag{
				Name:    "vault-url",
				Usage:   "Local REST API base URL",
				Sources: cli.EnvVars("OBSIDIAN_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Local REST API key",
				Sources: cli.EnvVars("OBSIDIAN_API_KEY"),
			},
			&cli.StringFlag{
				Name:  "vault-path",
				Usage: "Serve a local directory instead of the REST API",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
