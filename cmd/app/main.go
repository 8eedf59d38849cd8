package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notas/internal"
	"github.com/starford/notas/internal/apperr"
	pkgconfig "github.com/starford/notas/pkg/config"
)

var version = "dev"

// loadConfig reads the --config file. The default path may be absent, in
// which case built-in defaults apply; an explicit path must exist.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		return cfg, nil
	}
	if _, err := pkgconfig.LoadIfExists(configPath, cfg); err != nil {
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
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// stdout carries the MCP protocol.
	return internal.ServeMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
		internal.WithVersion(version),
	)
}

func main() {
	cmd := &cli.Command{
		Name:    "notas",
		Usage:   "Per-user notes with accounts, a REST API and an MCP server",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			registerCommand(),
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			notesCommand(),
			exportCommand(),
			importCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		report(os.Stderr, err)
		os.Exit(1)
	}
}

// report prints err for the user. Store failures are logged instead since
// their text carries driver details.
func report(w io.Writer, err error) {
	if errors.Is(err, apperr.ErrStore) {
		slog.Error("application error", slog.String("error", err.Error()))
		return
	}
	msg := apperr.Message(err)
	if msg == "internal error" {
		// Flag parsing, arguments and startup errors are already readable.
		msg = err.Error()
	}
	fmt.Fprintln(w, "notas:", msg)
}
