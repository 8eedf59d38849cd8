package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/notas/internal/accounts"
	"github.com/starford/notas/internal/notes"
	"github.com/starford/notas/internal/sse"
	"github.com/starford/notas/internal/storage"
)

// App is the wired core: one store shared by the account directory and the
// note repository.
type App struct {
	Config    *Config
	Logger    *slog.Logger
	Store     storage.Store
	Directory *accounts.Directory
	Notes     *notes.Repository

	version string
}

func newApplication(opts []Option) (*application, error) {
	a := &application{
		logOutput: os.Stdout,
		version:   "dev",
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return a, nil
}

// Open builds the core without any front-end. Callers must Close it.
func Open(ctx context.Context, opts ...Option) (*App, error) {
	a, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	return a.open(ctx, a.newLogger(), nil)
}

// newLogger builds the configured JSON logger and makes it the default.
func (a *application) newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// newBroker starts the event broker logging through logger.
func (a *application) newBroker(logger *slog.Logger) *sse.Broker {
	return sse.NewBroker(a.config.Events.StatsThrottle, sse.WithLogger(logger))
}

// open connects the store and wires the components. A non-nil broker
// receives account and note events.
func (a *application) open(ctx context.Context, logger *slog.Logger, broker *sse.Broker) (*App, error) {
	cfg := a.config

	store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN())
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	logger.Debug("Storage opened", slog.String("driver", cfg.Storage.Driver))

	dirOpts := []accounts.Option{accounts.WithLogger(logger)}
	noteOpts := []notes.Option{notes.WithLogger(logger)}
	if broker != nil {
		dirOpts = append(dirOpts, accounts.WithEvents(broker.PublishAccountEvent))
		noteOpts = append(noteOpts, notes.WithEvents(broker.PublishNoteEvent))
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Directory: accounts.New(store, dirOpts...),
		Notes:     notes.New(store, noteOpts...),
		version:   a.version,
	}, nil
}

// Close releases the store.
func (app *App) Close() error {
	if err := app.Store.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	return nil
}
