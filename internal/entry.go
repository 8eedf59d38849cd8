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

	"github.com/starford/notas/internal/api"
	"github.com/starford/notas/internal/mcpserver"
	"github.com/starford/notas/internal/sse"
	"github.com/starford/notas/internal/storage"
)

// NewHandler builds the full HTTP handler: health probes plus the API under /api.
func NewHandler(app *App, broker *sse.Broker) http.Handler {
	h := api.NewHandler(app.Directory, app.Notes, app.Logger)

	var events http.Handler
	if broker != nil {
		events = broker
	}
	apiRouter := api.NewRouter(h, app.Config.Auth.AuthEnabled(), app.Config.Auth.Token, events)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	api.HealthRoutes(r, app.Store)

	r.Mount("/api", apiRouter)
	return r
}

// Run starts the HTTP server with the given options and blocks until a
// signal arrives or ctx is cancelled.
func Run(ctx context.Context, opts ...Option) error {
	a, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := a.config

	logger := a.newLogger()
	broker := a.newBroker(logger)
	defer broker.Close()

	app, err := a.open(ctx, logger, broker)
	if err != nil {
		return err
	}
	defer app.Close()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           NewHandler(app, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Only the fs driver can be changed behind our back by another process.
	if fs, ok := app.Store.(*storage.FS); ok {
		g.Go(func() error {
			if err := fs.Watch(gCtx, logger, broker.PublishStoreChange); err != nil {
				logger.Warn("watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		// Streaming clients would otherwise hold Shutdown open.
		broker.Close()

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

// ServeMCP serves the MCP tools on stdin/stdout until stdin closes.
func ServeMCP(ctx context.Context, opts ...Option) error {
	a, err := newApplication(opts)
	if err != nil {
		return err
	}
	app, err := a.open(ctx, a.newLogger(), nil)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Logger.Info("MCP server starting", slog.String("storage_driver", a.config.Storage.Driver))
	return mcpserver.New(app.Directory, app.Notes, app.Logger, app.version).ServeStdio()
}
