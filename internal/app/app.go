// Package app wires the service together and owns its lifecycle.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/guarzo/axiom/internal/config"
	"github.com/guarzo/axiom/internal/server"
	"github.com/guarzo/axiom/internal/store/postgres"
)

// App runs the HTTP API and, when enabled, the refresh scheduler.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Run blocks until ctx is cancelled or the server fails, then drains
// in-flight requests.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	a.closers = append(a.closers, cleanup)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:         a.cfg.Server.Addr,
		APIKeys:      a.cfg.Server.APIKeys,
		ReadTimeout:  a.cfg.Server.ReadTimeout.Duration,
		WriteTimeout: a.cfg.Server.WriteTimeout.Duration,
	}, server.Deps{
		Store:      deps.Store,
		Researcher: deps.Orchestrator,
		Scraper:    deps.Scraper,
		Fees:       deps.Fees,
		NotFound:   postgres.ErrNotFound,
		Health:     deps.Store.Ping,
		Logger:     a.logger,
	})

	if deps.Refresh != nil {
		if err := deps.Refresh.Start(ctx); err != nil {
			return err
		}
		defer func() {
			<-deps.Refresh.Stop().Done()
			a.logger.Info("App: refresh stopped")
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		a.logger.Info("App: shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("app: shutdown: %w", err)
	}
	return nil
}

// Close releases everything Wire opened. Later calls are no-ops.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
