// Package server exposes research and bid calculation over JSON HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/guarzo/axiom/internal/model"
	"github.com/guarzo/axiom/internal/research"
)

// ItemStore is the slice of the database the handlers need.
type ItemStore interface {
	Item(ctx context.Context, id string) (model.Item, error)
	Settings(ctx context.Context) (model.Settings, error)
	SetMarketValue(ctx context.Context, id string, value float64) error
	research.AuditWriter
}

type Researcher interface {
	Research(ctx context.Context, item string) research.Outcome
}

type Scraper interface {
	Scrape(ctx context.Context, req research.ScrapeRequest) research.ScrapeOutcome
}

type FeeResolver interface {
	Resolve(ctx context.Context, item model.Item) (model.FeeChain, error)
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Store      ItemStore
	Researcher Researcher
	Scraper    Scraper
	Fees       FeeResolver
	// NotFound is matched with errors.Is to map lookups to 404.
	NotFound error
	// Health is checked by /healthz; nil always reports ok.
	Health func(ctx context.Context) error
	Logger *slog.Logger
}

// Config holds the HTTP server parameters.
type Config struct {
	Addr         string
	APIKeys      []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// PersistTimeout bounds the audit write after a research request.
	PersistTimeout time.Duration
}

const maxBodyBytes = 64 << 10

// Server owns the router and the underlying http.Server.
type Server struct {
	httpServer *http.Server
	handler    *handler
	logger     *slog.Logger
}

// New builds the router and server.
func New(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	h := &handler{deps: deps, logger: deps.Logger, persistTimeout: cfg.PersistTimeout}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           newRouter(h, cfg.APIKeys),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
		handler: h,
		logger:  deps.Logger,
	}
}

// newRouter mounts the routes. Everything under /api requires an API key,
// checked before any body is read.
func newRouter(h *handler, apiKeys []string) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging(h.logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Use(Auth(apiKeys))
		r.Post("/auto-research", h.autoResearch)
		r.Post("/scrape", h.scrape)
		r.Post("/items/{id}/market-value", h.setMarketValue)
		r.Get("/items/{id}/bids", h.bids)
		r.Get("/items/{id}/bids.csv", h.bidsCSV)
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the server stops. A graceful shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("Server: listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
