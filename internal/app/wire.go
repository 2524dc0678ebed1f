package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guarzo/axiom/internal/archive"
	"github.com/guarzo/axiom/internal/bid"
	"github.com/guarzo/axiom/internal/cache"
	"github.com/guarzo/axiom/internal/config"
	"github.com/guarzo/axiom/internal/fetch"
	"github.com/guarzo/axiom/internal/llm"
	"github.com/guarzo/axiom/internal/pricesource"
	"github.com/guarzo/axiom/internal/ratelimit"
	"github.com/guarzo/axiom/internal/refresh"
	"github.com/guarzo/axiom/internal/research"
	"github.com/guarzo/axiom/internal/store/postgres"
)

// Dependencies bundles everything the HTTP server and background jobs use.
type Dependencies struct {
	Store        *postgres.Store
	Orchestrator *research.Orchestrator
	Scraper      *research.Scraper
	Fees         *bid.Resolver
	// Refresh is nil when the background job is disabled.
	Refresh *refresh.Service
}

// Wire builds the concrete dependencies from cfg. The returned cleanup
// releases them in reverse order and is safe to call after an error.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Name,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("app: connect postgres: %w", err)
	}
	closers = append(closers, store.Close)

	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx, logger); err != nil {
			return nil, cleanup, fmt.Errorf("app: migrate: %w", err)
		}
	}

	resultCache, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return nil, cleanup, err
	}
	if closeCache != nil {
		closers = append(closers, closeCache)
	}

	limits := ratelimit.NewRegistry(nil)
	// Manual scrapes always extract with Gemini, so the client exists even
	// when no research strategy needs it.
	gemini := llm.NewGeminiClient(providerConfig(cfg.Gemini), limits)
	gens := generators{}
	if cfg.NeedsGemini() {
		gens.gemini = gemini
	}
	if cfg.NeedsPerplexity() {
		gens.perplexity = llm.NewPerplexityClient(providerConfig(cfg.Perplexity), limits)
	}

	httpFetcher := fetch.NewHTTPFetcher(fetch.Config{
		Timeout:      cfg.Fetch.Timeout.Duration,
		UserAgents:   cfg.Fetch.UserAgents,
		UseRandomUA:  len(cfg.Fetch.UserAgents) > 1,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	}, limits)
	var pages fetch.Fetcher = httpFetcher
	if cfg.Browser.Enabled {
		pages = fetch.NewBrowserFetcher(fetch.BrowserConfig{
			ExecPath: cfg.Browser.ExecPath,
			Timeout:  cfg.Browser.Timeout.Duration,
			Settle:   cfg.Browser.Settle.Duration,
		}, limits, logger)
	}

	opts := pricesource.Options{Logger: logger}
	primaries, fallback, err := buildSources(cfg.Research, gens, pages, opts)
	if err != nil {
		return nil, cleanup, err
	}
	primaries, fallback = cacheSources(primaries, fallback, resultCache, cfg.Cache.TTL.Duration, logger)

	orchestrator := research.NewOrchestrator(primaries, fallback, research.Config{
		MinObservations: cfg.Research.MinObservations,
		RequestBudget:   cfg.Research.RequestBudget.Duration,
		Logger:          logger,
	})

	var archiver research.Archiver
	if cfg.Archive.Enabled {
		s3a, err := archive.NewS3Archiver(ctx, archive.Config{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			Prefix:         cfg.Archive.Prefix,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("app: snapshot archive: %w", err)
		}
		archiver = s3a
	}

	extractor := pricesource.NewPageExtractor("Manual", gemini, opts)
	scraper := research.NewScraper(httpFetcher, extractor, archiver, research.ScraperConfig{
		Budget: cfg.Research.ScrapeBudget.Duration,
		Logger: logger,
	})

	deps := &Dependencies{
		Store:        store,
		Orchestrator: orchestrator,
		Scraper:      scraper,
		Fees:         bid.NewResolver(store),
	}

	if cfg.Refresh.Enabled {
		deps.Refresh = refresh.NewService(store, orchestrator, store, refresh.Options{
			Schedule:  cfg.Refresh.Schedule,
			MaxAge:    cfg.Refresh.MaxAge.Duration,
			BatchSize: cfg.Refresh.BatchSize,
			Workers:   cfg.Refresh.Workers,
		}, logger)
	}
	return deps, cleanup, nil
}

// openCache returns a nil store for the "none" backend.
func openCache(ctx context.Context, cfg *config.Config) (cache.Store, func(), error) {
	switch cfg.Cache.Backend {
	case "none":
		return nil, nil, nil
	case "redis":
		rs, err := cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			TLSEnabled: cfg.Redis.TLS,
			Prefix:     cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("app: connect redis: %w", err)
		}
		return rs, func() { _ = rs.Close() }, nil
	default:
		fs, err := cache.NewFileStore(cfg.Cache.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("app: open file cache: %w", err)
		}
		return fs, nil, nil
	}
}

func providerConfig(p config.ProviderConfig) llm.Config {
	return llm.Config{
		APIKey:  p.APIKey,
		BaseURL: p.BaseURL,
		Model:   p.Model,
		Timeout: p.Timeout.Duration,
	}
}
