package pricesource

import (
	"context"
	"log/slog"
	"time"

	"github.com/guarzo/axiom/internal/cache"
	"github.com/guarzo/axiom/internal/model"
)

// CachedSource serves recent successful results from a cache.Store so the
// same item does not bill a provider twice within the TTL. Failures are
// never cached.
type CachedSource struct {
	Source
	store  cache.Store
	ttl    time.Duration
	logger *slog.Logger
}

// WithCache wraps src. A nil store returns src unchanged.
func WithCache(src Source, store cache.Store, ttl time.Duration, logger *slog.Logger) Source {
	if store == nil || ttl <= 0 {
		return src
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{Source: src, store: store, ttl: ttl, logger: logger}
}

func (c *CachedSource) Fetch(ctx context.Context, item string) model.SourceResult {
	key := cache.SourceKey(string(c.Strategy()), c.Name(), item)

	var cached model.SourceResult
	found, err := c.store.Get(ctx, key, &cached)
	if err != nil {
		c.logger.Warn("PriceSource: cache read failed", "source", c.Name(), "error", err)
	} else if found && cached.Succeeded {
		c.logger.Debug("PriceSource: cache hit", "source", c.Name(), "item", item)
		return cached
	}

	res := c.Source.Fetch(ctx, item)
	if res.Succeeded && len(res.Observations) > 0 {
		if err := c.store.Put(ctx, key, res, c.ttl); err != nil {
			c.logger.Warn("PriceSource: cache write failed", "source", c.Name(), "error", err)
		}
	}
	return res
}
