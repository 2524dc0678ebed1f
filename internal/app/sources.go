package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/guarzo/axiom/internal/cache"
	"github.com/guarzo/axiom/internal/config"
	"github.com/guarzo/axiom/internal/fetch"
	"github.com/guarzo/axiom/internal/llm"
	"github.com/guarzo/axiom/internal/pricesource"
)

// generators holds the configured text-generation providers. Either may be
// nil when no configured strategy needs it.
type generators struct {
	gemini     llm.Generator
	perplexity llm.Generator
}

// require checks that gen is configured and, for retrieval strategies,
// that it actually searches the web.
func (g generators) require(name string, gen llm.Generator, strategy string, retrieval bool) error {
	if gen == nil {
		return fmt.Errorf("app: strategy %q needs the %s provider", strategy, name)
	}
	if retrieval && !gen.Retrieval() {
		return fmt.Errorf("app: strategy %q needs a search-grounded provider, %s is not", strategy, gen.Name())
	}
	return nil
}

// buildSources turns the configured strategy names into sources. direct_page
// expands to one page source per marketplace.
func buildSources(cfg config.ResearchConfig, gens generators, pages fetch.Fetcher, opts pricesource.Options) ([]pricesource.Source, pricesource.Source, error) {
	var primaries []pricesource.Source
	seen := make(map[string]bool)
	for _, name := range cfg.Primaries {
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case config.StrategyEstimate:
			if err := gens.require("gemini", gens.gemini, name, false); err != nil {
				return nil, nil, err
			}
			primaries = append(primaries, pricesource.NewEstimateSource(gens.gemini, opts))
		case config.StrategyRetrievalStructured:
			if err := gens.require("perplexity", gens.perplexity, name, true); err != nil {
				return nil, nil, err
			}
			primaries = append(primaries, pricesource.NewRetrievalStructuredSource(gens.perplexity, opts))
		case config.StrategyDirectPage:
			if err := gens.require("gemini", gens.gemini, name, false); err != nil {
				return nil, nil, err
			}
			primaries = append(primaries,
				pricesource.NewGunBrokerPage(pages, gens.gemini, opts),
				pricesource.NewEBayPage(pages, gens.gemini, opts),
			)
		default:
			return nil, nil, fmt.Errorf("app: unknown primary strategy %q", name)
		}
	}

	var fallback pricesource.Source
	switch cfg.Fallback {
	case "":
	case config.StrategyRetrievalText:
		if err := gens.require("perplexity", gens.perplexity, cfg.Fallback, true); err != nil {
			return nil, nil, err
		}
		fallback = pricesource.NewRetrievalTextSource(gens.perplexity, opts)
	case config.StrategyEstimate:
		if err := gens.require("gemini", gens.gemini, cfg.Fallback, false); err != nil {
			return nil, nil, err
		}
		fallback = pricesource.NewEstimateSource(gens.gemini, opts)
	default:
		return nil, nil, fmt.Errorf("app: unknown fallback strategy %q", cfg.Fallback)
	}

	if len(primaries) == 0 && fallback == nil {
		return nil, nil, fmt.Errorf("app: no research sources configured")
	}
	return primaries, fallback, nil
}

// cacheSources wraps every source with the result cache.
func cacheSources(primaries []pricesource.Source, fallback pricesource.Source, store cache.Store, ttl time.Duration, logger *slog.Logger) ([]pricesource.Source, pricesource.Source) {
	wrapped := make([]pricesource.Source, len(primaries))
	for i, src := range primaries {
		wrapped[i] = pricesource.WithCache(src, store, ttl, logger)
	}
	if fallback != nil {
		fallback = pricesource.WithCache(fallback, store, ttl, logger)
	}
	return wrapped, fallback
}
