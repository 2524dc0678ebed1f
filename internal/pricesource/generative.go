package pricesource

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/guarzo/axiom/internal/extract"
	"github.com/guarzo/axiom/internal/llm"
	"github.com/guarzo/axiom/internal/model"
)

// Marketplaces named in retrieval prompts, keyed as the structured
// response must key them.
var Marketplaces = []struct {
	Key  string
	Name string
}{
	{"gunbroker", "GunBroker"},
	{"rock_island", "Rock Island Auction"},
	{"ebay", "eBay"},
	{"proxibid", "Proxibid"},
}

// Reply caps. An estimate is a single line of numbers; retrieval answers
// carry one line or array entry per sale found.
const (
	estimateMaxTokens  = 256
	retrievalMaxTokens = 1024
)

const analystSystem = "You are a firearms and sporting goods auction price analyst. You report completed sale prices only, never asking prices."

// GenerativeSource asks a text-generation provider about an item and runs
// the response through the strategy's observation filter.
type GenerativeSource struct {
	name      string
	strategy  Strategy
	generator llm.Generator
	prompt    func(item string) llm.Request
	filter    extract.Filter
	timeout   time.Duration
	logger    *slog.Logger
}

// Options are shared by every source constructor.
type Options struct {
	// Timeout bounds a single provider call. Zero leaves only the caller's
	// context in force.
	Timeout time.Duration
	Logger  *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// NewEstimateSource asks a knowledge-only model for plausible completed
// sale prices. The tight EstimateBounds reject speculative outliers.
func NewEstimateSource(gen llm.Generator, opts Options) *GenerativeSource {
	return &GenerativeSource{
		name:      gen.Name(),
		strategy:  StrategyEstimate,
		generator: gen,
		prompt: func(item string) llm.Request {
			return llm.Request{
				System: analystSystem,
				Prompt: fmt.Sprintf(
					"Using your knowledge of GunBroker, Rock Island Auction, and eBay completed sales, "+
						"list 6 to 8 realistic completed sale prices in USD for: %q. "+
						"Respond with ONLY a comma-separated list of numbers. No labels, no currency symbols, no explanation. "+
						"Example output: 285, 310, 275, 325, 295, 300", item),
				Temperature: 0.2,
				MaxTokens:   estimateMaxTokens,
			}
		},
		filter:  extract.NewNumericTokenFilter(extract.EstimateBounds),
		timeout: opts.Timeout,
		logger:  opts.logger(),
	}
}

// NewRetrievalTextSource asks a search-grounded model for recent sales and
// reads numbers out of its prose answer.
func NewRetrievalTextSource(gen llm.Generator, opts Options) *GenerativeSource {
	return &GenerativeSource{
		name:      gen.Name(),
		strategy:  StrategyRetrievalText,
		generator: gen,
		prompt: func(item string) llm.Request {
			return llm.Request{
				System: analystSystem,
				Prompt: fmt.Sprintf(
					"Search GunBroker completed auctions, Rock Island Auction results, Proxibid and eBay sold listings "+
						"for recent completed sale prices of: %q. "+
						"List each sale price you find in USD as a plain number, one per line. "+
						"Do not include shipping costs, estimates, or asking prices.", item),
				Temperature: 0,
				MaxTokens:   retrievalMaxTokens,
			}
		},
		filter:  extract.NewNumericTokenFilter(extract.RetrievalTextBounds),
		timeout: opts.Timeout,
		logger:  opts.logger(),
	}
}

// NewRetrievalStructuredSource asks a search-grounded model for a JSON
// breakdown with one price array per named marketplace.
func NewRetrievalStructuredSource(gen llm.Generator, opts Options) *GenerativeSource {
	return &GenerativeSource{
		name:      gen.Name(),
		strategy:  StrategyRetrievalStructured,
		generator: gen,
		prompt: func(item string) llm.Request {
			return llm.Request{
				System: analystSystem,
				Prompt: fmt.Sprintf(
					"Find recent completed sale prices for %q on each of these marketplaces: %s. "+
						"Respond with ONLY a JSON object with exactly these keys: %s. "+
						"Each value is an array of sold prices in USD as numbers. Use an empty array when a marketplace has no sales.",
					item, marketplaceNames(), marketplaceKeys()),
				JSON:        true,
				Temperature: 0,
				MaxTokens:   retrievalMaxTokens,
			}
		},
		filter:  extract.KeyedArrayFilter{Bounds: extract.StructuredBounds},
		timeout: opts.Timeout,
		logger:  opts.logger(),
	}
}

func (s *GenerativeSource) Name() string       { return s.name }
func (s *GenerativeSource) Strategy() Strategy { return s.strategy }

func (s *GenerativeSource) Fetch(ctx context.Context, item string) model.SourceResult {
	return run(ctx, s.logger, s.name, s.strategy, s.timeout, item, func(ctx context.Context) (outcome, error) {
		resp, err := s.generator.Generate(ctx, s.prompt(item))
		if err != nil {
			return outcome{}, unavailable(err)
		}
		s.logger.Debug("PriceSource: raw response", "source", s.name, "item", item, "text", extract.Truncate(resp.Text, 300))

		out := outcome{urls: resp.Citations}
		if keyed, ok := s.filter.(extract.KeyedArrayFilter); ok {
			k, err := keyed.ExtractKeyed(resp.Text)
			if err != nil {
				return out, extraction(err)
			}
			out.observations = k.All()
			out.contributors = displayNames(k.Contributors())
			return out, nil
		}

		values, err := s.filter.Extract(resp.Text)
		if err != nil {
			return out, extraction(err)
		}
		out.observations = values
		return out, nil
	})
}

func marketplaceNames() string {
	names := make([]string, len(Marketplaces))
	for i, m := range Marketplaces {
		names[i] = m.Name
	}
	return strings.Join(names, ", ")
}

func marketplaceKeys() string {
	keys := make([]string, len(Marketplaces))
	for i, m := range Marketplaces {
		keys[i] = strconv.Quote(m.Key)
	}
	return strings.Join(keys, ", ")
}

// displayNames maps response keys to marketplace names; unknown keys pass
// through unchanged.
func displayNames(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		name := k
		for _, m := range Marketplaces {
			if m.Key == k {
				name = m.Name
				break
			}
		}
		out = append(out, name)
	}
	return out
}
