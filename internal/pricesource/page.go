package pricesource

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guarzo/axiom/internal/extract"
	"github.com/guarzo/axiom/internal/fetch"
	"github.com/guarzo/axiom/internal/llm"
	"github.com/guarzo/axiom/internal/model"
)

// ErrThinPage is returned when a fetched page has too little visible text
// to be worth sending to the extraction model.
var ErrThinPage = fmt.Errorf("%w: visible text below %d characters", ErrExtraction, extract.MinVisibleText)

// pageMaxTokens caps the extraction reply; a JSON array of prices is short.
const pageMaxTokens = 1024

// PageExtractor has a model pull sold prices out of an already fetched
// page. It is used on its own for user-supplied URLs.
type PageExtractor struct {
	name      string
	extractor llm.Generator
	filter    extract.NumberArrayFilter
	logger    *slog.Logger
}

// NewPageExtractor returns an extractor that reports itself as name in logs.
func NewPageExtractor(name string, extractor llm.Generator, opts Options) *PageExtractor {
	return &PageExtractor{
		name:      name,
		extractor: extractor,
		filter:    extract.NumberArrayFilter{Bounds: extract.StructuredBounds},
		logger:    opts.logger(),
	}
}

// ExtractPage runs the visible-text and model extraction steps on page.
// Extraction failures wrap ErrExtraction; a failed model call wraps
// ErrSourceUnavailable.
func (e *PageExtractor) ExtractPage(ctx context.Context, item string, page *fetch.Page) ([]float64, error) {
	text, err := extract.VisibleText(bytes.NewReader(page.Body))
	if err != nil {
		return nil, extraction(err)
	}
	if len([]rune(text)) < extract.MinVisibleText {
		e.logger.Debug("PriceSource: page too thin", "source", e.name, "url", page.URL, "chars", len(text))
		return nil, ErrThinPage
	}

	resp, err := e.extractor.Generate(ctx, llm.Request{
		System: "You extract data from web page text. You never invent values.",
		Prompt: fmt.Sprintf(
			"The text below comes from a sold-listings search page (%s) for %q. "+
				"Extract the final sold prices in USD of listings that match this item. "+
				"Ignore shipping costs, asking prices, and unrelated listings. "+
				"Respond with ONLY a JSON array of numbers, for example [325, 410.5]. "+
				"Respond with [] if there are none.\n\n%s",
			page.URL, item, extract.Truncate(text, extract.MaxExtractionChars)),
		JSON:        true,
		Temperature: 0,
		MaxTokens:   pageMaxTokens,
	})
	if err != nil {
		return nil, unavailable(err)
	}

	values, err := e.filter.Extract(resp.Text)
	if err != nil {
		return nil, extraction(err)
	}
	return values, nil
}

// PageSource fetches a marketplace search page and has a PageExtractor
// pull the sold prices out of it.
type PageSource struct {
	*PageExtractor
	buildURL func(item string) string
	fetcher  fetch.Fetcher
	timeout  time.Duration
}

// NewPageSource returns a direct-page source for one marketplace. buildURL
// turns an item description into that marketplace's sold-listings search.
func NewPageSource(name string, buildURL func(string) string, fetcher fetch.Fetcher, extractor llm.Generator, opts Options) *PageSource {
	return &PageSource{
		PageExtractor: NewPageExtractor(name, extractor, opts),
		buildURL:      buildURL,
		fetcher:       fetcher,
		timeout:       opts.Timeout,
	}
}

// NewGunBrokerPage is the GunBroker completed-auctions page source.
func NewGunBrokerPage(fetcher fetch.Fetcher, extractor llm.Generator, opts Options) *PageSource {
	return NewPageSource("GunBroker", fetch.GunBrokerSoldURL, fetcher, extractor, opts)
}

// NewEBayPage is the eBay sold-listings page source.
func NewEBayPage(fetcher fetch.Fetcher, extractor llm.Generator, opts Options) *PageSource {
	return NewPageSource("eBay", fetch.EBaySoldURL, fetcher, extractor, opts)
}

func (p *PageSource) Name() string       { return p.name }
func (p *PageSource) Strategy() Strategy { return StrategyDirectPage }

func (p *PageSource) Fetch(ctx context.Context, item string) model.SourceResult {
	return run(ctx, p.logger, p.name, StrategyDirectPage, p.timeout, item, func(ctx context.Context) (outcome, error) {
		if p.buildURL == nil {
			return outcome{}, fmt.Errorf("%w: %s has no search url", ErrSourceUnavailable, p.name)
		}
		url := p.buildURL(item)
		out := outcome{urls: []string{url}}
		page, err := p.fetcher.Fetch(ctx, url)
		if err != nil {
			return out, unavailable(err)
		}
		values, err := p.ExtractPage(ctx, item, page)
		if err != nil {
			return out, err
		}
		out.observations = values
		return out, nil
	})
}
