package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guarzo/axiom/internal/fetch"
	"github.com/guarzo/axiom/internal/model"
	"github.com/guarzo/axiom/internal/pricesource"
	"github.com/guarzo/axiom/internal/stats"
)

// PageExtractor pulls sold prices out of a fetched page.
type PageExtractor interface {
	ExtractPage(ctx context.Context, item string, page *fetch.Page) ([]float64, error)
}

// Archiver keeps a copy of a fetched page and returns where it went.
type Archiver interface {
	Snapshot(ctx context.Context, itemID string, page *fetch.Page) (string, error)
}

// ScrapeRequest names the user-supplied listing pages for one item.
type ScrapeRequest struct {
	ItemID   string
	ItemName string
	URL1     string
	URL2     string
}

// ScrapeOutcome is the result of a manual URL scrape.
type ScrapeOutcome struct {
	Prices      []float64
	Estimate    model.AggregateEstimate
	Status      Status
	Message     string
	Err         error
	URLsScraped int
	Snapshots   []string

	SourceURL1 string
	SourceURL2 string
	Completed  time.Time
}

// Audit converts a successful scrape into the provenance written back to
// the item. Market value is never part of it.
func (s ScrapeOutcome) Audit(itemID string) model.ScrapeAudit {
	return model.ScrapeAudit{
		ItemID:     itemID,
		SourceURL1: s.SourceURL1,
		SourceURL2: s.SourceURL2,
		RawPrices:  s.Prices,
		ScrapedAt:  s.Completed,
		Status:     model.ScrapeStatus(s.Status),
		PriceLow:   s.Estimate.Low,
		PriceHigh:  s.Estimate.High,
		Strategy:   string(pricesource.StrategyManualURL),
	}
}

// Succeeded reports whether the scrape produced an estimate.
func (s ScrapeOutcome) Succeeded() bool {
	return s.Status == StatusSuccess || s.Status == StatusPartial
}

// ScraperConfig is injected at construction.
type ScraperConfig struct {
	// Budget bounds both fetches and extractions together.
	Budget time.Duration
	Logger *slog.Logger
}

// Scraper handles user-supplied listing URLs.
type Scraper struct {
	fetcher   fetch.Fetcher
	extractor PageExtractor
	archiver  Archiver
	budget    time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewScraper builds a scraper. archiver may be nil.
func NewScraper(fetcher fetch.Fetcher, extractor PageExtractor, archiver Archiver, cfg ScraperConfig) *Scraper {
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultRequestBudget
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scraper{
		fetcher:   fetcher,
		extractor: extractor,
		archiver:  archiver,
		budget:    cfg.Budget,
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// Scrape fetches URL1 and, if given, URL2. A URL1 failure ends the request
// before any extraction; a URL2 failure downgrades the result to partial.
func (s *Scraper) Scrape(ctx context.Context, req ScrapeRequest) ScrapeOutcome {
	out := ScrapeOutcome{Prices: []float64{}, SourceURL1: req.URL1, SourceURL2: req.URL2}

	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	first, err := s.fetcher.Fetch(ctx, req.URL1)
	if err != nil {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("%w: %w", ErrPrimaryFetch, err)
		out.Message = fmt.Sprintf("Could not retrieve %s: %v", req.URL1, err)
		s.logger.Warn("Scraper: primary url failed", "item_id", req.ItemID, "url", req.URL1, "error", err)
		return out
	}
	out.URLsScraped = 1
	out.Prices = append(out.Prices, s.extract(ctx, req, first, &out)...)

	partial := false
	if req.URL2 != "" {
		second, err := s.fetcher.Fetch(ctx, req.URL2)
		if err != nil {
			partial = true
			s.logger.Warn("Scraper: secondary url failed", "item_id", req.ItemID, "url", req.URL2, "error", err)
		} else {
			out.URLsScraped++
			out.Prices = append(out.Prices, s.extract(ctx, req, second, &out)...)
		}
	}
	out.Completed = s.now()

	if len(out.Prices) == 0 {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("%w: no prices on supplied pages", ErrInsufficientData)
		out.Message = "No sold prices could be read from the supplied pages."
		return out
	}

	summary := stats.Trimmed(out.Prices).Rounded()
	out.Estimate = model.AggregateEstimate{
		Average:     summary.Average,
		Low:         summary.Low,
		High:        summary.High,
		SampleCount: len(out.Prices),
	}
	out.Status = StatusSuccess
	if partial {
		out.Status = StatusPartial
	}
	return out
}

func (s *Scraper) extract(ctx context.Context, req ScrapeRequest, page *fetch.Page, out *ScrapeOutcome) []float64 {
	if s.archiver != nil {
		key, err := s.archiver.Snapshot(ctx, req.ItemID, page)
		if err != nil {
			s.logger.Warn("Scraper: snapshot failed", "item_id", req.ItemID, "url", page.URL, "error", err)
		} else {
			out.Snapshots = append(out.Snapshots, key)
		}
	}

	values, err := s.extractor.ExtractPage(ctx, req.ItemName, page)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, ErrExtraction) {
			level = slog.LevelInfo
		}
		s.logger.Log(ctx, level, "Scraper: no prices extracted", "item_id", req.ItemID, "url", page.URL, "error", err)
		return nil
	}
	return values
}
