// Package research turns an item description into a robust market-value
// estimate by fanning out to price sources and reducing their observations.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guarzo/axiom/internal/fetch"
	"github.com/guarzo/axiom/internal/model"
	"github.com/guarzo/axiom/internal/pricesource"
	"github.com/guarzo/axiom/internal/stats"
)

const (
	DefaultMinObservations = 3
	DefaultRequestBudget   = 60 * time.Second
)

// State is a step of one research request.
type State string

const (
	StateNotStarted      State = "not_started"
	StatePrimaryRunning  State = "primary_running"
	StateThresholdMet    State = "threshold_met"
	StateFallbackRunning State = "fallback_running"
	StateDone            State = "done"
)

// Status is the caller-facing result of a request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Config is injected at construction; the orchestrator reads nothing global.
type Config struct {
	// MinObservations below which the fallback source runs.
	MinObservations int
	// RequestBudget bounds the whole request including the fallback.
	RequestBudget time.Duration
	Logger        *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.MinObservations <= 0 {
		c.MinObservations = DefaultMinObservations
	}
	if c.RequestBudget <= 0 {
		c.RequestBudget = DefaultRequestBudget
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Outcome is everything one research request produced.
type Outcome struct {
	Item     string
	Prices   []float64
	Estimate model.AggregateEstimate
	Source   string
	Status   Status
	// Message is the human-readable failure text; empty on success.
	Message string
	Err     error

	States  []State
	Results []model.SourceResult

	SourceURL1 string
	SourceURL2 string
	Strategy   string
	Completed  time.Time
}

// Succeeded reports whether the outcome carries a usable estimate.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess || o.Status == StatusPartial
}

// Audit converts a successful outcome into the provenance written back to
// the item.
func (o Outcome) Audit(itemID string) model.ScrapeAudit {
	return model.ScrapeAudit{
		ItemID:     itemID,
		SourceURL1: o.SourceURL1,
		SourceURL2: o.SourceURL2,
		RawPrices:  o.Prices,
		ScrapedAt:  o.Completed,
		Status:     model.ScrapeStatus(o.Status),
		PriceLow:   o.Estimate.Low,
		PriceHigh:  o.Estimate.High,
		Strategy:   o.Strategy,
	}
}

// Orchestrator runs the primary sources concurrently and a single fallback
// afterwards when they under-deliver.
type Orchestrator struct {
	primaries []pricesource.Source
	fallback  pricesource.Source
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewOrchestrator builds an orchestrator. fallback may be nil.
func NewOrchestrator(primaries []pricesource.Source, fallback pricesource.Source, cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		primaries: primaries,
		fallback:  fallback,
		cfg:       cfg,
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// Research gathers observations for item and reduces them. It never
// returns an error; failures are carried in the Outcome.
func (o *Orchestrator) Research(ctx context.Context, item string) Outcome {
	out := Outcome{
		Item:       item,
		Prices:     []float64{},
		States:     []State{StateNotStarted},
		SourceURL1: fetch.GunBrokerSoldURL(item),
		SourceURL2: fetch.EBaySoldURL(item),
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RequestBudget)
	defer cancel()

	start := time.Now()
	out.States = append(out.States, StatePrimaryRunning)
	results := o.runPrimaries(ctx, item)

	var names, strategies []string
	collect := func(res model.SourceResult) {
		out.Results = append(out.Results, res)
		if !res.Succeeded || len(res.Observations) == 0 {
			return
		}
		out.Prices = append(out.Prices, res.Observations...)
		names = append(names, provenance(res))
		strategies = appendUnique(strategies, res.Strategy)
	}
	for _, res := range results {
		collect(res)
	}

	if len(out.Prices) >= o.cfg.MinObservations {
		out.States = append(out.States, StateThresholdMet)
	} else if o.fallback != nil {
		o.logger.Info("Research: primaries under threshold, running fallback",
			"item", item, "observations", len(out.Prices), "fallback", o.fallback.Name())
		out.States = append(out.States, StateFallbackRunning)
		collect(o.fallback.Fetch(ctx, item))
	}
	out.States = append(out.States, StateDone)
	out.Completed = o.now()
	out.Strategy = strings.Join(strategies, "+")

	if len(out.Prices) == 0 {
		out.Status = StatusFailed
		out.Source = "none"
		out.Err = fmt.Errorf("%w: %q", ErrInsufficientData, item)
		out.Message = FailureMessage(item)
		o.logger.Warn("Research: no observations", "item", item, "sources", len(out.Results), "elapsed", time.Since(start))
		return out
	}

	summary := stats.Trimmed(out.Prices).Rounded()
	out.Status = StatusSuccess
	out.Source = strings.Join(names, " + ")
	out.Estimate = model.AggregateEstimate{
		Average:             summary.Average,
		Low:                 summary.Low,
		High:                summary.High,
		SampleCount:         len(out.Prices),
		ContributingSources: names,
	}
	o.logger.Info("Research: estimate computed",
		"item", item, "average", summary.Average, "low", summary.Low, "high", summary.High,
		"observations", len(out.Prices), "source", out.Source, "elapsed", time.Since(start))
	return out
}

// runPrimaries fans out to every primary source. Sources never return an
// error, so one slow or failing source cannot cancel its siblings.
func (o *Orchestrator) runPrimaries(ctx context.Context, item string) []model.SourceResult {
	results := make([]model.SourceResult, len(o.primaries))
	var g errgroup.Group
	for i, src := range o.primaries {
		g.Go(func() error {
			results[i] = src.Fetch(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// FailureMessage is shown when research finds nothing.
func FailureMessage(item string) string {
	return fmt.Sprintf("No prices found for %q. Try a shorter item name (e.g. \"Marlin 783\" instead of full description).", item)
}

func provenance(res model.SourceResult) string {
	if len(res.Contributors) == 0 {
		return res.SourceName
	}
	return fmt.Sprintf("%s (%s)", res.SourceName, strings.Join(res.Contributors, " · "))
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
