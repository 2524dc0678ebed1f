// Package pricesource defines the price sources the research orchestrator
// runs. Every source satisfies one interface and never returns an error:
// failures are reported in the result.
package pricesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/guarzo/axiom/internal/model"
)

// Strategy identifies how a source obtains observations. It is also
// written to the audit trail so stored raw prices can be traced back to
// the extraction rules that produced them.
type Strategy string

const (
	StrategyEstimate            Strategy = "estimate"
	StrategyRetrievalText       Strategy = "retrieval_text"
	StrategyRetrievalStructured Strategy = "retrieval_structured"
	StrategyDirectPage          Strategy = "direct_page"
	// StrategyManualURL tags prices scraped from user-supplied URLs. No
	// Source runs it; scheduled refresh skips items carrying it.
	StrategyManualURL Strategy = "manual_url"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var errMock = errors.New("mock failure")

var (
	// ErrSourceUnavailable covers network, provider and timeout failures.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrExtraction covers responses that yielded no valid numbers.
	ErrExtraction = errors.New("extraction failed")
)

// Source produces raw sold-price observations for an item description.
type Source interface {
	Name() string
	Strategy() Strategy
	Fetch(ctx context.Context, item string) model.SourceResult
}

// outcome is what a strategy's body reports back to run.
type outcome struct {
	observations []float64
	contributors []string
	urls         []string
}

// run executes body under an optional timeout and converts every failure,
// including a panic, into an unsuccessful result.
func run(ctx context.Context, logger *slog.Logger, name string, strategy Strategy, timeout time.Duration, item string, body func(ctx context.Context) (outcome, error)) (res model.SourceResult) {
	res = model.SourceResult{SourceName: name, Strategy: string(strategy)}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("PriceSource: panic recovered", "source", name, "item", item, "panic", r)
			res.Observations = nil
			res.Succeeded = false
			res.Err = fmt.Sprintf("%v: panic: %v", ErrSourceUnavailable, r)
		}
	}()

	start := time.Now()
	out, err := body(ctx)
	res.URLs = out.urls
	if err != nil {
		logger.Warn("PriceSource: source failed", "source", name, "strategy", strategy, "item", item, "error", err, "elapsed", time.Since(start))
		res.Err = err.Error()
		return res
	}

	res.Observations = out.observations
	res.Contributors = out.contributors
	res.Succeeded = true
	logger.Info("PriceSource: source finished", "source", name, "strategy", strategy, "item", item, "observations", len(out.observations), "elapsed", time.Since(start))
	return res
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
}

func extraction(err error) error {
	return fmt.Errorf("%w: %w", ErrExtraction, err)
}
