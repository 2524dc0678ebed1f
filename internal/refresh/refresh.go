// Package refresh periodically re-researches items whose automated market
// research has gone stale.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/guarzo/axiom/internal/model"
	"github.com/guarzo/axiom/internal/research"
)

// ItemSource lists items due for re-research.
type ItemSource interface {
	StaleResearched(ctx context.Context, cutoff time.Time, limit int) ([]model.Item, error)
}

// Researcher runs one research request.
type Researcher interface {
	Research(ctx context.Context, item string) research.Outcome
}

// Options configures the refresh job.
type Options struct {
	// Schedule is a cron spec or descriptor such as "@every 6h".
	Schedule string
	// MaxAge is how old a research result may get before it is redone.
	MaxAge    time.Duration
	BatchSize int
	Workers   int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Schedule:  "@every 6h",
		MaxAge:    7 * 24 * time.Hour,
		BatchSize: 25,
		Workers:   2,
	}
}

// Summary describes one refresh pass.
type Summary struct {
	Considered    int
	Refreshed     int
	Failed        int
	PersistErrors int
	Duration      time.Duration
}

// Service owns the cron scheduler and the refresh pass.
type Service struct {
	items      ItemSource
	researcher Researcher
	writer     research.AuditWriter
	opts       Options
	logger     *slog.Logger
	now        func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewService creates a refresh service. Zero option fields take defaults.
func NewService(items ItemSource, researcher Researcher, writer research.AuditWriter, opts Options, logger *slog.Logger) *Service {
	def := DefaultOptions()
	if opts.Schedule == "" {
		opts.Schedule = def.Schedule
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = def.MaxAge
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{items: items, researcher: researcher, writer: writer, opts: opts, logger: logger, now: time.Now}
}

// RunOnce refreshes one batch of stale items.
func (s *Service) RunOnce(ctx context.Context) (Summary, error) {
	start := time.Now()
	cutoff := s.now().Add(-s.opts.MaxAge)

	items, err := s.items.StaleResearched(ctx, cutoff, s.opts.BatchSize)
	if err != nil {
		return Summary{}, fmt.Errorf("listing stale items: %w", err)
	}
	if len(items) == 0 {
		s.logger.Debug("Refresh: nothing stale", "cutoff", cutoff)
		return Summary{Duration: time.Since(start)}, nil
	}
	s.logger.Info("Refresh: starting pass", "items", len(items), "workers", s.opts.Workers)

	var (
		mu      sync.Mutex
		summary = Summary{Considered: len(items)}
		wg      sync.WaitGroup
		jobs    = make(chan model.Item)
	)
	for w := 0; w < s.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range jobs {
				refreshed, persistErr := s.refreshItem(ctx, it)
				mu.Lock()
				switch {
				case !refreshed:
					summary.Failed++
				case persistErr:
					summary.PersistErrors++
				default:
					summary.Refreshed++
				}
				mu.Unlock()
			}
		}()
	}

send:
	for _, it := range items {
		select {
		case jobs <- it:
		case <-ctx.Done():
			break send
		}
	}
	close(jobs)
	wg.Wait()

	summary.Duration = time.Since(start)
	s.logger.Info("Refresh: pass complete",
		"considered", summary.Considered, "refreshed", summary.Refreshed,
		"failed", summary.Failed, "persist_errors", summary.PersistErrors, "elapsed", summary.Duration)
	return summary, ctx.Err()
}

func (s *Service) refreshItem(ctx context.Context, it model.Item) (refreshed, persistErr bool) {
	out := s.researcher.Research(ctx, it.Name)
	if !out.Succeeded() {
		// the previous audit stays in place
		s.logger.Warn("Refresh: research failed", "item_id", it.ID, "item", it.Name, "error", out.Err)
		return false, false
	}
	if err := research.Persist(ctx, s.writer, out.Audit(it.ID)); err != nil {
		s.logger.Error("Refresh: persist failed", "item_id", it.ID, "error", err)
		return true, true
	}
	return true, false
}

// Start schedules RunOnce. Overlapping runs are skipped.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("refresh: already started")
	}

	logger := cronLogger{s.logger}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(s.opts.Schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("Refresh: pass failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("refresh: invalid schedule %q: %w", s.opts.Schedule, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("Refresh: scheduler started", "schedule", s.opts.Schedule, "max_age", s.opts.MaxAge)
	return nil
}

// Stop halts the scheduler and returns a context that is done once any
// running pass has finished.
func (s *Service) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	ctx := s.cron.Stop()
	s.cron = nil
	return ctx
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("Refresh: cron "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("Refresh: cron "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
