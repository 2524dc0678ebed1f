package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/guarzo/axiom/internal/model"
	"github.com/guarzo/axiom/internal/research"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeItems struct {
	items  []model.Item
	err    error
	cutoff time.Time
	limit  int
}

func (f *fakeItems) StaleResearched(ctx context.Context, cutoff time.Time, limit int) ([]model.Item, error) {
	f.cutoff, f.limit = cutoff, limit
	return f.items, f.err
}

type fakeResearcher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeResearcher) Research(ctx context.Context, item string) research.Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, item)
	f.mu.Unlock()
	if f.fail[item] {
		return research.Outcome{Item: item, Status: research.StatusFailed}
	}
	return research.Outcome{
		Item:     item,
		Status:   research.StatusSuccess,
		Prices:   []float64{100, 200},
		Estimate: model.AggregateEstimate{Average: 150, Low: 100, High: 200},
	}
}

type fakeWriter struct {
	mu     sync.Mutex
	audits []model.ScrapeAudit
	failID string
}

func (f *fakeWriter) WriteScrapeAudit(ctx context.Context, a model.ScrapeAudit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ItemID == f.failID {
		return errors.New("db down")
	}
	f.audits = append(f.audits, a)
	return nil
}

func TestRunOnce(t *testing.T) {
	items := &fakeItems{items: []model.Item{
		{ID: "1", Name: "Marlin 783"},
		{ID: "2", Name: "Colt Python"},
		{ID: "3", Name: "Mystery Thing"},
		{ID: "4", Name: "Ruger 10/22"},
	}}
	researcher := &fakeResearcher{fail: map[string]bool{"Mystery Thing": true}}
	writer := &fakeWriter{failID: "4"}

	svc := NewService(items, researcher, writer, Options{MaxAge: 48 * time.Hour, BatchSize: 10, Workers: 3}, quiet)
	fixed := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	summary, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Considered != 4 || summary.Refreshed != 2 || summary.Failed != 1 || summary.PersistErrors != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if !items.cutoff.Equal(fixed.Add(-48*time.Hour)) || items.limit != 10 {
		t.Errorf("cutoff = %v limit = %d", items.cutoff, items.limit)
	}
	if len(researcher.calls) != 4 {
		t.Errorf("research calls = %d", len(researcher.calls))
	}
	if len(writer.audits) != 2 {
		t.Errorf("audits written = %d, want 2", len(writer.audits))
	}
	for _, a := range writer.audits {
		if a.ItemID == "3" {
			t.Error("a failed research must not be written")
		}
	}
}

func TestRunOnce_ListError(t *testing.T) {
	svc := NewService(&fakeItems{err: errors.New("timeout")}, &fakeResearcher{}, &fakeWriter{}, Options{}, quiet)
	if _, err := svc.RunOnce(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestRunOnce_NothingStale(t *testing.T) {
	researcher := &fakeResearcher{}
	svc := NewService(&fakeItems{}, researcher, &fakeWriter{}, Options{}, quiet)
	summary, err := svc.RunOnce(context.Background())
	if err != nil || summary.Considered != 0 || len(researcher.calls) != 0 {
		t.Errorf("summary = %+v err = %v", summary, err)
	}
}

func TestStartStop(t *testing.T) {
	svc := NewService(&fakeItems{}, &fakeResearcher{}, &fakeWriter{}, Options{Schedule: "@every 1h"}, quiet)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := svc.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
	<-svc.Stop().Done()
	<-svc.Stop().Done()
}

func TestStart_InvalidSchedule(t *testing.T) {
	svc := NewService(&fakeItems{}, &fakeResearcher{}, &fakeWriter{}, Options{Schedule: "not a schedule"}, quiet)
	if err := svc.Start(context.Background()); err == nil {
		t.Error("expected invalid schedule error")
	}
}

func TestDefaultOptions(t *testing.T) {
	svc := NewService(&fakeItems{}, &fakeResearcher{}, &fakeWriter{}, Options{}, nil)
	if svc.opts != DefaultOptions() {
		t.Errorf("opts = %+v", svc.opts)
	}
}
