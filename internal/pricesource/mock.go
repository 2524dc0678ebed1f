package pricesource

import (
	"context"
	"sync"
	"time"

	"github.com/guarzo/axiom/internal/model"
)

// MockSource returns canned observations. It is safe for concurrent use.
type MockSource struct {
	SourceName   string
	Kind         Strategy
	Observations []float64
	Contributors []string
	URLs         []string
	Fail         bool
	Delay        time.Duration
	Panic        bool

	mu    sync.Mutex
	calls []string
}

func (m *MockSource) Name() string {
	if m.SourceName == "" {
		return "Mock"
	}
	return m.SourceName
}

func (m *MockSource) Strategy() Strategy {
	if m.Kind == "" {
		return StrategyEstimate
	}
	return m.Kind
}

func (m *MockSource) Fetch(ctx context.Context, item string) model.SourceResult {
	m.mu.Lock()
	m.calls = append(m.calls, item)
	m.mu.Unlock()

	return run(ctx, discardLogger, m.Name(), m.Strategy(), 0, item, func(ctx context.Context) (outcome, error) {
		if m.Panic {
			panic("mock source panic")
		}
		if m.Delay > 0 {
			select {
			case <-time.After(m.Delay):
			case <-ctx.Done():
				return outcome{urls: m.URLs}, unavailable(ctx.Err())
			}
		}
		if m.Fail {
			return outcome{urls: m.URLs}, unavailable(errMock)
		}
		return outcome{
			observations: append([]float64(nil), m.Observations...),
			contributors: m.Contributors,
			urls:         m.URLs,
		}, nil
	})
}

// Calls returns the item names Fetch was called with.
func (m *MockSource) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
