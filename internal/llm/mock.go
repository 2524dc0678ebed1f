package llm

import (
	"context"
	"sync"
)

// MockGenerator returns canned responses for tests and offline runs.
type MockGenerator struct {
	ProviderName string
	WithSearch   bool
	// Reply computes the response; when nil Text/Err are returned.
	Reply func(req Request) (Response, error)
	Text  string
	Err   error

	mu       sync.Mutex
	requests []Request
}

func (m *MockGenerator) Name() string {
	if m.ProviderName == "" {
		return "Mock"
	}
	return m.ProviderName
}

func (m *MockGenerator) Retrieval() bool { return m.WithSearch }

func (m *MockGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if m.Reply != nil {
		return m.Reply(req)
	}
	if m.Err != nil {
		return Response{}, m.Err
	}
	return Response{Text: m.Text}, nil
}

// Requests returns the prompts received so far.
func (m *MockGenerator) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
