package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Provider names used as registry keys.
const (
	Gemini     = "gemini"
	Perplexity = "perplexity"
	GunBroker  = "gunbroker"
	EBay       = "ebay"
	Manual     = "manual"
)

// Limit describes one provider's budget: Every is the interval between
// tokens and Burst the bucket size.
type Limit struct {
	Every time.Duration
	Burst int
}

// Registry hands out a shared limiter per external provider so concurrent
// research requests stay inside each provider's quota.
type Registry struct {
	mu       sync.Mutex
	limits   map[string]Limit
	limiters map[string]*rate.Limiter
	fallback Limit
}

// DefaultLimits are conservative budgets for each provider.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		// Gemini free tier: 15 requests per minute
		Gemini: {Every: 4 * time.Second, Burst: 3},
		// Perplexity sonar: 50 requests per minute
		Perplexity: {Every: 1200 * time.Millisecond, Burst: 5},
		// Marketplace pages: be polite, one page per second per site
		GunBroker: {Every: time.Second, Burst: 2},
		EBay:      {Every: time.Second, Burst: 2},
		Manual:    {Every: 500 * time.Millisecond, Burst: 2},
	}
}

// NewRegistry creates a registry. Providers missing from limits get
// one request per second.
func NewRegistry(limits map[string]Limit) *Registry {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Registry{
		limits:   limits,
		limiters: make(map[string]*rate.Limiter),
		fallback: Limit{Every: time.Second, Burst: 1},
	}
}

// Get returns the limiter for a provider, creating it on first use.
func (r *Registry) Get(provider string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[provider]; ok {
		return l
	}
	lim, ok := r.limits[provider]
	if !ok {
		lim = r.fallback
	}
	if lim.Burst < 1 {
		lim.Burst = 1
	}
	l := rate.NewLimiter(rate.Every(lim.Every), lim.Burst)
	r.limiters[provider] = l
	return l
}

// Wait blocks until the provider has a token or ctx ends.
func (r *Registry) Wait(ctx context.Context, provider string) error {
	if r == nil {
		return nil
	}
	if err := r.Get(provider).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter %s: %w", provider, err)
	}
	return nil
}
