package fetch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/guarzo/axiom/internal/ratelimit"
)

func TestNewBrowserFetcher_ClampsTimeout(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"unset", 0, MaxBrowserTimeout},
		{"too long", 25 * time.Second, MaxBrowserTimeout},
		{"short", 5 * time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBrowserFetcher(BrowserConfig{Timeout: tt.in}, nil, nil)
			if b.config.Timeout != tt.want {
				t.Errorf("Timeout = %v, want %v", b.config.Timeout, tt.want)
			}
		})
	}
}

// Both cases return before Chrome would be launched.
func TestBrowserFetcher_RejectsBeforeLaunch(t *testing.T) {
	t.Run("invalid url", func(t *testing.T) {
		b := NewBrowserFetcher(BrowserConfig{}, nil, nil)
		if _, err := b.Fetch(context.Background(), "ftp://example.com/x"); err == nil {
			t.Error("expected invalid url error")
		}
	})

	t.Run("rate limited host", func(t *testing.T) {
		reg := ratelimit.NewRegistry(map[string]ratelimit.Limit{ratelimit.GunBroker: {Every: time.Hour, Burst: 1}})
		reg.Get(ratelimit.GunBroker).Allow()
		b := NewBrowserFetcher(BrowserConfig{}, reg, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := b.Fetch(ctx, "https://www.gunbroker.com/Completed?Keywords=x")
		if err == nil || !strings.Contains(err.Error(), "rate limiter gunbroker") {
			t.Errorf("err = %v, want rate limiter error", err)
		}
	})
}
