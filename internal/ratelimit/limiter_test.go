package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRegistry_Burst(t *testing.T) {
	reg := NewRegistry(map[string]Limit{"test": {Every: 100 * time.Millisecond, Burst: 3}})

	// Should allow the burst immediately
	for i := 0; i < 3; i++ {
		if !reg.Get("test").Allow() {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	if reg.Get("test").Allow() {
		t.Error("4th request should be denied")
	}

	time.Sleep(150 * time.Millisecond)
	if !reg.Get("test").Allow() {
		t.Error("Request after refill should be allowed")
	}
}

func TestRegistry_SharedPerProvider(t *testing.T) {
	reg := NewRegistry(nil)
	if reg.Get(Gemini) != reg.Get(Gemini) {
		t.Error("same provider should share one limiter")
	}
	if reg.Get(Gemini) == reg.Get(Perplexity) {
		t.Error("different providers should not share a limiter")
	}
}

func TestRegistry_UnknownProviderUsesFallback(t *testing.T) {
	reg := NewRegistry(map[string]Limit{})
	if !reg.Get("somewhere").Allow() {
		t.Error("first request to unknown provider should be allowed")
	}
	if reg.Get("somewhere").Allow() {
		t.Error("fallback limit should have a burst of one")
	}
}

func TestRegistry_WaitHonorsContext(t *testing.T) {
	reg := NewRegistry(map[string]Limit{"slow": {Every: time.Hour, Burst: 1}})
	reg.Get("slow").Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := reg.Wait(ctx, "slow")
	if err == nil {
		t.Fatal("Wait should fail when the context ends first")
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("unexpected cancel error: %v", err)
	}
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var reg *Registry
	if err := reg.Wait(context.Background(), Gemini); err != nil {
		t.Errorf("nil registry should not limit: %v", err)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := NewRegistry(map[string]Limit{"c": {Every: 10 * time.Millisecond, Burst: 5}})

	const numGoroutines = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if reg.Get("c").Allow() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed == 0 || allowed == numGoroutines {
		t.Errorf("expected partial admission, got %d/%d", allowed, numGoroutines)
	}
}
