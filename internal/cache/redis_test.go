package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/guarzo/axiom/internal/testutil"
)

func TestRedisStore_Integration(t *testing.T) {
	addr := testutil.GetTestRedisAddr()
	if addr == "" {
		t.Skip("Skipping redis integration test: AXIOM_TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := NewRedisStore(ctx, RedisConfig{Addr: addr, Prefix: "axiom-test:" + uuid.NewString() + ":"})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var got []float64
	found, err := s.Get(ctx, "missing", &got)
	if err != nil || found {
		t.Fatalf("Get(missing) = %v, %v", found, err)
	}

	key := SourceKey("estimate", "Gemini", "Marlin 783")
	if err := s.Put(ctx, key, []float64{350, 325}, time.Minute); err != nil {
		t.Fatal(err)
	}
	found, err = s.Get(ctx, key, &got)
	if err != nil || !found || len(got) != 2 || got[0] != 350 {
		t.Errorf("Get = %v %v %v", got, found, err)
	}

	if err := s.Put(ctx, "short", 1, time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	var n int
	if found, _ := s.Get(ctx, "short", &n); found {
		t.Error("expired key should be gone")
	}
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisStore(ctx, RedisConfig{Addr: "127.0.0.1:1"}); err == nil {
		t.Error("expected ping failure")
	}
}
