package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	type payload struct{ A int }
	if err := c.Set(ctx, "k", payload{A: 7}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	if err := c.Get(ctx, "k", &got); err != nil || got.A != 7 {
		t.Fatalf("get: %+v %v", got, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.Get(ctx, "k", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()
	if err := c.Set(ctx, "k", 1, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	now = now.Add(2 * time.Minute)
	var v int
	if err := c.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestMemoryCacheSetIfNewer(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, err := c.SetIfNewer(ctx, "k", 20, "b", time.Minute); !ok || err != nil {
		t.Fatalf("first write: ok=%v err=%v", ok, err)
	}
	if ok, err := c.SetIfNewer(ctx, "k", 10, "a", time.Minute); ok || err != nil {
		t.Fatalf("older write: ok=%v err=%v", ok, err)
	}
	var v string
	if err := c.Get(ctx, "k", &v); err != nil || v != "b" {
		t.Fatalf("get: %q %v", v, err)
	}
	if ok, _ := c.SetIfNewer(ctx, "k", 20, "c", time.Minute); !ok {
		t.Fatalf("same version should overwrite")
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := c.SetIfNewer(ctx, "k", 10, "a", time.Minute); !ok {
		t.Fatalf("expired entry should not block an older version")
	}
}
