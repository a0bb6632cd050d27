package cache

import (
	"context"
	"testing"
	"time"

	"RateCast/internal/domain/models"
	pkgcache "RateCast/pkg/cache"
)

func TestRunCache(t *testing.T) {
	c := NewRunCache(pkgcache.NewMemoryCache(), 0)
	ctx := context.Background()

	if _, ok, err := c.GetLatest(ctx); ok || err != nil {
		t.Fatalf("expected empty cache, got ok=%v err=%v", ok, err)
	}
	run := &models.ModelRun{RunID: "r1", Decision: models.DecisionHold, Probabilities: models.Probabilities{Hold: 1}}
	if err := c.SetLatest(ctx, run); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.GetLatest(ctx)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.RunID != "r1" || got.Decision != models.DecisionHold {
		t.Fatalf("unexpected run %+v", got)
	}
}

func TestRunCacheKeepsMostRecentlyCreated(t *testing.T) {
	c := NewRunCache(pkgcache.NewMemoryCache(), time.Hour)
	ctx := context.Background()
	t1 := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)

	if err := c.SetLatest(ctx, &models.ModelRun{RunID: "newer", CreatedAt: t1.Add(time.Hour)}); err != nil {
		t.Fatalf("set newer: %v", err)
	}
	if err := c.SetLatest(ctx, &models.ModelRun{RunID: "older", CreatedAt: t1}); err != nil {
		t.Fatalf("set older: %v", err)
	}
	got, ok, err := c.GetLatest(ctx)
	if err != nil || !ok || got.RunID != "newer" {
		t.Fatalf("latest = %+v ok=%v err=%v", got, ok, err)
	}
}
