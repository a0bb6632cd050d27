package cache

import (
	"context"
	"errors"
	"time"

	"RateCast/internal/domain/models"
	pkgcache "RateCast/pkg/cache"
)

const latestRunKey = "runs:latest"

// RunCache keeps the latest persisted run in a cache.Service.
type RunCache struct {
	svc pkgcache.Service
	ttl time.Duration
}

func NewRunCache(svc pkgcache.Service, ttl time.Duration) *RunCache {
	return &RunCache{svc: svc, ttl: ttl}
}

func (c *RunCache) GetLatest(ctx context.Context) (*models.ModelRun, bool, error) {
	var run models.ModelRun
	if err := c.svc.Get(ctx, latestRunKey, &run); err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &run, true, nil
}

// SetLatest replaces the cached run unless the cache already holds a run created later.
func (c *RunCache) SetLatest(ctx context.Context, run *models.ModelRun) error {
	_, err := c.svc.SetIfNewer(ctx, latestRunKey, run.CreatedAt.UnixMicro(), run, c.ttl)
	return err
}
