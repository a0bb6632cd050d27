package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service stores JSON-encodable values with a TTL. A zero TTL means no expiry.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	// SetIfNewer stores value only when version is not lower than the version already held
	// under key. It reports whether the value was written.
	SetIfNewer(ctx context.Context, key string, version int64, value interface{}, ttl time.Duration) (bool, error)
	Close() error
}
