package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryItem struct {
	data     []byte
	version  int64
	expireAt time.Time
}

// MemoryCache implements Service in process memory. Values are stored JSON encoded so
// callers get the same copy semantics as with Redis.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]memoryItem
	now  func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]memoryItem), now: time.Now}
}

func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.data[key] = memoryItem{data: b, expireAt: exp}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) SetIfNewer(_ context.Context, key string, version int64, value interface{}, ttl time.Duration) (bool, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	now := m.now()
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.data[key]; ok && (it.expireAt.IsZero() || !now.After(it.expireAt)) && it.version > version {
		return false, nil
	}
	m.data[key] = memoryItem{data: b, version: version, expireAt: exp}
	return true, nil
}

func (m *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.RLock()
	it, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return ErrCacheMiss
	}
	if !it.expireAt.IsZero() && m.now().After(it.expireAt) {
		m.mu.Lock()
		delete(m.data, key)
		m.mu.Unlock()
		return ErrCacheMiss
	}
	return json.Unmarshal(it.data, dest)
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.data, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Close() error { return nil }
