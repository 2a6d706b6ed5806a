// Package memcache is the process-local result cache. Entries carry their own
// expiry and are only dropped when a read finds them stale (or the LRU bound is hit).
package memcache

import (
	"context"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"google_reviews/internal/adapters/observability"
	"google_reviews/internal/domain"
)

const DefaultSize = 64

type entry struct {
	data      domain.ReviewsResponse
	expiresAt time.Time
}

type Cache struct {
	// mu makes the stale check and its eviction atomic with respect to Set
	mu    sync.Mutex
	store *lru.Cache[string, entry]
	now   func() time.Time
}

func New(size int) *Cache {
	return NewWithClock(size, time.Now)
}

func NewWithClock(size int, now func() time.Time) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	// only fails for size <= 0
	store, _ := lru.New[string, entry](size)
	return &Cache{store: store, now: now}
}

func (c *Cache) Get(_ context.Context, key string) (domain.ReviewsResponse, bool, error) {
	now := c.now()
	c.mu.Lock()
	e, ok := c.store.Get(key)
	stale := ok && now.After(e.expiresAt)
	if stale {
		c.store.Remove(key)
	}
	c.mu.Unlock()

	switch {
	case !ok:
		observability.ObserveCache("memory", "miss")
		return domain.ReviewsResponse{}, false, nil
	case stale:
		observability.ObserveCache("memory", "expired")
		return domain.ReviewsResponse{}, false, nil
	}
	observability.ObserveCache("memory", "hit")
	return e.data, true, nil
}

// Set replaces whatever is stored under key.
func (c *Cache) Set(_ context.Context, key string, v domain.ReviewsResponse, ttl time.Duration) error {
	e := entry{data: v, expiresAt: c.now().Add(ttl)}
	c.mu.Lock()
	c.store.Add(key, e)
	c.mu.Unlock()
	observability.ObserveCache("memory", "set")
	return nil
}

func (c *Cache) Clear(_ context.Context, key string) error {
	if key == "" {
		c.store.Purge()
	} else {
		c.store.Remove(key)
	}
	observability.ObserveCache("memory", "del")
	return nil
}

// Stats lists keys currently held, stale ones included until they are read.
func (c *Cache) Stats(_ context.Context) (domain.CacheStats, error) {
	keys := c.store.Keys()
	sort.Strings(keys)
	return domain.CacheStats{Size: len(keys), Keys: keys}, nil
}
