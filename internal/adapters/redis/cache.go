package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"google_reviews/internal/adapters/observability"
	"google_reviews/internal/domain"
)

// KeyPrefix namespaces result-cache keys inside a shared Redis.
const KeyPrefix = "google-reviews:"

// Cache is a ReviewCache backed by Redis; expiry is left to Redis TTLs.
type Cache struct{ c *redis.Client }

func New(addr, pass string, db int) *Cache {
	return &Cache{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func (r *Cache) Get(ctx context.Context, key string) (domain.ReviewsResponse, bool, error) {
	var out domain.ReviewsResponse
	v, err := r.c.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCache("redis", "miss")
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	// an undecodable value is a miss; the next Set overwrites it
	if err := json.Unmarshal(v, &out); err != nil {
		observability.ObserveCache("redis", "miss")
		return domain.ReviewsResponse{}, false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	observability.ObserveCache("redis", "hit")
	return out, true, nil
}

func (r *Cache) Set(ctx context.Context, key string, v domain.ReviewsResponse, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, KeyPrefix+key, b, ttl).Err()
}

func (r *Cache) Clear(ctx context.Context, key string) error {
	observability.ObserveCache("redis", "del")
	if key != "" {
		return r.c.Del(ctx, KeyPrefix+key).Err()
	}
	keys, err := r.keys(ctx)
	if err != nil || len(keys) == 0 {
		return err
	}
	return r.c.Del(ctx, keys...).Err()
}

func (r *Cache) Stats(ctx context.Context) (domain.CacheStats, error) {
	keys, err := r.keys(ctx)
	if err != nil {
		return domain.CacheStats{}, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, KeyPrefix))
	}
	sort.Strings(out)
	return domain.CacheStats{Size: len(out), Keys: out}, nil
}

func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Cache) Close() error { return r.c.Close() }

func (r *Cache) keys(ctx context.Context) ([]string, error) {
	var out []string
	iter := r.c.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	return out, iter.Err()
}
