package memcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"google_reviews/internal/adapters/memcache"
	"google_reviews/internal/domain"
)

func resp(name string) domain.ReviewsResponse {
	return domain.ReviewsResponse{Success: true, Business: domain.Business{Name: name}, Source: domain.SourcePlaces}
}

func TestCache_ExpiryAndReplace(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := memcache.NewWithClock(8, func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "reviews", resp("R"), 100*time.Millisecond))
	got, ok, err := c.Get(ctx, "reviews")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "R", got.Business.Name)

	now = now.Add(150 * time.Millisecond)
	_, ok, err = c.Get(ctx, "reviews")
	require.NoError(t, err)
	require.False(t, ok)

	st, _ := c.Stats(ctx)
	require.Equal(t, 0, st.Size, "stale entry evicted on read")

	require.NoError(t, c.Set(ctx, "reviews", resp("R2"), time.Hour))
	got, ok, _ = c.Get(ctx, "reviews")
	require.True(t, ok)
	require.Equal(t, "R2", got.Business.Name)
}

func TestCache_RealClock(t *testing.T) {
	c := memcache.New(0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "reviews", resp("R"), 100*time.Millisecond))
	_, ok, _ := c.Get(ctx, "reviews")
	require.True(t, ok)

	time.Sleep(150 * time.Millisecond)
	_, ok, _ = c.Get(ctx, "reviews")
	require.False(t, ok)
}

func TestCache_SetOverwritesUnconditionally(t *testing.T) {
	c := memcache.New(4)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "reviews", resp("old"), time.Hour))
	require.NoError(t, c.Set(ctx, "reviews", resp("new"), time.Minute))

	got, ok, _ := c.Get(ctx, "reviews")
	require.True(t, ok)
	require.Equal(t, "new", got.Business.Name)
}

func TestCache_ClearAndStats(t *testing.T) {
	c := memcache.New(4)
	ctx := context.Background()
	_ = c.Set(ctx, "reviews", resp("a"), time.Hour)
	_ = c.Set(ctx, "reviews:alt", resp("b"), time.Hour)

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.CacheStats{Size: 2, Keys: []string{"reviews", "reviews:alt"}}, st)

	require.NoError(t, c.Clear(ctx, "reviews"))
	_, ok, _ := c.Get(ctx, "reviews")
	require.False(t, ok)
	_, ok, _ = c.Get(ctx, "reviews:alt")
	require.True(t, ok)

	require.NoError(t, c.Clear(ctx, ""))
	st, _ = c.Stats(ctx)
	require.Equal(t, 0, st.Size)
}

// hookedClock runs next once, on the following read of the time.
type hookedClock struct {
	t    time.Time
	next func()
}

func (h *hookedClock) Now() time.Time {
	if f := h.next; f != nil {
		h.next = nil
		f()
	}
	return h.t
}

func TestCache_StaleEvictionKeepsConcurrentSet(t *testing.T) {
	clk := &hookedClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := memcache.NewWithClock(8, clk.Now)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "reviews", resp("old"), time.Minute))

	// a fresh entry lands while the read is deciding the old one is stale
	clk.t = clk.t.Add(2 * time.Minute)
	clk.next = func() { require.NoError(t, c.Set(ctx, "reviews", resp("fresh"), time.Hour)) }

	got, ok, err := c.Get(ctx, "reviews")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "fresh", got.Business.Name)

	got, ok, _ = c.Get(ctx, "reviews")
	require.True(t, ok)
	require.Equal(t, "fresh", got.Business.Name)
}
