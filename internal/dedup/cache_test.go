package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	cache, err := NewCache(&Config{
		Address: mr.Addr(),
		TTL:     time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	return cache, mr
}

func TestCacheMarkAndSeen(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	seen, err := cache.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, cache.Mark(ctx, "evt_1"))

	seen, err = cache.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	// Other event ids stay unaffected
	seen, err = cache.Seen(ctx, "evt_2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestCacheEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Mark(ctx, "evt_ttl"))
	mr.FastForward(2 * time.Hour)

	seen, err := cache.Seen(ctx, "evt_ttl")
	require.NoError(t, err)
	assert.False(t, seen, "entries must expire after the configured TTL")
}

func TestCacheUnavailable(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	mr.Close()

	_, err := cache.Seen(ctx, "evt_1")
	assert.Error(t, err, "callers treat errors as a miss and fall through to the store")
	assert.Error(t, cache.Mark(ctx, "evt_1"))
	assert.Error(t, cache.Health())
}

func TestCacheConfigDefaults(t *testing.T) {
	_, err := NewCache(nil)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	cache, err := NewCache(&Config{Address: mr.Addr()})
	require.NoError(t, err)
	defer cache.Close()

	assert.Equal(t, 24*time.Hour, cache.ttl)
	assert.NoError(t, cache.Health())
}
