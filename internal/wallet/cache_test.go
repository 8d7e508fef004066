package wallet

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/wallet_api/internal/ledger"
	"github.com/congo-pay/wallet_api/internal/logging"
)

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client), mr
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	id := uuid.New()

	_, ok, err := cache.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Put(ctx, ledger.Wallet{ID: id, Balance: 10, Version: 1}))
	w, ok, err := cache.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(10), w.Balance)
	assert.Equal(t, 1, cache.Len())

	require.NoError(t, cache.Evict(ctx, id))
	require.NoError(t, cache.Evict(ctx, id), "evicting an absent entry is not an error")
	assert.Zero(t, cache.Len())
}

func TestRedisCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t)
	id := uuid.New()
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, ok, err := cache.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Put(ctx, ledger.Wallet{ID: id, Balance: 1_500, Version: 4, UpdatedAt: updated}))
	assert.True(t, mr.Exists(cacheKeyPrefix+id.String()))
	assert.Zero(t, mr.TTL(cacheKeyPrefix+id.String()), "snapshots do not expire")

	w, ok, err := cache.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, w.ID)
	assert.Equal(t, int64(1_500), w.Balance)
	assert.Equal(t, int64(4), w.Version)
	assert.True(t, updated.Equal(w.UpdatedAt))

	require.NoError(t, cache.Evict(ctx, id))
	assert.False(t, mr.Exists(cacheKeyPrefix+id.String()))
}

func TestRedisCache_CorruptEntryIsAnError(t *testing.T) {
	cache, mr := newRedisCache(t)
	id := uuid.New()
	require.NoError(t, mr.Set(cacheKeyPrefix+id.String(), "not-json"))

	_, ok, err := cache.Get(context.Background(), id)
	require.Error(t, err)
	assert.False(t, ok)
}

func TestEngine_SurvivesCacheOutage(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t)
	store := ledger.NewInMemory()
	engine := NewEngine(store, cache, logging.Discard())
	id := uuid.New()

	_, err := engine.Apply(ctx, deposit(id, 100))
	require.NoError(t, err)

	mr.Close()

	w, err := engine.Apply(ctx, deposit(id, 50))
	require.NoError(t, err, "cache failures must not fail the operation")
	assert.Equal(t, int64(150), w.Balance)

	w, err = engine.Balance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(150), w.Balance)
}

func TestEngine_SharedRedisCacheAcrossEngines(t *testing.T) {
	ctx := context.Background()
	cache, _ := newRedisCache(t)
	store := ledger.NewInMemory()
	a := NewEngine(store, cache, logging.Discard())
	b := NewEngine(store, cache, logging.Discard())
	id := uuid.New()

	_, err := a.Apply(ctx, deposit(id, 100))
	require.NoError(t, err)
	_, err = b.Apply(ctx, deposit(id, 100))
	require.NoError(t, err)
	_, err = a.Apply(ctx, withdraw(id, 30))
	require.NoError(t, err)

	w, err := b.Balance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(170), w.Balance)
	assert.Equal(t, int64(3), w.Version)
}
