package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return NewRedisSessionStore(client, "bks"), mr
}

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, PendingOrderKey("ref-1"), "order-42", 30*time.Minute))
	assert.True(t, mr.Exists("bks:pending_order:ref-1"))

	value, ok, err := store.Get(ctx, PendingOrderKey("ref-1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "order-42", value)

	require.NoError(t, store.Del(ctx, PendingOrderKey("ref-1")))
	_, ok, err = store.Get(ctx, PendingOrderKey("ref-1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSessionStoreExpires(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, PendingOrderKey(""), "order-7", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Get(ctx, PendingOrderKey(""))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSessionStoreSurfacesConnectionErrors(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	_, _, err := store.Get(context.Background(), "anything")
	assert.Error(t, err)
}

func TestMemorySessionStoreHonoursPerEntryTTL(t *testing.T) {
	store := NewMemorySessionStore(8, time.Hour)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", "a", time.Minute))
	require.NoError(t, store.Set(ctx, "long", "b", 30*time.Minute))

	now = now.Add(5 * time.Minute)
	_, ok, _ := store.Get(ctx, "short")
	assert.False(t, ok)
	value, ok, _ := store.Get(ctx, "long")
	assert.True(t, ok)
	assert.Equal(t, "b", value)
}

func TestPendingOrderKeyDefaultsToCurrent(t *testing.T) {
	assert.Equal(t, "pending_order:current", PendingOrderKey("  "))
	assert.Equal(t, "pending_order:BKS-1", PendingOrderKey("BKS-1"))
}
