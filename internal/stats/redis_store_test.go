package stats

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisSnapshotStore_ExpiresAfterTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisSnapshotStore(client, "", time.Minute)
	ctx := context.Background()

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	computedAt := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, Stats{TotalDoctors: 3, OnDutyDoctors: 2, ActiveEmergencies: 1, ComputedAt: computedAt}))
	assert.True(t, mr.Exists("stats:dashboard"))
	assert.Equal(t, time.Minute, mr.TTL("stats:dashboard"))

	s, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, [5]int{3, 2, 1, 0, 0}, s.Counts())
	assert.True(t, computedAt.Equal(s.ComputedAt))

	mr.FastForward(time.Minute + time.Second)
	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSnapshotStore_CorruptPayload(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisSnapshotStore(client, "stats:test", time.Minute)

	require.NoError(t, mr.Set("stats:test", "{not json"))
	_, ok, err := store.Load(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}
