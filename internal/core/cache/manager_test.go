package cache

import (
	"context"
	"testing"
	"time"

	"grocery-companion/internal/infrastructure/config"
	"grocery-companion/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(maxSize int) *CacheManager {
	return NewManager(config.CacheConfig{
		Enabled: true,
		MaxSize: maxSize,
		TTL:     time.Minute,
	})
}

func TestCacheManager_SetGet(t *testing.T) {
	m := newTestManager(10)
	defer m.Close()
	ctx := context.Background()

	_, err := m.Get(ctx, "search:melk")
	assert.ErrorIs(t, err, common.ErrCacheMiss)

	require.NoError(t, m.Set(ctx, "search:melk", `[{"id":"1"}]`))
	val, err := m.Get(ctx, "search:melk")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, val)

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(1), stats["misses"])
}

func TestCacheManager_Expiry(t *testing.T) {
	m := newTestManager(10)
	defer m.Close()
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	require.NoError(t, m.Set(ctx, "k", "v"))

	now = now.Add(2 * time.Minute)
	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
}

func TestCacheManager_EvictsLeastUsed(t *testing.T) {
	m := newTestManager(2)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", "1"))
	require.NoError(t, m.Set(ctx, "b", "2"))
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "c", "3"))

	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
	val, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", val)
}

func TestCacheManager_Disabled(t *testing.T) {
	m := NewManager(config.CacheConfig{Enabled: false})
	defer m.Close()

	require.NoError(t, m.Set(context.Background(), "k", "v"))
	_, err := m.Get(context.Background(), "k")
	assert.ErrorIs(t, err, common.ErrCacheDisabled)
}
