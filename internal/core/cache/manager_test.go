package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-planner/internal/infrastructure/config"
)

func testConfig(maxSize int, recipeTTL, pricingTTL time.Duration) *config.Config {
	return &config.Config{
		Cache: config.CacheConfig{
			Enabled:         true,
			MaxSize:         maxSize,
			RecipeTTL:       recipeTTL,
			PricingTTL:      pricingTTL,
			CleanupInterval: time.Minute,
		},
	}
}

func TestManagerRoundTrip(t *testing.T) {
	m := NewManager(testConfig(10, time.Hour, time.Hour))
	require.NotNil(t, m)
	defer m.Close()

	ctx := context.Background()
	m.Set(ctx, CategoryRecipe, "https://example.com/pasta", `{"title":"Pasta"}`)

	got, ok := m.Get(ctx, CategoryRecipe, "https://example.com/pasta")
	require.True(t, ok)
	assert.Equal(t, `{"title":"Pasta"}`, got)

	_, ok = m.Get(ctx, CategoryRecipe, "https://example.com/other")
	assert.False(t, ok)
}

func TestManagerCategoriesDoNotCollide(t *testing.T) {
	m := NewManager(testConfig(10, time.Hour, time.Hour))
	require.NotNil(t, m)
	defer m.Close()

	ctx := context.Background()
	m.Set(ctx, CategoryRecipe, "chicken", "recipe-value")
	m.Set(ctx, CategoryPricing, "chicken", "pricing-value")

	got, ok := m.Get(ctx, CategoryRecipe, "chicken")
	require.True(t, ok)
	assert.Equal(t, "recipe-value", got)

	got, ok = m.Get(ctx, CategoryPricing, "chicken")
	require.True(t, ok)
	assert.Equal(t, "pricing-value", got)
}

func TestManagerExpiryAtRead(t *testing.T) {
	m := NewManager(testConfig(10, 15*time.Millisecond, time.Hour))
	require.NotNil(t, m)
	defer m.Close()

	ctx := context.Background()
	m.Set(ctx, CategoryRecipe, "url", "value")

	_, ok := m.Get(ctx, CategoryRecipe, "url")
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)

	_, ok = m.Get(ctx, CategoryRecipe, "url")
	assert.False(t, ok, "過期條目必須在讀取時視為不存在")

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats["evictions"])
}

func TestManagerLRUEviction(t *testing.T) {
	m := NewManager(testConfig(2, time.Hour, time.Hour))
	require.NotNil(t, m)
	defer m.Close()

	ctx := context.Background()
	m.Set(ctx, CategoryRecipe, "a", "1")
	m.Set(ctx, CategoryRecipe, "b", "2")

	// 提高 a 的使用次數，讓 b 成為淘汰對象
	_, _ = m.Get(ctx, CategoryRecipe, "a")
	_, _ = m.Get(ctx, CategoryRecipe, "a")

	m.Set(ctx, CategoryRecipe, "c", "3")

	_, ok := m.Get(ctx, CategoryRecipe, "a")
	assert.True(t, ok)
	_, ok = m.Get(ctx, CategoryRecipe, "b")
	assert.False(t, ok)
	_, ok = m.Get(ctx, CategoryRecipe, "c")
	assert.True(t, ok)
}

func TestManagerDisabledReturnsNil(t *testing.T) {
	cfg := testConfig(10, time.Hour, time.Hour)
	cfg.Cache.Enabled = false

	m := NewManager(cfg)
	assert.Nil(t, m)

	// nil 管理器仍然可以安全使用
	_, ok := m.Get(context.Background(), CategoryRecipe, "x")
	assert.False(t, ok)
	m.Set(context.Background(), CategoryRecipe, "x", "y")
	assert.NoError(t, m.Close())
}

func TestManagerStats(t *testing.T) {
	m := NewManager(testConfig(10, time.Hour, time.Hour))
	require.NotNil(t, m)
	defer m.Close()

	ctx := context.Background()
	m.Set(ctx, CategoryRecipe, "hit", "v")
	_, _ = m.Get(ctx, CategoryRecipe, "hit")
	_, _ = m.Get(ctx, CategoryRecipe, "miss")

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(1), stats["misses"])
	assert.Equal(t, 1, stats["size"])
	assert.InDelta(t, 0.5, stats["hit_ratio"].(float64), 1e-9)
}
