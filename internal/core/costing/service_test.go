package costing

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-planner/internal/core/cache"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"
)

type sourceFunc func(ctx context.Context, name, zipCode string) ([]common.ProductMatch, error)

func (f sourceFunc) SearchProducts(ctx context.Context, name, zipCode string) ([]common.ProductMatch, error) {
	return f(ctx, name, zipCode)
}

func pricingConfig() *config.Config {
	return &config.Config{
		Pricing: config.PricingConfig{
			Enabled:    true,
			BatchSize:  2,
			BatchDelay: time.Millisecond,
			QueueSize:  10,
		},
		Cache: config.CacheConfig{
			Enabled:         true,
			MaxSize:         100,
			RecipeTTL:       time.Hour,
			PricingTTL:      time.Hour,
			CleanupInterval: time.Minute,
		},
	}
}

func chickenMatch() common.ProductMatch {
	return common.ProductMatch{
		Name:       "Chicken Thighs Family Pack",
		Price:      6.99,
		Size:       "2 lbs",
		Confidence: common.ConfidenceHigh,
	}
}

func testRecipe() *common.Recipe {
	return &common.Recipe{
		Title:    "Test Dinner",
		Servings: 4,
		Ingredients: []common.Ingredient{
			{RawText: "1 lb chicken thighs", Name: "chicken thighs", Amount: 1, Unit: "lb"},
			{RawText: "2 cups rice", Name: "rice", Amount: 2, Unit: "cups"},
		},
	}
}

func TestPriceRecipeAttachesCosts(t *testing.T) {
	cfg := pricingConfig()
	source := sourceFunc(func(ctx context.Context, name, zipCode string) ([]common.ProductMatch, error) {
		return []common.ProductMatch{chickenMatch()}, nil
	})
	b := NewBatcher(cfg, source)
	defer b.Close()

	svc := NewService(cfg, b, nil)
	recipe := testRecipe()

	require.NoError(t, svc.PriceRecipe(context.Background(), recipe, "94110", common.CostModePackage))

	require.NotNil(t, recipe.Cost)
	assert.Equal(t, 2, recipe.Cost.PricedLines)
	for _, ing := range recipe.Ingredients {
		require.NotNil(t, ing.Pricing, "ingredient %s should have a pricing match", ing.Name)
		require.NotNil(t, ing.Cost)
		assert.GreaterOrEqual(t, ing.Cost.PackageCount, 1)
	}
}

func TestPriceRecipeUsesPricingCache(t *testing.T) {
	cfg := pricingConfig()
	var calls int32
	source := sourceFunc(func(ctx context.Context, name, zipCode string) ([]common.ProductMatch, error) {
		atomic.AddInt32(&calls, 1)
		return []common.ProductMatch{chickenMatch()}, nil
	})
	b := NewBatcher(cfg, source)
	defer b.Close()

	prices := cache.NewManager(cfg)
	require.NotNil(t, prices)
	defer prices.Close()

	svc := NewService(cfg, b, prices)

	require.NoError(t, svc.PriceRecipe(context.Background(), testRecipe(), "94110", common.CostModePackage))
	first := atomic.LoadInt32(&calls)
	require.NoError(t, svc.PriceRecipe(context.Background(), testRecipe(), "94110", common.CostModePackage))

	assert.Equal(t, first, atomic.LoadInt32(&calls), "repeat pricing within TTL should hit the cache")
	assert.Equal(t, int32(2), first, "one provider call per unique ingredient")
}

func TestPriceRecipeSkipsFailedLookups(t *testing.T) {
	cfg := pricingConfig()
	source := sourceFunc(func(ctx context.Context, name, zipCode string) ([]common.ProductMatch, error) {
		if name == "rice" {
			return nil, fmt.Errorf("provider hiccup")
		}
		return []common.ProductMatch{chickenMatch()}, nil
	})
	b := NewBatcher(cfg, source)
	defer b.Close()

	svc := NewService(cfg, b, nil)
	recipe := testRecipe()

	require.NoError(t, svc.PriceRecipe(context.Background(), recipe, "94110", common.CostModePackage))

	require.NotNil(t, recipe.Cost)
	assert.Equal(t, 1, recipe.Cost.PricedLines)
	assert.Equal(t, 1, recipe.Cost.SkippedLines)
	assert.Nil(t, recipe.Ingredients[1].Cost)
}

func TestPriceRecipeDisabled(t *testing.T) {
	svc := NewService(pricingConfig(), nil, nil)
	err := svc.PriceRecipe(context.Background(), testRecipe(), "94110", common.CostModePackage)
	assert.ErrorIs(t, err, common.ErrPricingDisabled)
}

func TestBatcherProcessesConcurrentLookups(t *testing.T) {
	cfg := pricingConfig()
	source := sourceFunc(func(ctx context.Context, name, zipCode string) ([]common.ProductMatch, error) {
		return []common.ProductMatch{chickenMatch()}, nil
	})
	b := NewBatcher(cfg, source)
	defer b.Close()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			products, err := b.Lookup(context.Background(), fmt.Sprintf("ingredient-%d", i), "94110")
			assert.NoError(t, err)
			assert.Len(t, products, 1)
		}(i)
	}
	wg.Wait()

	status := b.Status()
	require.NotNil(t, status)
	assert.Equal(t, 5, status.ProcessedCount)
	assert.Equal(t, 0, status.QueueLength)
}

func TestBatcherClosedLookupFails(t *testing.T) {
	cfg := pricingConfig()
	b := NewBatcher(cfg, sourceFunc(func(ctx context.Context, name, zipCode string) ([]common.ProductMatch, error) {
		return nil, nil
	}))
	b.Close()

	_, err := b.Lookup(context.Background(), "anything", "94110")
	assert.Error(t, err)
}

func TestNilBatcherLookup(t *testing.T) {
	var b *Batcher
	_, err := b.Lookup(context.Background(), "anything", "94110")
	assert.ErrorIs(t, err, common.ErrPricingDisabled)
	assert.Nil(t, b.Status())
	b.Close()
}
