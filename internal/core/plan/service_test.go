package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-planner/internal/core/costing"
	"meal-planner/internal/core/extract"
	"meal-planner/internal/core/pipeline"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"
)

type discovererFunc func(ctx context.Context, req *common.PlanRequest) []string

func (f discovererFunc) FindRecipeURLs(ctx context.Context, req *common.PlanRequest) []string {
	return f(ctx, req)
}

type extractorFunc func(ctx context.Context, pageURL string) (*extract.Payload, error)

func (f extractorFunc) Extract(ctx context.Context, pageURL string) (*extract.Payload, error) {
	return f(ctx, pageURL)
}

type sourceFunc func(ctx context.Context, name, zipCode string) ([]common.ProductMatch, error)

func (f sourceFunc) SearchProducts(ctx context.Context, name, zipCode string) ([]common.ProductMatch, error) {
	return f(ctx, name, zipCode)
}

func planConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			MaxConcurrent: 2,
			BatchPause:    time.Millisecond,
			PrimaryTier:   "direct",
		},
		Pricing: config.PricingConfig{
			Enabled:    true,
			BatchSize:  4,
			BatchDelay: time.Millisecond,
			QueueSize:  20,
		},
	}
}

func goodExtractor() pipeline.Extractor {
	return extractorFunc(func(ctx context.Context, pageURL string) (*extract.Payload, error) {
		return &extract.Payload{
			Title:        json.RawMessage(`"Weeknight Dinner"`),
			Ingredients:  json.RawMessage(`["1 lb chicken thighs", "2 cups rice"]`),
			Instructions: json.RawMessage(`["Cook it all."]`),
			Servings:     json.RawMessage(`4`),
		}, nil
	})
}

func orchestratorWith(cfg *config.Config, urls []string, tier pipeline.Extractor) *pipeline.Orchestrator {
	d := discovererFunc(func(ctx context.Context, req *common.PlanRequest) []string {
		return urls
	})
	return pipeline.NewOrchestrator(cfg, d, []pipeline.Tier{{Method: common.MethodDirectAnswer, Extractor: tier}})
}

func TestBuildPlanWithoutPricing(t *testing.T) {
	cfg := planConfig()
	orch := orchestratorWith(cfg, []string{
		"https://example.com/a",
		"https://example.com/b",
	}, goodExtractor())

	svc := NewService(cfg, orch, nil)
	resp, err := svc.BuildPlan(context.Background(), &common.PlanRequest{MealCount: 2})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.PlanID)
	require.Len(t, resp.Recipes, 2)
	assert.Zero(t, resp.TotalCost)
	assert.Equal(t, common.ConfidenceHigh, resp.Confidence)
	assert.Zero(t, resp.BudgetUtilization)
}

func TestBuildPlanAllPlaceholdersIsLowConfidence(t *testing.T) {
	cfg := planConfig()
	orch := orchestratorWith(cfg, nil, goodExtractor())

	svc := NewService(cfg, orch, nil)
	resp, err := svc.BuildPlan(context.Background(), &common.PlanRequest{MealCount: 3})
	require.NoError(t, err)

	assert.Equal(t, common.ConfidenceLow, resp.Confidence)
	for _, r := range resp.Recipes {
		assert.True(t, r.IsPlaceholder())
	}
}

func TestBuildPlanWithPricingAndBudget(t *testing.T) {
	cfg := planConfig()
	orch := orchestratorWith(cfg, []string{"https://example.com/a"}, goodExtractor())

	source := sourceFunc(func(ctx context.Context, name, zipCode string) ([]common.ProductMatch, error) {
		return []common.ProductMatch{{
			Name:       "Store Brand " + name,
			Price:      5.00,
			Size:       "1 lb",
			Confidence: common.ConfidenceHigh,
		}}, nil
	})
	batcher := costing.NewBatcher(cfg, source)
	defer batcher.Close()
	costingSvc := costing.NewService(cfg, batcher, nil)

	svc := NewService(cfg, orch, costingSvc)
	resp, err := svc.BuildPlan(context.Background(), &common.PlanRequest{
		MealCount:    1,
		ZipCode:      "94110",
		WeeklyBudget: 100,
	})
	require.NoError(t, err)

	require.Len(t, resp.Recipes, 1)
	require.NotNil(t, resp.Recipes[0].Cost)
	assert.Greater(t, resp.TotalCost, 0.0)
	assert.InDelta(t, resp.TotalCost/100, resp.BudgetUtilization, 0.0001)
}

func TestBuildPlanMixedPlaceholders(t *testing.T) {
	cfg := planConfig()
	flaky := extractorFunc(func(ctx context.Context, pageURL string) (*extract.Payload, error) {
		if pageURL == "https://example.com/good" {
			return &extract.Payload{
				Title:        json.RawMessage(`"Only Real One"`),
				Ingredients:  json.RawMessage(`["1 egg"]`),
				Instructions: json.RawMessage(`["Cook."]`),
			}, nil
		}
		return nil, fmt.Errorf("broken page")
	})
	orch := orchestratorWith(cfg, []string{
		"https://example.com/good",
		"https://example.com/bad-1",
		"https://example.com/bad-2",
	}, flaky)

	svc := NewService(cfg, orch, nil)
	resp, err := svc.BuildPlan(context.Background(), &common.PlanRequest{MealCount: 3})
	require.NoError(t, err)

	// 三份中兩份占位，超過半數
	assert.Equal(t, common.ConfidenceLow, resp.Confidence)
}

func TestBuildPlanValidation(t *testing.T) {
	cfg := planConfig()
	svc := NewService(cfg, orchestratorWith(cfg, nil, goodExtractor()), nil)

	_, err := svc.BuildPlan(context.Background(), &common.PlanRequest{MealCount: 0})
	assert.True(t, common.IsValidationError(err))

	_, err = svc.BuildPlan(context.Background(), nil)
	assert.True(t, common.IsValidationError(err))
}
