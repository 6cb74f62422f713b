package plan

import (
	"context"

	"go.uber.org/zap"

	"meal-planner/internal/core/costing"
	"meal-planner/internal/core/pipeline"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"
)

// Service 餐食計畫服務
// 把提取管線和計價引擎接成一個對外操作：限制條件進、帶價食譜出
type Service struct {
	config       *config.Config
	orchestrator *pipeline.Orchestrator
	costing      *costing.Service
}

// NewService 創建計畫服務
// costingSvc 可為 nil，此時回應不含成本欄位
func NewService(cfg *config.Config, orchestrator *pipeline.Orchestrator, costingSvc *costing.Service) *Service {
	return &Service{
		config:       cfg,
		orchestrator: orchestrator,
		costing:      costingSvc,
	}
}

// BuildPlan 產出一份餐食計畫
// 管線永不硬失敗，計價失敗也只會讓該食譜缺成本欄位
func (s *Service) BuildPlan(ctx context.Context, req *common.PlanRequest) (*common.PlanResponse, error) {
	if req == nil {
		return nil, common.NewValidationError("request body is required")
	}
	if req.MealCount < 1 {
		return nil, common.NewValidationError("mealCount must be at least 1")
	}

	recipes := s.orchestrator.BuildRecipes(ctx, req)

	if s.costing.Enabled() {
		for _, r := range recipes {
			// 占位食譜的食材是模板，計價沒有意義
			if r.IsPlaceholder() {
				continue
			}
			if err := s.costing.PriceRecipe(ctx, r, req.ZipCode, common.CostModePackage); err != nil {
				common.LogWarn("食譜計價失敗",
					zap.String("食譜", r.Title),
					zap.Error(err),
				)
			}
		}
	}

	resp := &common.PlanResponse{
		PlanID:     common.GenerateUUID(),
		Recipes:    recipes,
		TotalCost:  totalCost(recipes),
		Confidence: planConfidence(recipes),
	}
	if req.WeeklyBudget > 0 && resp.TotalCost > 0 {
		resp.BudgetUtilization = resp.TotalCost / req.WeeklyBudget
	}

	common.LogInfo("餐食計畫完成",
		zap.String("plan_id", resp.PlanID),
		zap.Int("食譜數", len(resp.Recipes)),
		zap.Float64("總花費", resp.TotalCost),
		zap.String("信心", resp.Confidence),
	)
	return resp, nil
}

// totalCost 彙總所有食譜的採買金額
func totalCost(recipes []*common.Recipe) float64 {
	var total float64
	for _, r := range recipes {
		if r.Cost != nil {
			total += r.Cost.TotalCost
		}
	}
	return total
}

// planConfidence 依占位與估計比例給整份計畫打信心標籤
// 全數真實提取且無估計值為 high；占位或估計過半為 low；其餘 medium
func planConfidence(recipes []*common.Recipe) string {
	if len(recipes) == 0 {
		return common.ConfidenceLow
	}

	placeholders := 0
	estimated := 0
	priced := 0
	for _, r := range recipes {
		if r.IsPlaceholder() {
			placeholders++
			continue
		}
		if r.Cost != nil {
			priced++
			if r.Cost.EstimatedLines > 0 || r.Cost.SkippedLines > 0 {
				estimated++
			}
		}
	}

	half := (len(recipes) + 1) / 2
	if placeholders >= half {
		return common.ConfidenceLow
	}
	if placeholders == 0 && estimated == 0 {
		return common.ConfidenceHigh
	}
	if priced > 0 && estimated > priced/2 {
		return common.ConfidenceLow
	}
	return common.ConfidenceMedium
}
