package costing

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"meal-planner/internal/core/cache"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"
)

// Service 食譜計價服務
// 為每個食材找商品、算成本，再彙總成整份食譜的開銷
type Service struct {
	config  *config.Config
	batcher *Batcher
	prices  cache.Store
}

// NewService 創建計價服務
// prices 可為 nil，此時每次查詢都走批次器
func NewService(cfg *config.Config, batcher *Batcher, prices cache.Store) *Service {
	return &Service{
		config:  cfg,
		batcher: batcher,
		prices:  prices,
	}
}

// Enabled 回報計價功能是否可用
func (s *Service) Enabled() bool {
	return s != nil && s.batcher != nil
}

// Status 回報批次佇列狀態
func (s *Service) Status() *Status {
	if s == nil {
		return nil
	}
	return s.batcher.Status()
}

// Close 關閉底層批次器
func (s *Service) Close() {
	if s != nil {
		s.batcher.Close()
	}
}

// PriceRecipe 為整份食譜計價
// 單一食材查無價格只會略過該行，不會讓整份失敗；彙總結果掛在 recipe.Cost
func (s *Service) PriceRecipe(ctx context.Context, recipe *common.Recipe, zipCode, mode string) error {
	if !s.Enabled() {
		return common.ErrPricingDisabled
	}
	if recipe == nil {
		return common.NewValidationError("recipe is required")
	}
	if mode == "" {
		mode = common.CostModePackage
	}

	for i := range recipe.Ingredients {
		ing := &recipe.Ingredients[i]
		if strings.TrimSpace(ing.Name) == "" {
			continue
		}

		products, err := s.lookupProducts(ctx, ing.Name, zipCode)
		if err != nil {
			common.LogWarn("商品查詢失敗，略過該食材",
				zap.String("食材", ing.Name),
				zap.Error(err),
			)
			continue
		}

		best, alternatives, ok := SelectBestMatch(products)
		if !ok {
			continue
		}
		ing.Pricing = &common.PricingMatch{
			Product:      best,
			Alternatives: alternatives,
		}

		breakdown, err := Calculate(ing.Amount, ing.Unit, best, mode)
		if err != nil {
			common.LogWarn("無可用價格，略過該食材",
				zap.String("食材", ing.Name),
				zap.String("商品", best.Name),
				zap.Error(err),
			)
			continue
		}
		ing.Cost = breakdown
	}

	recipe.Cost = AggregateRecipeCost(recipe)
	return nil
}

// lookupProducts 查商品，先走價格快取再進批次佇列
func (s *Service) lookupProducts(ctx context.Context, name, zipCode string) ([]common.ProductMatch, error) {
	key := strings.ToLower(strings.TrimSpace(name)) + "|" + zipCode

	if s.prices != nil {
		if raw, ok := s.prices.Get(ctx, cache.CategoryPricing, key); ok {
			var products []common.ProductMatch
			if err := common.ParseJSON(raw, &products); err == nil {
				return products, nil
			}
		}
	}

	products, err := s.batcher.Lookup(ctx, name, zipCode)
	if err != nil {
		return nil, err
	}

	if s.prices != nil && len(products) > 0 {
		if raw, err := common.ToJSON(products); err == nil {
			s.prices.Set(ctx, cache.CategoryPricing, key, raw)
		}
	}
	return products, nil
}
