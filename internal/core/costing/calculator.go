package costing

import (
	"math"

	"meal-planner/internal/core/units"
	"meal-planner/internal/pkg/common"
)

// 包裝規格解析失敗時代入的預設值
const (
	defaultWeightPackage = 454.0 // g，約 1 磅
	defaultVolumePackage = 473.0 // ml，約 1 品脫
	defaultEachPackage   = 1.0
)

// 異常包裝量的防護閾值：小需求卻算出大量包裝，視為規格誤判
// 閾值 20 是經驗值而非推導結果，真有大量小包需求的食譜會被低估
const (
	guardRequiredCeiling = 2000.0
	guardPackageCeiling  = 20
)

// Calculate 計算單一食材對應商品的成本拆解
// 包裝規格解析失敗或與需求單位不符時代入預設值並標記 adjusted
// 唯一的失敗情境是商品沒有可用價格
func Calculate(amount float64, unit string, product common.ProductMatch, mode string) (*common.CostBreakdown, error) {
	price := product.EffectivePrice()
	if price <= 0 {
		return nil, common.ErrNoUsablePrice
	}

	req := units.ToBaseUnit(amount, unit)
	adjusted := false

	// 解析包裝規格
	pkg := units.ParsePackageSize(product.Size)
	if pkg == nil || pkg.Value <= 0 {
		pkg = defaultPackage(req.Base)
		adjusted = true
	} else if pkg.Base != req.Base {
		// 以件計的包裝滿足不了重量/容量需求，反之亦然
		pkg = defaultPackage(req.Base)
		adjusted = true
	}

	unitPrice := price / pkg.Value

	breakdown := &common.CostBreakdown{
		Mode:           mode,
		RequiredAmount: req.Value,
		RequiredBase:   string(req.Base),
		PackageSize:    pkg.Value,
		PackageBase:    string(pkg.Base),
		UnitPrice:      unitPrice,
	}

	switch mode {
	case common.CostModeProportional:
		breakdown.PackageCount = 1
		breakdown.TotalCost = req.Value * unitPrice
		breakdown.Leftover = math.Max(0, pkg.Value-req.Value)
	default:
		// 整包購買
		breakdown.Mode = common.CostModePackage
		count := int(math.Ceil(req.Value / pkg.Value))
		if count < 1 {
			count = 1
		}
		if req.Value > 0 && req.Value < guardRequiredCeiling && count > guardPackageCeiling {
			count = 1
			adjusted = true
		}
		breakdown.PackageCount = count
		breakdown.TotalCost = float64(count) * price
		breakdown.Leftover = math.Max(0, float64(count)*pkg.Value-req.Value)
	}

	breakdown.Adjusted = adjusted
	return breakdown, nil
}

// defaultPackage 依需求基準單位給出預設包裝量
func defaultPackage(base units.Base) *units.Quantity {
	switch base {
	case units.Grams:
		return &units.Quantity{Value: defaultWeightPackage, Base: units.Grams}
	case units.Milliliters:
		return &units.Quantity{Value: defaultVolumePackage, Base: units.Milliliters}
	default:
		return &units.Quantity{Value: defaultEachPackage, Base: units.Each}
	}
}

// 信心等級排序，挑選候選商品時使用
var confidenceRank = map[string]int{
	common.ConfidenceHigh:      3,
	common.ConfidenceMedium:    2,
	common.ConfidenceLow:       1,
	common.ConfidenceEstimated: 0,
}

// SelectBestMatch 從候選商品中選出第一個信心最高者，其餘保留為替代選項
func SelectBestMatch(products []common.ProductMatch) (common.ProductMatch, []common.ProductMatch, bool) {
	if len(products) == 0 {
		return common.ProductMatch{}, nil, false
	}

	bestIdx := 0
	for i := 1; i < len(products); i++ {
		if confidenceRank[products[i].Confidence] > confidenceRank[products[bestIdx].Confidence] {
			bestIdx = i
		}
	}

	best := products[bestIdx]
	alternatives := make([]common.ProductMatch, 0, len(products)-1)
	for i, p := range products {
		if i != bestIdx {
			alternatives = append(alternatives, p)
		}
	}
	return best, alternatives, true
}

// AggregateRecipeCost 彙總整份食譜的成本
// 使用者已有的食材列入 excludedFromTotal；特殊商店食材列入總額並另行統計
func AggregateRecipeCost(recipe *common.Recipe) *common.RecipeCost {
	cost := &common.RecipeCost{}

	for i := range recipe.Ingredients {
		ing := &recipe.Ingredients[i]
		if ing.Cost == nil {
			cost.SkippedLines++
			continue
		}

		cost.PricedLines++
		if ing.Cost.Adjusted || (ing.Pricing != nil && ing.Pricing.Product.Confidence == common.ConfidenceEstimated) {
			cost.EstimatedLines++
		}

		line := ing.Cost.TotalCost
		if ing.AlreadyHave {
			cost.ExcludedFromTotal += line
			continue
		}

		cost.TotalCost += line
		if ing.SpecialtyStore {
			cost.SpecialtyStoreCost += line
		}
	}

	if recipe.Servings > 0 {
		cost.CostPerServing = cost.TotalCost / float64(recipe.Servings)
	}
	return cost
}
