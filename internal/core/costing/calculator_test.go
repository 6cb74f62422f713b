package costing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-planner/internal/pkg/common"
)

func TestCalculatePackageMode(t *testing.T) {
	product := common.ProductMatch{Name: "flour", Price: 3.00, Size: "454 g", Confidence: common.ConfidenceHigh}

	got, err := Calculate(1000, "g", product, common.CostModePackage)
	require.NoError(t, err)

	assert.Equal(t, 3, got.PackageCount)
	assert.InDelta(t, 9.00, got.TotalCost, 1e-9)
	assert.InDelta(t, 362, got.Leftover, 0.001)
	assert.False(t, got.Adjusted)
	assert.Equal(t, "g", got.RequiredBase)
}

func TestCalculateProportionalMode(t *testing.T) {
	product := common.ProductMatch{Name: "flour", Price: 3.00, Size: "454 g", Confidence: common.ConfidenceHigh}

	got, err := Calculate(1000, "g", product, common.CostModeProportional)
	require.NoError(t, err)

	assert.Equal(t, 1, got.PackageCount)
	assert.InDelta(t, 6.61, got.TotalCost, 0.01)
	assert.False(t, got.Adjusted)
}

func TestCalculateSanityGuard(t *testing.T) {
	// 誤判成 1 g 的包裝不可回報 50 包
	product := common.ProductMatch{Name: "saffron", Price: 1.00, Size: "1 g", Confidence: common.ConfidenceLow}

	got, err := Calculate(50, "g", product, common.CostModePackage)
	require.NoError(t, err)

	assert.Equal(t, 1, got.PackageCount)
	assert.True(t, got.Adjusted)
	assert.InDelta(t, 1.00, got.TotalCost, 1e-9)
}

func TestCalculateDefaultSubstitution(t *testing.T) {
	tests := []struct {
		name        string
		amount      float64
		unit        string
		size        string
		wantPkgSize float64
		wantPkgBase string
	}{
		{"unparseable size weight need", 200, "g", "family size", 454, "g"},
		{"unparseable size volume need", 300, "ml", "large bottle", 473, "ml"},
		{"unparseable size each need", 2, "can", "assorted", 1, "each"},
		{"each package against weight need", 500, "g", "12 count", 454, "g"},
		{"weight package against each need", 3, "clove", "14 oz", 1, "each"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product := common.ProductMatch{Name: "x", Price: 2.00, Size: tt.size, Confidence: common.ConfidenceMedium}
			got, err := Calculate(tt.amount, tt.unit, product, common.CostModePackage)
			require.NoError(t, err)
			assert.True(t, got.Adjusted)
			assert.InDelta(t, tt.wantPkgSize, got.PackageSize, 0.001)
			assert.Equal(t, tt.wantPkgBase, got.PackageBase)
		})
	}
}

func TestCalculateNoUsablePrice(t *testing.T) {
	for _, price := range []float64{0, -1.50} {
		product := common.ProductMatch{Name: "x", Price: price, Size: "454 g"}
		got, err := Calculate(100, "g", product, common.CostModePackage)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, common.ErrNoUsablePrice)
	}
}

func TestCalculateSalePriceWins(t *testing.T) {
	product := common.ProductMatch{Name: "x", Price: 4.00, OnSale: true, SalePrice: 2.00, Size: "454 g", Confidence: common.ConfidenceHigh}

	got, err := Calculate(454, "g", product, common.CostModePackage)
	require.NoError(t, err)
	assert.InDelta(t, 2.00, got.TotalCost, 1e-9)
}

func TestCalculateZeroAmountStillBuysOnePackage(t *testing.T) {
	product := common.ProductMatch{Name: "salt", Price: 1.20, Size: "500 g", Confidence: common.ConfidenceHigh}

	got, err := Calculate(0, "", product, common.CostModePackage)
	require.NoError(t, err)
	assert.Equal(t, 1, got.PackageCount)
	assert.InDelta(t, 1.20, got.TotalCost, 1e-9)
}

func TestSelectBestMatch(t *testing.T) {
	low := common.ProductMatch{Name: "store brand", Confidence: common.ConfidenceLow}
	high := common.ProductMatch{Name: "exact match", Confidence: common.ConfidenceHigh}
	medium := common.ProductMatch{Name: "close match", Confidence: common.ConfidenceMedium}

	best, alts, ok := SelectBestMatch([]common.ProductMatch{low, high, medium})
	require.True(t, ok)
	assert.Equal(t, "exact match", best.Name)
	require.Len(t, alts, 2)
	assert.Equal(t, "store brand", alts[0].Name)
	assert.Equal(t, "close match", alts[1].Name)

	// 同信心等級時取最先出現者
	first := common.ProductMatch{Name: "first", Confidence: common.ConfidenceHigh}
	second := common.ProductMatch{Name: "second", Confidence: common.ConfidenceHigh}
	best, _, ok = SelectBestMatch([]common.ProductMatch{first, second})
	require.True(t, ok)
	assert.Equal(t, "first", best.Name)

	_, _, ok = SelectBestMatch(nil)
	assert.False(t, ok)
}

func TestAggregateRecipeCost(t *testing.T) {
	recipe := &common.Recipe{
		Servings: 4,
		Ingredients: []common.Ingredient{
			{Name: "chicken", Cost: &common.CostBreakdown{TotalCost: 8.00}},
			{Name: "rice", Cost: &common.CostBreakdown{TotalCost: 2.00, Adjusted: true}},
			{Name: "olive oil", AlreadyHave: true, Cost: &common.CostBreakdown{TotalCost: 6.00}},
			{Name: "saffron", SpecialtyStore: true, Cost: &common.CostBreakdown{TotalCost: 5.00}},
			{Name: "water"},
		},
	}

	got := AggregateRecipeCost(recipe)

	assert.InDelta(t, 15.00, got.TotalCost, 1e-9)
	assert.InDelta(t, 3.75, got.CostPerServing, 1e-9)
	assert.InDelta(t, 6.00, got.ExcludedFromTotal, 1e-9)
	assert.InDelta(t, 5.00, got.SpecialtyStoreCost, 1e-9)
	assert.Equal(t, 4, got.PricedLines)
	assert.Equal(t, 1, got.EstimatedLines)
	assert.Equal(t, 1, got.SkippedLines)
}
