package common

// 提取方法標籤（表示食譜由哪一層策略產生）
const (
	MethodDirectAnswer    = "direct-answer"
	MethodFieldExtraction = "field-extraction"
	MethodStructuredData  = "structured-data"
	MethodPlaceholder     = "placeholder"
)

// 信心等級
const (
	ConfidenceHigh      = "high"
	ConfidenceMedium    = "medium"
	ConfidenceLow       = "low"
	ConfidenceEstimated = "estimated"
)

// 計價模式
const (
	CostModePackage      = "package"      // 整包購買
	CostModeProportional = "proportional" // 按用量比例計價
)

// Recipe 標準化後的食譜
type Recipe struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Description      string       `json:"description,omitempty"`
	Cuisines         []string     `json:"cuisines,omitempty"`
	Ingredients      []Ingredient `json:"ingredients"`
	Instructions     []string     `json:"instructions"`
	Servings         int          `json:"servings"`
	TotalTimeMinutes int          `json:"totalTimeMinutes"`
	ImageURL         string       `json:"imageUrl,omitempty"`
	SourceURL        string       `json:"sourceUrl,omitempty"`
	ExtractionMethod string       `json:"extractionMethod"`
	Cost             *RecipeCost  `json:"cost,omitempty"`
}

// IsPlaceholder 判斷是否為合成的占位食譜
func (r *Recipe) IsPlaceholder() bool {
	return r.ExtractionMethod == MethodPlaceholder
}

// Ingredient 食材行
type Ingredient struct {
	RawText        string         `json:"rawText"`
	Name           string         `json:"name"`
	Amount         float64        `json:"amount"`         // 解析後的數量，無法解析時為 0
	Unit           string         `json:"unit,omitempty"` // 原始單位 token，可能為空
	AlreadyHave    bool           `json:"alreadyHave,omitempty"`
	SpecialtyStore bool           `json:"specialtyStore,omitempty"`
	Pricing        *PricingMatch  `json:"pricing,omitempty"`
	Cost           *CostBreakdown `json:"cost,omitempty"`
}

// ProductMatch 價格供應商回傳的候選商品
type ProductMatch struct {
	Name       string  `json:"name"`
	Brand      string  `json:"brand,omitempty"`
	Price      float64 `json:"price"`
	Size       string  `json:"size,omitempty"` // 自由文字的包裝規格
	OnSale     bool    `json:"onSale,omitempty"`
	SalePrice  float64 `json:"salePrice,omitempty"`
	Confidence string  `json:"confidence"`
}

// EffectivePrice 取得實際計價用的價格（特價優先）
func (p ProductMatch) EffectivePrice() float64 {
	if p.OnSale && p.SalePrice > 0 {
		return p.SalePrice
	}
	return p.Price
}

// PricingMatch 食材對應到的商品，含未採用的候選
type PricingMatch struct {
	Product      ProductMatch   `json:"product"`
	Alternatives []ProductMatch `json:"alternatives,omitempty"`
}

// CostBreakdown 單一食材的成本拆解
type CostBreakdown struct {
	Mode           string  `json:"mode"`
	RequiredAmount float64 `json:"requiredAmount"` // 需求量（基準單位）
	RequiredBase   string  `json:"requiredBase"`
	PackageSize    float64 `json:"packageSize"` // 包裝量（基準單位）
	PackageBase    string  `json:"packageBase"`
	PackageCount   int     `json:"packageCount"`
	UnitPrice      float64 `json:"unitPrice"`
	TotalCost      float64 `json:"totalCost"`
	Leftover       float64 `json:"leftover"`
	Adjusted       bool    `json:"adjusted"` // 曾代入預設包裝量或修正異常值
}

// RecipeCost 整份食譜的成本彙總
type RecipeCost struct {
	TotalCost          float64 `json:"totalCost"`
	CostPerServing     float64 `json:"costPerServing"`
	ExcludedFromTotal  float64 `json:"excludedFromTotal,omitempty"`  // 使用者已有、不列入總額
	SpecialtyStoreCost float64 `json:"specialtyStoreCost,omitempty"` // 特殊商店採購，列入總額但另行標示
	PricedLines        int     `json:"pricedLines"`
	EstimatedLines     int     `json:"estimatedLines,omitempty"`
	SkippedLines       int     `json:"skippedLines,omitempty"` // 無可用價格而略過的食材
}

// PlanRequest 餐食計畫請求
type PlanRequest struct {
	Cuisines            []string `json:"cuisines"`
	DietaryRestrictions []string `json:"dietaryRestrictions"`
	ExcludeIngredients  []string `json:"excludeIngredients"`
	IncludeIngredients  []string `json:"includeIngredients"`
	MealCount           int      `json:"mealCount"`
	HouseholdSize       int      `json:"householdSize"`
	MaxTimeMinutes      int      `json:"maxTimeMinutes,omitempty"`
	ZipCode             string   `json:"zipCode,omitempty"`
	WeeklyBudget        float64  `json:"weeklyBudget,omitempty"`
}

// PlanResponse 餐食計畫結果
type PlanResponse struct {
	PlanID            string    `json:"planId"`
	Recipes           []*Recipe `json:"recipes"`
	TotalCost         float64   `json:"totalCost"`
	Confidence        string    `json:"confidence"`
	BudgetUtilization float64   `json:"budgetUtilization,omitempty"`
}
