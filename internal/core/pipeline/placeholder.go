package pipeline

import (
	"fmt"

	"meal-planner/internal/core/normalize"
	"meal-planner/internal/pkg/common"
)

// 占位食譜的通用模板，保底讓下游永遠拿得到非空食譜
var (
	placeholderIngredients = []common.Ingredient{
		{RawText: "1 lb protein of your choice", Name: "protein of your choice", Amount: 1, Unit: "lb"},
		{RawText: "2 cups seasonal vegetables", Name: "seasonal vegetables", Amount: 2, Unit: "cups"},
		{RawText: "pantry staples (oil, salt, pepper)", Name: "pantry staples (oil, salt, pepper)"},
	}

	placeholderInstructions = []string{
		"Open the source page for the original directions.",
		"Season the protein and cook over medium-high heat until done.",
		"Cook the vegetables in the same pan and serve together.",
	}
)

// BuildPlaceholder 合成占位食譜
// 標題取網址最後一段路徑；沒有網址時用序號命名
// 用可得性換真實性：提取全滅時下游仍拿到完整的食譜物件
func BuildPlaceholder(pageURL string, index int) *common.Recipe {
	title := fmt.Sprintf("Suggested Meal %d", index+1)
	if pageURL != "" {
		title = normalize.TitleFromURL(pageURL)
	}

	ingredients := make([]common.Ingredient, len(placeholderIngredients))
	copy(ingredients, placeholderIngredients)

	instructions := make([]string, len(placeholderInstructions))
	copy(instructions, placeholderInstructions)

	return &common.Recipe{
		ID:               common.GenerateUUID(),
		Title:            title,
		Description:      "This recipe could not be loaded automatically. Open the source page for full details.",
		Ingredients:      ingredients,
		Instructions:     instructions,
		Servings:         4,
		TotalTimeMinutes: 30,
		SourceURL:        normalize.NormalizeURL(pageURL, ""),
		ExtractionMethod: common.MethodPlaceholder,
	}
}
