package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"meal-planner/internal/pkg/common"
)

// AnswerEngine 生成式答案引擎，直接回答提取層的後端
type AnswerEngine interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// FieldService 渲染加欄位提取服務
type FieldService interface {
	ExtractFields(ctx context.Context, pageURL string) ([]byte, error)
}

// PageFetcher 整頁渲染抓取服務
type PageFetcher interface {
	FetchHTML(ctx context.Context, pageURL string) (string, error)
}

// Payload 提取層的寬鬆負載
// 同時涵蓋引擎回應、欄位提取回應與 schema.org 食譜節點的欄位名，
// 型別一律延後判定，交給正規化器收斂
type Payload struct {
	Title              json.RawMessage `json:"title,omitempty"`
	Name               json.RawMessage `json:"name,omitempty"`
	Description        json.RawMessage `json:"description,omitempty"`
	Cuisine            json.RawMessage `json:"cuisine,omitempty"`
	RecipeCuisine      json.RawMessage `json:"recipeCuisine,omitempty"`
	Ingredients        json.RawMessage `json:"ingredients,omitempty"`
	RecipeIngredient   json.RawMessage `json:"recipeIngredient,omitempty"`
	Instructions       json.RawMessage `json:"instructions,omitempty"`
	RecipeInstructions json.RawMessage `json:"recipeInstructions,omitempty"`
	Servings           json.RawMessage `json:"servings,omitempty"`
	RecipeYield        json.RawMessage `json:"recipeYield,omitempty"`
	Yield              json.RawMessage `json:"yield,omitempty"`
	TotalTime          json.RawMessage `json:"totalTime,omitempty"`
	TotalTimeMinutes   json.RawMessage `json:"totalTimeMinutes,omitempty"`
	CookTime           json.RawMessage `json:"cookTime,omitempty"`
	Image              json.RawMessage `json:"image,omitempty"`
	ImageURL           json.RawMessage `json:"imageUrl,omitempty"`
	URL                json.RawMessage `json:"url,omitempty"`
	Canonical          json.RawMessage `json:"canonical,omitempty"`
	SourceURL          json.RawMessage `json:"sourceUrl,omitempty"`
}

// Result 單一 URL 的提取結果
type Result struct {
	Method    string   // 勝出的提取方式
	SourceURL string   // 發起提取的 URL（槽位鍵）
	Payload   *Payload // 寬鬆負載，交給正規化器
}

// IngredientsRaw 回傳任一食材欄位的原始 JSON
func (p *Payload) IngredientsRaw() json.RawMessage {
	if rawPresent(p.Ingredients) {
		return p.Ingredients
	}
	return p.RecipeIngredient
}

// InstructionsRaw 回傳任一步驟欄位的原始 JSON
func (p *Payload) InstructionsRaw() json.RawMessage {
	if rawPresent(p.Instructions) {
		return p.Instructions
	}
	return p.RecipeInstructions
}

// HasContent 判斷負載是否帶有任何食材或步驟
// 兩者皆空的負載視為提取失敗，由上層降級
func (p *Payload) HasContent() bool {
	if p == nil {
		return false
	}
	return rawPresent(p.IngredientsRaw()) || rawPresent(p.InstructionsRaw())
}

// rawPresent 判斷原始 JSON 是否帶有實際內容
// null、空陣列、空白字串都視為缺漏
func rawPresent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false
	}

	switch trimmed[0] {
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return false
		}
		return len(arr) > 0
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return false
		}
		return strings.TrimSpace(s) != ""
	default:
		return true
	}
}

// parsePayload 將提取回應解析成寬鬆負載
func parsePayload(data string) (*Payload, error) {
	var payload Payload
	if err := common.ParseJSON(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
