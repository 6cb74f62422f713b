package extract

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"meal-planner/internal/core/cache"
	"meal-planner/internal/core/retry"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"
)

// directPrompt 直接回答提取的提示詞模板
// 固定 JSON 形狀讓回應可以機械解析，找不到的欄位要求填 null
const directPrompt = `Visit this recipe page and read it carefully: %s

Return the recipe as a single JSON object with exactly these fields:
{
  "title": "recipe title",
  "description": "one sentence description",
  "cuisine": "cuisine name",
  "ingredients": ["1 lb chicken thighs", "2 cups jasmine rice"],
  "instructions": ["First step.", "Second step."],
  "servings": 4,
  "totalTimeMinutes": 45,
  "image": "https://example.com/photo.jpg",
  "url": "https://example.com/recipe"
}

Rules:
- keep original quantities and units in each ingredient line
- instructions are plain sentences in cooking order, without numbering
- use null for any field you cannot find
- return ONLY the JSON object, no commentary, no markdown fences`

// DirectExtractor 直接回答提取層
// 一次引擎請求取得整份食譜 JSON，成功結果以 URL 為鍵記憶
type DirectExtractor struct {
	config *config.Config
	engine AnswerEngine
	cache  *cache.CacheManager
}

// NewDirectExtractor 創建直接回答提取層
func NewDirectExtractor(cfg *config.Config, engine AnswerEngine, cacheManager *cache.CacheManager) *DirectExtractor {
	return &DirectExtractor{
		config: cfg,
		engine: engine,
		cache:  cacheManager,
	}
}

// Extract 對單一 URL 執行直接回答提取
// 食材與步驟皆空視為失敗，降級交給上層
func (e *DirectExtractor) Extract(ctx context.Context, pageURL string) (*Payload, error) {
	// 先查快取，命中時不發任何外部請求
	if cached, ok := e.cache.Get(ctx, cache.CategoryRecipe, pageURL); ok {
		payload, err := parsePayload(cached)
		if err == nil && payload.HasContent() {
			return payload, nil
		}
	}

	start := time.Now()
	prompt := fmt.Sprintf(directPrompt, pageURL)

	var raw string
	err := retry.Do(ctx, retryConfig(e.config), func(ctx context.Context) error {
		text, err := e.engine.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		raw = text
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract recipe via answer engine: %w", err)
	}

	// 去掉圍欄並收斂到最外層大括號
	jsonStr := common.ExtractJSONObject(raw)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON object in answer engine response")
	}

	payload, err := parsePayload(jsonStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse extracted recipe: %w", err)
	}

	if !payload.HasContent() {
		return nil, common.ErrEmptyRecipe
	}

	common.LogInfo("直接回答提取成功",
		zap.String("url", pageURL),
		zap.Duration("耗時", time.Since(start)),
	)

	e.cache.Set(ctx, cache.CategoryRecipe, pageURL, jsonStr)
	return payload, nil
}

// retryConfig 由應用設定組出重試策略
func retryConfig(cfg *config.Config) retry.Config {
	return retry.Config{
		MaxRetries:     cfg.Retry.MaxRetries,
		BaseDelay:      cfg.Retry.BaseDelay,
		MaxDelay:       cfg.Retry.MaxDelay,
		Jitter:         cfg.Retry.Jitter,
		AttemptTimeout: cfg.Retry.AttemptTimeout,
	}
}
