package extract

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"meal-planner/internal/core/retry"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"
)

// FieldsExtractor 欄位提取層
// 把宣告式欄位映射交給渲染服務，在受限的 JS 預算內取回寬鬆負載
type FieldsExtractor struct {
	config *config.Config
	render FieldService
}

// NewFieldsExtractor 創建欄位提取層
func NewFieldsExtractor(cfg *config.Config, render FieldService) *FieldsExtractor {
	return &FieldsExtractor{
		config: cfg,
		render: render,
	}
}

// Extract 對單一 URL 執行欄位提取
func (e *FieldsExtractor) Extract(ctx context.Context, pageURL string) (*Payload, error) {
	start := time.Now()

	var body []byte
	err := retry.Do(ctx, retryConfig(e.config), func(ctx context.Context) error {
		data, err := e.render.ExtractFields(ctx, pageURL)
		if err != nil {
			return err
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract fields: %w", err)
	}

	var payload Payload
	if err := common.ParseJSONBytes(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse field extraction response: %w", err)
	}

	if !payload.HasContent() {
		return nil, common.ErrEmptyRecipe
	}

	common.LogInfo("欄位提取成功",
		zap.String("url", pageURL),
		zap.Duration("耗時", time.Since(start)),
	)

	return &payload, nil
}
