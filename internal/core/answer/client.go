package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"meal-planner/internal/core/retry"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"
)

// Client 答案引擎客戶端
// 探索查詢與直接回答提取共用同一個引擎，只是提示詞不同
type Client struct {
	config *config.Config
	client *resty.Client
}

// NewClient 創建答案引擎客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.Answer.BaseURL).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Answer.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Answer.Timeout).
		SetTransport(&http.Transport{
			DialContext: (&net.Dialer{
				Timeout: cfg.Retry.ConnectTimeout,
			}).DialContext,
		})

	return &Client{
		config: cfg,
		client: client,
	}
}

// Complete 發送單輪提示並回傳模型的文字回應
// 非 2xx 回應轉成 retry.HTTPError，讓外層執行器決定是否重試
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	// 構建請求
	req := map[string]interface{}{
		"model": c.config.Answer.Model,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"max_tokens":  c.config.Answer.MaxTokens,
		"temperature": c.config.Answer.Temperature,
	}

	// 發送請求
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")

	if err != nil {
		common.LogEngineCall("answer", time.Since(start), err, "")
		return "", fmt.Errorf("failed to send request to answer engine: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		httpErr := retry.NewHTTPError(resp.StatusCode(), resp.Header(), common.Truncate(resp.String(), 200))
		common.LogEngineCall("answer", time.Since(start), httpErr, "")
		return "", httpErr
	}

	// 解析回應
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse answer engine response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in answer engine response")
	}

	common.LogDebug("答案引擎回應",
		zap.Duration("耗時", time.Since(start)),
		zap.Int("長度", len(result.Choices[0].Message.Content)),
	)

	return result.Choices[0].Message.Content, nil
}
