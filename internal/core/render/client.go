package render

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"meal-planner/internal/core/retry"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"
)

// fieldRules 欄位提取規則
// 宣告式欄位映射，由渲染服務在頁面渲染完成後套用
var fieldRules = map[string]string{
	"title":        "the recipe title",
	"ingredients":  "list of ingredient lines including quantities and units",
	"instructions": "list of cooking instruction steps in order",
	"servings":     "number of servings or yield of the recipe",
	"totalTime":    "total time to prepare and cook",
	"image":        "url of the primary recipe image",
	"url":          "canonical url of the page",
}

// Client 渲染與欄位提取服務客戶端
type Client struct {
	config *config.Config
	client *resty.Client
	rules  string
}

// NewClient 創建渲染服務客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.Render.BaseURL).
		SetTimeout(cfg.Render.PageTimeout + 5*time.Second).
		SetTransport(&http.Transport{
			DialContext: (&net.Dialer{
				Timeout: cfg.Retry.ConnectTimeout,
			}).DialContext,
		})

	rules, _ := json.Marshal(fieldRules)

	return &Client{
		config: cfg,
		client: client,
		rules:  string(rules),
	}
}

// ExtractFields 對單一 URL 執行渲染加欄位提取
// 回傳服務的原始 JSON 負載，欄位可能缺漏或型別不定，由上層寬鬆解析
func (c *Client) ExtractFields(ctx context.Context, pageURL string) ([]byte, error) {
	start := time.Now()

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key":          c.config.Render.APIKey,
			"url":              pageURL,
			"render_js":        "true",
			"wait":             strconv.FormatInt(c.config.Render.JSBudget.Milliseconds(), 10),
			"timeout":          strconv.FormatInt(c.config.Render.PageTimeout.Milliseconds(), 10),
			"ai_extract_rules": c.rules,
		}).
		Get("/")

	if err != nil {
		common.LogEngineCall("render-fields", time.Since(start), err, "")
		return nil, fmt.Errorf("failed to call field extraction service: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		httpErr := retry.NewHTTPError(resp.StatusCode(), resp.Header(), common.Truncate(resp.String(), 200))
		common.LogEngineCall("render-fields", time.Since(start), httpErr, "")
		return nil, httpErr
	}

	common.LogDebug("欄位提取完成",
		zap.String("url", pageURL),
		zap.Duration("耗時", time.Since(start)),
		zap.Int("長度", len(resp.Body())),
	)

	return resp.Body(), nil
}

// FetchHTML 透過渲染服務抓取整頁 HTML
// 結構化資料提取層用它取得含 JSON-LD 的完整頁面
func (c *Client) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	start := time.Now()

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key":   c.config.Render.APIKey,
			"url":       pageURL,
			"render_js": "true",
			"wait":      strconv.FormatInt(c.config.Render.JSBudget.Milliseconds(), 10),
			"timeout":   strconv.FormatInt(c.config.Render.PageTimeout.Milliseconds(), 10),
		}).
		Get("/")

	if err != nil {
		common.LogEngineCall("render-html", time.Since(start), err, "")
		return "", fmt.Errorf("failed to fetch rendered page: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		httpErr := retry.NewHTTPError(resp.StatusCode(), resp.Header(), common.Truncate(resp.String(), 200))
		common.LogEngineCall("render-html", time.Since(start), httpErr, "")
		return "", httpErr
	}

	common.LogDebug("頁面渲染完成",
		zap.String("url", pageURL),
		zap.Duration("耗時", time.Since(start)),
		zap.Int("html_length", len(resp.Body())),
	)

	return resp.String(), nil
}
