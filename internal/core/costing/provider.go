package costing

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"meal-planner/internal/core/retry"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"
)

// ProductSource 商品價格來源
type ProductSource interface {
	SearchProducts(ctx context.Context, name, zipCode string) ([]common.ProductMatch, error)
}

// Provider 價格供應商客戶端
// 每次查詢前先過速率限制器，避免打爆供應商的配額
type Provider struct {
	config  *config.Config
	client  *resty.Client
	limiter *rate.Limiter
}

// NewProvider 創建價格供應商客戶端
func NewProvider(cfg *config.Config) *Provider {
	client := resty.New().
		SetBaseURL(cfg.Pricing.BaseURL).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Pricing.APIKey)).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Retry.AttemptTimeout).
		SetTransport(&http.Transport{
			DialContext: (&net.Dialer{
				Timeout: cfg.Retry.ConnectTimeout,
			}).DialContext,
		})

	rps := cfg.Pricing.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	return &Provider{
		config:  cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// SearchProducts 以食材名稱查詢候選商品
// 回應欄位寬鬆解析，缺漏的信心標籤補成 estimated
func (p *Provider) SearchProducts(ctx context.Context, name, zipCode string) ([]common.ProductMatch, error) {
	start := time.Now()

	var matches []common.ProductMatch
	retryCfg := retry.Config{
		MaxRetries:     p.config.Retry.MaxRetries,
		BaseDelay:      p.config.Retry.BaseDelay,
		MaxDelay:       p.config.Retry.MaxDelay,
		Jitter:         p.config.Retry.Jitter,
		AttemptTimeout: p.config.Retry.AttemptTimeout,
	}

	err := retry.Do(ctx, retryCfg, func(ctx context.Context) error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		var result struct {
			Products []common.ProductMatch `json:"products"`
		}

		resp, err := p.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"q":   name,
				"zip": zipCode,
			}).
			SetResult(&result).
			Get("/products/search")

		if err != nil {
			return fmt.Errorf("failed to query pricing provider: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return retry.NewHTTPError(resp.StatusCode(), resp.Header(), common.Truncate(resp.String(), 200))
		}

		matches = result.Products
		return nil
	})

	common.LogEngineCall("pricing", time.Since(start), err, "")
	if err != nil {
		return nil, err
	}

	for i := range matches {
		if matches[i].Confidence == "" {
			matches[i].Confidence = common.ConfidenceEstimated
		}
	}

	common.LogDebug("商品查詢完成",
		zap.String("食材", name),
		zap.Int("候選數", len(matches)),
	)
	return matches, nil
}
