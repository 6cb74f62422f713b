package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"meal-planner/internal/pkg/common"
)

// Config 重試策略
type Config struct {
	MaxRetries     int           // 首次之外的重試次數
	BaseDelay      time.Duration // 退避基準
	MaxDelay       time.Duration // 退避上限
	Jitter         bool          // 是否加入 ±25% 抖動
	AttemptTimeout time.Duration // 單次嘗試的硬性超時
}

const jitterFactor = 0.25

// DefaultConfig 預設策略：3 次重試、1s 基準、10s 上限、13s 單次超時
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		BaseDelay:      time.Second,
		MaxDelay:       10 * time.Second,
		Jitter:         true,
		AttemptTimeout: 13 * time.Second,
	}
}

// HTTPError 帶狀態碼的外部請求錯誤，重試判斷依據
type HTTPError struct {
	Status     int
	RetryAfter time.Duration // 來自 Retry-After 標頭，可能為 0
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("http %d", e.Status)
}

// NewHTTPError 由回應狀態與標頭建立 HTTPError
func NewHTTPError(status int, header http.Header, message string) *HTTPError {
	e := &HTTPError{Status: status, Message: message}
	if status == http.StatusTooManyRequests && header != nil {
		if raw := header.Get("Retry-After"); raw != "" {
			if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
				e.RetryAfter = time.Duration(secs) * time.Second
			}
		}
	}
	return e
}

// Do 以退避重試執行操作，每次嘗試都包在獨立的超時裡
// 重試耗盡後回傳最後一次觀察到的錯誤；層級降級是呼叫端的責任
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		attemptCtx := ctx
		cancel := func() {}
		if cfg.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.AttemptTimeout)
		}
		err := op(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		// 外層 context 取消就不再重試
		if ctx.Err() != nil {
			return lastErr
		}
		if !Retryable(err) || attempt == cfg.MaxRetries {
			return lastErr
		}

		delay := backoffDelay(cfg, attempt, err)
		common.LogDebug("重試前退避",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return lastErr
		}
	}

	return lastErr
}

// Retryable 判斷錯誤是否值得重試
// 429 與 5xx 重試；其餘 4xx 不重試；超時與一般網路錯誤重試
func Retryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Status == http.StatusTooManyRequests {
			return true
		}
		if httpErr.Status >= 500 {
			return true
		}
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// 單次嘗試超時視為暫時性失敗
	return true
}

// backoffDelay 計算下一次等待：min(base * 2^attempt, max)，可選抖動
// 429 帶 Retry-After 時以伺服器給的值為準
func backoffDelay(cfg Config, attempt int, err error) time.Duration {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(attempt)))
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	if cfg.Jitter {
		offset := (rand.Float64()*2 - 1) * jitterFactor * float64(delay)
		delay = time.Duration(float64(delay) + offset)
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}
