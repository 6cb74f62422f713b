package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"
)

// dedupCache 記錄最近看過的請求指紋
type dedupCache struct {
	mu   sync.RWMutex
	seen map[string]time.Time
}

var (
	recentRequests = &dedupCache{seen: make(map[string]time.Time)}

	// 清理 goroutine 只啟動一次
	dedupCleanupOnce sync.Once
)

// lastSeen 回傳指紋上次出現的時間
func (d *dedupCache) lastSeen(fingerprint string) (time.Time, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.seen[fingerprint]
	return t, ok
}

// record 記錄指紋出現時間
func (d *dedupCache) record(fingerprint string, at time.Time) {
	d.mu.Lock()
	d.seen[fingerprint] = at
	d.mu.Unlock()
}

// prune 移除超過保留期的指紋
func (d *dedupCache) prune(maxAge time.Duration) {
	now := time.Now()
	d.mu.Lock()
	for k, t := range d.seen {
		if now.Sub(t) > maxAge {
			delete(d.seen, k)
		}
	}
	d.mu.Unlock()
}

// 啟動自動清理 goroutine
func startDedupCleanup(window time.Duration) {
	dedupCleanupOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				recentRequests.prune(10 * window)
			}
		}()
	})
}

// Deduplication 請求去重中間件，重複視窗由 config 的 dedupWindow 控制
func Deduplication(cfg *config.Config) gin.HandlerFunc {
	window := 1 * time.Second
	if cfg != nil && cfg.DedupWindow > 0 {
		window = cfg.DedupWindow
	}
	startDedupCleanup(window)

	return func(c *gin.Context) {
		// 只處理 POST 請求
		if c.Request.Method != "POST" {
			c.Next()
			return
		}

		// 計算請求體哈希
		bodyHash := ""
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogError("Failed to read request body", zap.Error(err))
				c.Next()
				return
			}

			hash := sha256.Sum256(body)
			bodyHash = hex.EncodeToString(hash[:])

			// 恢復請求體供後續 handler 使用
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		// 生成請求指紋
		fingerprint := c.Request.Method + ":" + c.Request.URL.Path
		if bodyHash != "" {
			fingerprint += ":" + bodyHash
		}

		// 重複視窗內的相同請求直接拒絕
		now := time.Now()
		if last, ok := recentRequests.lastSeen(fingerprint); ok && now.Sub(last) <= window {
			c.JSON(429, gin.H{
				"error": "Request too frequent",
				"code":  "TOO_MANY_REQUESTS",
			})
			c.Abort()
			return
		}

		recentRequests.record(fingerprint, now)

		c.Next()
	}
}
