package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"

	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"
)

// 緩存分類，決定各自的存活時間
const (
	CategoryRecipe  = "recipe"  // 頁面/食譜提取結果，24h
	CategoryPricing = "pricing" // 價格查詢結果，2h
)

// Store 提取與計價共用的緩存介面
// 未命中只回傳 false，呼叫端一律落回即時查詢，緩存永不阻塞流程
type Store interface {
	Get(ctx context.Context, category, key string) (string, bool)
	Set(ctx context.Context, category, key, value string)
}

// CacheManager 緩存管理器
type CacheManager struct {
	config *config.Config
	mu     sync.Mutex
	store  map[string]cacheEntry
	stats  cacheStats
	done   chan struct{}
}

// cacheEntry 緩存條目
type cacheEntry struct {
	value       string
	expiresAt   time.Time
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// cacheStats 緩存統計
type cacheStats struct {
	hits      int64
	misses    int64
	evictions int64
	rejected  int64
}

// NewManager 創建新的緩存管理器，停用時回傳 nil（所有方法容忍 nil 接收者）
func NewManager(cfg *config.Config) *CacheManager {
	if !cfg.Cache.Enabled {
		common.LogInfo("Cache disabled")
		return nil
	}

	m := &CacheManager{
		config: cfg,
		store:  make(map[string]cacheEntry),
		done:   make(chan struct{}),
	}

	// 啟動清理過期緩存的協程
	go m.startCleanup()

	common.LogInfo("快取管理員已初始化",
		zap.Int("最大容量", cfg.Cache.MaxSize),
		zap.Duration("食譜存活時間", cfg.Cache.RecipeTTL),
		zap.Duration("價格存活時間", cfg.Cache.PricingTTL),
		zap.Duration("清理間隔", cfg.Cache.CleanupInterval),
	)

	return m
}

// ttlFor 依分類給出存活時間
func (m *CacheManager) ttlFor(category string) time.Duration {
	if category == CategoryPricing {
		return m.config.Cache.PricingTTL
	}
	return m.config.Cache.RecipeTTL
}

// Get 獲取緩存值，過期條目在讀取時淘汰
func (m *CacheManager) Get(ctx context.Context, category, key string) (string, bool) {
	if m == nil {
		return "", false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	storeKey := m.generateKey(category, key)
	entry, exists := m.store[storeKey]
	if !exists {
		m.stats.misses++
		common.LogCacheMiss(category, key)
		return "", false
	}

	// 過期視同不存在
	if time.Now().After(entry.expiresAt) {
		delete(m.store, storeKey)
		m.stats.evictions++
		m.stats.misses++
		common.LogDebug("快取已過期",
			zap.String("分類", category),
		)
		return "", false
	}

	// 更新訪問統計
	entry.lastAccess = time.Now()
	entry.accessCount++
	m.store[storeKey] = entry
	m.stats.hits++
	common.LogCacheHit(category, key)
	return entry.value, true
}

// Set 設置緩存值，同鍵併發寫入採後寫為準
func (m *CacheManager) Set(ctx context.Context, category, key, value string) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// 檢查緩存大小
	if len(m.store) >= m.config.Cache.MaxSize {
		// 先清過期項目
		evicted := m.removeExpired()
		common.LogDebug("快取清理執行",
			zap.Int("清理數量", evicted),
		)

		// 仍然超過就做 LRU 淘汰
		if len(m.store) >= m.config.Cache.MaxSize {
			m.evictLRU()
		}

		// 還是滿的就放棄本次寫入
		if len(m.store) >= m.config.Cache.MaxSize {
			m.stats.rejected++
			common.LogWarn("快取已滿",
				zap.Int("目前容量", len(m.store)),
			)
			return
		}
	}

	now := time.Now()
	m.store[m.generateKey(category, key)] = cacheEntry{
		value:      value,
		expiresAt:  now.Add(m.ttlFor(category)),
		createdAt:  now,
		lastAccess: now,
	}
}

// generateKey 生成緩存鍵
func (m *CacheManager) generateKey(category, key string) string {
	hash := sha256.Sum256([]byte(key))
	return category + ":" + hex.EncodeToString(hash[:])
}

// startCleanup 啟動清理過期緩存的協程
func (m *CacheManager) startCleanup() {
	ticker := time.NewTicker(m.config.Cache.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			m.removeExpired()
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

// removeExpired 清理過期條目，呼叫端須持有鎖
func (m *CacheManager) removeExpired() int {
	now := time.Now()
	count := 0

	for key, entry := range m.store {
		if now.After(entry.expiresAt) {
			delete(m.store, key)
			count++
			m.stats.evictions++
		}
	}

	return count
}

// evictLRU 淘汰最少使用的條目，呼叫端須持有鎖
func (m *CacheManager) evictLRU() {
	var oldestKey string
	var oldestAccess time.Time
	var lowestAccessCount int

	for key, entry := range m.store {
		if oldestKey == "" ||
			entry.accessCount < lowestAccessCount ||
			(entry.accessCount == lowestAccessCount && entry.lastAccess.Before(oldestAccess)) {
			oldestKey = key
			oldestAccess = entry.lastAccess
			lowestAccessCount = entry.accessCount
		}
	}

	if oldestKey != "" {
		delete(m.store, oldestKey)
		m.stats.evictions++
		common.LogDebug("快取已淘汰(LRU)")
	}
}

// GetStats 獲取緩存統計信息
func (m *CacheManager) GetStats() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{"enabled": false}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.stats.hits + m.stats.misses
	hitRatio := 0.0
	if total > 0 {
		hitRatio = float64(m.stats.hits) / float64(total)
	}

	return map[string]interface{}{
		"enabled":   true,
		"size":      len(m.store),
		"max_size":  m.config.Cache.MaxSize,
		"hits":      m.stats.hits,
		"misses":    m.stats.misses,
		"evictions": m.stats.evictions,
		"rejected":  m.stats.rejected,
		"hit_ratio": hitRatio,
	}
}

// Close 關閉緩存管理器
func (m *CacheManager) Close() error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	close(m.done)
	m.store = make(map[string]cacheEntry)
	common.LogInfo("快取管理員已關閉",
		zap.Int64("命中次數", m.stats.hits),
		zap.Int64("未命中次數", m.stats.misses),
		zap.Int64("淘汰次數", m.stats.evictions),
	)
	return nil
}
