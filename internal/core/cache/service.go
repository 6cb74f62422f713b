package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"
)

// Service Redis 緩存服務，價格分類的可選後端
// 與 CacheManager 共用 Store 介面與存活時間語義
type Service struct {
	client *redis.Client
	config *config.Config
}

// NewService 創建 Redis 緩存服務
func NewService(cfg *config.Config) (*Service, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// 測試連接
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("Redis 緩存已連線",
		zap.String("addr", cfg.Redis.Addr),
	)

	return &Service{
		client: client,
		config: cfg,
	}, nil
}

// ttlFor 依分類給出存活時間
func (s *Service) ttlFor(category string) time.Duration {
	if category == CategoryPricing {
		return s.config.Cache.PricingTTL
	}
	return s.config.Cache.RecipeTTL
}

// Get 獲取緩存值
func (s *Service) Get(ctx context.Context, category, key string) (string, bool) {
	if s == nil || s.client == nil {
		return "", false
	}

	data, err := s.client.Get(ctx, category+":"+key).Result()
	if err != nil {
		if err != redis.Nil {
			common.LogWarn("Redis 讀取失敗",
				zap.Error(err),
			)
		}
		return "", false
	}

	common.LogCacheHit(category, key)
	return data, true
}

// Set 設置緩存值；寫入失敗只記錄，不影響主流程
func (s *Service) Set(ctx context.Context, category, key, value string) {
	if s == nil || s.client == nil {
		return
	}

	if err := s.client.Set(ctx, category+":"+key, value, s.ttlFor(category)).Err(); err != nil {
		common.LogWarn("Redis 寫入失敗",
			zap.Error(err),
		)
	}
}

// Close 關閉 Redis 連線
func (s *Service) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
