package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"meal-planner/internal/api/handlers"
	"meal-planner/internal/api/handlers/health"
	recipeHandler "meal-planner/internal/api/handlers/recipe"
	"meal-planner/internal/api/middleware"
	"meal-planner/internal/core/answer"
	"meal-planner/internal/core/cache"
	"meal-planner/internal/core/costing"
	"meal-planner/internal/core/discovery"
	"meal-planner/internal/core/extract"
	"meal-planner/internal/core/pipeline"
	"meal-planner/internal/core/plan"
	"meal-planner/internal/core/render"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 請求體大小限制 (10MB)
	maxBodySize = 10 << 20
)

// Services 路由器組裝的長生命週期服務，關閉伺服器時需要收尾
type Services struct {
	Costing *costing.Service
}

// Close 停止背景服務
func (s *Services) Close() {
	if s == nil {
		return
	}
	s.Costing.Close()
}

// SetupRouter 設置路由
// prices 為共用的價格緩存，傳 nil 時改用記憶體緩存
func SetupRouter(cfg *config.Config, cacheManager *cache.CacheManager, prices cache.Store) (*gin.Engine, *Services, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制與重複請求攔截
	router.Use(middleware.BodySizeLimit(maxBodySize))
	router.Use(middleware.Deduplication(cfg))

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Bool("answer_enabled", cfg.Answer.Enabled),
		zap.Bool("render_enabled", cfg.Render.Enabled),
		zap.Bool("pricing_enabled", cfg.Pricing.Enabled),
		zap.String("primary_tier", cfg.Pipeline.PrimaryTier),
	)

	// 答案引擎（探索與直答提取共用）
	var answerClient *answer.Client
	if cfg.Answer.Enabled {
		answerClient = answer.NewClient(cfg)
		if answerClient == nil {
			common.LogError("Failed to initialize answer engine client")
			return nil, nil, fmt.Errorf("failed to initialize answer engine client")
		}
	}

	// 渲染服務（欄位提取與結構化資料共用）
	var renderClient *render.Client
	if cfg.Render.Enabled {
		renderClient = render.NewClient(cfg)
		if renderClient == nil {
			common.LogError("Failed to initialize render client")
			return nil, nil, fmt.Errorf("failed to initialize render client")
		}
	}

	// 組裝提取層級，首選層由設定決定，結構化資料永遠墊底
	var tiers []pipeline.Tier
	if cfg.Pipeline.PrimaryTier == "fields" {
		if renderClient != nil {
			tiers = append(tiers, pipeline.Tier{
				Method:    common.MethodFieldExtraction,
				Extractor: extract.NewFieldsExtractor(cfg, renderClient),
			})
		}
	} else if answerClient != nil {
		tiers = append(tiers, pipeline.Tier{
			Method:    common.MethodDirectAnswer,
			Extractor: extract.NewDirectExtractor(cfg, answerClient, cacheManager),
		})
	}
	if renderClient != nil {
		tiers = append(tiers, pipeline.Tier{
			Method:    common.MethodStructuredData,
			Extractor: extract.NewStructuredExtractor(cfg, renderClient),
		})
	}
	if len(tiers) == 0 {
		common.LogWarn("No extraction tiers configured, every plan will fall back to placeholders")
	}

	// 探索服務，引擎缺席時一樣可建，結果為空列表
	var engine discovery.Engine
	if answerClient != nil {
		engine = answerClient
	}
	discoverySvc := discovery.NewService(engine)

	// 提取調度器
	orchestrator := pipeline.NewOrchestrator(cfg, discoverySvc, tiers)
	if orchestrator == nil {
		common.LogError("Failed to initialize pipeline orchestrator")
		return nil, nil, fmt.Errorf("failed to initialize pipeline orchestrator")
	}

	// 計價服務
	var costingSvc *costing.Service
	if cfg.Pricing.Enabled {
		provider := costing.NewProvider(cfg)
		batcher := costing.NewBatcher(cfg, provider)
		priceStore := prices
		if priceStore == nil {
			priceStore = cacheManager
		}
		costingSvc = costing.NewService(cfg, batcher, priceStore)
	}

	// 餐食計畫服務
	planSvc := plan.NewService(cfg, orchestrator, costingSvc)
	if planSvc == nil {
		common.LogError("Failed to initialize plan service")
		return nil, nil, fmt.Errorf("failed to initialize plan service")
	}

	common.LogInfo("Services initialized successfully",
		zap.Int("extraction_tiers", len(tiers)),
		zap.Bool("costing_enabled", costingSvc.Enabled()),
		zap.Bool("cache_manager_initialized", cacheManager != nil),
		zap.String("environment", cfg.App.Env),
	)

	// 全局中間件：設置超時和服務
	planTimeout := cfg.Pipeline.PlanTimeout
	if planTimeout <= 0 {
		planTimeout = 120 * time.Second
	}
	router.Use(func(c *gin.Context) {
		// 設置請求超時
		ctx, cancel := context.WithTimeout(c.Request.Context(), planTimeout)
		defer cancel()

		// 創建新的請求上下文
		req := c.Request.WithContext(ctx)
		c.Request = req

		// 設置配置與服務
		c.Set("config", cfg)
		c.Set("plan_service", planSvc)
		c.Set("costing_service", costingSvc)
		c.Set("cache_manager", cacheManager)

		// 處理請求
		c.Next()

		// 檢查是否超時
		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", planTimeout),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  "REQUEST_TIMEOUT",
				"details": gin.H{
					"timeout": planTimeout.String(),
				},
			})
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")

	// 限流只掛在業務路由上，健康檢查不受影響
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	{
		planHandlerInstance := handlers.NewPlanHandler(planSvc)
		cacheHandlerInstance := handlers.NewCacheHandler(cacheManager)
		extractHandlerInstance := recipeHandler.NewExtractHandler(orchestrator)
		costHandlerInstance := recipeHandler.NewCostHandler(costingSvc)

		// 餐食計畫
		api.POST("/plan", planHandlerInstance.BuildPlan)

		// 單篇食譜操作
		recipesGroup := api.Group("/recipes")
		{
			recipesGroup.POST("/extract", extractHandlerInstance.Extract)
			recipesGroup.POST("/cost", costHandlerInstance.Cost)
		}

		// 緩存統計
		cacheGroup := api.Group("/cache")
		{
			cacheGroup.GET("/stats", cacheHandlerInstance.Stats)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Int("extraction_tiers", len(tiers)),
		zap.Bool("costing_enabled", costingSvc.Enabled()),
		zap.Duration("plan_timeout", planTimeout),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, &Services{Costing: costingSvc}, nil
}
