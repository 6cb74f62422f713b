package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Answer      AnswerConfig    `mapstructure:"answer"`
	Render      RenderConfig    `mapstructure:"render"`
	Pricing     PricingConfig   `mapstructure:"pricing"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Pipeline    PipelineConfig  `mapstructure:"pipeline"`
	Retry       RetryConfig     `mapstructure:"retry"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// AnswerConfig 答案引擎設定（探索查詢與直接回答提取共用）
type AnswerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// RenderConfig 渲染與欄位提取服務設定
type RenderConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	JSBudget    time.Duration `mapstructure:"js_budget"`    // 頁面 JS 執行預算
	PageTimeout time.Duration `mapstructure:"page_timeout"` // 整頁渲染上限
}

// PricingConfig 價格供應商設定
type PricingConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	BatchSize         int           `mapstructure:"batch_size"`
	BatchDelay        time.Duration `mapstructure:"batch_delay"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	QueueSize         int           `mapstructure:"queue_size"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	RecipeTTL       time.Duration `mapstructure:"recipe_ttl"`  // 頁面/食譜類條目
	PricingTTL      time.Duration `mapstructure:"pricing_ttl"` // 價格類條目
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 設定（價格緩存可選後端）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PipelineConfig 提取管線設定
type PipelineConfig struct {
	MaxConcurrent int           `mapstructure:"max_concurrent"` // 同時在途的提取數上限
	BatchPause    time.Duration `mapstructure:"batch_pause"`    // 批次之間的固定停頓
	PrimaryTier   string        `mapstructure:"primary_tier"`   // direct 或 fields
	PlanTimeout   time.Duration `mapstructure:"plan_timeout"`
}

// RetryConfig 重試與退避設定
type RetryConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	BaseDelay      time.Duration `mapstructure:"base_delay"`
	MaxDelay       time.Duration `mapstructure:"max_delay"`
	Jitter         bool          `mapstructure:"jitter"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件
	if err := godotenv.Load(); err != nil {
		return nil, err
	}

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("answer.api_key", "ANSWER_ENGINE_API_KEY")
	viper.BindEnv("answer.base_url", "ANSWER_ENGINE_BASE_URL")
	viper.BindEnv("answer.model", "ANSWER_ENGINE_MODEL")
	viper.BindEnv("render.api_key", "RENDER_SERVICE_API_KEY")
	viper.BindEnv("render.base_url", "RENDER_SERVICE_BASE_URL")
	viper.BindEnv("pricing.api_key", "PRICING_API_KEY")
	viper.BindEnv("pricing.base_url", "PRICING_BASE_URL")
	viper.BindEnv("pricing.enabled", "PRICING_ENABLED")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("pipeline.primary_tier", "PIPELINE_PRIMARY_TIER")
	viper.BindEnv("pipeline.max_concurrent", "PIPELINE_MAX_CONCURRENT")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 添加調試日誌（logger 尚未初始化，改用 fmt.Println）
	fmt.Println("Loading configuration",
		"answer_api_key:", maskAPIKey(viper.GetString("answer.api_key")),
		"answer_model:", viper.GetString("answer.model"),
		"primary_tier:", viper.GetString("pipeline.primary_tier"))

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "meal-planner")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "120s")
	viper.SetDefault("server.idle_timeout", "120s")

	// 答案引擎設定
	viper.SetDefault("answer.enabled", true)
	viper.SetDefault("answer.base_url", "https://api.perplexity.ai")
	viper.SetDefault("answer.model", "sonar")
	viper.SetDefault("answer.max_tokens", 2000)
	viper.SetDefault("answer.temperature", 0.2)
	viper.SetDefault("answer.timeout", "60s")

	// 渲染服務設定
	viper.SetDefault("render.enabled", true)
	viper.SetDefault("render.base_url", "https://api.scrapingbee.com/v1")
	viper.SetDefault("render.js_budget", "2500ms")
	viper.SetDefault("render.page_timeout", "12s")

	// 價格供應商設定
	viper.SetDefault("pricing.enabled", false)
	viper.SetDefault("pricing.batch_size", 4)
	viper.SetDefault("pricing.batch_delay", "1500ms")
	viper.SetDefault("pricing.requests_per_second", 2)
	viper.SetDefault("pricing.queue_size", 100)

	// 快取設定
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.recipe_ttl", "24h")
	viper.SetDefault("cache.pricing_ttl", "2h")
	viper.SetDefault("cache.cleanup_interval", "10m")

	// Redis 設定
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	// 管線設定
	viper.SetDefault("pipeline.max_concurrent", 3)
	viper.SetDefault("pipeline.batch_pause", "500ms")
	viper.SetDefault("pipeline.primary_tier", "direct")
	viper.SetDefault("pipeline.plan_timeout", "120s")

	// 重試設定
	viper.SetDefault("retry.max_retries", 3)
	viper.SetDefault("retry.base_delay", "1s")
	viper.SetDefault("retry.max_delay", "10s")
	viper.SetDefault("retry.jitter", true)
	viper.SetDefault("retry.connect_timeout", "3s")
	viper.SetDefault("retry.attempt_timeout", "13s")

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	// 新增 dedup window 預設
	viper.SetDefault("dedup_window", "1s")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.RecipeTTL <= 0 || config.Cache.PricingTTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	// 驗證管線設定（在途上限超過 3 會打爆來源站的禮貌限制）
	if config.Pipeline.MaxConcurrent < 1 {
		return fmt.Errorf("invalid pipeline max concurrent")
	}
	if config.Pipeline.MaxConcurrent > 3 {
		config.Pipeline.MaxConcurrent = 3
	}
	if config.Pipeline.PrimaryTier != "direct" && config.Pipeline.PrimaryTier != "fields" {
		return fmt.Errorf("invalid pipeline primary tier: %s", config.Pipeline.PrimaryTier)
	}

	// 驗證價格批次設定
	if config.Pricing.Enabled {
		if config.Pricing.BatchSize < 1 {
			return fmt.Errorf("invalid pricing batch size")
		}
		if config.Pricing.QueueSize <= 0 {
			return fmt.Errorf("invalid pricing queue size")
		}
	}

	// 驗證重試設定
	if config.Retry.MaxRetries < 0 {
		return fmt.Errorf("invalid retry max retries")
	}
	if config.Retry.BaseDelay <= 0 || config.Retry.MaxDelay < config.Retry.BaseDelay {
		return fmt.Errorf("invalid retry delays")
	}

	return nil
}
