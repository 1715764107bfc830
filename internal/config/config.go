// Package config は環境変数ベースのアプリケーション設定を提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hitoshi/siteforge/internal/limiter"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// ただしプロバイダ上限（PROVIDER_*）は呼び出し時に都度読み込まれるため、
// 再起動なしで変更できる。
type Config struct {
	// Database
	DatabaseURL string

	// Server
	ServerPort string

	// Render（プレビュー生成サービス）
	RenderBaseURL string
	RenderTimeout time.Duration

	// Hero image provider
	HeroBaseURL string
	HeroMock    bool

	// Enrich job
	EnrichPoolSize int
	EnrichInterval time.Duration

	// Preview batch
	PreviewDelay    time.Duration
	PreviewLimit    int
	PreviewInterval time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitJobs    int

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// .envファイルがあれば先に読み込む（未存在は無視）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	// ローカル開発用: .env があれば環境変数に反映する
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.RenderBaseURL = getEnvString("RENDER_BASE_URL", "http://render.internal:8090")
	cfg.RenderTimeout = getEnvDuration("RENDER_TIMEOUT", 30*time.Second)
	cfg.HeroBaseURL = getEnvString("HERO_BASE_URL", "https://picsum.photos")
	cfg.HeroMock = getEnvBool("HERO_MOCK", true)
	cfg.EnrichPoolSize = getEnvInt("ENRICH_POOL_SIZE", 3)
	cfg.EnrichInterval = getEnvDuration("ENRICH_INTERVAL", 10*time.Minute)
	cfg.PreviewDelay = getEnvDuration("PREVIEW_DELAY", 2*time.Second)
	cfg.PreviewLimit = getEnvInt("PREVIEW_LIMIT", 10)
	cfg.PreviewInterval = getEnvDuration("PREVIEW_INTERVAL", 30*time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitJobs = getEnvInt("RATE_LIMIT_JOBS", 10)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// ProviderLimits はプロバイダ別の使用上限を返すLimitsFuncを構築する。
// 環境変数は呼び出しのたびに読み直されるため、運用中の変更が
// 次回のチェックから反映される。
func ProviderLimits() limiter.LimitsFunc {
	return func(p limiter.Provider) limiter.Limits {
		prefix := "PROVIDER_" + strings.ToUpper(string(p))
		return limiter.Limits{
			Window:    getEnvDuration(prefix+"_WINDOW", 24*time.Hour),
			MaxErrors: getEnvInt(prefix+"_MAX_ERRORS", 5),
			MaxCost:   getEnvFloat(prefix+"_MAX_COST", 100),
		}
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
