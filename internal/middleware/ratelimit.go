package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
// 認証レイヤーを持たないため、制限はクライアントIP単位で行う。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）
	GeneralBurst    int           // API全般のバーストサイズ
	JobsRate        rate.Limit    // ジョブ起動エンドポイントのレート（req/sec）
	JobsBurst       int           // ジョブ起動のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/IP、ジョブ起動 10 req/min/IP。
// ジョブ起動はバッチ処理の多重起動を防ぐため厳しめに制限する。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0),
		GeneralBurst:    120,
		JobsRate:        rate.Limit(10.0 / 60.0),
		JobsBurst:       10,
		CleanupInterval: 5 * time.Minute,
	}
}

// clientLimiter はクライアントごとのレートリミッターとアクセス時刻を保持する。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterTier は1種類のレート制限（設定とクライアント別エントリ）をまとめる。
type limiterTier struct {
	name  string
	rate  rate.Limit
	burst int

	mu       sync.RWMutex
	limiters map[string]*clientLimiter
}

// allow は指定クライアントのリクエストを許可するかを返す。
func (t *limiterTier) allow(clientKey string) bool {
	return t.getOrCreate(clientKey).Allow()
}

// getOrCreate はクライアントのリミッターを取得または作成する。
func (t *limiterTier) getOrCreate(clientKey string) *rate.Limiter {
	t.mu.RLock()
	cl, exists := t.limiters[clientKey]
	t.mu.RUnlock()

	if exists {
		t.mu.Lock()
		cl.lastAccess = time.Now()
		t.mu.Unlock()
		return cl.limiter
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// ダブルチェック
	if cl, exists := t.limiters[clientKey]; exists {
		cl.lastAccess = time.Now()
		return cl.limiter
	}

	limiter := rate.NewLimiter(t.rate, t.burst)
	t.limiters[clientKey] = &clientLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}
	return limiter
}

// cleanup は最終アクセス時刻がttlを超えたエントリを削除する。
func (t *limiterTier) cleanup(ttl time.Duration) {
	now := time.Now()
	t.mu.Lock()
	for key, cl := range t.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(t.limiters, key)
		}
	}
	t.mu.Unlock()
}

// count は現在管理されているエントリ数を返す。テストおよびメトリクス用。
func (t *limiterTier) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.limiters)
}

// RateLimiter はクライアントIPごとのレート制限を管理する。
// API全般とジョブ起動エンドポイントの2種類の制限を提供する。
type RateLimiter struct {
	config  RateLimiterConfig
	general *limiterTier
	jobs    *limiterTier
	stopCh  chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config: config,
		general: &limiterTier{
			name:     "general",
			rate:     config.GeneralRate,
			burst:    config.GeneralBurst,
			limiters: make(map[string]*clientLimiter),
		},
		jobs: &limiterTier{
			name:     "jobs",
			rate:     config.JobsRate,
			burst:    config.JobsBurst,
			limiters: make(map[string]*clientLimiter),
		},
		stopCh: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.tierMiddleware(rl.general)
}

// JobsMiddleware はジョブ起動専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) JobsMiddleware() func(next http.Handler) http.Handler {
	return rl.tierMiddleware(rl.jobs)
}

// tierMiddleware は指定ティアのレート制限ミドルウェアを構築する。
func (rl *RateLimiter) tierMiddleware(tier *limiterTier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKeyFromRequest(r)

			if !tier.allow(key) {
				writeRateLimitResponse(w, tier.rate)
				slog.Warn("rate limit exceeded",
					slog.String("client", key),
					slog.String("limit_type", tier.name),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.count()
}

// JobsLimiterCount は現在管理されているジョブ起動リミッターのエントリ数を返す。
func (rl *RateLimiter) JobsLimiterCount() int {
	return rl.jobs.count()
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ttl := rl.config.CleanupInterval * 2
			rl.general.cleanup(ttl)
			rl.jobs.cleanup(ttl)
		case <-rl.stopCh:
			return
		}
	}
}

// clientKeyFromRequest はレート制限のキーとなるクライアントIPを抽出する。
// リバースプロキシ背後ではX-Forwarded-Forの先頭IPを使用する。
func clientKeyFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	// Retry-Afterの算出: 1トークンが補充されるまでの秒数
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]string{
		"code":     "rate_limit_exceeded",
		"message":  "Too many requests. Please try again later.",
		"category": "system",
		"action":   "Please wait and retry after the specified time.",
	})
}
