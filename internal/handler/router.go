package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/siteforge/internal/middleware"
)

// DBPinger はヘルスチェックで使用するデータベース疎通確認のインターフェース。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// ページ編集
	PageService  PageServiceInterface
	PatchMetrics PatchMetricsRecorder

	// ジョブ起動
	EnrichJob    EnrichJobInterface
	Orchestrator PreviewOrchestratorInterface

	// 運用エンドポイント
	DB             DBPinger
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → CORS → Logging
//
// /healthと/metricsはレート制限の外、APIルートはRateLimit(General)の下に
// 配置し、ジョブ起動にはさらに専用のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	pageHandler := NewPageHandler(deps.PageService, deps.PatchMetrics)
	jobsHandler := NewJobsHandler(deps.EnrichJob, deps.Orchestrator)

	// --- 運用エンドポイント ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.DB != nil {
			if err := deps.DB.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"reason": "database unreachable",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- APIルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ページ編集
		r.Route("/api/pages/{id}", func(r chi.Router) {
			r.Patch("/content", pageHandler.UpdateContent)
		})

		// ジョブ起動（専用レート制限を追加）
		r.Route("/api/jobs", func(r chi.Router) {
			r.Use(deps.RateLimiter.JobsMiddleware())
			r.Post("/enrich", jobsHandler.RunEnrich)
			r.Post("/previews", jobsHandler.RunPreviews)
		})
	})

	return r
}
