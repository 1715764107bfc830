// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/siteforge/internal/config"
	"github.com/hitoshi/siteforge/internal/database"
	"github.com/hitoshi/siteforge/internal/handler"
	"github.com/hitoshi/siteforge/internal/limiter"
	"github.com/hitoshi/siteforge/internal/logger"
	"github.com/hitoshi/siteforge/internal/metrics"
	"github.com/hitoshi/siteforge/internal/middleware"
	"github.com/hitoshi/siteforge/internal/page"
	"github.com/hitoshi/siteforge/internal/render"
	"github.com/hitoshi/siteforge/internal/repository"
	"github.com/hitoshi/siteforge/internal/security"
	"github.com/hitoshi/siteforge/internal/seo"
	"github.com/hitoshi/siteforge/internal/worker/enrich"
	"github.com/hitoshi/siteforge/internal/worker/preview"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// buildJobs はエンリッチジョブとプレビューオーケストレーターを構築する。
// serveモードとworkerモードの両方から利用する共通ワイヤリング。
func buildJobs(
	cfg *config.Config,
	pageRepo repository.PageRepository,
	imageRepo repository.PageImageRepository,
	businessRepo repository.BusinessRepository,
	oplogRepo repository.OperationLogRepository,
	collector *metrics.Collector,
) (*enrich.Job, *preview.Orchestrator, error) {
	ssrfGuard := security.NewSSRFGuard()

	// 生成サービスのURLは起動時に検証する
	if err := ssrfGuard.ValidateURL(cfg.RenderBaseURL); err != nil {
		return nil, nil, fmt.Errorf("invalid RENDER_BASE_URL: %w", err)
	}

	guard := limiter.NewGuard(config.ProviderLimits(), slog.Default())
	heroSelector := seo.NewHeroSelector(cfg.HeroBaseURL, cfg.HeroMock)

	enrichJob := enrich.NewJob(
		pageRepo, imageRepo, oplogRepo,
		heroSelector, guard, collector,
		slog.Default(), cfg.EnrichPoolSize, cfg.HeroMock,
	)

	renderClient := render.NewClient(
		ssrfGuard.NewSafeClient(cfg.RenderTimeout),
		slog.Default(), cfg.RenderBaseURL,
	)
	orchestrator := preview.NewOrchestrator(
		businessRepo, oplogRepo, renderClient, guard, collector,
		slog.Default(), cfg.PreviewDelay, 1,
	)

	return enrichJob, orchestrator, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	pageRepo := repository.NewPostgresPageRepo(db)
	imageRepo := repository.NewPostgresPageImageRepo(db)
	businessRepo := repository.NewPostgresBusinessRepo(db)
	oplogRepo := repository.NewPostgresOperationLogRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. サービスとジョブのワイヤリング
	sanitizer := security.NewEditSanitizer()
	pageService := page.NewService(pageRepo, sanitizer, slog.Default())

	enrichJob, orchestrator, err := buildJobs(cfg, pageRepo, imageRepo, businessRepo, oplogRepo, collector)
	if err != nil {
		return err
	}

	// 5. ルーターの構築
	rateLimiterCfg := middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(cfg.RateLimitGeneral) / 60.0),
		GeneralBurst:    cfg.RateLimitGeneral,
		JobsRate:        rate.Limit(float64(cfg.RateLimitJobs) / 60.0),
		JobsBurst:       cfg.RateLimitJobs,
		CleanupInterval: 5 * time.Minute,
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		PageService:  pageService,
		PatchMetrics: collector,

		EnrichJob:    enrichJob,
		Orchestrator: orchestrator,

		DB:             db,
		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、エンリッチジョブとプレビューオーケストレーターの
// 定期実行を起動する。SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	pageRepo := repository.NewPostgresPageRepo(db)
	imageRepo := repository.NewPostgresPageImageRepo(db)
	businessRepo := repository.NewPostgresBusinessRepo(db)
	oplogRepo := repository.NewPostgresOperationLogRepo(db)

	// 3. ジョブのワイヤリング
	// ワーカーはスクレイプ対象ではないためレジストリは公開しない
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	enrichJob, orchestrator, err := buildJobs(cfg, pageRepo, imageRepo, businessRepo, oplogRepo, collector)
	if err != nil {
		return err
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("enrich_interval", cfg.EnrichInterval),
		slog.Duration("preview_interval", cfg.PreviewInterval),
		slog.Int("pool_size", cfg.EnrichPoolSize),
	)

	// エンリッチジョブをバックグラウンドで起動
	go enrichJob.Start(ctx, cfg.EnrichInterval)

	// プレビューオーケストレーターをメインgoroutineで実行（ブロッキング）
	orchestrator.Start(ctx, cfg.PreviewInterval, cfg.PreviewLimit)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
