// Package preview はビジネスリードのバッチプレビュー生成を提供する。
package preview

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hitoshi/siteforge/internal/limiter"
	"github.com/hitoshi/siteforge/internal/model"
	"github.com/hitoshi/siteforge/internal/repository"
)

// Generator はプレビュー生成の実行インターフェース。
type Generator interface {
	// Generate は指定ビジネスのプレビューページ生成を依頼する。
	Generate(ctx context.Context, businessID string, overwrite bool) error
}

// MetricsRecorder はバッチの実行結果を計測するインターフェース。
type MetricsRecorder interface {
	RecordPreviewItem(status string)
	RecordProviderTripped(provider string)
	ObserveJobDuration(job string, d time.Duration)
}

// Result は1回のバッチ実行の集計結果。
type Result struct {
	Generated     []string `json:"generated"`
	Failed        int      `json:"failed"`
	Limited       int      `json:"limited"`
	CorrelationID string   `json:"correlation_id"`
}

// Orchestrator はバッチプレビュー生成のオーケストレーター。
// プレビュー未生成のビジネスを新しい順に取得し、生成サービスの
// 負荷を抑えるため逐次かつペーシング付きで生成を依頼する。
// 生成サービスのエラーはサーキットブレーカーに記録され、
// トリップ中のビジネスはスキップされる。
type Orchestrator struct {
	businesses repository.BusinessRepository
	oplog      repository.OperationLogRepository
	generator  Generator
	guard      *limiter.Guard
	metrics    MetricsRecorder
	logger     *slog.Logger
	pacer      *rate.Limiter
	costPerGen float64
	now        func() time.Time
}

// NewOrchestrator はOrchestratorの新しいインスタンスを生成する。
// delayは生成依頼の間隔（1件ごとの最小待ち時間）。0以下の場合は
// ペーシングなしで実行される。costPerGenは1回の生成のコスト重み。
func NewOrchestrator(
	businesses repository.BusinessRepository,
	oplog repository.OperationLogRepository,
	generator Generator,
	guard *limiter.Guard,
	metrics MetricsRecorder,
	logger *slog.Logger,
	delay time.Duration,
	costPerGen float64,
) *Orchestrator {
	pacer := rate.NewLimiter(rate.Inf, 1)
	if delay > 0 {
		pacer = rate.NewLimiter(rate.Every(delay), 1)
	}
	if costPerGen <= 0 {
		costPerGen = 1
	}
	return &Orchestrator{
		businesses: businesses,
		oplog:      oplog,
		generator:  generator,
		guard:      guard,
		metrics:    metrics,
		logger:     logger,
		pacer:      pacer,
		costPerGen: costPerGen,
		now:        time.Now,
	}
}

// Start は定期実行ティッカーでオーケストレーターを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (o *Orchestrator) Start(ctx context.Context, interval time.Duration, limit int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	o.logger.Info("プレビューオーケストレーターを開始しました",
		slog.Duration("interval", interval),
		slog.Int("limit", limit),
	)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("プレビューオーケストレーターを停止しました")
			return
		case <-ticker.C:
			if _, err := o.RunBatch(ctx, limit, false); err != nil {
				o.logger.Error("プレビューバッチの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunBatch はバッチプレビュー生成を1回実行し、集計結果を返す。
// limitが0以下の場合はAPIErrorを返す。
// 候補は通常、本文のあるプレビューページをまだ持たないビジネスの集合。
// overwriteの場合は既存プレビューの有無にかかわらず新しい順にlimit件を
// 再生成の対象とする。各件は逐次処理される（生成サービスは並列呼び出しに弱いため）。
func (o *Orchestrator) RunBatch(ctx context.Context, limit int, overwrite bool) (*Result, error) {
	if limit <= 0 {
		return nil, model.NewInvalidBatchSizeError(limit)
	}

	start := o.now()
	result := &Result{
		Generated:     []string{},
		CorrelationID: uuid.NewString(),
	}

	candidates, err := o.selectCandidates(ctx, limit, overwrite)
	if err != nil {
		return nil, fmt.Errorf("プレビュー候補の取得に失敗しました: %w", err)
	}

	o.logger.Info("プレビューバッチを開始します",
		slog.String("correlation_id", result.CorrelationID),
		slog.Int("candidate_count", len(candidates)),
		slog.Bool("overwrite", overwrite),
	)

	for _, biz := range candidates {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("バッチが中断されました: %w", err)
		}

		// サーキットブレーカー: ウィンドウ内のエラー/コストが
		// 上限に達している間は生成を依頼しない
		if !o.guard.CanProceed(limiter.ProviderRender) {
			result.Limited++
			o.appendLog(ctx, biz.ID, model.OpStatusError, result.CorrelationID, "provider_limited")
			o.recordMetric("limited")
			if o.metrics != nil {
				o.metrics.RecordProviderTripped(string(limiter.ProviderRender))
			}
			continue
		}

		// ペーシング: 前回の依頼から一定の間隔を空ける
		if err := o.pacer.Wait(ctx); err != nil {
			return result, fmt.Errorf("バッチが中断されました: %w", err)
		}

		if err := o.generator.Generate(ctx, biz.ID, overwrite); err != nil {
			result.Failed++
			o.guard.RecordError(limiter.ProviderRender)
			o.logger.Error("プレビュー生成に失敗しました",
				slog.String("business_id", biz.ID),
				slog.String("correlation_id", result.CorrelationID),
				slog.String("error", err.Error()),
			)
			o.appendLog(ctx, biz.ID, model.OpStatusError, result.CorrelationID, "generate_failed")
			o.recordMetric("failed")
			continue
		}

		o.guard.RecordCost(limiter.ProviderRender, o.costPerGen)
		result.Generated = append(result.Generated, biz.ID)
		o.appendLog(ctx, biz.ID, model.OpStatusOK, result.CorrelationID, "")
		o.recordMetric("generated")
	}

	duration := o.now().Sub(start)
	if o.metrics != nil {
		o.metrics.ObserveJobDuration("preview", duration)
	}

	o.logger.Info("プレビューバッチが完了しました",
		slog.String("correlation_id", result.CorrelationID),
		slog.Int("generated", len(result.Generated)),
		slog.Int("failed", result.Failed),
		slog.Int("limited", result.Limited),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return result, nil
}

// selectCandidates はバッチの対象ビジネスを取得する。
func (o *Orchestrator) selectCandidates(ctx context.Context, limit int, overwrite bool) ([]*model.Business, error) {
	if overwrite {
		return o.businesses.ListRecent(ctx, limit)
	}
	return o.businesses.ListRecentWithoutPreview(ctx, limit)
}

// appendLog は操作ログをベストエフォートで追記する。
func (o *Orchestrator) appendLog(ctx context.Context, businessID, status, correlationID, detail string) {
	entry := &model.OperationLog{
		ID:            uuid.NewString(),
		Scope:         "business:" + businessID,
		Operation:     "generate_preview",
		Status:        status,
		CorrelationID: correlationID,
		Detail:        detail,
		CreatedAt:     o.now().UTC(),
	}
	if err := o.oplog.Append(ctx, entry); err != nil {
		o.logger.Warn("操作ログの追記に失敗しました",
			slog.String("business_id", businessID),
			slog.String("error", err.Error()),
		)
	}
}

// recordMetric は処理結果をメトリクスに反映する。
func (o *Orchestrator) recordMetric(status string) {
	if o.metrics != nil {
		o.metrics.RecordPreviewItem(status)
	}
}
