// Package enrich はページのSEOメタデータとヒーロー画像の
// バックフィルジョブを提供する。
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/siteforge/internal/limiter"
	"github.com/hitoshi/siteforge/internal/model"
	"github.com/hitoshi/siteforge/internal/repository"
	"github.com/hitoshi/siteforge/internal/seo"
)

const (
	// maxBatchSize は1回のジョブで処理するページ数の上限。
	// 明示的にIDを指定された場合も超過分は切り捨てられる。
	maxBatchSize = 20

	// defaultPoolSize はデフォルトの並列実行数。
	defaultPoolSize = 3

	// maxSlugAttempts はスラッグ衝突時の連番リトライ回数の上限。
	maxSlugAttempts = 10
)

// MetricsRecorder はジョブの実行結果を計測するインターフェース。
type MetricsRecorder interface {
	RecordEnrichItem(status string)
	ObserveJobDuration(job string, d time.Duration)
}

// Counters は1回のジョブ実行の集計結果。
type Counters struct {
	UpdatedSEO   int `json:"updated_seo"`
	CreatedMedia int `json:"created_media"`
	Skipped      int `json:"skipped"`
	Failed       int `json:"failed"`
}

// Job はSEOメタデータとヒーロー画像のバックフィルジョブ。
// 対象ページを取得し、semaphoreパターンで並列数を制御しながら
// ページごとに独立してエンリッチを実行する。
type Job struct {
	pages    repository.PageRepository
	images   repository.PageImageRepository
	oplog    repository.OperationLogRepository
	hero     *seo.HeroSelector
	guard    *limiter.Guard
	metrics  MetricsRecorder
	logger   *slog.Logger
	poolSize int
	heroMock bool
	now      func() time.Time
}

// NewJob はJobの新しいインスタンスを生成する。
// poolSizeが0以下の場合はデフォルト値3を使用する。
// heroMockがtrueの場合、画像プロバイダのコスト上限チェックを行わない。
func NewJob(
	pages repository.PageRepository,
	images repository.PageImageRepository,
	oplog repository.OperationLogRepository,
	hero *seo.HeroSelector,
	guard *limiter.Guard,
	metrics MetricsRecorder,
	logger *slog.Logger,
	poolSize int,
	heroMock bool,
) *Job {
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	return &Job{
		pages:    pages,
		images:   images,
		oplog:    oplog,
		hero:     hero,
		guard:    guard,
		metrics:  metrics,
		logger:   logger,
		poolSize: poolSize,
		heroMock: heroMock,
		now:      time.Now,
	}
}

// Start は定期実行ティッカーでジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("エンリッチジョブを開始しました",
		slog.Duration("interval", interval),
		slog.Int("pool_size", j.poolSize),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("エンリッチジョブを停止しました")
			return
		case <-ticker.C:
			if _, _, err := j.Run(ctx, nil, maxBatchSize, false); err != nil {
				j.logger.Error("エンリッチサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Run はバックフィルジョブを1回実行し、集計結果と相関IDを返す。
// idsが指定された場合はそのページのみを対象とし、指定がない場合は
// SEOまたはヒーロー画像が欠けているページを新しい順に取得する。
// どちらの場合も処理数は上限20件に制限される。
// ページ単位の失敗はジョブ全体を停止させず、Failedに集計される。
func (j *Job) Run(ctx context.Context, ids []string, limit int, overwrite bool) (Counters, string, error) {
	start := j.now()
	correlationID := uuid.NewString()

	pages, counters, err := j.collectCandidates(ctx, ids, limit, correlationID)
	if err != nil {
		return counters, correlationID, err
	}

	j.logger.Info("エンリッチサイクルを開始します",
		slog.String("correlation_id", correlationID),
		slog.Int("page_count", len(pages)),
		slog.Bool("overwrite", overwrite),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, j.poolSize)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, pg := range pages {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(p *model.Page) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			result := j.enrichOne(ctx, p, overwrite, correlationID)

			mu.Lock()
			counters.UpdatedSEO += result.updatedSEO
			counters.CreatedMedia += result.createdMedia
			if result.status == model.OpStatusSkip {
				counters.Skipped++
			}
			if result.status == model.OpStatusError {
				counters.Failed++
			}
			mu.Unlock()

			j.recordMetric(result.status)
		}(pg)
	}

	wg.Wait()

	duration := j.now().Sub(start)
	if j.metrics != nil {
		j.metrics.ObserveJobDuration("enrich", duration)
	}

	j.logger.Info("エンリッチサイクルが完了しました",
		slog.String("correlation_id", correlationID),
		slog.Int("updated_seo", counters.UpdatedSEO),
		slog.Int("created_media", counters.CreatedMedia),
		slog.Int("skipped", counters.Skipped),
		slog.Int("failed", counters.Failed),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return counters, correlationID, nil
}

// collectCandidates はエンリッチ対象のページ一覧を構築する。
// ID指定時に見つからないページはFailedに計上される。
func (j *Job) collectCandidates(ctx context.Context, ids []string, limit int, correlationID string) ([]*model.Page, Counters, error) {
	var counters Counters

	if len(ids) > 0 {
		if len(ids) > maxBatchSize {
			j.logger.Warn("指定されたページIDが上限を超えたため切り捨てます",
				slog.Int("requested", len(ids)),
				slog.Int("max", maxBatchSize),
			)
			ids = ids[:maxBatchSize]
		}

		pages := make([]*model.Page, 0, len(ids))
		for _, id := range ids {
			pg, err := j.pages.FindByID(ctx, id)
			if err != nil {
				counters.Failed++
				j.appendLog(ctx, id, "load", model.OpStatusError, correlationID, classifyError(err))
				j.recordMetric(model.OpStatusError)
				continue
			}
			if pg == nil {
				counters.Failed++
				j.appendLog(ctx, id, "load", model.OpStatusError, correlationID, "not_found")
				j.recordMetric(model.OpStatusError)
				continue
			}
			pages = append(pages, pg)
		}
		return pages, counters, nil
	}

	if limit <= 0 || limit > maxBatchSize {
		limit = maxBatchSize
	}

	pages, err := j.pages.ListNeedingEnrichment(ctx, limit)
	if err != nil {
		// 欠損条件付きクエリが使えない場合は新着順にフォールバックし、
		// スキップ判定はページ単位の処理に委ねる
		j.logger.Warn("エンリッチ対象クエリに失敗したため新着順にフォールバックします",
			slog.String("error", err.Error()),
		)
		pages, err = j.pages.ListRecent(ctx, limit)
		if err != nil {
			return nil, counters, fmt.Errorf("エンリッチ対象ページの取得に失敗しました: %w", err)
		}
	}
	return pages, counters, nil
}

// itemResult はページ1件分のエンリッチ結果。
type itemResult struct {
	status       string
	updatedSEO   int
	createdMedia int
}

// enrichOne はページ1件のSEOメタデータとヒーロー画像を補完する。
// SEO導出はヒーロー画像より先に実行される（altにタイトルを使うため）。
func (j *Job) enrichOne(ctx context.Context, pg *model.Page, overwrite bool, correlationID string) itemResult {
	hero, err := j.images.FindHeroByPageID(ctx, pg.ID)
	if err != nil {
		j.failItem(ctx, pg.ID, "load_hero", correlationID, err)
		return itemResult{status: model.OpStatusError}
	}

	hasSEO := pg.HasSEO()
	hasHero := hero != nil

	if !overwrite && hasSEO && hasHero {
		j.appendLog(ctx, pg.ID, "enrich", model.OpStatusSkip, correlationID, "already_enriched")
		return itemResult{status: model.OpStatusSkip}
	}

	var result itemResult
	title := pg.SEOTitle

	// SEOメタデータの導出と保存
	if overwrite || !hasSEO {
		text := seo.ExtractText(pg.HTML)
		title = seo.DeriveTitle(text)
		description := seo.DeriveDescription(text)

		slug, err := j.ensureUniqueSlug(ctx, pg.ID, title)
		if err != nil {
			j.failItem(ctx, pg.ID, "derive_slug", correlationID, err)
			return itemResult{status: model.OpStatusError}
		}

		if err := j.pages.UpdateSEO(ctx, pg.ID, title, description, slug); err != nil {
			j.failItem(ctx, pg.ID, "update_seo", correlationID, err)
			return itemResult{status: model.OpStatusError}
		}
		result.updatedSEO = 1
		j.appendLog(ctx, pg.ID, "update_seo", model.OpStatusOK, correlationID, slug)
	}

	// ヒーロー画像の補完
	if overwrite || !hasHero {
		// 実プロバイダの場合はコストガードを確認する
		if !j.heroMock && !j.guard.CanProceed(limiter.ProviderHeroImage) {
			j.appendLog(ctx, pg.ID, "create_hero", model.OpStatusError, correlationID, "provider_limited")
			return itemResult{status: model.OpStatusError, updatedSEO: result.updatedSEO}
		}

		img := j.hero.SelectHero(pg.ID, title)
		img.ID = uuid.NewString()
		img.CreatedAt = j.now().UTC()

		// 上書き時は既存レコードを削除してから挿入する。
		// トランザクションではないため、挿入失敗時はヒーロー画像が
		// 一時的に欠けた状態になる（次回のバックフィルで補完される）。
		if overwrite && hero != nil {
			if err := j.images.DeleteByID(ctx, hero.ID); err != nil {
				j.failItem(ctx, pg.ID, "delete_hero", correlationID, err)
				return itemResult{status: model.OpStatusError, updatedSEO: result.updatedSEO}
			}
		}

		if err := j.images.Create(ctx, img); err != nil {
			j.failItem(ctx, pg.ID, "create_hero", correlationID, err)
			return itemResult{status: model.OpStatusError, updatedSEO: result.updatedSEO}
		}

		if !j.heroMock {
			j.guard.RecordCost(limiter.ProviderHeroImage, 1)
		}
		result.createdMedia = 1
		j.appendLog(ctx, pg.ID, "create_hero", model.OpStatusOK, correlationID, img.URL)
	}

	result.status = model.OpStatusOK
	return result
}

// ensureUniqueSlug はタイトル由来のスラッグを重複しない形で確定する。
// 衝突時は連番サフィックスを試し、上限を超えた場合はランダムな
// サフィックスにフォールバックする。
func (j *Job) ensureUniqueSlug(ctx context.Context, pageID, title string) (string, error) {
	base := seo.DeriveSlug(title)
	if base == "" {
		base = "page"
	}

	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		exists, err := j.pages.SlugExists(ctx, candidate, pageID)
		if err != nil {
			return "", fmt.Errorf("スラッグの重複確認に失敗しました: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}

	// 連番が尽きた場合はUUID断片で一意性を確保する
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%s", base, suffix), nil
}

// failItem は失敗ログの記録とエラーログ出力をまとめる。
func (j *Job) failItem(ctx context.Context, pageID, operation, correlationID string, err error) {
	j.logger.Error("ページのエンリッチに失敗しました",
		slog.String("page_id", pageID),
		slog.String("operation", operation),
		slog.String("correlation_id", correlationID),
		slog.String("error", err.Error()),
	)
	j.appendLog(ctx, pageID, operation, model.OpStatusError, correlationID, classifyError(err))
}

// appendLog は操作ログをベストエフォートで追記する。
// テレメトリの書き込み失敗はジョブ本体の結果に影響させない。
func (j *Job) appendLog(ctx context.Context, pageID, operation, status, correlationID, detail string) {
	entry := &model.OperationLog{
		ID:            uuid.NewString(),
		Scope:         "page:" + pageID,
		Operation:     operation,
		Status:        status,
		CorrelationID: correlationID,
		Detail:        detail,
		CreatedAt:     j.now().UTC(),
	}
	if err := j.oplog.Append(ctx, entry); err != nil {
		j.logger.Warn("操作ログの追記に失敗しました",
			slog.String("page_id", pageID),
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
	}
}

// recordMetric は処理結果をメトリクスに反映する。
func (j *Job) recordMetric(status string) {
	if j.metrics != nil {
		j.metrics.RecordEnrichItem(status)
	}
}

// classifyError はエラーをログ用の短い分類文字列に変換する。
func classifyError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "context deadline exceeded"):
		return "timeout"
	case strings.Contains(msg, "context canceled"):
		return "canceled"
	case strings.Contains(msg, "connection refused"):
		return "connection_refused"
	default:
		// マルチバイト文字列を途中で切らないようルーン単位で切り詰める
		if runes := []rune(msg); len(runes) > 120 {
			msg = string(runes[:120])
		}
		return msg
	}
}
