package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/hitoshi/siteforge/internal/model"
	"github.com/hitoshi/siteforge/internal/worker/enrich"
	"github.com/hitoshi/siteforge/internal/worker/preview"
)

// EnrichJobInterface はエンリッチジョブの実行インターフェース。
type EnrichJobInterface interface {
	// Run はバックフィルジョブを1回実行し、集計結果と相関IDを返す。
	Run(ctx context.Context, ids []string, limit int, overwrite bool) (enrich.Counters, string, error)
}

// PreviewOrchestratorInterface はプレビューバッチの実行インターフェース。
type PreviewOrchestratorInterface interface {
	// RunBatch はバッチプレビュー生成を1回実行し、集計結果を返す。
	RunBatch(ctx context.Context, limit int, overwrite bool) (*preview.Result, error)
}

// JobsHandler はバッチジョブ起動のHTTPハンドラー。
type JobsHandler struct {
	enrichJob    EnrichJobInterface
	orchestrator PreviewOrchestratorInterface
}

// NewJobsHandler はJobsHandlerを生成する。
func NewJobsHandler(enrichJob EnrichJobInterface, orchestrator PreviewOrchestratorInterface) *JobsHandler {
	return &JobsHandler{
		enrichJob:    enrichJob,
		orchestrator: orchestrator,
	}
}

// enrichRequest はエンリッチジョブ起動リクエストのボディ。
type enrichRequest struct {
	PageIDs   []string `json:"page_ids,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	Overwrite bool     `json:"overwrite,omitempty"`
}

// enrichResponse はエンリッチジョブの実行結果レスポンス。
type enrichResponse struct {
	UpdatedSEO    int    `json:"updated_seo"`
	CreatedMedia  int    `json:"created_media"`
	Skipped       int    `json:"skipped"`
	Failed        int    `json:"failed"`
	CorrelationID string `json:"correlation_id"`
}

// RunEnrich はSEO/メディアバックフィルジョブの実行を処理する。
// POST /api/jobs/enrich
func (h *JobsHandler) RunEnrich(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(err.Error()))
		return
	}

	counters, correlationID, err := h.enrichJob.Run(r.Context(), req.PageIDs, req.Limit, req.Overwrite)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, enrichResponse{
		UpdatedSEO:    counters.UpdatedSEO,
		CreatedMedia:  counters.CreatedMedia,
		Skipped:       counters.Skipped,
		Failed:        counters.Failed,
		CorrelationID: correlationID,
	})
}

// previewRequest はプレビューバッチ起動リクエストのボディ。
type previewRequest struct {
	Limit     int  `json:"limit,omitempty"`
	Overwrite bool `json:"overwrite,omitempty"`
}

// previewResponse はプレビューバッチの実行結果レスポンス。
type previewResponse struct {
	Generated     []string `json:"generated"`
	Failed        int      `json:"failed"`
	Limited       int      `json:"limited"`
	CorrelationID string   `json:"correlation_id"`
}

// RunPreviews はバッチプレビュー生成の実行を処理する。
// limitは必須で、未指定・0以下はバリデーションエラーとして400を返す。
// POST /api/jobs/previews
func (h *JobsHandler) RunPreviews(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(err.Error()))
		return
	}

	result, err := h.orchestrator.RunBatch(r.Context(), req.Limit, req.Overwrite)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{
		Generated:     result.Generated,
		Failed:        result.Failed,
		Limited:       result.Limited,
		CorrelationID: result.CorrelationID,
	})
}

// decodeOptionalBody はリクエストボディをデコードする。
// ボディが空の場合はゼロ値のままにする（全フィールドが任意のため）。
func decodeOptionalBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == io.EOF {
		return nil
	}
	return err
}
