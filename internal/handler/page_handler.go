package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/siteforge/internal/htmlpatch"
	"github.com/hitoshi/siteforge/internal/model"
)

// PageServiceInterface はページハンドラーが必要とするサービスインターフェース。
type PageServiceInterface interface {
	// ApplyContentUpdate は指定ページに編集を適用して保存し、更新後のページを返す。
	ApplyContentUpdate(ctx context.Context, pageID string, updates htmlpatch.Updates) (*model.Page, error)
}

// PatchMetricsRecorder はページ編集の適用を計測するインターフェース。
type PatchMetricsRecorder interface {
	RecordPagePatch()
}

// PageHandler はプレビューページ編集のHTTPハンドラー。
type PageHandler struct {
	service PageServiceInterface
	metrics PatchMetricsRecorder
}

// NewPageHandler はPageHandlerを生成する。metricsはnil可。
func NewPageHandler(service PageServiceInterface, metrics PatchMetricsRecorder) *PageHandler {
	return &PageHandler{
		service: service,
		metrics: metrics,
	}
}

// pricePairRequest は価格置換1件分のリクエスト。
type pricePairRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// updateContentRequest はページ編集リクエストのボディ。
// 全フィールドは任意だが、少なくとも1つは指定されている必要がある。
type updateContentRequest struct {
	Phone  string             `json:"phone,omitempty"`
	Hours  map[string]string  `json:"hours,omitempty"`
	Prices []pricePairRequest `json:"prices,omitempty"`
	Logo   string             `json:"logo,omitempty"`
}

// pageResponse はページ情報のAPIレスポンス。
type pageResponse struct {
	ID             string         `json:"id"`
	BusinessID     string         `json:"business_id"`
	HTML           string         `json:"html"`
	CustomEdits    map[string]any `json:"custom_edits"`
	SEOTitle       string         `json:"seo_title,omitempty"`
	SEODescription string         `json:"seo_description,omitempty"`
	SEOSlug        string         `json:"seo_slug,omitempty"`
}

// UpdateContent はページへの部分編集を処理する。
// PATCH /api/pages/{id}/content
func (h *PageHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "id")

	var req updateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(err.Error()))
		return
	}

	updates := htmlpatch.Updates{
		Phone: req.Phone,
		Hours: req.Hours,
		Logo:  req.Logo,
	}
	for _, p := range req.Prices {
		updates.Prices = append(updates.Prices, htmlpatch.PricePair{Old: p.Old, New: p.New})
	}

	page, err := h.service.ApplyContentUpdate(r.Context(), pageID, updates)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordPagePatch()
	}

	writeJSON(w, http.StatusOK, pageResponse{
		ID:             page.ID,
		BusinessID:     page.BusinessID,
		HTML:           page.HTML,
		CustomEdits:    page.CustomEdits,
		SEOTitle:       page.SEOTitle,
		SEODescription: page.SEODescription,
		SEOSlug:        page.SEOSlug,
	})
}
