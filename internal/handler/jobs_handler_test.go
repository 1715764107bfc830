package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/siteforge/internal/model"
	"github.com/hitoshi/siteforge/internal/worker/enrich"
	"github.com/hitoshi/siteforge/internal/worker/preview"
)

// fakeEnrichJob はテスト用のエンリッチジョブスタブ。
type fakeEnrichJob struct {
	gotIDs       []string
	gotLimit     int
	gotOverwrite bool
	counters     enrich.Counters
	err          error
}

func (f *fakeEnrichJob) Run(ctx context.Context, ids []string, limit int, overwrite bool) (enrich.Counters, string, error) {
	f.gotIDs = ids
	f.gotLimit = limit
	f.gotOverwrite = overwrite
	if f.err != nil {
		return enrich.Counters{}, "", f.err
	}
	return f.counters, "corr-123", nil
}

// fakeOrchestrator はテスト用のプレビューオーケストレータースタブ。
type fakeOrchestrator struct {
	gotLimit     int
	gotOverwrite bool
	result       *preview.Result
	err          error
}

func (f *fakeOrchestrator) RunBatch(ctx context.Context, limit int, overwrite bool) (*preview.Result, error) {
	f.gotLimit = limit
	f.gotOverwrite = overwrite
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newJobsRouter(job EnrichJobInterface, orch PreviewOrchestratorInterface) http.Handler {
	r := chi.NewRouter()
	h := NewJobsHandler(job, orch)
	r.Post("/api/jobs/enrich", h.RunEnrich)
	r.Post("/api/jobs/previews", h.RunPreviews)
	return r
}

func TestRunEnrich_Success(t *testing.T) {
	job := &fakeEnrichJob{counters: enrich.Counters{UpdatedSEO: 3, CreatedMedia: 2, Skipped: 1}}
	router := newJobsRouter(job, &fakeOrchestrator{})

	body := `{"page_ids":["p1","p2"],"overwrite":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/enrich", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコードが期待値と異なります: %d", rec.Code)
	}
	if len(job.gotIDs) != 2 || !job.gotOverwrite {
		t.Errorf("リクエスト内容が渡されていません: ids=%v overwrite=%v", job.gotIDs, job.gotOverwrite)
	}

	var resp enrichResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスのデコードに失敗しました: %v", err)
	}
	if resp.UpdatedSEO != 3 || resp.CreatedMedia != 2 || resp.CorrelationID != "corr-123" {
		t.Errorf("レスポンスが期待値と異なります: %+v", resp)
	}
}

func TestRunEnrich_EmptyBody(t *testing.T) {
	job := &fakeEnrichJob{}
	router := newJobsRouter(job, &fakeOrchestrator{})

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/enrich", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("空ボディはデフォルト設定で実行されるべきです: %d", rec.Code)
	}
	if len(job.gotIDs) != 0 || job.gotOverwrite {
		t.Errorf("デフォルト値が渡されていません: %+v", job)
	}
}

func TestRunPreviews_Success(t *testing.T) {
	orch := &fakeOrchestrator{result: &preview.Result{
		Generated:     []string{"b1", "b2"},
		Failed:        1,
		CorrelationID: "corr-456",
	}}
	router := newJobsRouter(&fakeEnrichJob{}, orch)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/previews", strings.NewReader(`{"limit":5}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコードが期待値と異なります: %d", rec.Code)
	}
	if orch.gotLimit != 5 {
		t.Errorf("limitが渡されていません: %d", orch.gotLimit)
	}

	var resp previewResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスのデコードに失敗しました: %v", err)
	}
	if len(resp.Generated) != 2 || resp.Failed != 1 {
		t.Errorf("レスポンスが期待値と異なります: %+v", resp)
	}
}

func TestRunPreviews_MissingLimitIsRejected(t *testing.T) {
	// limit未指定はゼロ値のままオーケストレーターへ渡り、
	// バリデーションエラーとして400になる
	orch := &fakeOrchestrator{err: model.NewInvalidBatchSizeError(0)}
	router := newJobsRouter(&fakeEnrichJob{}, orch)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/previews", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("limit未指定で400が返されるべきです: %d", rec.Code)
	}
	if orch.gotLimit != 0 {
		t.Errorf("limitが補完されずそのまま渡されるべきです: %d", orch.gotLimit)
	}
}

func TestRunPreviews_InvalidBatchSize(t *testing.T) {
	orch := &fakeOrchestrator{err: model.NewInvalidBatchSizeError(-1)}
	router := newJobsRouter(&fakeEnrichJob{}, orch)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/previews", strings.NewReader(`{"limit":-1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("無効なバッチサイズで400が返されるべきです: %d", rec.Code)
	}
}
