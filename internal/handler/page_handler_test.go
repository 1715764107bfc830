package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/siteforge/internal/htmlpatch"
	"github.com/hitoshi/siteforge/internal/model"
)

// fakePageService はテスト用のページサービススタブ。
type fakePageService struct {
	gotPageID  string
	gotUpdates htmlpatch.Updates
	page       *model.Page
	err        error
}

func (f *fakePageService) ApplyContentUpdate(ctx context.Context, pageID string, updates htmlpatch.Updates) (*model.Page, error) {
	f.gotPageID = pageID
	f.gotUpdates = updates
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

func newPageRouter(svc PageServiceInterface) http.Handler {
	r := chi.NewRouter()
	h := NewPageHandler(svc, nil)
	r.Patch("/api/pages/{id}/content", h.UpdateContent)
	return r
}

func TestUpdateContent_Success(t *testing.T) {
	svc := &fakePageService{
		page: &model.Page{
			ID:          "page-1",
			BusinessID:  "biz-1",
			HTML:        "<p>patched</p>",
			CustomEdits: map[string]any{"phone": "(555) 999-0000"},
		},
	}
	router := newPageRouter(svc)

	body := `{"phone":"(555) 999-0000","hours":{"monday":"9-5"},"prices":[{"old":"$10","new":"$12"}]}`
	req := httptest.NewRequest(http.MethodPatch, "/api/pages/page-1/content", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコードが期待値と異なります: %d", rec.Code)
	}
	if svc.gotPageID != "page-1" {
		t.Errorf("ページIDが渡されていません: %s", svc.gotPageID)
	}
	if svc.gotUpdates.Phone != "(555) 999-0000" {
		t.Errorf("電話番号が渡されていません: %s", svc.gotUpdates.Phone)
	}
	if svc.gotUpdates.Hours["monday"] != "9-5" {
		t.Errorf("営業時間が渡されていません: %v", svc.gotUpdates.Hours)
	}
	if len(svc.gotUpdates.Prices) != 1 || svc.gotUpdates.Prices[0].New != "$12" {
		t.Errorf("価格が渡されていません: %v", svc.gotUpdates.Prices)
	}

	var resp pageResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスのデコードに失敗しました: %v", err)
	}
	if resp.ID != "page-1" || resp.HTML != "<p>patched</p>" {
		t.Errorf("レスポンスが期待値と異なります: %+v", resp)
	}
}

func TestUpdateContent_InvalidJSON(t *testing.T) {
	router := newPageRouter(&fakePageService{})

	req := httptest.NewRequest(http.MethodPatch, "/api/pages/page-1/content", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("不正なJSONで400が返されるべきです: %d", rec.Code)
	}
}

func TestUpdateContent_EmptyUpdate(t *testing.T) {
	svc := &fakePageService{err: model.NewEmptyUpdateError()}
	router := newPageRouter(svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/pages/page-1/content", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("空の更新で400が返されるべきです: %d", rec.Code)
	}

	var resp apiErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("エラーレスポンスのデコードに失敗しました: %v", err)
	}
	if resp.Code != model.ErrCodeEmptyUpdate {
		t.Errorf("エラーコードが期待値と異なります: %s", resp.Code)
	}
	if resp.Action == "" {
		t.Error("対処方法が含まれていません")
	}
}

func TestUpdateContent_PageNotFound(t *testing.T) {
	svc := &fakePageService{err: model.NewPageNotFoundError("missing")}
	router := newPageRouter(svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/pages/missing/content", strings.NewReader(`{"phone":"555-123-4567"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("未検出ページで404が返されるべきです: %d", rec.Code)
	}
}
