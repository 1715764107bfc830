package page

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/siteforge/internal/htmlpatch"
	"github.com/hitoshi/siteforge/internal/model"
	"github.com/hitoshi/siteforge/internal/security"
)

// fakePageRepo はテスト用のインメモリページリポジトリ。
type fakePageRepo struct {
	page        *model.Page
	savedHTML   string
	savedEdits  map[string]any
	findErr     error
	updateCalls int
}

func (f *fakePageRepo) FindByID(ctx context.Context, id string) (*model.Page, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.page == nil || f.page.ID != id {
		return nil, nil
	}
	return f.page, nil
}

func (f *fakePageRepo) UpdateContent(ctx context.Context, id, html string, customEdits map[string]any, updatedAt time.Time) error {
	f.updateCalls++
	f.savedHTML = html
	f.savedEdits = customEdits
	return nil
}

func (f *fakePageRepo) UpdateSEO(ctx context.Context, id, title, description, slug string) error {
	return nil
}

func (f *fakePageRepo) ListNeedingEnrichment(ctx context.Context, limit int) ([]*model.Page, error) {
	return nil, nil
}

func (f *fakePageRepo) ListRecent(ctx context.Context, limit int) ([]*model.Page, error) {
	return nil, nil
}

func (f *fakePageRepo) SlugExists(ctx context.Context, slug, excludePageID string) (bool, error) {
	return false, nil
}

func newTestService(repo *fakePageRepo) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, security.NewEditSanitizer(), logger)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestApplyContentUpdate_PatchesAndPersists(t *testing.T) {
	repo := &fakePageRepo{
		page: &model.Page{
			ID:          "page-1",
			HTML:        `<p>Call us at (555) 123-4567</p>`,
			CustomEdits: map[string]any{},
		},
	}
	svc := newTestService(repo)

	got, err := svc.ApplyContentUpdate(context.Background(), "page-1", htmlpatch.Updates{
		Phone: "(555) 999-0000",
	})
	if err != nil {
		t.Fatalf("ApplyContentUpdateがエラーを返しました: %v", err)
	}

	if !strings.Contains(got.HTML, "(555) 999-0000") {
		t.Errorf("電話番号が置換されていません: %s", got.HTML)
	}
	if repo.updateCalls != 1 {
		t.Errorf("UpdateContentの呼び出し回数が期待値と異なります: got %d", repo.updateCalls)
	}
	if repo.savedHTML != got.HTML {
		t.Error("保存されたHTMLと返却されたHTMLが一致しません")
	}
	if _, ok := repo.savedEdits["last_modified"]; !ok {
		t.Error("編集ジャーナルにlast_modifiedが記録されていません")
	}
}

func TestApplyContentUpdate_EmptyUpdate(t *testing.T) {
	repo := &fakePageRepo{page: &model.Page{ID: "page-1"}}
	svc := newTestService(repo)

	_, err := svc.ApplyContentUpdate(context.Background(), "page-1", htmlpatch.Updates{})
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("APIErrorが返されるべきです: %v", err)
	}
	if apiErr.Code != model.ErrCodeEmptyUpdate {
		t.Errorf("エラーコードが期待値と異なります: got %s", apiErr.Code)
	}
	if repo.updateCalls != 0 {
		t.Error("空の更新で永続化が実行されました")
	}
}

func TestApplyContentUpdate_PageNotFound(t *testing.T) {
	repo := &fakePageRepo{}
	svc := newTestService(repo)

	_, err := svc.ApplyContentUpdate(context.Background(), "missing", htmlpatch.Updates{Phone: "555-123-4567"})
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("APIErrorが返されるべきです: %v", err)
	}
	if apiErr.Code != model.ErrCodePageNotFound {
		t.Errorf("エラーコードが期待値と異なります: got %s", apiErr.Code)
	}
}

func TestApplyContentUpdate_SanitizesValues(t *testing.T) {
	repo := &fakePageRepo{
		page: &model.Page{
			ID:          "page-1",
			HTML:        `<div>Monday: 9:00 AM - 5:00 PM</div>`,
			CustomEdits: map[string]any{},
		},
	}
	svc := newTestService(repo)

	got, err := svc.ApplyContentUpdate(context.Background(), "page-1", htmlpatch.Updates{
		Hours: map[string]string{"monday": `<script>alert(1)</script>10:00 AM - 6:00 PM`},
	})
	if err != nil {
		t.Fatalf("ApplyContentUpdateがエラーを返しました: %v", err)
	}

	if strings.Contains(got.HTML, "script") {
		t.Errorf("スクリプトタグが除去されていません: %s", got.HTML)
	}
	if !strings.Contains(got.HTML, "Monday: 10:00 AM - 6:00 PM") {
		t.Errorf("営業時間が置換されていません: %s", got.HTML)
	}
}

func TestApplyContentUpdate_TagOnlyValueBecomesNoOp(t *testing.T) {
	repo := &fakePageRepo{
		page: &model.Page{ID: "page-1", HTML: "<p>hi</p>", CustomEdits: map[string]any{}},
	}
	svc := newTestService(repo)

	// タグのみの値はサニタイズ後に空になるが、リクエスト自体は
	// 非空なのでページ取得後にそのまま無変更パッチとして適用される
	got, err := svc.ApplyContentUpdate(context.Background(), "page-1", htmlpatch.Updates{
		Phone: "<script></script>",
	})
	if err != nil {
		t.Fatalf("ApplyContentUpdateがエラーを返しました: %v", err)
	}
	if got.HTML != "<p>hi</p>" {
		t.Errorf("HTMLが変更されるべきではありません: %s", got.HTML)
	}
}
