// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/siteforge/internal/model"
)

// PageRepository はプレビューページの永続化インターフェース。
type PageRepository interface {
	// FindByID は指定IDのページを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Page, error)

	// UpdateContent はページのHTML本文と編集ジャーナルを更新する。
	UpdateContent(ctx context.Context, id, html string, customEdits map[string]any, updatedAt time.Time) error

	// UpdateSEO はページのSEOメタデータ（タイトル・説明・スラッグ）を更新する。
	UpdateSEO(ctx context.Context, id, title, description, slug string) error

	// ListNeedingEnrichment はSEOメタデータまたはヒーロー画像が欠けている
	// ページを作成日時の新しい順に取得する。
	ListNeedingEnrichment(ctx context.Context, limit int) ([]*model.Page, error)

	// ListRecent は作成日時の新しい順にページを取得する。
	// ListNeedingEnrichmentが使えない場合のフォールバック用。
	ListRecent(ctx context.Context, limit int) ([]*model.Page, error)

	// SlugExists は指定スラッグが他のページで使用済みかを返す。
	// excludePageIDのページ自身は衝突とみなさない。
	SlugExists(ctx context.Context, slug, excludePageID string) (bool, error)
}

// PageImageRepository はページ画像の永続化インターフェース。
type PageImageRepository interface {
	// FindHeroByPageID は指定ページのヒーロー画像を取得する。
	// 見つからない場合はnilを返す。
	FindHeroByPageID(ctx context.Context, pageID string) (*model.PageImage, error)

	// Create は画像レコードを作成する。
	Create(ctx context.Context, img *model.PageImage) error

	// DeleteByID は指定IDの画像レコードを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// BusinessRepository はビジネスリードの永続化インターフェース。
type BusinessRepository interface {
	// ListRecent は作成日時の新しい順にビジネスを取得する。
	ListRecent(ctx context.Context, limit int) ([]*model.Business, error)

	// ListRecentWithoutPreview は本文のあるプレビューページを
	// まだ持たないビジネスを作成日時の新しい順に取得する。
	ListRecentWithoutPreview(ctx context.Context, limit int) ([]*model.Business, error)
}

// OperationLogRepository は操作ログの永続化インターフェース。
// ベストエフォートのテレメトリであり、呼び出し元はAppendの失敗を
// 握りつぶしてよい（握りつぶすべきである）。
type OperationLogRepository interface {
	// Append は操作ログを1件追記する。
	Append(ctx context.Context, entry *model.OperationLog) error
}
