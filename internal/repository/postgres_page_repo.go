package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/siteforge/internal/model"
)

// PostgresPageRepo はPostgreSQLを使用したページリポジトリ。
type PostgresPageRepo struct {
	db *sql.DB
}

// NewPostgresPageRepo はPostgresPageRepoを生成する。
func NewPostgresPageRepo(db *sql.DB) *PostgresPageRepo {
	return &PostgresPageRepo{db: db}
}

const pageColumns = `id, business_id, html, custom_edits, seo_title, seo_description, seo_slug, created_at, updated_at`

// scanPage は1行分のページを読み取る。
func scanPage(scan func(dest ...any) error) (*model.Page, error) {
	page := &model.Page{}
	var html, seoTitle, seoDescription, seoSlug sql.NullString
	var customEdits []byte

	if err := scan(
		&page.ID, &page.BusinessID, &html, &customEdits,
		&seoTitle, &seoDescription, &seoSlug,
		&page.CreatedAt, &page.UpdatedAt,
	); err != nil {
		return nil, err
	}

	page.HTML = nullStringValue(html)
	page.SEOTitle = nullStringValue(seoTitle)
	page.SEODescription = nullStringValue(seoDescription)
	page.SEOSlug = nullStringValue(seoSlug)

	if len(customEdits) > 0 {
		if err := json.Unmarshal(customEdits, &page.CustomEdits); err != nil {
			return nil, fmt.Errorf("編集ジャーナルの解析に失敗しました: %w", err)
		}
	}
	if page.CustomEdits == nil {
		page.CustomEdits = map[string]any{}
	}

	return page, nil
}

// FindByID は指定IDのページを取得する。見つからない場合はnilを返す。
func (r *PostgresPageRepo) FindByID(ctx context.Context, id string) (*model.Page, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id = $1`, id,
	)

	page, err := scanPage(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ページの取得に失敗しました: %w", err)
	}
	return page, nil
}

// UpdateContent はページのHTML本文と編集ジャーナルを更新する。
func (r *PostgresPageRepo) UpdateContent(ctx context.Context, id, html string, customEdits map[string]any, updatedAt time.Time) error {
	edits, err := json.Marshal(customEdits)
	if err != nil {
		return fmt.Errorf("編集ジャーナルのシリアライズに失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE pages SET html = $2, custom_edits = $3, updated_at = $4 WHERE id = $1`,
		id, nullString(html), edits, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("ページ本文の更新に失敗しました: %w", err)
	}
	return nil
}

// UpdateSEO はページのSEOメタデータを更新する。
func (r *PostgresPageRepo) UpdateSEO(ctx context.Context, id, title, description, slug string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pages SET seo_title = $2, seo_description = $3, seo_slug = $4, updated_at = now()
		 WHERE id = $1`,
		id, nullString(title), nullString(description), nullString(slug),
	)
	if err != nil {
		return fmt.Errorf("SEOメタデータの更新に失敗しました: %w", err)
	}
	return nil
}

// ListNeedingEnrichment はSEOメタデータまたはヒーロー画像が欠けている
// ページを作成日時の新しい順に取得する。
func (r *PostgresPageRepo) ListNeedingEnrichment(ctx context.Context, limit int) ([]*model.Page, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM pages p
		 WHERE p.seo_title IS NULL OR p.seo_description IS NULL OR p.seo_slug IS NULL
		    OR NOT EXISTS (
		        SELECT 1 FROM page_images i WHERE i.page_id = p.id AND i.kind = 'hero'
		    )
		 ORDER BY p.created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("エンリッチ対象ページの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectPages(rows)
}

// ListRecent は作成日時の新しい順にページを取得する。
func (r *PostgresPageRepo) ListRecent(ctx context.Context, limit int) ([]*model.Page, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM pages ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ページ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectPages(rows)
}

// SlugExists は指定スラッグが他のページで使用済みかを返す。
func (r *PostgresPageRepo) SlugExists(ctx context.Context, slug, excludePageID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM pages WHERE seo_slug = $1 AND id <> $2)`,
		slug, excludePageID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("スラッグの重複確認に失敗しました: %w", err)
	}
	return exists, nil
}

// collectPages は結果セットの全行をページに変換する。
func collectPages(rows *sql.Rows) ([]*model.Page, error) {
	var pages []*model.Page
	for rows.Next() {
		page, err := scanPage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("ページ行の読み取りに失敗しました: %w", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ページ一覧の走査に失敗しました: %w", err)
	}
	return pages, nil
}

// compile-time interface check
var _ PageRepository = (*PostgresPageRepo)(nil)
