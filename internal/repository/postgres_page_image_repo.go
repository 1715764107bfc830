package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/siteforge/internal/model"
)

// PostgresPageImageRepo はPostgreSQLを使用したページ画像リポジトリ。
type PostgresPageImageRepo struct {
	db *sql.DB
}

// NewPostgresPageImageRepo はPostgresPageImageRepoを生成する。
func NewPostgresPageImageRepo(db *sql.DB) *PostgresPageImageRepo {
	return &PostgresPageImageRepo{db: db}
}

// FindHeroByPageID は指定ページのヒーロー画像を取得する。
// 見つからない場合はnilを返す。
func (r *PostgresPageImageRepo) FindHeroByPageID(ctx context.Context, pageID string) (*model.PageImage, error) {
	img := &model.PageImage{}
	var alt sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, page_id, kind, url, alt, width, height, created_at
		 FROM page_images
		 WHERE page_id = $1 AND kind = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		pageID, model.ImageKindHero,
	).Scan(&img.ID, &img.PageID, &img.Kind, &img.URL, &alt, &img.Width, &img.Height, &img.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ヒーロー画像の取得に失敗しました: %w", err)
	}

	img.Alt = nullStringValue(alt)
	return img, nil
}

// Create は画像レコードを作成する。
func (r *PostgresPageImageRepo) Create(ctx context.Context, img *model.PageImage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO page_images (id, page_id, kind, url, alt, width, height, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		img.ID, img.PageID, img.Kind, img.URL, nullString(img.Alt), img.Width, img.Height, img.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("画像レコードの作成に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの画像レコードを削除する。
func (r *PostgresPageImageRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM page_images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("画像レコードの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PageImageRepository = (*PostgresPageImageRepo)(nil)
