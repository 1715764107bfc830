package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/siteforge/internal/model"
)

// PostgresBusinessRepo はPostgreSQLを使用したビジネスリポジトリ。
type PostgresBusinessRepo struct {
	db *sql.DB
}

// NewPostgresBusinessRepo はPostgresBusinessRepoを生成する。
func NewPostgresBusinessRepo(db *sql.DB) *PostgresBusinessRepo {
	return &PostgresBusinessRepo{db: db}
}

const businessColumns = `id, name, phone, email, address, created_at`

// scanBusiness は1行分のビジネスを読み取る。
func scanBusiness(scan func(dest ...any) error) (*model.Business, error) {
	b := &model.Business{}
	var phone, email, address sql.NullString

	if err := scan(&b.ID, &b.Name, &phone, &email, &address, &b.CreatedAt); err != nil {
		return nil, err
	}

	b.Phone = nullStringValue(phone)
	b.Email = nullStringValue(email)
	b.Address = nullStringValue(address)
	return b, nil
}

// ListRecent は作成日時の新しい順にビジネスを取得する。
func (r *PostgresBusinessRepo) ListRecent(ctx context.Context, limit int) ([]*model.Business, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+businessColumns+` FROM businesses ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ビジネス一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectBusinesses(rows)
}

// ListRecentWithoutPreview は本文のあるプレビューページをまだ持たない
// ビジネスを作成日時の新しい順に取得する。
func (r *PostgresBusinessRepo) ListRecentWithoutPreview(ctx context.Context, limit int) ([]*model.Business, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+businessColumns+` FROM businesses b
		 WHERE NOT EXISTS (
		     SELECT 1 FROM pages p
		     WHERE p.business_id = b.id AND p.html IS NOT NULL AND p.html <> ''
		 )
		 ORDER BY b.created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("プレビュー未生成ビジネスの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectBusinesses(rows)
}

// collectBusinesses は結果セットの全行をビジネスに変換する。
func collectBusinesses(rows *sql.Rows) ([]*model.Business, error) {
	var businesses []*model.Business
	for rows.Next() {
		b, err := scanBusiness(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("ビジネス行の読み取りに失敗しました: %w", err)
		}
		businesses = append(businesses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ビジネス一覧の走査に失敗しました: %w", err)
	}
	return businesses, nil
}

// compile-time interface check
var _ BusinessRepository = (*PostgresBusinessRepo)(nil)
