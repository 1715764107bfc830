package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/siteforge/internal/model"
)

// PostgresOperationLogRepo はPostgreSQLを使用した操作ログリポジトリ。
type PostgresOperationLogRepo struct {
	db *sql.DB
}

// NewPostgresOperationLogRepo はPostgresOperationLogRepoを生成する。
func NewPostgresOperationLogRepo(db *sql.DB) *PostgresOperationLogRepo {
	return &PostgresOperationLogRepo{db: db}
}

// Append は操作ログを1件追記する。
func (r *PostgresOperationLogRepo) Append(ctx context.Context, entry *model.OperationLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO operation_logs (id, scope, operation, status, correlation_id, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.Scope, entry.Operation, entry.Status,
		entry.CorrelationID, nullString(entry.Detail), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("操作ログの追記に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ OperationLogRepository = (*PostgresOperationLogRepo)(nil)
