package model

import "time"

// 操作ログのステータス値。
const (
	OpStatusOK    = "ok"
	OpStatusSkip  = "skip"
	OpStatusError = "error"
)

// OperationLog はバッチ処理の操作ログ1件を表す。
// ベストエフォートのテレメトリであり、書き込み失敗は呼び出し元で無視される。
type OperationLog struct {
	ID            string
	Scope         string // 例: "enrich", "preview"
	Operation     string // 例: "page_enrich", "preview_generate"
	Status        string // ok / skip / error
	CorrelationID string // バッチ1回分の相関ID
	Detail        string // 成功時はスラッグ等、失敗時はエラークラス
	CreatedAt     time.Time
}
