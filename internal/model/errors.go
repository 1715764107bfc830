// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, page, job, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodePageNotFound     = "PAGE_NOT_FOUND"
	ErrCodeEmptyUpdate      = "EMPTY_UPDATE"
	ErrCodeInvalidBatchSize = "INVALID_BATCH_SIZE"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
)

// NewPageNotFoundError はページ未検出エラーを生成する。
func NewPageNotFoundError(pageID string) *APIError {
	return &APIError{
		Code:     ErrCodePageNotFound,
		Message:  fmt.Sprintf("指定されたページが見つかりません: %s", pageID),
		Category: "page",
		Action:   "ページIDを確認してください。",
	}
}

// NewEmptyUpdateError は更新フィールドが1つも指定されていない場合のエラーを生成する。
func NewEmptyUpdateError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyUpdate,
		Message:  "更新内容が指定されていません。",
		Category: "validation",
		Action:   "phone、hours、prices、logoのいずれかを指定してください。",
	}
}

// NewInvalidBatchSizeError は無効なバッチサイズエラーを生成する。
func NewInvalidBatchSizeError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidBatchSize,
		Message:  fmt.Sprintf("無効なバッチサイズです: %d", limit),
		Category: "validation",
		Action:   "limitには1以上の整数を指定してください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストの解析に失敗しました: %s", reason),
		Category: "validation",
		Action:   "リクエストボディのJSON形式を確認してください。",
	}
}
