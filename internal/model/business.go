package model

import "time"

// Business はインポートされたビジネスリードを表す。
// プレビューページの所有エンティティ。
type Business struct {
	ID        string
	Name      string
	Phone     string
	Email     string
	Address   string
	CreatedAt time.Time
}
