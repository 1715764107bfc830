// Package model はドメインモデルを定義する。
package model

import "time"

// Page はビジネスごとに生成されたプレビューページを表す。
// HTMLは生成サービスの出力をそのまま保持し、パッチエンジンによって
// 部分的に書き換えられる。
type Page struct {
	ID             string
	BusinessID     string
	HTML           string
	CustomEdits    map[string]any // 編集ジャーナル（マージのみ、縮小しない）
	SEOTitle       string
	SEODescription string
	SEOSlug        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasSEO はSEOメタデータ（タイトル・説明・スラッグ）が
// すべて設定済みかを返す。
func (p *Page) HasSEO() bool {
	return p.SEOTitle != "" && p.SEODescription != "" && p.SEOSlug != ""
}

// ImageKindHero はヒーロー画像を示すkind値。
const ImageKindHero = "hero"

// PageImage はページに紐付く画像レコードを表す。
// 通常運用ではkind="hero"のレコードはページごとに最大1件。
type PageImage struct {
	ID        string
	PageID    string
	Kind      string
	URL       string
	Alt       string
	Width     int
	Height    int
	CreatedAt time.Time
}
