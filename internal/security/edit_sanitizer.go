package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// EditSanitizerService は編集リクエスト値のサニタイズ機能のインターフェースを定義する。
// 電話番号・営業時間・価格などの編集値はプレーンテキストとしてHTMLに
// 埋め込まれるため、タグやイベント属性を一切許可しない。
type EditSanitizerService interface {
	// SanitizeValue は編集値からHTMLタグを全て除去し、
	// プレーンテキストとして安全な文字列を返す。
	// アポストロフィ等の通常文字は保持される（冪等）。
	SanitizeValue(raw string) string
}

// editSanitizer はEditSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type editSanitizer struct {
	policy *bluemonday.Policy
}

// NewEditSanitizer はEditSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全てのタグを除去する。script/iframe/styleおよび
// on*イベント属性も許可リストに含まれないため自動的に除去される。
func NewEditSanitizer() *editSanitizer {
	return &editSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeValue は編集値からHTMLタグを全て除去する。
// bluemondayはエンティティをエスケープして返すため、
// プレーンテキスト値として扱えるようアンエスケープして戻す。
func (s *editSanitizer) SanitizeValue(raw string) string {
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
