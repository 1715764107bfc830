// Package htmlpatch は保存済みプレビューHTMLへの部分編集を提供する。
//
// DOMパーサーは使わず、正規表現によるテキストレベルの置換で
// 電話番号・曜日別営業時間・価格・ロゴのみを書き換える。
// マッチはタグ境界（"<"）と改行を越えないため、マークアップ構造は
// 変更されない。各フィールドの置換規則は純粋関数として分離されており、
// 個別にテスト可能である。
package htmlpatch

import (
	"regexp"
	"strings"
	"time"

	"github.com/hitoshi/siteforge/internal/hours"
)

// PricePair は価格置換の対象と新しい値のペア。
// OldとNewはどちらも不透明なリテラル文字列として扱い、
// 通貨としての解析は行わない。
type PricePair struct {
	Old string
	New string
}

// Updates はパッチエンジンへの1回分の編集要求。
// ゼロ値のフィールドは該当する置換をスキップする。
type Updates struct {
	Phone  string
	Hours  map[string]string // 曜日名（小文字） → 自由形式の営業時間文字列
	Prices []PricePair
	Logo   string // 新しいロゴ画像URL
}

// IsEmpty は更新フィールドが1つも指定されていないかを返す。
func (u Updates) IsEmpty() bool {
	return u.Phone == "" && len(u.Hours) == 0 && len(u.Prices) == 0 && u.Logo == ""
}

// rePhone は緩いUS電話番号パターン。
// 括弧付き市外局番を許容し、区切りは "-"、"."、空白のいずれか。
// 区切りなしの裸の10桁は誤置換を避けるため対象にしない。
var rePhone = regexp.MustCompile(`\(?\d{3}\)?[-.\s]\d{3}[-.\s]?\d{4}`)

// reLogoImg はimgタグ全体にマッチするパターン。タグ内のテキストに
// "logo" を含むものだけがロゴ更新の対象になる。
var reLogoImg = regexp.MustCompile(`(?i)<img\b[^>]*>`)

// reLogoSrc はimgタグ内のsrc属性。
var reLogoSrc = regexp.MustCompile(`(?i)src\s*=\s*"[^"]*"`)

// ApplyUpdates は保存済みHTMLにupdatesの各編集を適用し、
// パッチ後のHTMLとマージ済み編集ジャーナルを返す。
//
// ジャーナルは浅いオーバーレイでマージされる: updatesに含まれる
// トップレベルキーは既存の同名キーを丸ごと置き換え（hours内の
// 曜日単位の深いマージは行わない）、含まれないキーは保持される。
// last_modifiedは常に現在時刻で更新される。
//
// 永続化は呼び出し元の責務であり、この関数は純粋な文字列変換と
// ジャーナルマージのみを行う。該当しないフィールドは単にスキップされ、
// エラーにはならない。
func ApplyUpdates(html string, journal map[string]any, updates Updates, now time.Time) (string, map[string]any) {
	patched := html

	if updates.Phone != "" {
		patched = applyPhone(patched, updates.Phone)
	}
	for day, value := range updates.Hours {
		patched = applyHours(patched, day, value)
	}
	for _, pair := range updates.Prices {
		patched = applyPrice(patched, pair)
	}
	if updates.Logo != "" {
		patched = applyLogo(patched, updates.Logo)
	}

	return patched, mergeJournal(journal, updates, now)
}

// applyPhone は電話番号らしき部分文字列をすべて指定の番号に置換する。
// 文脈を区別しないグローバル置換であり、文書内に複数の異なる番号が
// あってもすべて同じ新番号になる。
func applyPhone(html, phone string) string {
	return rePhone.ReplaceAllLiteralString(html, phone)
}

// applyHours は "<曜日>: <値>" の形のテキストを正規化済みの営業時間で
// 置き換える。まず先頭大文字の曜日名で大文字小文字を区別して検索し、
// 見つからない場合は元のキー表記のまま大文字小文字を無視して再検索する。
// マッチが直後のタグ開始を巻き込んだ場合、そのタグテキストは
// 新しい値の後ろに再付与される。マッチは "<" と改行を越えない。
func applyHours(html, day, value string) string {
	normalized := hours.NormalizeHoursString(value)
	capitalized := capitalize(day)

	replacement := capitalized + ": " + escapeReplacement(normalized) + "${1}"

	reExact := regexp.MustCompile(regexp.QuoteMeta(capitalized) + `:\s*[^<\n]*(<[^>]*>)?`)
	if reExact.MatchString(html) {
		return reExact.ReplaceAllString(html, replacement)
	}

	reFold := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(day) + `:\s*[^<\n]*(<[^>]*>)?`)
	return reFold.ReplaceAllString(html, replacement)
}

// applyPrice は旧価格のリテラル出現をすべて新価格に置換する。
func applyPrice(html string, pair PricePair) string {
	if pair.Old == "" {
		return html
	}
	return strings.ReplaceAll(html, pair.Old, pair.New)
}

// applyLogo はタグテキストに "logo" を含むimgタグのsrc属性を
// 新しいURLに書き換える。他のimgタグは変更しない。
func applyLogo(html, logoURL string) string {
	return reLogoImg.ReplaceAllStringFunc(html, func(tag string) string {
		if !strings.Contains(strings.ToLower(tag), "logo") {
			return tag
		}
		return reLogoSrc.ReplaceAllLiteralString(tag, `src="`+logoURL+`"`)
	})
}

// mergeJournal は既存ジャーナルにupdatesを浅くオーバーレイする。
// 既存のエントリは対応するキーが更新される場合を除いて保持され、
// last_modifiedは常に更新される（ジャーナルは増えるのみ）。
func mergeJournal(journal map[string]any, updates Updates, now time.Time) map[string]any {
	merged := make(map[string]any, len(journal)+5)
	for k, v := range journal {
		merged[k] = v
	}

	if updates.Phone != "" {
		merged["phone"] = updates.Phone
	}
	if len(updates.Hours) > 0 {
		hoursCopy := make(map[string]string, len(updates.Hours))
		for day, value := range updates.Hours {
			hoursCopy[day] = value
		}
		merged["hours"] = hoursCopy
	}
	if len(updates.Prices) > 0 {
		prices := make([]map[string]string, 0, len(updates.Prices))
		for _, pair := range updates.Prices {
			prices = append(prices, map[string]string{"old": pair.Old, "new": pair.New})
		}
		merged["prices"] = prices
	}
	if updates.Logo != "" {
		merged["logo"] = updates.Logo
	}

	merged["last_modified"] = now.Format(time.RFC3339Nano)

	return merged
}

// capitalize は曜日キーの先頭文字を大文字化する。
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// escapeReplacement は置換テンプレート内で "$" が展開されないように
// エスケープする（価格・営業時間の値に "$" が含まれうるため）。
func escapeReplacement(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}
