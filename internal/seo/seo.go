// Package seo はドラフトHTMLからのSEOメタデータ導出を提供する。
//
// 導出はすべて決定的（AI・乱数なし）であり、同じ入力からは常に
// 同じタイトル・説明・スラッグが得られる。スラッグの衝突回避の
// サフィックス付与のみ呼び出し元（エンリッチジョブ）が行う。
package seo

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// MaxTitleLength はSEOタイトルの最大長。
	MaxTitleLength = 60
	// MaxDescriptionLength はSEO説明文の最大長。
	MaxDescriptionLength = 160
)

var titleCaser = cases.Title(language.AmericanEnglish)

// ExtractText はHTMLからタグを取り除いたプレーンテキストを返す。
// script/style要素の中身は除外し、連続する空白は1つに畳む。
// 不正なHTMLでも失敗せず、読めたところまでのテキストを返す。
func ExtractText(rawHTML string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))

	var parts []string
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(parts, " ")
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(tokenizer.Text()))
			if text != "" {
				parts = append(parts, strings.Join(strings.Fields(text), " "))
			}
		}
	}
}

// DeriveTitle はプレーンテキストの先頭から、単語境界で60文字以内に
// 収まるタイトルケースの抜粋を返す。
func DeriveTitle(text string) string {
	return titleCaser.String(leadingExcerpt(text, MaxTitleLength))
}

// DeriveDescription はプレーンテキストの先頭から160文字以内の抜粋を返す。
func DeriveDescription(text string) string {
	return leadingExcerpt(text, MaxDescriptionLength)
}

// DeriveSlug はテキストを小文字化し、英数字以外の連続を1つのハイフンに
// 置き換え、先頭と末尾のハイフンを取り除いたスラッグを返す。
func DeriveSlug(text string) string {
	var b strings.Builder
	lastHyphen := false

	for _, r := range strings.ToLower(text) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen && b.Len() > 0 {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	return strings.TrimRight(b.String(), "-")
}

// leadingExcerpt は単語境界を保ちながら最大maxLen文字の先頭抜粋を返す。
// 最初の単語単体がmaxLenを超える場合はその単語を切り詰める。
func leadingExcerpt(text string, maxLen int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var b strings.Builder
	for _, w := range words {
		add := len(w)
		if b.Len() > 0 {
			add++ // 区切りの空白
		}
		if b.Len()+add > maxLen {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}

	if b.Len() == 0 {
		// 最初の単語がそれ自体で上限を超える場合
		runes := []rune(words[0])
		if len(runes) > maxLen {
			runes = runes[:maxLen]
		}
		return string(runes)
	}

	return b.String()
}
