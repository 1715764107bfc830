// Package hours は営業時間表記の正規化を提供する。
// "400 AM"、"4pm"、"16:00" のような自由形式の時刻トークンを
// 正準形式 "H:MM AM/PM" に変換する。
package hours

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// トークンの認識パターン。優先順位の高い順に適用する。
var (
	// reDigitsMeridiem は桁のみ（コロンなし）+ 午前/午後マーカー。
	// 例: "400 AM", "4pm", "1130 P.M."
	reDigitsMeridiem = regexp.MustCompile(`^(\d{1,4})\s*([AaPp])\.?\s*(?:[Mm]\.?)?$`)

	// reClockMeridiem は HH:MM + 午前/午後マーカー。
	// 例: "4:30 P.M.", "11:00am"
	reClockMeridiem = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*([AaPp])\.?\s*(?:[Mm]\.?)?$`)

	// reClock24 はマーカーなしの24時間表記 HH:MM。
	// 例: "16:00", "00:00"
	reClock24 = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

	// reRangeSplit は前後の空白を含むハイフンでの分割。
	reRangeSplit = regexp.MustCompile(`\s*-\s*`)
)

// NormalizeTimeToken は単一の時刻トークンを "H:MM AM/PM" 形式に正規化する。
// 時は先頭ゼロなし、分は2桁ゼロ埋め、マーカーは大文字のAM/PM。
// どのパターンにも一致しない場合はトリムした入力をそのまま返す
// （エラーにはしない）。コロンも午前/午後マーカーもない裸の数字
// （例: "9"）は曖昧なため変換しない。
func NormalizeTimeToken(token string) string {
	t := strings.TrimSpace(token)

	if m := reDigitsMeridiem.FindStringSubmatch(t); m != nil {
		digits := m[1]
		hour, minute := splitDigits(digits)
		if hour < 0 {
			return t
		}
		return formatTime(hour, minute, meridiemOf(m[2]))
	}

	if m := reClockMeridiem.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return formatTime(hour, minute, meridiemOf(m[3]))
	}

	if m := reClock24.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		// マーカーなしの24時間表記: 12以上はPM、0時は12 AMに写像する
		meridiem := "AM"
		if hour >= 12 {
			meridiem = "PM"
		}
		return formatTime(hour, minute, meridiem)
	}

	return t
}

// NormalizeHoursString は営業時間文字列を正規化する。
// 全角/en/emダッシュをハイフンに統一し、ハイフンでちょうど2つに
// 分割できる場合は両端を個別に正規化して "left - right" で結合する。
// 分割できない場合（"Closed"、単一時刻、ハイフン過多など）は
// 全体を単一トークンとして正規化する。常に文字列を返し、失敗しない。
func NormalizeHoursString(hours string) string {
	s := strings.NewReplacer("–", "-", "—", "-").Replace(hours)

	parts := reRangeSplit.Split(strings.TrimSpace(s), -1)
	if len(parts) == 2 {
		return NormalizeTimeToken(parts[0]) + " - " + NormalizeTimeToken(parts[1])
	}

	return NormalizeTimeToken(s)
}

// splitDigits はコロンなしの数字列を時と分に分解する。
// 1〜2桁は時のみ（分=0）、3〜4桁は末尾2桁を分として解釈する。
// 分が不正（>59）の場合は負の時を返して呼び出し元で不一致扱いにする。
func splitDigits(digits string) (int, int) {
	var hour, minute int
	switch len(digits) {
	case 1, 2:
		hour, _ = strconv.Atoi(digits)
	case 3, 4:
		hour, _ = strconv.Atoi(digits[:len(digits)-2])
		minute, _ = strconv.Atoi(digits[len(digits)-2:])
	}
	if minute > 59 {
		return -1, 0
	}
	return hour, minute
}

// meridiemOf はマーカー文字からAM/PMを判定する。
func meridiemOf(marker string) string {
	if strings.EqualFold(marker, "p") {
		return "PM"
	}
	return "AM"
}

// formatTime は時・分・マーカーを正準形式に整形する。
// 0時は12に、13以上の時は12で剰余を取って表示用の時に変換する。
func formatTime(hour, minute int, meridiem string) string {
	display := hour
	if display > 12 {
		display = display % 12
	}
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:%02d %s", display, minute, meridiem)
}
