package security

import (
	"strings"
	"testing"
	"time"
)

func TestEditSanitizer_StripsTags(t *testing.T) {
	s := NewEditSanitizer()

	got := s.SanitizeValue(`<script>alert(1)</script>555-123-4567`)
	if got != "555-123-4567" {
		t.Errorf("スクリプトタグが除去されていません: got %q", got)
	}
}

func TestEditSanitizer_PreservesPlainText(t *testing.T) {
	s := NewEditSanitizer()

	cases := []string{
		"9:00 AM - 5:00 PM",
		"Joe's Plumbing",
		"(555) 123-4567",
	}
	for _, in := range cases {
		if got := s.SanitizeValue(in); got != in {
			t.Errorf("プレーンテキストが変化しました: %q → %q", in, got)
		}
	}
}

func TestEditSanitizer_Idempotent(t *testing.T) {
	s := NewEditSanitizer()

	once := s.SanitizeValue(`<b>Closed</b> on Sunday`)
	twice := s.SanitizeValue(once)
	if once != twice {
		t.Errorf("サニタイズが冪等ではありません: %q → %q", once, twice)
	}
}

func TestSSRFGuard_ValidateURL(t *testing.T) {
	guard := NewSSRFGuard()

	valid := []string{
		"https://render.example.com",
		"http://picsum.photos/seed/a/1200/630",
	}
	for _, u := range valid {
		if err := guard.ValidateURL(u); err != nil {
			t.Errorf("安全なURLが拒否されました: %s: %v", u, err)
		}
	}

	blocked := []string{
		"",
		"ftp://example.com/feed",
		"http://localhost/admin",
		"http://127.0.0.1/",
		"http://169.254.169.254/latest/meta-data/",
		"http://192.168.1.10/",
	}
	for _, u := range blocked {
		if err := guard.ValidateURL(u); err == nil {
			t.Errorf("危険なURLが許可されました: %s", u)
		}
	}
}

func TestSSRFGuard_NewSafeClient(t *testing.T) {
	guard := NewSSRFGuard()

	client := guard.NewSafeClient(5 * time.Second)
	if client == nil {
		t.Fatal("NewSafeClientがnilを返しました")
	}
	if client.Timeout == 0 {
		t.Error("タイムアウトが設定されていません")
	}

	// プライベートIPへのリクエストはDialerレベルでブロックされる
	_, err := client.Get("http://169.254.169.254/latest/meta-data/")
	if err == nil {
		t.Error("メタデータIPへのリクエストがブロックされていません")
	}
	if err != nil && !strings.Contains(err.Error(), "169.254.169.254") {
		// エラーメッセージの形式はsafeurl依存のため存在確認のみ
		t.Logf("blocked with: %v", err)
	}
}
