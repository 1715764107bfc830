package seo

import (
	"strings"
	"testing"
)

// --- ExtractText ---

func TestExtractText_StripsTags(t *testing.T) {
	got := ExtractText(`<h1>Joe's  Plumbing</h1><p>Fast   service</p>`)
	if got != "Joe's Plumbing Fast service" {
		t.Errorf("タグ除去と空白の畳み込み: got %q", got)
	}
}

func TestExtractText_SkipsScriptAndStyle(t *testing.T) {
	got := ExtractText(`<p>Hello</p><script>var x = 1;</script><style>.a{}</style><p>World</p>`)
	if got != "Hello World" {
		t.Errorf("script/styleの中身は除外されるべき: got %q", got)
	}
}

func TestExtractText_MalformedHTMLDoesNotFail(t *testing.T) {
	got := ExtractText(`<div><p>partial`)
	if got != "partial" {
		t.Errorf("不正なHTMLでも読めたテキストを返すべき: got %q", got)
	}
}

func TestExtractText_Empty(t *testing.T) {
	if got := ExtractText(""); got != "" {
		t.Errorf("空入力は空文字列を返すべき: got %q", got)
	}
}

// --- DeriveTitle / DeriveDescription ---

func TestDeriveTitle_TitleCaseAndCap(t *testing.T) {
	got := DeriveTitle("quality plumbing services for the greater springfield area since nineteen ninety")
	if len(got) > MaxTitleLength {
		t.Errorf("タイトルは%d文字以内であるべき: %d文字 %q", MaxTitleLength, len(got), got)
	}
	if !strings.HasPrefix(got, "Quality Plumbing Services") {
		t.Errorf("タイトルケースで始まるべき: %q", got)
	}
	// 単語の途中で切らない
	if strings.HasSuffix(got, "-") || strings.Contains(got, "  ") {
		t.Errorf("単語境界で切り詰めるべき: %q", got)
	}
}

func TestDeriveTitle_Deterministic(t *testing.T) {
	in := "welcome to the best bakery in town"
	if DeriveTitle(in) != DeriveTitle(in) {
		t.Error("同一入力からは常に同一タイトルが導出されるべき")
	}
}

func TestDeriveDescription_Cap(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := DeriveDescription(long)
	if len(got) > MaxDescriptionLength {
		t.Errorf("説明文は%d文字以内であるべき: %d文字", MaxDescriptionLength, len(got))
	}
	if !strings.HasPrefix(got, "word word") {
		t.Errorf("先頭からの抜粋であるべき: %q", got)
	}
}

func TestDeriveDescription_Empty(t *testing.T) {
	if got := DeriveDescription("   "); got != "" {
		t.Errorf("空白のみの入力は空文字列: got %q", got)
	}
}

// --- DeriveSlug ---

func TestDeriveSlug_Basic(t *testing.T) {
	cases := map[string]string{
		"Joe's Plumbing & Heating": "joe-s-plumbing-heating",
		"  --Hello, World!--  ":    "hello-world",
		"already-a-slug":           "already-a-slug",
		"UPPER case 123":           "upper-case-123",
	}
	for in, want := range cases {
		if got := DeriveSlug(in); got != want {
			t.Errorf("DeriveSlug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeriveSlug_NonAlnumRunsCollapse(t *testing.T) {
	if got := DeriveSlug("a !!! b"); got != "a-b" {
		t.Errorf("英数字以外の連続は1つのハイフンに: got %q", got)
	}
}

// --- HeroSelector ---

func TestHeroSelector_Deterministic(t *testing.T) {
	s := NewHeroSelector("", false)
	a := s.SelectHero("page-1", "My Title")
	b := s.SelectHero("page-1", "My Title")
	if a.URL != b.URL {
		t.Errorf("同一IDからは同一URLが選択されるべき: %q != %q", a.URL, b.URL)
	}
	if a.Width != HeroWidth || a.Height != HeroHeight {
		t.Errorf("固定サイズ%dx%dであるべき: %dx%d", HeroWidth, HeroHeight, a.Width, a.Height)
	}
	if a.Alt != "My Title" {
		t.Errorf("altはタイトルであるべき: %q", a.Alt)
	}
}

func TestHeroSelector_DistinctIDs(t *testing.T) {
	s := NewHeroSelector("", false)
	a := s.SelectHero("page-1", "T")
	b := s.SelectHero("page-2", "T")
	if a.URL == b.URL {
		t.Errorf("異なるIDからは異なるURLが選択されるべき: %q", a.URL)
	}
}

func TestHeroSelector_MockProvider(t *testing.T) {
	s := NewHeroSelector("https://real.example", true)
	img := s.SelectHero("page-1", "")
	if !strings.HasPrefix(img.URL, "https://placehold.co/") {
		t.Errorf("モックは固定パターンのURLを返すべき: %q", img.URL)
	}
	if img.Alt == "" {
		t.Errorf("タイトルが空の場合は汎用altを設定するべき")
	}
}

func TestHeroSelector_RealProviderUsesBaseURL(t *testing.T) {
	s := NewHeroSelector("https://img.example", false)
	img := s.SelectHero("abc", "T")
	if img.URL != "https://img.example/seed/abc/1200/630" {
		t.Errorf("実プロバイダはシード付きURLを構築するべき: %q", img.URL)
	}
}
