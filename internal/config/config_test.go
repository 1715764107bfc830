package config

import (
	"testing"
	"time"

	"github.com/hitoshi/siteforge/internal/limiter"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Error("DATABASE_URL未設定でエラーが返されるべきです")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/siteforge_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Loadがエラーを返しました: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("デフォルトポートが期待値と異なります: %s", cfg.ServerPort)
	}
	if cfg.EnrichPoolSize != 3 {
		t.Errorf("デフォルトの並列数が期待値と異なります: %d", cfg.EnrichPoolSize)
	}
	if cfg.PreviewDelay != 2*time.Second {
		t.Errorf("デフォルトのペーシング間隔が期待値と異なります: %v", cfg.PreviewDelay)
	}
	if !cfg.HeroMock {
		t.Error("デフォルトではモックプロバイダが有効であるべきです")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/siteforge_test")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("ENRICH_POOL_SIZE", "5")
	t.Setenv("PREVIEW_DELAY", "500ms")
	t.Setenv("HERO_MOCK", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Loadがエラーを返しました: %v", err)
	}

	if cfg.ServerPort != "9000" {
		t.Errorf("ポートの上書きが反映されていません: %s", cfg.ServerPort)
	}
	if cfg.EnrichPoolSize != 5 {
		t.Errorf("並列数の上書きが反映されていません: %d", cfg.EnrichPoolSize)
	}
	if cfg.PreviewDelay != 500*time.Millisecond {
		t.Errorf("ペーシング間隔の上書きが反映されていません: %v", cfg.PreviewDelay)
	}
	if cfg.HeroMock {
		t.Error("HERO_MOCK=falseが反映されていません")
	}
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/siteforge_test")
	t.Setenv("ENRICH_POOL_SIZE", "not-a-number")
	t.Setenv("PREVIEW_DELAY", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Loadがエラーを返しました: %v", err)
	}

	if cfg.EnrichPoolSize != 3 {
		t.Errorf("不正な値はデフォルトに戻るべきです: %d", cfg.EnrichPoolSize)
	}
	if cfg.PreviewDelay != 2*time.Second {
		t.Errorf("不正な値はデフォルトに戻るべきです: %v", cfg.PreviewDelay)
	}
}

func TestProviderLimits_ReadsAtCallTime(t *testing.T) {
	limits := ProviderLimits()

	t.Setenv("PROVIDER_RENDER_MAX_ERRORS", "3")
	got := limits(limiter.ProviderRender)
	if got.MaxErrors != 3 {
		t.Errorf("上限が環境変数から読まれていません: %+v", got)
	}

	// 関数を作り直さなくても変更が反映される
	t.Setenv("PROVIDER_RENDER_MAX_ERRORS", "7")
	got = limits(limiter.ProviderRender)
	if got.MaxErrors != 7 {
		t.Errorf("呼び出し時の再読込が機能していません: %+v", got)
	}
}

func TestProviderLimits_Defaults(t *testing.T) {
	limits := ProviderLimits()

	got := limits(limiter.ProviderHeroImage)
	if got.Window != 24*time.Hour || got.MaxErrors != 5 || got.MaxCost != 100 {
		t.Errorf("デフォルト上限が期待値と異なります: %+v", got)
	}
}
