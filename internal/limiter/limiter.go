// Package limiter は外部プロバイダ呼び出しのサーキットブレーカーを提供する。
//
// プロバイダごとにスライディングウィンドウ内のエラー回数と累積コストを
// 記録し、どちらかが閾値を超えると呼び出しを遮断する。ウィンドウの
// 経過後は次のアクセス時に遅延リセットされる。手動リセットや遮断通知は
// なく、呼び出し元はメーター課金の呼び出し前に必ずCanProceedを確認する。
package limiter

import (
	"log/slog"
	"sync"
	"time"
)

// Provider はメーター課金の外部プロバイダ識別子。
type Provider string

// 固定のプロバイダ集合。プロセス起動時にウィンドウが初期化される。
const (
	// ProviderRender はプレビュー生成サービス。
	ProviderRender Provider = "render"
	// ProviderHeroImage はヒーロー画像プロバイダ。
	ProviderHeroImage Provider = "heroimage"
	// ProviderEmail はトランザクションメール送信サービス。
	ProviderEmail Provider = "email"
)

// AllProviders は管理対象プロバイダの一覧。
var AllProviders = []Provider{ProviderRender, ProviderHeroImage, ProviderEmail}

// Limits はプロバイダ1つ分の閾値設定。
type Limits struct {
	Window    time.Duration // ウィンドウ長
	MaxErrors int           // ウィンドウ内の最大エラー回数
	MaxCost   float64       // ウィンドウ内の最大累積コスト
}

// LimitsFunc は呼び出し時点の閾値を返す関数。
// 毎回読み直されるため、ウィンドウ間で再起動なしに変更できる。
type LimitsFunc func(Provider) Limits

// window はプロバイダ1つ分のスライディングウィンドウ状態。
type window struct {
	errors int
	cost   float64
	start  time.Time
}

// Guard はプロバイダごとのサーキットブレーカー本体。
// プロセス起動時に1つ生成し、各ジョブに共有参照として渡す。
type Guard struct {
	mu      sync.Mutex
	limits  LimitsFunc
	windows map[Provider]*window
	logger  *slog.Logger
	now     func() time.Time // テスト用に差し替え可能
}

// NewGuard はGuardを生成し、全プロバイダのウィンドウを初期化する。
func NewGuard(limits LimitsFunc, logger *slog.Logger) *Guard {
	g := &Guard{
		limits:  limits,
		windows: make(map[Provider]*window, len(AllProviders)),
		logger:  logger,
		now:     time.Now,
	}
	for _, p := range AllProviders {
		g.windows[p] = &window{start: g.now()}
	}
	return g
}

// CanProceed はプロバイダへの呼び出しがまだ許可されるかを返す。
// ウィンドウが経過していれば先にカウンタをリセットする。
func (g *Guard) CanProceed(p Provider) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	lim := g.limits(p)
	w := g.window(p)
	g.maybeReset(w, lim)

	ok := w.errors < lim.MaxErrors && w.cost < lim.MaxCost
	if !ok {
		g.logger.Warn("プロバイダ呼び出しが遮断されています",
			slog.String("provider", string(p)),
			slog.Int("errors", w.errors),
			slog.Float64("cost", w.cost),
		)
	}
	return ok
}

// RecordError はプロバイダのエラー回数をインクリメントする。
// 戻り値はなく、失敗もしない。
func (g *Guard) RecordError(p Provider) {
	g.mu.Lock()
	defer g.mu.Unlock()

	w := g.window(p)
	g.maybeReset(w, g.limits(p))
	w.errors++
}

// RecordCost はプロバイダの累積コストに非負の増分を加算する。
func (g *Guard) RecordCost(p Provider, amount float64) {
	if amount < 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	w := g.window(p)
	g.maybeReset(w, g.limits(p))
	w.cost += amount
}

// ErrorCount は現在のウィンドウのエラー回数を返す。テストおよびメトリクス用。
func (g *Guard) ErrorCount(p Provider) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.window(p).errors
}

// Cost は現在のウィンドウの累積コストを返す。テストおよびメトリクス用。
func (g *Guard) Cost(p Provider) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.window(p).cost
}

// window は未知のプロバイダでもゼロ値ウィンドウを割り当てて返す。
// 呼び出し元はmuを保持していること。
func (g *Guard) window(p Provider) *window {
	w, ok := g.windows[p]
	if !ok {
		w = &window{start: g.now()}
		g.windows[p] = w
	}
	return w
}

// maybeReset はウィンドウ長を経過していればカウンタをゼロに戻し、
// ウィンドウを現在時刻から再開する。呼び出し元はmuを保持していること。
func (g *Guard) maybeReset(w *window, lim Limits) {
	if g.now().Sub(w.start) > lim.Window {
		w.errors = 0
		w.cost = 0
		w.start = g.now()
	}
}
