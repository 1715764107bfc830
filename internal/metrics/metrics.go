// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordEnrichItem(status string)
	RecordPreviewItem(status string)
	RecordProviderTripped(provider string)
	RecordPagePatch()
	ObserveJobDuration(job string, d time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	enrichItems     *prometheus.CounterVec
	previewItems    *prometheus.CounterVec
	providerTripped *prometheus.CounterVec
	pagePatches     prometheus.Counter
	jobDuration     *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		enrichItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "siteforge_enrich_items_total",
			Help: "エンリッチジョブの処理結果別のページ数",
		}, []string{"status"}),
		previewItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "siteforge_preview_items_total",
			Help: "プレビューバッチの処理結果別のビジネス数",
		}, []string{"status"}),
		providerTripped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "siteforge_provider_tripped_total",
			Help: "サーキットブレーカーによるプロバイダ別のスキップ数",
		}, []string{"provider"}),
		pagePatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "siteforge_page_patches_total",
			Help: "適用されたページ編集の合計数",
		}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "siteforge_job_duration_seconds",
			Help:    "バッチジョブの実行時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
	}

	reg.MustRegister(
		c.enrichItems,
		c.previewItems,
		c.providerTripped,
		c.pagePatches,
		c.jobDuration,
	)

	return c
}

// RecordEnrichItem はエンリッチジョブのページ処理結果を記録する。
func (c *Collector) RecordEnrichItem(status string) {
	c.enrichItems.WithLabelValues(status).Inc()
}

// RecordPreviewItem はプレビューバッチの処理結果を記録する。
func (c *Collector) RecordPreviewItem(status string) {
	c.previewItems.WithLabelValues(status).Inc()
}

// RecordProviderTripped はサーキットブレーカーによるスキップを記録する。
func (c *Collector) RecordProviderTripped(provider string) {
	c.providerTripped.WithLabelValues(provider).Inc()
}

// RecordPagePatch はページ編集の適用を記録する。
func (c *Collector) RecordPagePatch() {
	c.pagePatches.Inc()
}

// ObserveJobDuration はバッチジョブの実行時間を記録する。
func (c *Collector) ObserveJobDuration(job string, d time.Duration) {
	c.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
