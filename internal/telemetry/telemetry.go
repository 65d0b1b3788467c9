// Package telemetry はPrometheusメトリクスの収集と公開を提供する。
// アプリケーションのドメインリソース「メトリクス」(SEO指標)と区別するため、
// 運用メトリクスはこのパッケージに分離している。
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TelemetryCollector は運用メトリクス収集のインターフェース。
// ワーカーやミドルウェアから利用する。
type TelemetryCollector interface {
	RecordCollectSuccess(siteID string)
	RecordCollectFailure(siteID string, reason string)
	RecordCollectLatency(duration time.Duration)
	RecordSampleRecorded()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	collectSuccess prometheus.Counter
	collectFail    *prometheus.CounterVec
	collectLatency prometheus.Histogram
	samples        prometheus.Counter
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		collectSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seotrack_collect_success_total",
			Help: "サイト計測成功の合計数",
		}),
		collectFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seotrack_collect_fail_total",
			Help: "サイト計測失敗の理由別合計数",
		}, []string{"reason"}),
		collectLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "seotrack_collect_latency_seconds",
			Help:    "サイト計測のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seotrack_samples_recorded_total",
			Help: "記録されたメトリクスサンプルの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seotrack_http_status_total",
			Help: "APIレスポンスのHTTPステータスコード別合計数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.collectSuccess,
		c.collectFail,
		c.collectLatency,
		c.samples,
		c.httpStatus,
	)

	return c
}

// RecordCollectSuccess はサイト計測の成功を記録する。
func (c *Collector) RecordCollectSuccess(siteID string) {
	c.collectSuccess.Inc()
}

// RecordCollectFailure はサイト計測の失敗を理由付きで記録する。
func (c *Collector) RecordCollectFailure(siteID string, reason string) {
	c.collectFail.WithLabelValues(reason).Inc()
}

// RecordCollectLatency はサイト計測のレイテンシを記録する。
func (c *Collector) RecordCollectLatency(duration time.Duration) {
	c.collectLatency.Observe(duration.Seconds())
}

// RecordSampleRecorded はメトリクスサンプルの記録を1件カウントする。
func (c *Collector) RecordSampleRecorded() {
	c.samples.Inc()
}

// RecordHTTPStatus はAPIレスポンスのHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
