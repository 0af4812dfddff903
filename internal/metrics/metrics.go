// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証結果のラベル値
const (
	AuthAccepted = "accepted"
	AuthRejected = "rejected"
	AuthError    = "error"
)

// 本人特定結果のラベル値
const (
	ResolutionFastPath    = "fast_path"
	ResolutionResolved    = "resolved"
	ResolutionUnresolved  = "unresolved"
	ResolutionBindRefused = "bind_refused"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordAuthResult(result string)
	RecordResolution(outcome string)
	RecordStoreFailure()
	RecordGroupUpdate(rows int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	authResults    *prometheus.CounterVec
	resolutions    *prometheus.CounterVec
	storeFailures  prometheus.Counter
	groupUpdates   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsvp_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rsvp_request_latency_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		authResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsvp_session_verifications_total",
			Help: "セッション検証の結果別件数",
		}, []string{"result"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsvp_identity_resolutions_total",
			Help: "招待客の本人特定の結果別件数",
		}, []string{"outcome"}),
		storeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsvp_store_failures_total",
			Help: "DB002で終了したリクエストの合計数",
		}),
		groupUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsvp_group_rows_updated_total",
			Help: "世帯一括更新で更新された行の合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.authResults,
		c.resolutions,
		c.storeFailures,
		c.groupUpdates,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordAuthResult はセッション検証の結果を記録する。
func (c *Collector) RecordAuthResult(result string) {
	c.authResults.WithLabelValues(result).Inc()
}

// RecordResolution は本人特定の結果を記録する。
func (c *Collector) RecordResolution(outcome string) {
	c.resolutions.WithLabelValues(outcome).Inc()
}

// RecordStoreFailure はストア障害を記録する。
func (c *Collector) RecordStoreFailure() {
	c.storeFailures.Inc()
}

// RecordGroupUpdate は世帯一括更新の行数を記録する。
func (c *Collector) RecordGroupUpdate(rows int) {
	c.groupUpdates.Add(float64(rows))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordHTTPStatus(int)               {}
func (Nop) RecordRequestLatency(time.Duration) {}
func (Nop) RecordAuthResult(string)            {}
func (Nop) RecordResolution(string)            {}
func (Nop) RecordStoreFailure()                {}
func (Nop) RecordGroupUpdate(int)              {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
