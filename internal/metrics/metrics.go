// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミューテーション層・スナップショット・ワーカー・ミドルウェアから利用する。
type MetricsCollector interface {
	RecordMutation(kind, outcome string)
	RecordMutationLatency(kind string, duration time.Duration)
	RecordLogin(policy string, success bool)
	RecordProjection(name string)
	RecordSnapshotSave(success bool)
	RecordSessionsCleaned(count int64)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	mutations       *prometheus.CounterVec
	mutationLatency *prometheus.HistogramVec
	logins          *prometheus.CounterVec
	projections     *prometheus.CounterVec
	snapshotSaves   *prometheus.CounterVec
	sessionsCleaned prometheus.Counter
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_mutations_total",
			Help: "種類・結果別のミューテーション実行数",
		}, []string{"kind", "outcome"}),
		mutationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobboard_mutation_latency_seconds",
			Help:    "ミューテーションのレイテンシ（秒）",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"kind"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_logins_total",
			Help: "ロール解決ポリシー・結果別のログイン試行数",
		}, []string{"policy", "result"}),
		projections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_projections_total",
			Help: "射影クエリ別の実行数",
		}, []string{"name"}),
		snapshotSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_snapshot_saves_total",
			Help: "求人スナップショット保存の結果別件数",
		}, []string{"result"}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobboard_sessions_cleaned_total",
			Help: "クリーンアップで削除された期限切れセッション数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.mutations,
		c.mutationLatency,
		c.logins,
		c.projections,
		c.snapshotSaves,
		c.sessionsCleaned,
		c.httpStatus,
	)

	return c
}

// RecordMutation はミューテーションの結果を記録する。outcomeは"ok"またはエラーコード。
func (c *Collector) RecordMutation(kind, outcome string) {
	c.mutations.WithLabelValues(kind, outcome).Inc()
}

// RecordMutationLatency はミューテーションのレイテンシを記録する。
func (c *Collector) RecordMutationLatency(kind string, duration time.Duration) {
	c.mutationLatency.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordLogin はログイン試行を記録する。
func (c *Collector) RecordLogin(policy string, success bool) {
	c.logins.WithLabelValues(policy, resultLabel(success)).Inc()
}

// RecordProjection は射影クエリの実行を記録する。
func (c *Collector) RecordProjection(name string) {
	c.projections.WithLabelValues(name).Inc()
}

// RecordSnapshotSave はスナップショット保存の結果を記録する。
func (c *Collector) RecordSnapshotSave(success bool) {
	c.snapshotSaves.WithLabelValues(resultLabel(success)).Inc()
}

// RecordSessionsCleaned は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordMutation(string, string)               {}
func (Nop) RecordMutationLatency(string, time.Duration) {}
func (Nop) RecordLogin(string, bool)                    {}
func (Nop) RecordProjection(string)                     {}
func (Nop) RecordSnapshotSave(bool)                     {}
func (Nop) RecordSessionsCleaned(int64)                 {}
func (Nop) RecordHTTPStatus(int)                        {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
