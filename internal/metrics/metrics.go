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
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordLogin(outcome string)
	RecordAskView()
	RecordResponseCreated()
	RecordLinkCheck(result string, duration time.Duration)
	RecordSessionsPurged(count int64)
}

// リンクチェック結果のラベル。
const (
	LinkOK          = "ok"
	LinkBroken      = "broken"
	LinkBlocked     = "blocked"
	LinkUnreachable = "unreachable"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	logins           *prometheus.CounterVec
	askViews         prometheus.Counter
	responsesCreated prometheus.Counter
	linkChecks       *prometheus.CounterVec
	linkLatency      prometheus.Histogram
	sessionsPurged   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "irportal_http_requests_total",
			Help: "ルート・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "irportal_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "irportal_login_attempts_total",
			Help: "結果別のログイン試行数",
		}, []string{"outcome"}),
		askViews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irportal_ask_views_total",
			Help: "Ask閲覧の記録数",
		}),
		responsesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irportal_ask_responses_created_total",
			Help: "作成されたAsk回答の合計数",
		}),
		linkChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "irportal_document_link_checks_total",
			Help: "結果別の書類リンクチェック数",
		}, []string{"result"}),
		linkLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "irportal_document_link_check_latency_seconds",
			Help:    "書類リンクチェックのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irportal_sessions_purged_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.logins,
		c.askViews,
		c.responsesCreated,
		c.linkChecks,
		c.linkLatency,
		c.sessionsPurged,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
// routeにはURLではなくルートパターンを渡す。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// RecordAskView はAsk閲覧を記録する。
func (c *Collector) RecordAskView() {
	c.askViews.Inc()
}

// RecordResponseCreated は回答作成を記録する。
func (c *Collector) RecordResponseCreated() {
	c.responsesCreated.Inc()
}

// RecordLinkCheck は書類リンクチェックの結果を記録する。
func (c *Collector) RecordLinkCheck(result string, duration time.Duration) {
	c.linkChecks.WithLabelValues(result).Inc()
	c.linkLatency.Observe(duration.Seconds())
}

// RecordSessionsPurged は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Noop struct{}

func (Noop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Noop) RecordLogin(string)                                    {}
func (Noop) RecordAskView()                                        {}
func (Noop) RecordResponseCreated()                                {}
func (Noop) RecordLinkCheck(string, time.Duration)                 {}
func (Noop) RecordSessionsPurged(int64)                            {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Noop{}
)
