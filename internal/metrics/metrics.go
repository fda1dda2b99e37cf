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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordCheckoutSuccess()
	RecordCheckoutFailure(reason string)
	RecordInvoiceRenderLatency(duration time.Duration)
	RecordMailFailure()
	RecordCartOperation(op string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus           *prometheus.CounterVec
	checkoutSuccess      prometheus.Counter
	checkoutFail         *prometheus.CounterVec
	invoiceRenderLatency prometheus.Histogram
	mailFail             prometheus.Counter
	cartOps              *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tienda_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		checkoutSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tienda_checkout_success_total",
			Help: "決済確定成功の合計数",
		}),
		checkoutFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tienda_checkout_fail_total",
			Help: "決済確定失敗の合計数（理由別）",
		}, []string{"reason"}),
		invoiceRenderLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tienda_invoice_render_latency_seconds",
			Help:    "請求書PDF描画のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		mailFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tienda_mail_fail_total",
			Help: "メール送信失敗の合計数",
		}),
		cartOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tienda_cart_operations_total",
			Help: "カート操作の合計数（操作別）",
		}, []string{"op"}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.checkoutSuccess,
		c.checkoutFail,
		c.invoiceRenderLatency,
		c.mailFail,
		c.cartOps,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordCheckoutSuccess は決済確定成功を記録する。
func (c *Collector) RecordCheckoutSuccess() {
	c.checkoutSuccess.Inc()
}

// RecordCheckoutFailure は決済確定失敗を理由付きで記録する。
func (c *Collector) RecordCheckoutFailure(reason string) {
	c.checkoutFail.WithLabelValues(reason).Inc()
}

// RecordInvoiceRenderLatency は請求書PDF描画のレイテンシを記録する。
func (c *Collector) RecordInvoiceRenderLatency(duration time.Duration) {
	c.invoiceRenderLatency.Observe(duration.Seconds())
}

// RecordMailFailure はメール送信失敗を記録する。
func (c *Collector) RecordMailFailure() {
	c.mailFail.Inc()
}

// RecordCartOperation はカート操作を記録する。opは add / remove / view。
func (c *Collector) RecordCartOperation(op string) {
	c.cartOps.WithLabelValues(op).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
