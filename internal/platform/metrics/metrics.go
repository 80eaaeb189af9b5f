package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Event の送出結果ラベルです。
const (
	EventPublished = "published"
	EventDropped   = "dropped"
	EventFailed    = "failed"
)

// Metrics はアプリケーションのメトリクスを専用レジストリで保持します。
type Metrics struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	rejections *prometheus.CounterVec
	events     *prometheus.CounterVec
}

// New はメトリクスを生成し、レジストリに登録します。
func New(service string) *Metrics {
	constLabels := prometheus.Labels{"service": service}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of HTTP requests in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "request_rejections_total",
			Help:        "Total number of rejected requests by error category",
			ConstLabels: constLabels,
		}, []string{"category"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "domain_events_total",
			Help:        "Total number of domain events by type and outcome",
			ConstLabels: constLabels,
		}, []string{"type", "outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.rejections,
		m.events,
	)
	return m
}

// Registry は内部レジストリを返します。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler は /metrics 用の HTTP ハンドラを返します。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware はリクエスト数と処理時間を記録する echo ミドルウェアです。
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method

			m.requests.WithLabelValues(method, path, status).Inc()
			m.duration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())

			return nil
		}
	}
}

// ObserveRejection はエラーカテゴリ別の拒否件数を記録します。
func (m *Metrics) ObserveRejection(category string) {
	m.rejections.WithLabelValues(category).Inc()
}

// ObserveEvent はドメインイベントの送出結果を記録します。
func (m *Metrics) ObserveEvent(eventType, outcome string) {
	m.events.WithLabelValues(eventType, outcome).Inc()
}
