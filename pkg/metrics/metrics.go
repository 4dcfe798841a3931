package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服务指标，每个实例使用独立的 Registry
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	LoginAttempts    *prometheus.CounterVec
	NotesCreated     *prometheus.CounterVec
	QuotaRejections  *prometheus.CounterVec
	PolicyDenials    *prometheus.CounterVec
	TenantNotesGauge *prometheus.GaugeVec
}

// New 创建并注册指标
func New(serviceName string) *Metrics {
	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: constLabels,
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "Duration of HTTP requests in seconds",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: constLabels,
			},
			[]string{"method", "path", "status"},
		),
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "auth_login_attempts_total",
				Help:        "Login attempts by result",
				ConstLabels: constLabels,
			},
			[]string{"result"},
		),
		NotesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "notes_created_total",
				Help:        "Notes created per tenant",
				ConstLabels: constLabels,
			},
			[]string{"tenant"},
		),
		QuotaRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "notes_quota_rejections_total",
				Help:        "Note creations rejected by the free plan quota",
				ConstLabels: constLabels,
			},
			[]string{"tenant"},
		),
		PolicyDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "policy_denials_total",
				Help:        "Requests denied by the access policy",
				ConstLabels: constLabels,
			},
			[]string{"operation", "reason"},
		),
		TenantNotesGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "tenant_notes",
				Help:        "Current note count per tenant, refreshed by the usage report",
				ConstLabels: constLabels,
			},
			[]string{"tenant", "plan"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCounter,
		m.RequestDuration,
		m.LoginAttempts,
		m.NotesCreated,
		m.QuotaRejections,
		m.PolicyDenials,
		m.TenantNotesGauge,
	)
	return m
}

// Middleware 记录请求数量与耗时，path 使用路由模板避免高基数
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.RequestCounter.WithLabelValues(c.Request.Method, path, status).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler 暴露 Prometheus 指标
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回底层 Registry，供测试读取
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
