package monitoring

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector manages Prometheus metrics for a service
type MetricsCollector struct {
	serviceName string
	registerer  prometheus.Registerer
	gatherer    prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	activeConnections   prometheus.Gauge
}

// NewMetricsCollector registers the HTTP metrics on reg. A nil reg uses a fresh registry.
func NewMetricsCollector(serviceName string, reg *prometheus.Registry) *MetricsCollector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	// Prometheus names cannot contain hyphens
	sanitized := strings.ReplaceAll(serviceName, "-", "_")

	mc := &MetricsCollector{
		serviceName: sanitized,
		registerer:  reg,
		gatherer:    reg,
	}

	mc.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: mc.serviceName + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	mc.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    mc.serviceName + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	mc.activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: mc.serviceName + "_active_connections",
			Help: "Number of active connections",
		},
	)

	reg.MustRegister(mc.httpRequestsTotal, mc.httpRequestDuration, mc.activeConnections)
	return mc
}

// MetricsMiddleware returns middleware that collects HTTP metrics
func (mc *MetricsCollector) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		mc.activeConnections.Inc()
		defer mc.activeConnections.Dec()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())

		mc.httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		mc.httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the Prometheus metrics HTTP handler
func (mc *MetricsCollector) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(mc.gatherer, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// NewCounter creates a new counter metric for the service
func (mc *MetricsCollector) NewCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: mc.serviceName + "_" + name,
			Help: help,
		},
		labels,
	)
	mc.registerer.MustRegister(counter)
	return counter
}

// NewGauge creates a new gauge metric for the service
func (mc *MetricsCollector) NewGauge(name, help string) prometheus.Gauge {
	gauge := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: mc.serviceName + "_" + name,
			Help: help,
		},
	)
	mc.registerer.MustRegister(gauge)
	return gauge
}

// PipelineMetrics are the comment intake counters. A nil *PipelineMetrics records nothing.
type PipelineMetrics struct {
	Comments      *prometheus.CounterVec
	Dispatches    *prometheus.CounterVec
	MemoryRecords *prometheus.CounterVec
	LedgerEntries prometheus.Gauge
}

func NewPipelineMetrics(mc *MetricsCollector) *PipelineMetrics {
	return &PipelineMetrics{
		Comments:      mc.NewCounter("comments_total", "Comments processed by terminal state", []string{"state"}),
		Dispatches:    mc.NewCounter("dispatch_total", "Reply dispatch attempts by result", []string{"result"}),
		MemoryRecords: mc.NewCounter("memory_records_total", "Memory writes by kind and result", []string{"kind", "result"}),
		LedgerEntries: mc.NewGauge("ledger_entries", "Comment ids in the dedup ledger"),
	}
}

func (m *PipelineMetrics) ObserveComment(state string) {
	if m == nil || m.Comments == nil {
		return
	}
	m.Comments.WithLabelValues(state).Inc()
}

func (m *PipelineMetrics) ObserveDispatch(ok bool) {
	if m == nil || m.Dispatches == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.Dispatches.WithLabelValues(result).Inc()
}

func (m *PipelineMetrics) ObserveMemoryRecord(kind, result string) {
	if m == nil || m.MemoryRecords == nil {
		return
	}
	m.MemoryRecords.WithLabelValues(kind, result).Inc()
}

func (m *PipelineMetrics) SetLedgerEntries(n int) {
	if m == nil || m.LedgerEntries == nil {
		return
	}
	m.LedgerEntries.Set(float64(n))
}
