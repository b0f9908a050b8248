// Package metrics exports engine and HTTP metrics to Prometheus and keeps
// a log of slow operations.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mimo"

// Collector owns a private Prometheus registry so that several servers can
// live in one process
type Collector struct {
	registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationErrors   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	documentsReturned *prometheus.HistogramVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	activeCursors prometheus.Gauge
	rateLimited   prometheus.Counter

	startTime time.Time
}

// NewCollector creates a collector with Go runtime and process metrics
// registered
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Engine operations by kind and collection",
		}, []string{"operation", "collection"}),
		operationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Failed engine operations by kind",
		}, []string{"operation"}),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
		}, []string{"operation"}),
		documentsReturned: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "documents_returned",
			Help:      "Documents returned per operation",
			Buckets:   []float64{0, 1, 10, 100, 1000, 10000},
		}, []string{"operation"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		activeCursors: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_cursors",
			Help:      "Open server side cursors",
		}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
		startTime: time.Now(),
	}
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordOperation records one engine operation. returned is the number of
// documents produced, negative when not applicable.
func (c *Collector) RecordOperation(operation, collection string, duration time.Duration, returned int, err error) {
	c.operations.WithLabelValues(operation, collection).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		c.operationErrors.WithLabelValues(operation).Inc()
		return
	}
	if returned >= 0 {
		c.documentsReturned.WithLabelValues(operation).Observe(float64(returned))
	}
}

// RecordRequest records a finished HTTP request
func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetActiveCursors sets the open cursor gauge
func (c *Collector) SetActiveCursors(n int) {
	c.activeCursors.Set(float64(n))
}

// RecordRateLimited counts a rejected request
func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

// RegisterGauge exposes a value computed at scrape time, such as cache
// statistics
func (c *Collector) RegisterGauge(name, help string, fn func() float64) error {
	return c.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// Uptime returns the time since the collector was created
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}
