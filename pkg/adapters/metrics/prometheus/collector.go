package prometheus

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream call outcomes
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Collector records request timing metrics on a private registry
type Collector struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge

	upstreamCalls    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec

	processOnce sync.Once
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of handled HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"route", "method", "status"},
		),
		requestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being served",
			},
		),
		upstreamCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_client_requests_total",
				Help: "Total number of outbound HTTP calls",
			},
			[]string{"target", "outcome"},
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_client_request_duration_seconds",
				Help:    "Outbound HTTP call duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"target"},
		),
	}
}

// RegisterProcessCollectors registers the Go runtime and process collectors
// (GC, goroutines, threads, memory, file descriptors). Repeated calls are no-ops.
func (c *Collector) RegisterProcessCollectors() {
	c.processOnce.Do(func() {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// Registry returns the registry backing this collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler exposing the collector's registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// IncInFlight marks the start of a request
func (c *Collector) IncInFlight() {
	c.requestsInFlight.Inc()
}

// DecInFlight marks the end of a request
func (c *Collector) DecInFlight() {
	c.requestsInFlight.Dec()
}

// ObserveRequest records a finished request
func (c *Collector) ObserveRequest(route, method string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	c.requestsTotal.WithLabelValues(route, method, code).Inc()
	c.requestDuration.WithLabelValues(route, method, code).Observe(duration.Seconds())
}

// ObserveUpstream records an outbound call
func (c *Collector) ObserveUpstream(target string, duration time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	c.upstreamCalls.WithLabelValues(target, outcome).Inc()
	c.upstreamDuration.WithLabelValues(target).Observe(duration.Seconds())
}
