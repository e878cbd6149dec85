package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazyhaar/constats/pkg/match"
)

// Metrics holds the Prometheus collectors of one server. Each Metrics owns
// its registry so that several routers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry
	matches  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.matches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "constats",
		Name:      "match_total",
		Help:      "Commune name matches by resolution method (none = unmatched)",
	}, []string{"method"})
	m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "constats",
		Name:      "request_duration_seconds",
		Help:      "Endpoint latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "transport"})
	m.failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "constats",
		Name:      "request_errors_total",
		Help:      "Endpoint calls that returned an error",
	}, []string{"endpoint", "transport"})

	m.registry.MustRegister(
		m.matches,
		m.duration,
		m.failures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(endpoint, transport string, d time.Duration, err error) {
	m.duration.WithLabelValues(endpoint, transport).Observe(d.Seconds())
	if err != nil {
		m.failures.WithLabelValues(endpoint, transport).Inc()
	}
}

func (m *Metrics) recordMatch(res match.Result) {
	method := string(res.Method)
	if method == "" {
		method = "none"
	}
	m.matches.WithLabelValues(method).Inc()
}
