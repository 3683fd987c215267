// Package metrics holds the Prometheus collectors exported by the server.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eventhub"

// Metrics owns a registry so tests and multiple servers never collide on the
// global default registerer.
type Metrics struct {
	registry *prometheus.Registry

	httpDuration *prometheus.HistogramVec
	authEvents   *prometheus.CounterVec
	sweptTokens  prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		authEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_events_total",
				Help:      "Session protocol operations by event and outcome",
			},
			[]string{"event", "success"},
		),
		sweptTokens: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_tokens_swept_total",
			Help:      "Expired refresh tokens removed by the cleanup job",
		}),
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}

// RecordAuth counts a register/login/refresh/logout outcome.
func (m *Metrics) RecordAuth(event string, success bool) {
	m.authEvents.WithLabelValues(event, strconv.FormatBool(success)).Inc()
}

// AddSwept counts refresh tokens removed by the sweep.
func (m *Metrics) AddSwept(n int64) {
	if n > 0 {
		m.sweptTokens.Add(float64(n))
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
