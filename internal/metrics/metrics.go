// Package metrics exposes Prometheus counters for the API, the lifecycle engine
// and the escalation sweeps.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one process. Each instance owns its registry so
// tests can build as many as they need.
type Metrics struct {
	Registry *prometheus.Registry

	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	Transitions    *prometheus.CounterVec
	SweepEscalated *prometheus.CounterVec
	SweepRuns      *prometheus.CounterVec
	DroppedEffects *prometheus.CounterVec
}

// New registers the collectors under the given namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "transitions_total",
				Help:      "Committed complaint status transitions by action",
			},
			[]string{"action"},
		),
		SweepEscalated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "escalation",
				Name:      "escalated_total",
				Help:      "Complaints escalated by the sweeps",
			},
			[]string{"sweep"},
		),
		SweepRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "escalation",
				Name:      "runs_total",
				Help:      "Sweep invocations by outcome",
			},
			[]string{"sweep", "outcome"},
		),
		DroppedEffects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "dropped_side_effects_total",
				Help:      "History or notification writes that failed and were swallowed",
			},
			[]string{"kind"},
		),
	}
}

// ObserveTransition counts one committed transition. Safe on a nil receiver.
func (m *Metrics) ObserveTransition(action string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(action).Inc()
}

// ObserveSweep records a sweep invocation. Safe on a nil receiver.
func (m *Metrics) ObserveSweep(sweep string, escalated int, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SweepRuns.WithLabelValues(sweep, outcome).Inc()
	m.SweepEscalated.WithLabelValues(sweep).Add(float64(escalated))
}

// ObserveDropped counts a swallowed secondary failure. Safe on a nil receiver.
func (m *Metrics) ObserveDropped(kind string) {
	if m == nil {
		return
	}
	m.DroppedEffects.WithLabelValues(kind).Inc()
}

// GinMiddleware records request count, latency and in-flight requests.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
		m.RequestCounter.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
