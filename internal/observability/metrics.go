// Package observability is the non-cost half of Observability / Cost
// (spec.md §4.10): structured logging, Prometheus metrics, and OpenTelemetry
// tracing for turns, provider calls, and tool dispatch.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the turn driver, provider
// abstraction, and tool manager. A nil *Metrics is valid and every method
// is a no-op on it, so callers can wire metrics optionally without a
// feature flag.
type Metrics struct {
	registry *prometheus.Registry

	turnsStarted   *prometheus.CounterVec
	turnDuration   *prometheus.HistogramVec
	turnsCancelled *prometheus.CounterVec

	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	providerErrors   *prometheus.CounterVec
	providerTokens   *prometheus.CounterVec

	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	toolDenied   *prometheus.CounterVec

	sessionsActive *prometheus.GaugeVec
}

// NewMetrics builds a Metrics instance registered under namespace (e.g.
// "agentcore").
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.turnsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "turn", Name: "started_total",
		Help: "Total number of turns started.",
	}, []string{"provider"})
	m.turnDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "turn", Name: "duration_seconds",
		Help:    "Turn duration in seconds, from first provider call to final event.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
	}, []string{"provider"})
	m.turnsCancelled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "turn", Name: "cancelled_total",
		Help: "Total number of turns that ended via cancellation.",
	}, []string{"reason"})

	m.providerCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "provider", Name: "calls_total",
		Help: "Total number of provider completion requests.",
	}, []string{"provider", "model"})
	m.providerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "provider", Name: "call_duration_seconds",
		Help:    "Provider completion request duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"provider", "model"})
	m.providerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "provider", Name: "errors_total",
		Help: "Total number of provider completion errors by kind.",
	}, []string{"provider", "model", "kind"})
	m.providerTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "provider", Name: "tokens_total",
		Help: "Total tokens consumed, by direction (input/output/cached).",
	}, []string{"provider", "model", "direction"})

	m.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "tool", Name: "calls_total",
		Help: "Total number of tool dispatches.",
	}, []string{"tool"})
	m.toolDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "tool", Name: "call_duration_seconds",
		Help:    "Tool dispatch duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
	}, []string{"tool"})
	m.toolDenied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "tool", Name: "denied_total",
		Help: "Total number of tool calls denied by the permission manager.",
	}, []string{"tool"})

	m.sessionsActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "session", Name: "active",
		Help: "Number of sessions currently held by the session manager.",
	}, []string{})

	m.registry.MustRegister(
		m.turnsStarted, m.turnDuration, m.turnsCancelled,
		m.providerCalls, m.providerDuration, m.providerErrors, m.providerTokens,
		m.toolCalls, m.toolDuration, m.toolDenied,
		m.sessionsActive,
	)
	return m
}

func (m *Metrics) RecordTurnStarted(provider string) {
	if m == nil {
		return
	}
	m.turnsStarted.WithLabelValues(provider).Inc()
}

func (m *Metrics) RecordTurnDuration(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.turnDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) RecordTurnCancelled(reason string) {
	if m == nil {
		return
	}
	m.turnsCancelled.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordProviderCall(provider, model string, d time.Duration) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(provider, model).Inc()
	m.providerDuration.WithLabelValues(provider, model).Observe(d.Seconds())
}

func (m *Metrics) RecordProviderError(provider, model, kind string) {
	if m == nil {
		return
	}
	m.providerErrors.WithLabelValues(provider, model, kind).Inc()
}

func (m *Metrics) RecordProviderTokens(provider, model string, input, output, cached int) {
	if m == nil {
		return
	}
	m.providerTokens.WithLabelValues(provider, model, "input").Add(float64(input))
	m.providerTokens.WithLabelValues(provider, model, "output").Add(float64(output))
	m.providerTokens.WithLabelValues(provider, model, "cached").Add(float64(cached))
}

func (m *Metrics) RecordToolCall(tool string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

func (m *Metrics) RecordToolDenied(tool string) {
	if m == nil {
		return
	}
	m.toolDenied.WithLabelValues(tool).Inc()
}

func (m *Metrics) SetSessionsActive(count int) {
	if m == nil {
		return
	}
	m.sessionsActive.WithLabelValues().Set(float64(count))
}

// Handler returns the Prometheus scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
