// Package metrics provides Prometheus metrics export for routing, extraction,
// backend and LLM activity.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/switchboard/ai/backend"
)

const (
	namespace = "switchboard"
	subsystem = "ai"
)

// PrometheusExporter exports metrics in Prometheus format. It implements the
// recorder interfaces of the llm, router, extract and backend packages.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Query metrics
	queries      *prometheus.CounterVec
	queryLatency *prometheus.HistogramVec

	// Routing and extraction
	routeDecisions *prometheus.CounterVec
	extractions    *prometheus.CounterVec

	// Backend metrics
	backendEvents    *prometheus.CounterVec
	backendCalls     *prometheus.CounterVec
	backendLatency   *prometheus.HistogramVec
	backendErrors    *prometheus.CounterVec
	backendConnected prometheus.Gauge

	// LLM metrics
	llmTokensUsed *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
	llmErrors     *prometheus.CounterVec
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}
}

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{
		registry:     registry,
		queries:      counterVec("queries_total", "Total number of processed queries", "tool", "status"),
		queryLatency: histogramVec("query_latency_seconds", "End-to-end query latency in seconds", cfg.LatencyBuckets, "tool"),

		routeDecisions: counterVec("route_decisions_total", "Routing decisions by primary tool and method", "tool", "method"),
		extractions:    counterVec("extractions_total", "Parameter extraction attempts by strategy", "family", "strategy", "status"),

		backendEvents:  counterVec("backend_events_total", "Backend lifecycle events", "backend", "event"),
		backendCalls:   counterVec("backend_calls_total", "Total number of backend calls", "backend", "operation", "status"),
		backendLatency: histogramVec("backend_call_latency_seconds", "Backend call latency in seconds", cfg.LatencyBuckets, "backend", "operation"),
		backendErrors:  counterVec("backend_errors_total", "Backend call errors by type", "backend", "error_type"),
		backendConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "backends_connected",
			Help:      "Number of connected backends",
		}),

		llmTokensUsed: counterVec("llm_tokens_total", "Total LLM tokens consumed", "model", "token_type"),
		llmLatency:    histogramVec("llm_latency_seconds", "LLM request latency in seconds", cfg.LatencyBuckets, "model", "provider"),
		llmErrors:     counterVec("llm_errors_total", "Total number of failed LLM requests", "model", "provider"),
	}

	registry.MustRegister(
		e.queries,
		e.queryLatency,
		e.routeDecisions,
		e.extractions,
		e.backendEvents,
		e.backendCalls,
		e.backendLatency,
		e.backendErrors,
		e.backendConnected,
		e.llmTokensUsed,
		e.llmLatency,
		e.llmErrors,
	)
	return e
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

// RecordQuery records one processed query.
func (e *PrometheusExporter) RecordQuery(tool string, latency time.Duration, success bool) {
	e.queries.WithLabelValues(tool, status(success)).Inc()
	e.queryLatency.WithLabelValues(tool).Observe(latency.Seconds())
}

// RecordRoute records a routing decision.
func (e *PrometheusExporter) RecordRoute(tool, method string) {
	e.routeDecisions.WithLabelValues(tool, method).Inc()
}

// RecordExtraction records one extraction strategy attempt.
func (e *PrometheusExporter) RecordExtraction(family, strategy string, ok bool) {
	e.extractions.WithLabelValues(family, strategy, status(ok)).Inc()
}

// RecordBackendEvent records a backend lifecycle event.
func (e *PrometheusExporter) RecordBackendEvent(backendID, event string) {
	e.backendEvents.WithLabelValues(backendID, event).Inc()
	switch event {
	case "connected":
		e.backendConnected.Inc()
	case "disconnected", "evicted":
		e.backendConnected.Dec()
	}
}

// RecordBackendCall records a backend call.
func (e *PrometheusExporter) RecordBackendCall(backendID, operation string, latency time.Duration, err error) {
	e.backendCalls.WithLabelValues(backendID, operation, status(err == nil)).Inc()
	e.backendLatency.WithLabelValues(backendID, operation).Observe(latency.Seconds())
	if err != nil {
		e.backendErrors.WithLabelValues(backendID, errorType(err)).Inc()
	}
}

func errorType(err error) string {
	var timeoutErr *backend.TimeoutError
	var toolErr *backend.ToolError
	switch {
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &toolErr):
		return "tool"
	case errors.Is(err, backend.ErrNotConnected):
		return "not_connected"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "other"
}

// RecordLLMTokens records LLM token usage.
func (e *PrometheusExporter) RecordLLMTokens(model, tokenType string, count int) {
	e.llmTokensUsed.WithLabelValues(model, tokenType).Add(float64(count))
}

// RecordLLMLatency records LLM request latency.
func (e *PrometheusExporter) RecordLLMLatency(model, provider string, latency time.Duration) {
	e.llmLatency.WithLabelValues(model, provider).Observe(latency.Seconds())
}

// RecordLLMError records a failed LLM request.
func (e *PrometheusExporter) RecordLLMError(model, provider string) {
	e.llmErrors.WithLabelValues(model, provider).Inc()
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ServeHTTP implements http.Handler for the metrics endpoint.
func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.Handler().ServeHTTP(w, r)
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}
