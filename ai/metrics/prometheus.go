// Package metrics provides Prometheus metrics export for the QA pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter exports pipeline metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Question pipeline metrics
	questions       *prometheus.CounterVec
	questionLatency *prometheus.HistogramVec
	questionRetries prometheus.Histogram
	fallbackSearch  *prometheus.CounterVec

	// LLM metrics
	llmTokensUsed *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec

	// Profile update metrics
	profileUpdates *prometheus.CounterVec
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
		LatencyBuckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
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

	e := &PrometheusExporter{registry: registry}

	e.questions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clare",
			Subsystem: "tutor",
			Name:      "questions_total",
			Help:      "Total number of answered questions",
		},
		[]string{"route", "terminal_state"},
	)

	e.questionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clare",
			Subsystem: "tutor",
			Name:      "question_latency_seconds",
			Help:      "End-to-end question latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"route"},
	)

	e.questionRetries = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clare",
			Subsystem: "tutor",
			Name:      "question_retries",
			Help:      "Rewrite cycles consumed per question",
			Buckets:   []float64{0, 1, 2, 3, 4},
		},
	)

	e.fallbackSearch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clare",
			Subsystem: "tutor",
			Name:      "fallback_search_total",
			Help:      "Web search fallback activations",
		},
		[]string{"status"},
	)

	e.llmTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clare",
			Subsystem: "ai",
			Name:      "llm_tokens_total",
			Help:      "Total LLM tokens consumed",
		},
		[]string{"model", "token_type"},
	)

	e.llmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clare",
			Subsystem: "ai",
			Name:      "llm_latency_seconds",
			Help:      "LLM request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"model"},
	)

	e.profileUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clare",
			Subsystem: "learner",
			Name:      "profile_updates_total",
			Help:      "Learner profile merge operations",
		},
		[]string{"trigger", "status"},
	)

	registry.MustRegister(
		e.questions,
		e.questionLatency,
		e.questionRetries,
		e.fallbackSearch,
		e.llmTokensUsed,
		e.llmLatency,
		e.profileUpdates,
	)

	return e
}

// RecordQuestion records a completed question.
func (e *PrometheusExporter) RecordQuestion(route, terminalState string, retries int, latency time.Duration) {
	e.questions.WithLabelValues(route, terminalState).Inc()
	e.questionLatency.WithLabelValues(route).Observe(latency.Seconds())
	e.questionRetries.Observe(float64(retries))
}

// RecordFallbackSearch records a web search fallback activation.
func (e *PrometheusExporter) RecordFallbackSearch(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	e.fallbackSearch.WithLabelValues(status).Inc()
}

// RecordLLMTokens records LLM token usage.
func (e *PrometheusExporter) RecordLLMTokens(model, tokenType string, count int) {
	e.llmTokensUsed.WithLabelValues(model, tokenType).Add(float64(count))
}

// RecordLLMLatency records LLM request latency.
func (e *PrometheusExporter) RecordLLMLatency(model string, latency time.Duration) {
	e.llmLatency.WithLabelValues(model).Observe(latency.Seconds())
}

// RecordProfileUpdate records a learner profile merge.
func (e *PrometheusExporter) RecordProfileUpdate(trigger string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	e.profileUpdates.WithLabelValues(trigger, status).Inc()
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}
