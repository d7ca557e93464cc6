// Package metrics holds the Prometheus collectors of the assistant service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "assistant"

// Request outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Chart outcomes.
const (
	ChartRendered = "rendered"
	ChartSkipped  = "skipped"
	ChartFailed   = "failed"
)

// Metrics owns a private registry. All methods are no-ops on a nil receiver
// so components can run without metrics in tests.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	stageFailures   *prometheus.CounterVec
	charts          *prometheus.CounterVec
	llmTokens       *prometheus.CounterVec
	llmCost         *prometheus.CounterVec
	toolCalls       *prometheus.CounterVec
}

// New creates the collectors and registers them with Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Questions answered, by chat profile and outcome.",
		}, []string{"profile", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time to answer one question, by chat profile.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"profile"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "text2sql",
			Name:      "stage_failures_total",
			Help:      "Text-to-SQL pipeline failures, by stage.",
		}, []string{"stage"}),
		charts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "text2sql",
			Name:      "charts_total",
			Help:      "Chart synthesis results, by outcome.",
		}, []string{"outcome"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llm",
			Name:      "tokens_total",
			Help:      "Completion tokens used, by model and kind (prompt or completion).",
		}, []string{"model", "kind"}),
		llmCost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llm",
			Name:      "cost_usd_total",
			Help:      "Estimated completion cost in USD, by model.",
		}, []string{"model"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agent",
			Name:      "tool_calls_total",
			Help:      "Agent tool invocations, by tool and outcome.",
		}, []string{"tool", "outcome"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.stageFailures,
		m.charts,
		m.llmTokens,
		m.llmCost,
		m.toolCalls,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) ObserveRequest(profile, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(profile, outcome).Inc()
	m.requestDuration.WithLabelValues(profile).Observe(d.Seconds())
}

func (m *Metrics) StageFailed(stage string) {
	if m == nil {
		return
	}
	m.stageFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) ChartOutcome(outcome string) {
	if m == nil {
		return
	}
	m.charts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLLMUsage(model string, promptTokens, completionTokens int, costUSD float64) {
	if m == nil {
		return
	}
	m.llmTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	m.llmTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
	m.llmCost.WithLabelValues(model).Add(costUSD)
}

func (m *Metrics) ToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}
