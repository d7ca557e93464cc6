package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveRequest("Text-to-SQL", OutcomeOK, 2*time.Second)
	m.ObserveRequest("Text-to-SQL", OutcomeError, time.Second)
	m.StageFailed("execute")
	m.ChartOutcome(ChartRendered)
	m.ObserveLLMUsage("gpt-4o-mini", 100, 20, 0.5)
	m.ToolCall("get_match_by_key", OutcomeOK)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("Text-to-SQL", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageFailures.WithLabelValues("execute")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.charts.WithLabelValues(ChartRendered)))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.llmTokens.WithLabelValues("gpt-4o-mini", "prompt")))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.llmTokens.WithLabelValues("gpt-4o-mini", "completion")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.llmCost.WithLabelValues("gpt-4o-mini")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("get_match_by_key", OutcomeOK)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("RAG", OutcomeOK, time.Second)
		m.StageFailed("synthesize")
		m.ChartOutcome(ChartFailed)
		m.ObserveLLMUsage("x", 1, 1, 1)
		m.ToolCall("t", OutcomeError)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.StageFailed("validate")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `text2sql_stage_failures_total{stage="validate"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
