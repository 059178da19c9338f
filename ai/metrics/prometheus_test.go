package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/switchboard/ai/backend"
	"github.com/hrygo/switchboard/ai/core/llm"
	"github.com/hrygo/switchboard/ai/extract"
	"github.com/hrygo/switchboard/ai/router"
)

var (
	_ llm.CallRecorder        = (*PrometheusExporter)(nil)
	_ router.DecisionRecorder = (*PrometheusExporter)(nil)
	_ extract.OutcomeRecorder = (*PrometheusExporter)(nil)
	_ backend.EventRecorder   = (*PrometheusExporter)(nil)
)

func TestPrometheusExporter_Counters(t *testing.T) {
	e := NewPrometheusExporter(DefaultConfig())

	e.RecordRoute("EMAIL", "llm")
	e.RecordRoute("EMAIL", "llm")
	e.RecordRoute("CHAT", "fallback")
	assert.Equal(t, float64(2), testutil.ToFloat64(e.routeDecisions.WithLabelValues("EMAIL", "llm")))

	e.RecordExtraction("email", "llm", false)
	e.RecordExtraction("email", "regex", true)
	assert.Equal(t, float64(1), testutil.ToFloat64(e.extractions.WithLabelValues("email", "regex", "success")))

	e.RecordBackendEvent("gmail", "connected")
	e.RecordBackendEvent("calendar", "connected")
	e.RecordBackendEvent("gmail", "evicted")
	assert.Equal(t, float64(1), testutil.ToFloat64(e.backendConnected))

	e.RecordLLMTokens("gpt-4o-mini", "prompt", 100)
	e.RecordLLMTokens("gpt-4o-mini", "prompt", 20)
	e.RecordLLMError("gpt-4o-mini", "openai")
	assert.Equal(t, float64(120), testutil.ToFloat64(e.llmTokensUsed.WithLabelValues("gpt-4o-mini", "prompt")))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.llmErrors.WithLabelValues("gpt-4o-mini", "openai")))
}

func TestPrometheusExporter_BackendErrorTypes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", &backend.TimeoutError{Operation: "send_email", After: 30 * time.Second}, "timeout"},
		{"tool", &backend.ToolError{Operation: "send_email", Message: "quota"}, "tool"},
		{"not connected", backend.ErrNotConnected, "not_connected"},
		{"other", errors.New("broken pipe"), "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewPrometheusExporter(DefaultConfig())
			e.RecordBackendCall("gmail", "send_email", 10*time.Millisecond, tt.err)
			assert.Equal(t, float64(1), testutil.ToFloat64(e.backendErrors.WithLabelValues("gmail", tt.want)))
			assert.Equal(t, float64(1), testutil.ToFloat64(e.backendCalls.WithLabelValues("gmail", "send_email", "error")))
		})
	}
}

func TestPrometheusExporter_Handler(t *testing.T) {
	e := NewPrometheusExporter(Config{})
	e.RecordQuery("EMAIL", 2*time.Second, true)
	e.RecordRoute("EMAIL", "forced")
	e.RecordBackendCall("gmail", "list_emails", 50*time.Millisecond, nil)
	e.RecordLLMLatency("gpt-4o-mini", "openai", 500*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	for _, name := range []string{
		"switchboard_ai_queries_total",
		"switchboard_ai_route_decisions_total",
		"switchboard_ai_backend_calls_total",
		"switchboard_ai_llm_latency_seconds",
	} {
		assert.Contains(t, body, name)
	}
}
