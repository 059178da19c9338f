package universal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/switchboard/ai/agents/events"
	"github.com/hrygo/switchboard/ai/agents/registry"
	"github.com/hrygo/switchboard/ai/e2e/mocks"
)

type fakeInvoker struct {
	out   string
	err   error
	calls []string
}

func (f *fakeInvoker) Call(_ context.Context, backend, operation string, params map[string]any) (string, error) {
	f.calls = append(f.calls, backend+"/"+operation)
	return f.out, f.err
}

func newTestRegistry() *registry.Registry {
	reg := registry.New()
	reg.RegisterAll([]registry.Operation{
		{Name: "list_emails", Description: "List emails", Backend: "gmail",
			InputSchema: map[string]any{"properties": map[string]any{"query": map[string]any{"type": "string"}}}},
		{Name: "list_calendar_events", Description: "List events", Backend: "calendar"},
	})
	return reg
}

func newTestAgent(m *mocks.MockLLM, inv Invoker, reg *registry.Registry) *Agent {
	return New(Config{
		LLM:      m,
		Registry: reg,
		Invoker:  inv,
		Now:      func() time.Time { return time.Date(2025, 10, 28, 9, 30, 0, 0, time.UTC) },
	})
}

func TestAgent_CallsOperationThenAnswers(t *testing.T) {
	m := mocks.NewMockLLM().
		WithResponse("[Result from list_emails]", `{"thought": "done", "final_answer": "You have 2 unread emails."}`).
		WithDefaultResponse("```json\n{\"thought\": \"check inbox\", \"action\": \"list_emails\", \"params\": {\"query\": \"is:unread\"}}\n```")
	inv := &fakeInvoker{out: "2 emails"}
	reg := newTestRegistry()

	var seen []string
	answer, stats, err := newTestAgent(m, inv, reg).Run(context.Background(), "any unread mail?", []string{"gmail"},
		func(eventType string, _ any) error {
			seen = append(seen, eventType)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, "You have 2 unread emails.", answer)
	assert.Equal(t, []string{"gmail/list_emails"}, inv.calls)
	assert.Equal(t, 2, stats.LLMCalls)
	assert.Equal(t, 1, stats.ToolCalls)
	assert.Equal(t, []string{events.EventThinking, events.EventToolCall, events.EventThinking, events.EventResult}, seen)

	execStats, ok := reg.Stats("list_emails")
	require.True(t, ok)
	assert.Equal(t, int64(1), execStats.ExecutionCount)

	prompt := m.Calls()[0]
	assert.Contains(t, prompt, "- list_emails: List emails")
	assert.Contains(t, prompt, `Parameters: {"query":{"type":"string"}}`)
	assert.NotContains(t, prompt, "list_calendar_events")
	assert.Contains(t, prompt, `"today": "2025-10-28"`)
}

func TestAgent_NoLLM(t *testing.T) {
	inv := &fakeInvoker{}
	agent := New(Config{Registry: newTestRegistry(), Invoker: inv})

	_, _, err := agent.Run(context.Background(), "delete the dentist event", []string{"calendar"}, nil)
	require.ErrorIs(t, err, ErrNoLLM)
	assert.Empty(t, inv.calls)
}

func TestAgent_OperationErrorsAreFedBack(t *testing.T) {
	m := mocks.NewMockLLM().
		WithResponse("Error: token expired", `{"final_answer": "Gmail needs re-authentication."}`).
		WithDefaultResponse(`{"action": "list_emails", "params": {}}`)
	inv := &fakeInvoker{err: errors.New("token expired")}
	reg := newTestRegistry()

	answer, _, err := newTestAgent(m, inv, reg).Run(context.Background(), "check mail", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Gmail needs re-authentication.", answer)

	execStats, _ := reg.Stats("list_emails")
	assert.Equal(t, int64(1), execStats.ErrorCount)
}

func TestAgent_ProseIsFinalAnswer(t *testing.T) {
	m := mocks.NewMockLLM().WithDefaultResponse("Your calendar is empty tomorrow.")
	answer, stats, err := newTestAgent(m, &fakeInvoker{}, newTestRegistry()).Run(context.Background(), "calendar tomorrow?", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Your calendar is empty tomorrow.", answer)
	assert.Equal(t, 0, stats.ToolCalls)
}

func TestAgent_Failures(t *testing.T) {
	t.Run("unknown operation then max iterations", func(t *testing.T) {
		m := mocks.NewMockLLM().WithDefaultResponse(`{"action": "delete_everything"}`)
		inv := &fakeInvoker{}
		_, stats, err := newTestAgent(m, inv, newTestRegistry()).Run(context.Background(), "q", nil, nil)
		assert.ErrorIs(t, err, ErrMaxIterations)
		assert.Equal(t, defaultMaxIterations, stats.Iterations)
		assert.Empty(t, inv.calls)
	})

	t.Run("llm error", func(t *testing.T) {
		m := mocks.NewMockLLM().WithDefaultError(errors.New("offline"))
		_, _, err := newTestAgent(m, &fakeInvoker{}, newTestRegistry()).Run(context.Background(), "q", nil, nil)
		assert.ErrorContains(t, err, "offline")
	})

	t.Run("no operations", func(t *testing.T) {
		m := mocks.NewMockLLM()
		_, _, err := newTestAgent(m, &fakeInvoker{}, newTestRegistry()).Run(context.Background(), "q", []string{"browser"}, nil)
		assert.Error(t, err)
		assert.Empty(t, m.Calls())
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := newTestAgent(mocks.NewMockLLM(), &fakeInvoker{}, newTestRegistry()).Run(ctx, "q", nil, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
