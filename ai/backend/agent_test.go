package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/switchboard/ai/agents/registry"
	"github.com/hrygo/switchboard/ai/agents/universal"
	"github.com/hrygo/switchboard/ai/e2e/mocks"
)

type handleLauncher struct{ h Handle }

func (l handleLauncher) Launch(context.Context, string) (Handle, error) { return l.h, nil }

func TestAgentCallsWrappedBackend(t *testing.T) {
	h, _ := connectInMemory(t, Spec{WrapInput: true})
	m := NewManager(handleLauncher{h}, Options{Settle: -1})
	reg := registry.New()
	_, err := m.EnsureConnected(context.Background(), Gmail, reg)
	require.NoError(t, err)

	op, ok := reg.Get("list_emails")
	require.True(t, ok)
	assert.Contains(t, op.InputSchema["properties"], "query")

	llm := mocks.NewMockLLM().
		WithResponse("[Result from list_emails]", `{"final_answer": "One unread email."}`).
		WithDefaultResponse(`{"thought": "check inbox", "action": "list_emails", "params": {"query": "is:unread"}}`)
	agent := universal.New(universal.Config{
		LLM:      llm,
		Registry: reg,
		Invoker:  m,
		Now:      func() time.Time { return time.Date(2025, 10, 28, 9, 30, 0, 0, time.UTC) },
	})

	answer, _, err := agent.Run(context.Background(), "any unread mail?", []string{Gmail}, nil)
	require.NoError(t, err)
	assert.Equal(t, "One unread email.", answer)

	calls := llm.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0], `"query":{"type":"string"}`)
	assert.NotContains(t, calls[0], "$ref")
	assert.Contains(t, calls[1], `"input_data":{"query":"is:unread"}`)
	assert.NotContains(t, calls[1], `"input_data":{"input_data"`)
}
