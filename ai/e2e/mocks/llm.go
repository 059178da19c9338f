// Package mocks provides scripted collaborators for package tests.
package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/hrygo/switchboard/ai/core/llm"
)

type rule struct {
	contains string
	response string
	err      error
	block    bool
}

// MockLLM is a scripted llm.Service. Rules match when the prompt (all message
// contents joined) contains the rule's substring; the first matching rule wins.
type MockLLM struct {
	mu              sync.Mutex
	rules           []rule
	defaultResponse string
	defaultErr      error
	calls           []string
}

// NewMockLLM creates a MockLLM that answers "Mock response" by default.
func NewMockLLM() *MockLLM {
	return &MockLLM{defaultResponse: "Mock response"}
}

// WithResponse answers output to prompts containing substr.
func (m *MockLLM) WithResponse(substr, output string) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule{contains: substr, response: output})
	return m
}

// WithError fails prompts containing substr.
func (m *MockLLM) WithError(substr string, err error) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule{contains: substr, err: err})
	return m
}

// WithBlock makes prompts containing substr wait until their context ends.
func (m *MockLLM) WithBlock(substr string) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule{contains: substr, block: true})
	return m
}

// WithDefaultResponse sets the answer when no rule matches.
func (m *MockLLM) WithDefaultResponse(output string) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResponse = output
	m.defaultErr = nil
	return m
}

// WithDefaultError makes unmatched prompts fail.
func (m *MockLLM) WithDefaultError(err error) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultErr = err
	return m
}

// Calls returns the prompts received so far.
func (m *MockLLM) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many prompts contained substr.
func (m *MockLLM) CallCount(substr string) int {
	n := 0
	for _, c := range m.Calls() {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}

// Chat implements llm.Service.
func (m *MockLLM) Chat(ctx context.Context, msgs []llm.Message) (string, *llm.LLMCallStats, error) {
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		parts = append(parts, msg.Content)
	}
	prompt := strings.Join(parts, "\n")

	m.mu.Lock()
	m.calls = append(m.calls, prompt)
	var matched *rule
	for i := range m.rules {
		if strings.Contains(prompt, m.rules[i].contains) {
			matched = &m.rules[i]
			break
		}
	}
	defaultResponse, defaultErr := m.defaultResponse, m.defaultErr
	m.mu.Unlock()

	stats := &llm.LLMCallStats{}
	if matched == nil {
		if defaultErr != nil {
			return "", nil, defaultErr
		}
		return defaultResponse, stats, nil
	}
	if matched.block {
		<-ctx.Done()
		return "", nil, ctx.Err()
	}
	if matched.err != nil {
		return "", nil, matched.err
	}
	return matched.response, stats, nil
}

// Warmup implements llm.Service (no-op).
func (m *MockLLM) Warmup(context.Context) {}

var _ llm.Service = (*MockLLM)(nil)
