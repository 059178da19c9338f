// Package universal provides the agent-based reasoning fallback: a ReAct loop
// in which the LLM picks registered backend operations until it can answer.
package universal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/switchboard/ai/agents/events"
	"github.com/hrygo/switchboard/ai/agents/registry"
	"github.com/hrygo/switchboard/ai/core/llm"
	"github.com/hrygo/switchboard/ai/internal/strutil"
)

const (
	defaultMaxIterations = 6
	maxResultChars       = 4000
)

// ErrMaxIterations is returned when the loop ends without a final answer.
var ErrMaxIterations = errors.New("max iterations exceeded")

// ErrNoLLM is returned by Run when the agent has no model to reason with.
var ErrNoLLM = errors.New("no LLM configured")

// Invoker executes a backend operation. Implemented by backend.Manager.
type Invoker interface {
	Call(ctx context.Context, backend, operation string, params map[string]any) (string, error)
}

// ExecutionStats summarizes one agent run.
type ExecutionStats struct {
	Iterations       int
	LLMCalls         int
	ToolCalls        int
	PromptTokens     int
	CompletionTokens int
	TotalDurationMs  int64
}

// AccumulateLLM adds the token counts of one LLM call.
func (s *ExecutionStats) AccumulateLLM(st *llm.LLMCallStats) {
	s.LLMCalls++
	if st == nil {
		return
	}
	s.PromptTokens += st.PromptTokens
	s.CompletionTokens += st.CompletionTokens
}

// Config configures an Agent.
type Config struct {
	LLM           llm.Service
	Registry      *registry.Registry
	Invoker       Invoker
	MaxIterations int
	Now           func() time.Time
	Logger        *slog.Logger
}

// Agent reasons over the operations in its registry.
type Agent struct {
	llm           llm.Service
	registry      *registry.Registry
	invoker       Invoker
	maxIterations int
	now           func() time.Time
	logger        *slog.Logger
}

// New creates an Agent.
func New(cfg Config) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Agent{
		llm:           cfg.LLM,
		registry:      cfg.Registry,
		invoker:       cfg.Invoker,
		maxIterations: cfg.MaxIterations,
		now:           cfg.Now,
		logger:        cfg.Logger,
	}
}

// step is the JSON protocol the model answers with.
type step struct {
	Thought     string         `json:"thought"`
	Action      string         `json:"action"`
	Params      map[string]any `json:"params"`
	FinalAnswer string         `json:"final_answer"`
}

// Run answers query using operations served by the given backends (all
// registered operations when backends is empty).
func (a *Agent) Run(ctx context.Context, query string, backends []string, callback events.Callback) (string, *ExecutionStats, error) {
	stats := &ExecutionStats{}
	start := time.Now()
	defer func() {
		stats.TotalDurationMs = time.Since(start).Milliseconds()
	}()

	if a.llm == nil {
		return "", stats, ErrNoLLM
	}

	ops := a.operations(backends)
	if len(ops) == 0 {
		return "", stats, fmt.Errorf("no operations registered for %s", strings.Join(backends, ", "))
	}

	safe := events.WrapSafe(callback)
	messages := []llm.Message{
		llm.SystemPrompt(buildSystemPrompt(ops, BuildTimeContext(a.now()))),
		llm.UserMessage(query),
	}

	for iteration := 0; iteration < a.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return "", stats, err
		}
		stats.Iterations = iteration + 1

		reply, llmStats, err := a.llm.Chat(ctx, messages)
		if err != nil {
			return "", stats, fmt.Errorf("agent LLM call: %w", err)
		}
		stats.AccumulateLLM(llmStats)

		var s step
		if err := json.Unmarshal([]byte(strutil.StripCodeFence(reply)), &s); err != nil {
			// Plain prose is taken as the answer.
			answer := strings.TrimSpace(reply)
			safe.Emit(events.EventResult, answer)
			return answer, stats, nil
		}
		if s.Thought != "" {
			safe.Emit(events.EventThinking, events.StepEvent{Number: iteration + 1, Message: s.Thought})
		}
		if s.Action == "" {
			answer := strings.TrimSpace(s.FinalAnswer)
			if answer == "" {
				answer = strings.TrimSpace(s.Thought)
			}
			safe.Emit(events.EventResult, answer)
			return answer, stats, nil
		}

		result := a.execute(ctx, s.Action, s.Params, safe)
		stats.ToolCalls++
		messages = append(messages,
			llm.AssistantMessage(reply),
			llm.UserMessage(fmt.Sprintf("[Result from %s]: %s", s.Action, strutil.Truncate(result, maxResultChars))),
		)
	}
	return "", stats, fmt.Errorf("%w (%d)", ErrMaxIterations, a.maxIterations)
}

// execute runs one operation; failures become result text for the model.
func (a *Agent) execute(ctx context.Context, name string, params map[string]any, safe events.SafeCallback) string {
	op, ok := a.registry.Get(name)
	if !ok {
		return fmt.Sprintf("Error: unknown operation %q", name)
	}
	if params == nil {
		params = map[string]any{}
	}
	safe.Emit(events.EventToolCall, events.ToolCallEvent{Backend: op.Backend, Operation: op.Name, Params: params})

	start := time.Now()
	out, err := a.invoker.Call(ctx, op.Backend, op.Name, params)
	a.registry.RecordExecution(op.Name, time.Since(start), err == nil)
	a.logger.Info("agent: operation completed",
		"operation", op.Name,
		"backend", op.Backend,
		"success", err == nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return out
}

func (a *Agent) operations(backends []string) []registry.Operation {
	all := a.registry.List()
	if len(backends) == 0 {
		return all
	}
	allowed := make(map[string]bool, len(backends))
	for _, b := range backends {
		allowed[b] = true
	}
	var out []registry.Operation
	for _, op := range all {
		if allowed[op.Backend] {
			out = append(out, op)
		}
	}
	return out
}

func buildSystemPrompt(ops []registry.Operation, tc *TimeContext) string {
	var sb strings.Builder
	sb.WriteString("You are an assistant that completes calendar and email requests by calling operations.\n\n")
	sb.WriteString("Time context:\n")
	sb.WriteString(tc.FormatAsJSONBlock())
	sb.WriteString("\n\nAvailable operations:\n")
	for _, op := range ops {
		fmt.Fprintf(&sb, "- %s: %s\n", op.Name, op.Description)
		if props, ok := op.InputSchema["properties"].(map[string]any); ok && len(props) > 0 {
			schema, err := json.Marshal(props)
			if err == nil {
				fmt.Fprintf(&sb, "  Parameters: %s\n", schema)
			}
		}
	}
	sb.WriteString(`
Reply with ONLY one JSON object per turn.
To call an operation:
{"thought": "why", "action": "operation_name", "params": {"name": "value"}}
When you can answer the user:
{"thought": "why", "final_answer": "answer for the user"}

Rules:
- Use ISO 8601 times with the UTC offset from the time context
- Call one operation at a time and wait for its result
- Summarize operation results for the user instead of echoing raw output`)
	return sb.String()
}
