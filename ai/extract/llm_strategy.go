package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/switchboard/ai/core/llm"
	"github.com/hrygo/switchboard/ai/internal/strutil"
)

// minGeneratedBodyLen is the body length below which an extracted send_email
// body is regenerated.
const minGeneratedBodyLen = 10

// LLMStrategy asks the LLM to pick one backend operation and fill its
// parameters.
type LLMStrategy struct {
	Family    Family
	LLM       llm.Service
	Generator *Generator
	Now       func() time.Time
	Logger    *slog.Logger
}

// NewLLMStrategy creates an LLM strategy for a family. The generator is used
// to complete send_email bodies and may be nil.
func NewLLMStrategy(family Family, svc llm.Service, gen *Generator, logger *slog.Logger) *LLMStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMStrategy{Family: family, LLM: svc, Generator: gen, Now: time.Now, Logger: logger}
}

// Name implements Strategy.
func (s *LLMStrategy) Name() string { return "llm" }

type llmSelection struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
	Reasoning  string         `json:"reasoning"`
}

// Extract implements Strategy.
func (s *LLMStrategy) Extract(ctx context.Context, query string) (*ParsedOperation, error) {
	if s.LLM == nil {
		return nil, &ExtractionError{Strategy: s.Name(), Reason: "no LLM configured"}
	}
	prompt := BuildExtractionPrompt(s.Family, query, s.now())

	reply, _, err := s.LLM.Chat(ctx, []llm.Message{llm.UserMessage(prompt)})
	if err != nil {
		return nil, &ExtractionError{Strategy: s.Name(), Reason: "LLM call failed", Err: err}
	}
	if strings.TrimSpace(reply) == "" {
		return nil, &ExtractionError{Strategy: s.Name(), Reason: "empty reply", Err: llm.ErrEmptyResponse}
	}

	var sel llmSelection
	if err := json.Unmarshal([]byte(strutil.StripCodeFence(reply)), &sel); err != nil {
		return nil, &ExtractionError{Strategy: s.Name(), Reason: "malformed JSON reply", Err: err}
	}
	if strings.TrimSpace(sel.Tool) == "" {
		return nil, &ExtractionError{Strategy: s.Name(), Reason: "reply names no tool"}
	}
	if sel.Parameters == nil {
		sel.Parameters = map[string]any{}
	}

	op := &ParsedOperation{
		Operation: CanonicalName(strings.TrimSpace(sel.Tool)),
		Params:    sel.Parameters,
		Source:    s.Name(),
	}
	s.Logger.Debug("LLM selected operation",
		"family", s.Family,
		"operation", op.Operation,
		"reasoning", sel.Reasoning,
	)

	if op.Operation == OpSendEmail {
		s.completeSendEmail(ctx, query, op)
	}
	return op, nil
}

// completeSendEmail normalizes recipients and fills a missing or too short
// subject/body through the generator.
func (s *LLMStrategy) completeSendEmail(ctx context.Context, query string, op *ParsedOperation) {
	to := toStringList(op.Params["to"])
	op.Params["to"] = to

	subject := op.StringParam("subject")
	body := op.StringParam("body")
	if subject != "" && len([]rune(body)) >= minGeneratedBodyLen {
		return
	}
	if s.Generator == nil || len(to) == 0 {
		return
	}
	intent := body
	if intent == "" {
		intent = query
	}
	content := s.Generator.Generate(ctx, to[0], intent)
	op.Params["subject"] = content.Subject
	op.Params["body"] = content.Body
}

func (s *LLMStrategy) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// BuildExtractionPrompt renders the operation-selection prompt for a family.
func BuildExtractionPrompt(family Family, query string, now time.Time) string {
	tz := now.Format("-07:00")
	server := "Calendar"
	if family == FamilyEmail {
		server = "Gmail"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an MCP tool selector for %s operations.\n\n", server)
	fmt.Fprintf(&sb, "Current date/time: %s (timezone: %s)\n\n", now.Format("2006-01-02 15:04:05 MST"), now.Format("-0700"))
	fmt.Fprintf(&sb, "User query: %q\n\n", query)
	sb.WriteString("Available tools:\n")
	for _, spec := range Catalog(family) {
		fmt.Fprintf(&sb, "- **%s**: %s\n  Parameters: %s\n", spec.Name, spec.Description, strings.Join(spec.Params, ", "))
	}
	sb.WriteString(`
IMPORTANT RULES:
1. If query contains "list", "show", "check", "do i have", "from" → use list_emails or list_calendar_events
2. If query contains "send", "email to", "mail to" → use send_email
3. If query contains "add", "create", "schedule" → use create_calendar_event
4. Resolve relative dates ("today", "tomorrow", "next monday") against the current date/time above
`)
	fmt.Fprintf(&sb, "5. Times must be ISO 8601 with timezone, e.g. \"%s\"\n", now.Format("2006-01-02")+"T18:00:00"+tz)
	sb.WriteString(`6. For emails from a sender use the query syntax "from:address"
7. Use max_results 10 unless the user asks for a different number

Respond with ONLY valid JSON, no markdown:
{
  "tool": "tool_name",
  "parameters": {"param": "value"},
  "reasoning": "brief explanation"
}`)
	return sb.String()
}
