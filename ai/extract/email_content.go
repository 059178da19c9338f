package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrygo/switchboard/ai/core/llm"
	"github.com/hrygo/switchboard/ai/internal/strutil"
)

// DefaultSubject is used when the LLM reply carries no subject.
const DefaultSubject = "Message from Switchboard"

const fallbackSubjectRunes = 50

// EmailContent is a generated subject and body.
type EmailContent struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Generator writes email subjects and bodies from a short intent.
type Generator struct {
	llm    llm.Service
	logger *slog.Logger
}

// NewGenerator creates a Generator. A nil service makes every call fall back.
func NewGenerator(svc llm.Service, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{llm: svc, logger: logger}
}

// Generate never returns an empty subject or body for a non-empty intent.
func (g *Generator) Generate(ctx context.Context, recipient, intent string) EmailContent {
	if g == nil || g.llm == nil {
		return FallbackContent(intent)
	}
	prompt := fmt.Sprintf(`You are an email writer. Generate a professional email.

RECIPIENT: %s
MESSAGE: %s

Respond with ONLY valid JSON in this format:
{"subject": "email subject", "body": "email body"}

Rules:
- JSON only, no markdown
- Match the tone of the message
- Keep it concise (2-3 sentences max)`, recipient, intent)

	reply, _, err := g.llm.Chat(ctx, []llm.Message{llm.UserMessage(prompt)})
	if err != nil {
		g.logger.Warn("Email content generation failed", "error", err)
		return FallbackContent(intent)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(strutil.StripCodeFence(reply)), &raw); err != nil {
		g.logger.Warn("Email content reply is not JSON", "error", err)
		return FallbackContent(intent)
	}

	content := EmailContent{Subject: DefaultSubject, Body: intent}
	if s, ok := raw["subject"].(string); ok && strings.TrimSpace(s) != "" {
		content.Subject = s
	}
	if b, ok := raw["body"].(string); ok && strings.TrimSpace(b) != "" {
		content.Body = b
	}
	return content
}

// FallbackContent derives a subject from the first 50 characters of the
// intent and uses the intent as body.
func FallbackContent(intent string) EmailContent {
	return EmailContent{
		Subject: strutil.Truncate(intent, fallbackSubjectRunes),
		Body:    intent,
	}
}
