package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrygo/switchboard/ai/core/llm"
)

const optimizationTemplate = `You are a browser automation prompt optimization expert.

Your task is to convert a user's natural query into an optimized, specific prompt for a browser automation agent.

PROMPTING GUIDELINES:

1. **Be Specific, Not Vague**
   - Provide detailed, step-by-step instructions
   - Good: "Go to https://quotes.toscrape.com/, extract the first 3 quotes with authors, save to CSV"
   - Bad: "Go to web and get some quotes"

2. **Reference Actions by Name**
   - Use specific action names: navigate, click, scroll, extract, search, input_text, send_keys

3. **Include Keyboard Navigation for Troubleshooting**
   - When clicks fail, use keyboard: "send Tab to navigate, Enter to submit"

4. **Build Error Recovery Pathways**
   - Include fallback strategies, e.g. "If page blocks access, use google search as alternative"

5. **Keep It Actionable**
   - Every instruction should be something the agent can execute

USER QUERY: %s

Generate an optimized prompt following these guidelines. Be specific but not overly complex. Focus on clear, actionable steps.

OPTIMIZED PROMPT:`

const anchorRule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// Optimizer rewrites user queries into step-by-step browser tasks.
type Optimizer struct {
	llm    llm.Service
	logger *slog.Logger
}

// NewOptimizer creates an Optimizer.
func NewOptimizer(svc llm.Service, logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{llm: svc, logger: logger}
}

// Optimize returns the rewritten task, or the query unchanged when the LLM
// fails or answers nothing.
func (o *Optimizer) Optimize(ctx context.Context, query string) string {
	if o == nil || o.llm == nil {
		return query
	}
	reply, _, err := o.llm.Chat(ctx, []llm.Message{llm.UserMessage(fmt.Sprintf(optimizationTemplate, query))})
	if err != nil {
		o.logger.Warn("Prompt optimization failed, using original query", "error", err)
		return query
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return query
	}
	o.logger.Debug("Optimized browser prompt", "prompt", reply)
	return reply
}

// AnchorTask frames the query so the agent reports the data it found
// instead of a bare completion message.
func AnchorTask(query string) string {
	return anchorRule + "\nTASK: " + query + "\n" + anchorRule + `

⚠️  When you call done(), INCLUDE THE DATA YOU FOUND:

❌ NO: "Task completed"
✅ YES: "The opening hours are 9am to 5pm on weekdays..."

Copy the extracted information into done(text="...").
Do NOT just say the task is complete.`
}

// Prepare returns the prompt for query: optimized when optimize is set,
// anchored otherwise.
func (o *Optimizer) Prepare(ctx context.Context, query string, optimize bool) string {
	if optimize {
		return o.Optimize(ctx, query)
	}
	return AnchorTask(query)
}
