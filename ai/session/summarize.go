package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/hrygo/switchboard/ai/backend"
	"github.com/hrygo/switchboard/ai/core/llm"
	"github.com/hrygo/switchboard/ai/observability/logging"
)

const (
	maxEmailsToRead     = 10
	maxCombinedChars    = 15000
	truncatedMarker     = "\n\n[... content truncated for performance ...]"
	emailSeparator      = "\n\n---\n\n"
	progressInterval    = 500 * time.Millisecond
	gmailDateLayout     = "2006/01/02"
	defaultRecentEmails = 10
)

var emailIDRe = regexp.MustCompile(`\*\*ID:\*\*\s+(\w+)`)

// SummaryFilter resolves the list parameters for a summarization query.
func SummaryFilter(query string, now time.Time) map[string]any {
	lower := strings.ToLower(query)
	today := now.Format(gmailDateLayout)
	switch {
	case strings.Contains(lower, "today"):
		return map[string]any{"query": "after:" + today, "max_results": 20}
	case strings.Contains(lower, "yesterday"):
		yesterday := now.AddDate(0, 0, -1).Format(gmailDateLayout)
		return map[string]any{"query": fmt.Sprintf("after:%s before:%s", yesterday, today), "max_results": 20}
	case strings.Contains(lower, "week"), strings.Contains(lower, "last 7 days"):
		weekAgo := now.AddDate(0, 0, -7).Format(gmailDateLayout)
		return map[string]any{"query": "after:" + weekAgo, "max_results": 50}
	}
	return map[string]any{"max_results": defaultRecentEmails}
}

// BuildSummaryPrompt renders the summarization prompt for count emails.
func BuildSummaryPrompt(combined string, count int, period string) string {
	return fmt.Sprintf(`You are an expert email analyst. Analyze and summarize the following %[1]d emails concisely.

EMAILS:
%[2]s

Provide a clean, terminal-friendly summary. DO NOT use tables, pipes (|), or complex markdown. Use simple formatting:

=== OVERALL SUMMARY ===
- Total emails: %[1]d
- Time period: %[3]s
- Brief 2-3 sentence overview

=== EMAIL-BY-EMAIL SUMMARY ===
For each email, provide ONE line in this format:
[#] Sender Name - Subject
    → Key point in 1 sentence

=== ACTION ITEMS ===
List ONLY emails requiring immediate attention (if any):
- Email #X: What action is needed

=== KEY INSIGHTS ===
1-2 sentence summary of patterns or important observations

IMPORTANT RULES:
- NO tables or pipe characters (|)
- NO asterisks for bold (**)
- Use simple dashes, numbers, and arrows (→)
- Keep each email summary to 1-2 lines MAX
- Be concise and clear`, count, combined, period)
}

// summarizeEmails lists, reads and summarizes the emails matching the
// time period named in query.
func (s *Session) summarizeEmails(ctx context.Context, query string) (string, error) {
	logger := logging.FromContext(ctx)
	filter := SummaryFilter(query, s.now())

	list, err := s.backends.Call(ctx, backend.Gmail, "list_emails", filter)
	if err != nil {
		return fmt.Sprintf("Failed to summarize emails: %v", err), err
	}
	var ids []string
	for _, m := range emailIDRe.FindAllStringSubmatch(list, -1) {
		ids = append(ids, m[1])
	}
	if len(ids) == 0 {
		return "No emails found for the specified time period.", nil
	}
	if len(ids) > maxEmailsToRead {
		ids = ids[:maxEmailsToRead]
	}

	logger.Info("Reading emails", "count", len(ids))
	contents := make([]string, 0, len(ids))
	for i, id := range ids {
		short := id
		if len(short) > 8 {
			short = short[:8]
		}
		body, err := s.backends.Call(ctx, backend.Gmail, "read_email", map[string]any{
			"email_id":            id,
			"include_attachments": false,
		})
		if err != nil {
			if ctx.Err() != nil {
				return "Interrupted", ctx.Err()
			}
			logger.Warn("Could not read email", "email_id", id, "error", err)
			s.printf("  [%d/%d] ✗ Failed to read %s\n", i+1, len(ids), short)
			continue
		}
		s.printf("  [%d/%d] ✓ Email %s read\n", i+1, len(ids), short)
		contents = append(contents, body)
	}
	if len(contents) == 0 {
		return "Could not read any emails.", errors.New("no email could be read")
	}

	combined := strings.Join(contents, emailSeparator)
	if len(combined) > maxCombinedChars {
		combined = strings.ToValidUTF8(combined[:maxCombinedChars], "") + truncatedMarker
	}
	period, _ := filter["query"].(string)
	if period == "" {
		period = "recent"
	}
	prompt := BuildSummaryPrompt(combined, len(contents), period)

	summary, err := s.generateSummary(ctx, prompt)
	switch {
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		logger.Warn("Summary generation timed out", "timeout", s.summaryTimeout, "emails", len(contents))
		return fmt.Sprintf("⏱️ Summary generation timed out after %d seconds. Found %d emails. Try reducing the number of emails or use a faster model.",
			int(s.summaryTimeout.Seconds()), len(contents)), err
	case err != nil:
		logger.Error("LLM summarization failed", "error", err)
		return fmt.Sprintf("Found %d emails but could not generate summary: %v", len(contents), err), err
	}
	return summary, nil
}

// generateSummary runs the summary LLM call under the session timeout while
// a progress indicator ticks on the output.
func (s *Session) generateSummary(ctx context.Context, prompt string) (string, error) {
	if s.llm == nil {
		return "", errors.New("no LLM configured")
	}
	callCtx, cancel := context.WithTimeout(ctx, s.summaryTimeout)
	defer cancel()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		dots := 0
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				dots = (dots + 1) % 4
				s.printf("\r  🤖 Generating summary%s   ", strings.Repeat(".", dots))
			}
		}
	}()

	reply, _, err := s.llm.Chat(callCtx, []llm.Message{llm.UserMessage(prompt)})
	close(stop)
	wg.Wait()
	s.printf("\r  🤖 Generating summary... Done!     \n")

	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("summary: %w", context.DeadlineExceeded)
		}
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
