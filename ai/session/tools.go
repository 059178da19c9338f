package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"strings"

	"github.com/hrygo/switchboard/ai/backend"
	"github.com/hrygo/switchboard/ai/extract"
	"github.com/hrygo/switchboard/ai/internal/strutil"
	"github.com/hrygo/switchboard/ai/observability/logging"
)

var (
	summaryKeywords = []string{"summarize", "summary", "summerize"}
	messageIDRe     = regexp.MustCompile(`Message ID:\*\*\s+(\w+)`)

	errMCPDisabled  = errors.New("MCP is disabled, restart the REPL without --disable-mcp")
	errNeedsAddress = errors.New("email address required")
)

const sentBodyPreview = 200

// backendFor maps an extraction family to the backend serving it.
func backendFor(f extract.Family) string {
	if f == extract.FamilyCalendar {
		return backend.Calendar
	}
	return backend.Gmail
}

// mentionsSendEmail reports whether the query asks to send an email.
func mentionsSendEmail(lower string) bool {
	return strings.Contains(lower, "send") && strings.Contains(lower, "email")
}

// runBackendTask handles CALENDAR and EMAIL turns: direct extraction first,
// agent reasoning when no operation could be extracted or the call failed.
func (s *Session) runBackendTask(ctx context.Context, family extract.Family, query string) (string, error) {
	logger := logging.FromContext(ctx)
	id := backendFor(family)
	lower := strings.ToLower(query)

	if err := s.connect(ctx, id); err != nil {
		return "❌ " + err.Error(), err
	}
	if family == extract.FamilyEmail && strutil.ContainsAny(lower, summaryKeywords) {
		return s.summarizeEmails(ctx, query)
	}

	op, err := s.chains[family].Extract(ctx, query)
	switch {
	case err == nil && op.NeedsAddress():
		logger.Warn("Email address missing", "error", op.Err)
		return fmt.Sprintf("❌ %s\n\nExample: 'send email to john@example.com saying hello'", op.Err), errNeedsAddress
	case err == nil:
		out, callErr := s.callOperation(ctx, id, op)
		if callErr == nil {
			if op.Operation == extract.OpSendEmail {
				return FormatEmailSent(out, op.Params), nil
			}
			return out, nil
		}
		if ctx.Err() != nil {
			return "Interrupted", callErr
		}
		logger.Error("Direct backend call failed", "backend", id, "operation", op.Operation, "error", callErr)
		if mentionsSendEmail(lower) {
			return fmt.Sprintf("❌ Failed to send email: %v\n\nMake sure to include a valid email address.", callErr), callErr
		}
	case ctx.Err() != nil:
		return "Interrupted", ctx.Err()
	case mentionsSendEmail(lower):
		return "❌ Unable to send email. Please provide a valid email address.\n\nExample: 'send email to john@example.com saying hello world'", err
	}

	logger.Info("Falling back to agent reasoning", "backend", id)
	return s.reason(ctx, id, query)
}

// connect makes sure backend id is live and its operations registered.
func (s *Session) connect(ctx context.Context, id string) error {
	if s.prof.DisableMCP || s.backends == nil {
		return errMCPDisabled
	}
	if s.backends.Status()[id] == backend.StateConnected {
		_, err := s.backends.EnsureConnected(ctx, id, s.registry)
		return err
	}
	s.printf("  🔌 Connecting to %s...", id)
	if _, err := s.backends.EnsureConnected(ctx, id, s.registry); err != nil {
		s.printf("\r  ❌ Failed to connect to %s\n", id)
		return fmt.Errorf("failed to connect to %s: %w", id, err)
	}
	s.printf("\r  ✅ Connected to %s     \n", id)
	return nil
}

// callOperation invokes op on backend id under its backend name.
func (s *Session) callOperation(ctx context.Context, id string, op *extract.ParsedOperation) (string, error) {
	params := maps.Clone(op.Params)
	if params == nil {
		params = map[string]any{}
	}
	name := extract.BackendName(op.Operation)
	logging.FromContext(ctx).Info("Calling backend operation", "backend", id, "operation", name, "source", op.Source)

	if op.Operation != extract.OpSendEmail {
		return s.backends.Call(ctx, id, name, params)
	}
	s.printf("  📤 Sending email...")
	out, err := s.backends.Call(ctx, id, name, params)
	if err != nil {
		s.printf("\n")
		return "", err
	}
	s.printf("\r  ✅ Email sent!     \n")
	return out, nil
}

// reason answers query with the agent over the operations of backend id.
func (s *Session) reason(ctx context.Context, id, query string) (string, error) {
	answer, stats, err := s.agentHandle().Run(ctx, query, []string{id}, s.stepPrinter())
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return "Interrupted", err
		}
		return fmt.Sprintf("Failed: %v", err), err
	}
	logging.FromContext(ctx).Info("Agent reasoning finished",
		"backend", id,
		"iterations", stats.Iterations,
		"tool_calls", stats.ToolCalls,
	)
	if answer == "" {
		return "Task completed", nil
	}
	return answer, nil
}

// FormatEmailSent renders the confirmation of a sent email.
func FormatEmailSent(result string, params map[string]any) string {
	messageID := "Unknown"
	if m := messageIDRe.FindStringSubmatch(result); m != nil {
		messageID = m[1]
	}

	var recipients string
	switch to := params["to"].(type) {
	case []string:
		recipients = strings.Join(to, ", ")
	case []any:
		parts := make([]string, 0, len(to))
		for _, v := range to {
			parts = append(parts, fmt.Sprint(v))
		}
		recipients = strings.Join(parts, ", ")
	case nil:
	default:
		recipients = fmt.Sprint(to)
	}

	subject, _ := params["subject"].(string)
	if subject == "" {
		subject = "No Subject"
	}
	body, _ := params["body"].(string)

	return fmt.Sprintf("✅ Email sent successfully!\n\nTo: %s\nSubject: %s\n\nMessage:\n%s\n\nMessage ID: %s",
		recipients, subject, strutil.Truncate(body, sentBodyPreview), messageID)
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
