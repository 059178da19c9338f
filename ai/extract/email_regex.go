package extract

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/hrygo/switchboard/ai/internal/strutil"
)

// NeedsAddressMessage is carried by the send_email_needs_address pseudo-op.
const NeedsAddressMessage = "No email address found in query. Please provide an email address (e.g., someone@example.com) or use a contact name with their email."

var (
	// List phrasings are checked before send phrasings so "check mail from x"
	// never becomes a send.
	emailListKeywords   = []string{"list", "show", "check", "read", "do i have", "any mail from", "from"}
	emailSearchKeywords = []string{"search", "find"}
	emailSendKeywords   = []string{"send", "email to", "mail to", "write email", "compose email"}

	emailAddress   = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
	senderAddress  = regexp.MustCompile(`from\s+([\w.-]+@[\w.-]+\.\w+)`)
	sendNoiseWords = []string{"send", "email", "mail", "to"}
)

// EmailRegex parses common email phrasings without an LLM. Send requests
// still use the Generator for subject and body.
type EmailRegex struct {
	Generator *Generator
	Now       func() time.Time
}

// Name implements Strategy.
func (e *EmailRegex) Name() string { return "regex" }

// Extract implements Strategy.
func (e *EmailRegex) Extract(ctx context.Context, query string) (*ParsedOperation, error) {
	trimmed := strings.TrimSpace(query)
	q := strings.ToLower(trimmed)

	if strutil.ContainsAny(q, emailListKeywords) {
		return &ParsedOperation{Operation: OpListEmails, Params: listEmailParams(q), Source: e.Name()}, nil
	}
	// A search with nothing to search for falls through to send.
	if strutil.ContainsAny(q, emailSearchKeywords) {
		if params, ok := searchEmailParams(trimmed, q); ok {
			return &ParsedOperation{Operation: OpSearchEmails, Params: params, Source: e.Name()}, nil
		}
	}
	if strutil.ContainsAny(q, emailSendKeywords) {
		return e.sendEmail(ctx, trimmed, q), nil
	}
	return nil, &ExtractionError{Strategy: e.Name(), Reason: "no email keywords", Err: ErrNoMatch}
}

func listEmailParams(q string) map[string]any {
	if m := senderAddress.FindStringSubmatch(q); m != nil {
		return map[string]any{"query": "from:" + m[1], "max_results": defaultListLimit}
	}
	switch {
	case strings.Contains(q, "unread"):
		return map[string]any{"query": "is:unread", "max_results": defaultListLimit}
	case strings.Contains(q, "inbox"):
		return map[string]any{"query": "in:inbox", "max_results": defaultListLimit}
	}
	return map[string]any{"max_results": defaultListLimit}
}

func searchEmailParams(original, q string) (map[string]any, bool) {
	var term string
	if strings.Contains(q, "for") {
		term = textAfter(original, q, "for")
	} else {
		term = textAfter(original, q, "search")
	}
	if term == "" {
		return nil, false
	}
	return map[string]any{"query": term, "max_results": defaultListLimit}, true
}

func (e *EmailRegex) sendEmail(ctx context.Context, original, q string) *ParsedOperation {
	addr := emailAddress.FindString(original)
	if addr == "" {
		return &ParsedOperation{
			Operation: OpSendEmailNeedsAddress,
			Params:    map[string]any{},
			Source:    e.Name(),
			Err:       NeedsAddressMessage,
		}
	}

	intent := textAfter(original, q, "saying")
	if intent == "" {
		intent = textAfter(original, q, "that")
	}
	if intent == "" {
		intent = strings.Replace(q, strings.ToLower(addr), "", 1)
		for _, w := range sendNoiseWords {
			intent = strings.ReplaceAll(intent, w, "")
		}
		intent = strings.TrimSpace(multipleSpaces.ReplaceAllString(intent, " "))
	}

	content := e.Generator.Generate(ctx, addr, intent)
	return &ParsedOperation{
		Operation: OpSendEmail,
		Params: map[string]any{
			"to":      []string{addr},
			"subject": content.Subject,
			"body":    content.Body,
		},
		Source: e.Name(),
	}
}

// textAfter returns the trimmed text following the first occurrence of kw in
// lower, sliced from original when both strings share byte offsets.
func textAfter(original, lower, kw string) string {
	i := strings.Index(lower, kw)
	if i < 0 {
		return ""
	}
	src := lower
	if len(original) == len(lower) {
		src = original
	}
	return strings.TrimSpace(src[i+len(kw):])
}
