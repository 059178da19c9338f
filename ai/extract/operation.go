// Package extract turns a free-text calendar or email request into a
// concrete backend operation with parameters.
//
// Strategies are tried in order (LLM selection, then deterministic regex
// parsing); when none yields an operation the caller escalates to agent
// reasoning.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Family identifies a backend tool family.
type Family string

const (
	FamilyCalendar Family = "calendar"
	FamilyEmail    Family = "email"
)

// Canonical operation names.
const (
	OpListEvents        = "list_events"
	OpCreateEvent       = "create_event"
	OpUpdateEvent       = "update_event"
	OpDeleteEvent       = "delete_event"
	OpCheckAvailability = "check_availability"

	OpListEmails   = "list_emails"
	OpReadEmail    = "read_email"
	OpSendEmail    = "send_email"
	OpModifyLabels = "modify_labels"
	OpSearchEmails = "search_emails"

	// OpSendEmailNeedsAddress is a pseudo-operation: the user asked to send
	// mail but gave no address. It is never sent to a backend.
	OpSendEmailNeedsAddress = "send_email_needs_address"
)

// ParsedOperation is the result of extraction, consumed immediately by the
// dispatcher.
type ParsedOperation struct {
	Operation string
	Params    map[string]any
	Source    string // strategy name that produced it
	Err       string // set only for OpSendEmailNeedsAddress
}

// NeedsAddress reports whether the operation is the missing-address pseudo-op.
func (p *ParsedOperation) NeedsAddress() bool {
	return p != nil && p.Operation == OpSendEmailNeedsAddress
}

// StringParam returns a string parameter or "".
func (p *ParsedOperation) StringParam(key string) string {
	if p == nil {
		return ""
	}
	s, _ := p.Params[key].(string)
	return s
}

// Recipients returns the "to" parameter as a list.
func (p *ParsedOperation) Recipients() []string {
	if p == nil {
		return nil
	}
	return toStringList(p.Params["to"])
}

// Strategy is one extraction attempt.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, query string) (*ParsedOperation, error)
}

var (
	// ErrNoOperation is returned by Chain when every strategy failed.
	ErrNoOperation = errors.New("no operation could be extracted")
	// ErrNoMatch is returned by regex strategies for queries they do not recognize.
	ErrNoMatch = errors.New("query matched no known pattern")
)

// ExtractionError describes why a strategy produced nothing.
type ExtractionError struct {
	Strategy string
	Reason   string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s extraction: %s: %v", e.Strategy, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s extraction: %s", e.Strategy, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func toStringList(v any) []string {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
