package router

import (
	"fmt"
	"strings"

	"github.com/hrygo/switchboard/ai/internal/strutil"
)

// Keyword sets for the fallback classifier, checked in this order.
var (
	emailKeywords    = []string{"email", "mail", "inbox", "send message", "unread"}
	calendarKeywords = []string{"calendar", "calender", "schedule", "meeting", "appointment", "event", "planned", "tomorrow", "today"}
	browserKeywords  = []string{"search", "find", "look up", "browse", "website", "google", "price", "weather", "news"}
)

// Fallback classifies query by keyword when LLM routing is unusable.
// Email is checked before calendar, and calendar before browser: the browser
// set is the broadest and the most prone to false positives.
func Fallback(query, errContext string) ToolDecision {
	lower := strings.ToLower(query)

	tool, branch := ToolChat, ""
	switch {
	case strutil.ContainsAny(lower, emailKeywords):
		tool, branch = ToolEmail, "email"
	case strutil.ContainsAny(lower, calendarKeywords):
		tool, branch = ToolCalendar, "calendar"
	case strutil.ContainsAny(lower, browserKeywords):
		tool, branch = ToolBrowser, "browser"
	}

	reasoning := fmt.Sprintf("Fallback routing defaulted to chat (LLM error: %s)", errContext)
	if branch != "" {
		reasoning = fmt.Sprintf("Fallback routing detected %s keywords (LLM error: %s)", branch, errContext)
	}

	return ToolDecision{
		PrimaryTool:     tool,
		SecondaryTools:  []ToolType{},
		Reasoning:       reasoning,
		SpecificActions: []string{query},
		OriginalQuery:   query,
		Method:          MethodFallback,
	}
}
