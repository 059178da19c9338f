package router

import (
	"regexp"
	"strings"

	"github.com/hrygo/switchboard/ai/internal/strutil"
)

var chatPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(what|who|when|where|why|how|explain|tell me|can you)\s+(is|are|was|were|do|does)`),
	regexp.MustCompile(`^(calculate|compute|solve|what'?s?\s+\d+)`),
	regexp.MustCompile(`^(hello|hi|hey|thanks|thank you|goodbye|bye)`),
	regexp.MustCompile(`^(tell me about|explain|describe|define)`),
}

var webIndicators = []string{"search", "find online", "look up", "browse", "website", "google"}

// IsPureChatQuery reports whether query looks conversational and does not
// ask for anything on the web.
func IsPureChatQuery(query string) bool {
	lower := strings.ToLower(strings.TrimSpace(query))
	for _, p := range chatPatterns {
		if p.MatchString(lower) && !strutil.ContainsAny(lower, webIndicators) {
			return true
		}
	}
	return false
}

var sequenceConjunctions = []string{" and ", " then ", " after ", " followed by"}

// DetectMultiTool returns the tools a compound query touches, in execution
// order, or nil when the query is not a sequence over more than one tool.
func DetectMultiTool(query string) []ToolType {
	lower := strings.ToLower(query)

	var tools []ToolType
	if strutil.ContainsAny(lower, []string{"calendar", "schedule", "meeting"}) {
		tools = append(tools, ToolCalendar)
	}
	if strings.Contains(lower, "email") || (strings.Contains(lower, "send") && strings.Contains(lower, "message")) {
		tools = append(tools, ToolEmail)
	}
	if strutil.ContainsAny(lower, []string{"search", "find", "look up", "browse", "check online"}) {
		tools = append(tools, ToolBrowser)
	}

	if len(tools) > 1 && strutil.ContainsAny(lower, sequenceConjunctions) {
		return tools
	}
	return nil
}
