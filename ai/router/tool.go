// Package router decides which capability handles a user query.
package router

import (
	"fmt"
	"strings"
)

// ToolType is one of the four dispatchable capability domains.
type ToolType string

const (
	ToolChat     ToolType = "chat"
	ToolBrowser  ToolType = "browser"
	ToolCalendar ToolType = "calendar"
	ToolEmail    ToolType = "email"
)

// AllTools lists the tool types in display order.
var AllTools = []ToolType{ToolChat, ToolBrowser, ToolCalendar, ToolEmail}

// Routing methods recorded on a ToolDecision.
const (
	MethodForced   = "forced"
	MethodLLM      = "llm"
	MethodFallback = "fallback"
)

// ParseToolType converts a case-insensitive name into a ToolType.
func ParseToolType(s string) (ToolType, error) {
	switch ToolType(strings.ToLower(strings.TrimSpace(s))) {
	case ToolChat:
		return ToolChat, nil
	case ToolBrowser:
		return ToolBrowser, nil
	case ToolCalendar:
		return ToolCalendar, nil
	case ToolEmail:
		return ToolEmail, nil
	}
	return "", fmt.Errorf("unknown tool type %q", s)
}

// Upper returns the display form, e.g. "EMAIL".
func (t ToolType) Upper() string {
	return strings.ToUpper(string(t))
}

// ToolDecision is the routing result for one turn. SecondaryTools are
// advisory and never executed by the dispatcher.
type ToolDecision struct {
	PrimaryTool     ToolType
	SecondaryTools  []ToolType
	Reasoning       string
	SpecificActions []string
	OriginalQuery   string
	Method          string
}

// FormatDecision renders a decision for the REPL and the debug log.
func FormatDecision(d ToolDecision) string {
	lines := []string{
		"🎯 Tool Routing:",
		"   Primary: " + d.PrimaryTool.Upper(),
	}
	if len(d.SecondaryTools) > 0 {
		names := make([]string, len(d.SecondaryTools))
		for i, t := range d.SecondaryTools {
			names[i] = t.Upper()
		}
		lines = append(lines, "   Secondary: "+strings.Join(names, ", "))
	}
	lines = append(lines, "   Reasoning: "+d.Reasoning)
	return strings.Join(lines, "\n")
}
