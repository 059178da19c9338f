package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPureChatQuery(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"hello there", true},
		{"What is a monad", true},
		{"explain quantum tunneling", true},
		{"what's 12 * 7", true},
		{"what is the best website to google recipes", false},
		{"book a table for two", false},
		{"find flights to Tokyo", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPureChatQuery(tt.query))
		})
	}
}

func TestDetectMultiTool(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []ToolType
	}{
		{"calendar then email", "check my calendar and email John", []ToolType{ToolCalendar, ToolEmail}},
		{"browser then calendar", "find flight prices then schedule them", []ToolType{ToolCalendar, ToolBrowser}},
		{"single tool", "check my calendar", nil},
		{"two tools without conjunction", "calendar email", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMultiTool(tt.query))
		})
	}
}

func TestFormatDecision(t *testing.T) {
	out := FormatDecision(ToolDecision{
		PrimaryTool:    ToolEmail,
		SecondaryTools: []ToolType{ToolCalendar, ToolBrowser},
		Reasoning:      "mentions inbox",
	})
	assert.Contains(t, out, "Primary: EMAIL")
	assert.Contains(t, out, "Secondary: CALENDAR, BROWSER")
	assert.Contains(t, out, "Reasoning: mentions inbox")

	out = FormatDecision(ToolDecision{PrimaryTool: ToolChat})
	assert.NotContains(t, out, "Secondary")
}

func TestParseToolType(t *testing.T) {
	for _, name := range []string{"chat", "BROWSER", " Calendar ", "email"} {
		_, err := ParseToolType(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseToolType("sheets")
	assert.Error(t, err)
}
