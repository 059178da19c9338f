package router

import "strings"

type commandPrefix struct {
	prefix string
	tool   ToolType
}

// Order matters only for display; prefixes are mutually exclusive.
var commandPrefixes = []commandPrefix{
	{"/browser ", ToolBrowser},
	{"/calendar ", ToolCalendar},
	{"/calender ", ToolCalendar},
	{"/email ", ToolEmail},
	{"/mail ", ToolEmail},
	{"/chat ", ToolChat},
}

// DetectOverride reports the tool forced by a command prefix at the start of
// input, matched case-insensitively after trimming.
func DetectOverride(input string) (ToolType, bool) {
	lower := strings.ToLower(strings.TrimSpace(input))
	for _, p := range commandPrefixes {
		if strings.HasPrefix(lower, p.prefix) {
			return p.tool, true
		}
	}
	return "", false
}

// StripCommandPrefix removes a recognized command prefix and returns the
// remainder trimmed, with its original casing. Input without a prefix is
// returned unchanged.
func StripCommandPrefix(input string) string {
	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)
	for _, p := range commandPrefixes {
		if strings.HasPrefix(lower, p.prefix) {
			return strings.TrimSpace(trimmed[len(p.prefix):])
		}
	}
	return input
}
