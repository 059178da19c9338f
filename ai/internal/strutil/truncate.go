// Package strutil provides string utility functions for the ai package.
package strutil

import "strings"

// Truncate truncates a string to a maximum length.
// Uses rune-level truncation so multi-byte characters are never split.
// Returns empty string if maxLen <= 0 to prevent slice bounds panic.
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// StripCodeFence returns the contents of the first Markdown code fence
// (```json or ```) in an LLM reply, trimmed. Text without a fence is
// returned trimmed. An unterminated fence yields everything after it.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	body, ok := "", false
	for _, marker := range []string{"```json", "```JSON", "```"} {
		if i := strings.Index(s, marker); i >= 0 {
			body, ok = s[i+len(marker):], true
			break
		}
	}
	if !ok {
		return s
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// ContainsAny reports whether s contains any of the patterns.
func ContainsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
