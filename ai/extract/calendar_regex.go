package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hrygo/switchboard/ai/internal/strutil"
)

var (
	calendarListKeywords   = []string{"list", "show", "check", "what", "view"}
	calendarCreateKeywords = []string{"add", "create", "schedule", "book"}

	clockPattern     = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)
	titleStopWords   = regexp.MustCompile(`\b(add|create|schedule|book|to|my|calendar|calender|at|tomorrow|today)\b`)
	titleTimeTokens  = regexp.MustCompile(`\d{1,2}(?::\d{2})?\s*(?:am|pm)?`)
	multipleSpaces   = regexp.MustCompile(`\s+`)
	defaultListLimit = 10
)

// CalendarRegex parses common calendar phrasings without an LLM.
type CalendarRegex struct {
	Now func() time.Time
}

// Name implements Strategy.
func (c *CalendarRegex) Name() string { return "regex" }

// Extract implements Strategy.
func (c *CalendarRegex) Extract(_ context.Context, query string) (*ParsedOperation, error) {
	now := c.now()
	q := strings.ToLower(strings.TrimSpace(query))

	switch {
	case strutil.ContainsAny(q, calendarListKeywords):
		return &ParsedOperation{Operation: OpListEvents, Params: listWindow(q, now), Source: c.Name()}, nil
	case strutil.ContainsAny(q, calendarCreateKeywords):
		params, ok := createParams(q, now)
		if !ok {
			return nil, &ExtractionError{Strategy: c.Name(), Reason: "create request without a time", Err: ErrNoMatch}
		}
		return &ParsedOperation{Operation: OpCreateEvent, Params: params, Source: c.Name()}, nil
	}
	return nil, &ExtractionError{Strategy: c.Name(), Reason: "no calendar keywords", Err: ErrNoMatch}
}

func (c *CalendarRegex) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func listWindow(q string, now time.Time) map[string]any {
	var start, end time.Time
	switch {
	case strings.Contains(q, "tomorrow"):
		start, end = dayBounds(now.AddDate(0, 0, 1))
	case strings.Contains(q, "today"):
		start, end = dayBounds(now)
	default:
		// only the open-ended week is capped
		start, end = now, now.AddDate(0, 0, 7)
		return map[string]any{
			"time_min":    start.Format(time.RFC3339),
			"time_max":    end.Format(time.RFC3339),
			"max_results": defaultListLimit,
		}
	}
	return map[string]any{
		"time_min": start.Format(time.RFC3339),
		"time_max": end.Format(time.RFC3339),
	}
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	loc := day.Location()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), time.Date(y, m, d, 23, 59, 59, 0, loc)
}

func createParams(q string, now time.Time) (map[string]any, bool) {
	m := clockPattern.FindStringSubmatch(q)
	if m == nil {
		return nil, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return nil, false
	}

	day := now
	if strings.Contains(q, "tomorrow") {
		day = now.AddDate(0, 0, 1)
	}
	y, mo, d := day.Date()
	start := time.Date(y, mo, d, hour, minute, 0, 0, now.Location())
	end := start.Add(time.Hour)

	return map[string]any{
		"summary":    eventTitle(q),
		"start_time": start.Format(time.RFC3339),
		"end_time":   end.Format(time.RFC3339),
	}, true
}

func eventTitle(q string) string {
	t := titleStopWords.ReplaceAllString(q, "")
	t = titleTimeTokens.ReplaceAllString(t, "")
	t = strings.TrimSpace(multipleSpaces.ReplaceAllString(t, " "))
	if t == "" {
		return "Event"
	}
	return cases.Title(language.English).String(t)
}
