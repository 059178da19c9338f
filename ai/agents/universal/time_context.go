package universal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// TimeContext is structured time metadata included in agent prompts so the
// model can resolve relative dates.
type TimeContext struct {
	Current  CurrentTime   `json:"current"`
	Relative RelativeDates `json:"relative"`
	Business BusinessHours `json:"business_hours"`
}

// CurrentTime represents the current time information.
type CurrentTime struct {
	Date       string `json:"date"`        // 2025-10-28
	Time       string `json:"time"`        // 09:30:00
	Weekday    string `json:"weekday"`     // Tuesday
	WeekdayNum int    `json:"weekday_num"` // 1-7 (1=Monday)
	Timezone   string `json:"timezone"`    // Europe/Berlin
	UTCOffset  string `json:"utc_offset"`  // +01:00
	RFC3339    string `json:"rfc3339"`
}

// RelativeDates represents commonly used relative dates.
type RelativeDates struct {
	Today         string `json:"today"`
	Tomorrow      string `json:"tomorrow"`
	Yesterday     string `json:"yesterday"`
	ThisWeekStart string `json:"this_week_start"` // Monday of this week
	ThisWeekEnd   string `json:"this_week_end"`   // Sunday of this week
	NextWeekStart string `json:"next_week_start"`
}

// BusinessHours are the defaults used when a request names no time.
type BusinessHours struct {
	DefaultAM  string `json:"default_am"`
	DefaultPM  string `json:"default_pm"`
	DefaultEve string `json:"default_eve"`
}

// BuildTimeContext creates a time context for now.
func BuildTimeContext(now time.Time) *TimeContext {
	weekday := now.Weekday()
	daysSinceMonday := int(weekday - time.Monday)
	weekdayNum := int(weekday)
	if weekday == time.Sunday {
		daysSinceMonday = 6
		weekdayNum = 7
	}
	monday := now.AddDate(0, 0, -daysSinceMonday)

	return &TimeContext{
		Current: CurrentTime{
			Date:       now.Format("2006-01-02"),
			Time:       now.Format("15:04:05"),
			Weekday:    weekday.String(),
			WeekdayNum: weekdayNum,
			Timezone:   now.Location().String(),
			UTCOffset:  now.Format("-07:00"),
			RFC3339:    now.Format(time.RFC3339),
		},
		Relative: RelativeDates{
			Today:         now.Format("2006-01-02"),
			Tomorrow:      now.AddDate(0, 0, 1).Format("2006-01-02"),
			Yesterday:     now.AddDate(0, 0, -1).Format("2006-01-02"),
			ThisWeekStart: monday.Format("2006-01-02"),
			ThisWeekEnd:   monday.AddDate(0, 0, 6).Format("2006-01-02"),
			NextWeekStart: monday.AddDate(0, 0, 7).Format("2006-01-02"),
		},
		Business: BusinessHours{
			DefaultAM:  "09:00",
			DefaultPM:  "14:00",
			DefaultEve: "19:00",
		},
	}
}

// FormatAsJSONBlock formats the time context as a JSON code block.
// On marshal failure, returns a minimal block with the current timestamp.
func (tc *TimeContext) FormatAsJSONBlock() string {
	data, err := json.MarshalIndent(tc, "", "  ")
	if err != nil {
		slog.Error("failed to marshal time context, using fallback",
			"error", err,
			"time_context", fmt.Sprintf("%+v", tc),
		)
		data, _ = json.Marshal(map[string]any{"current": map[string]any{"rfc3339": time.Now().Format(time.RFC3339)}})
	}
	return "```json\n" + string(data) + "\n```"
}
