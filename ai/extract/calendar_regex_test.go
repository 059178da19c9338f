package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2025, 10, 28, 9, 30, 0, 0, time.UTC)
}

func TestCalendarRegex_Create(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantTitle string
		wantStart string
		wantEnd   string
	}{
		{
			name:      "pm time tomorrow",
			query:     "schedule dentist tomorrow at 6pm",
			wantTitle: "Dentist",
			wantStart: "2025-10-29T18:00:00Z",
			wantEnd:   "2025-10-29T19:00:00Z",
		},
		{
			name:      "minutes with spaced suffix",
			query:     "add meeting at 3:30 pm",
			wantTitle: "Meeting",
			wantStart: "2025-10-28T15:30:00Z",
			wantEnd:   "2025-10-28T16:30:00Z",
		},
		{
			name:      "noon stays noon",
			query:     "book lunch at 12pm today",
			wantTitle: "Lunch",
			wantStart: "2025-10-28T12:00:00Z",
			wantEnd:   "2025-10-28T13:00:00Z",
		},
		{
			name:      "midnight",
			query:     "create backup window at 12am tomorrow",
			wantTitle: "Backup Window",
			wantStart: "2025-10-29T00:00:00Z",
			wantEnd:   "2025-10-29T01:00:00Z",
		},
		{
			name:      "title defaults to Event",
			query:     "schedule at 9am",
			wantTitle: "Event",
			wantStart: "2025-10-28T09:00:00Z",
			wantEnd:   "2025-10-28T10:00:00Z",
		},
	}

	s := &CalendarRegex{Now: fixedNow}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := s.Extract(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, OpCreateEvent, op.Operation)
			assert.Equal(t, "regex", op.Source)
			assert.Equal(t, tt.wantTitle, op.Params["summary"])
			assert.Equal(t, tt.wantStart, op.Params["start_time"])
			assert.Equal(t, tt.wantEnd, op.Params["end_time"])
		})
	}
}

func TestCalendarRegex_List(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantMin   string
		wantMax   string
		wantLimit any
	}{
		{"tomorrow window", "what's on my calendar tomorrow", "2025-10-29T00:00:00Z", "2025-10-29T23:59:59Z", nil},
		{"today window", "show my events today", "2025-10-28T00:00:00Z", "2025-10-28T23:59:59Z", nil},
		{"next seven days", "list my meetings", "2025-10-28T09:30:00Z", "2025-11-04T09:30:00Z", 10},
	}

	s := &CalendarRegex{Now: fixedNow}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := s.Extract(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, OpListEvents, op.Operation)
			assert.Equal(t, tt.wantMin, op.Params["time_min"])
			assert.Equal(t, tt.wantMax, op.Params["time_max"])
			assert.Equal(t, tt.wantLimit, op.Params["max_results"])
		})
	}
}

func TestCalendarRegex_NoResult(t *testing.T) {
	s := &CalendarRegex{Now: fixedNow}
	for _, q := range []string{"schedule a dentist visit", "cancel everything"} {
		t.Run(q, func(t *testing.T) {
			op, err := s.Extract(context.Background(), q)
			assert.Nil(t, op)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNoMatch))

			var extractionErr *ExtractionError
			require.True(t, errors.As(err, &extractionErr))
			assert.Equal(t, "regex", extractionErr.Strategy)
		})
	}
}
