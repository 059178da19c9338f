package extract

// OperationSpec describes one backend tool as presented to the LLM.
type OperationSpec struct {
	Name        string // backend tool name
	Params      []string
	Description string
}

var catalogs = map[Family][]OperationSpec{
	FamilyCalendar: {
		{"list_calendar_events", []string{"time_min", "time_max", "max_results", "query"}, "List calendar events with optional filtering by time range or search query"},
		{"create_calendar_event", []string{"summary", "start_time", "end_time", "description", "location", "attendees"}, "Create a new calendar event with specified details"},
		{"update_calendar_event", []string{"event_id", "summary", "start_time", "end_time", "description", "location"}, "Update an existing calendar event"},
		{"delete_calendar_event", []string{"event_id"}, "Delete a calendar event by ID"},
		{"check_availability", []string{"time_min", "time_max"}, "Check free/busy calendar availability"},
	},
	FamilyEmail: {
		{"list_emails", []string{"query", "max_results"}, "List emails with Gmail search query (e.g., 'from:user@example.com', 'is:unread')"},
		{"read_email", []string{"email_id"}, "Read a specific email by its ID"},
		{"send_email", []string{"to", "subject", "body", "cc", "bcc"}, "Send a new email to recipients"},
		{"modify_email_labels", []string{"email_id", "add_labels", "remove_labels"}, "Add or remove labels from an email"},
		{"search_emails", []string{"query", "max_results"}, "Search emails using Gmail syntax"},
	},
}

// backend tool name -> canonical operation
var canonicalNames = map[string]string{
	"list_calendar_events":  OpListEvents,
	"create_calendar_event": OpCreateEvent,
	"update_calendar_event": OpUpdateEvent,
	"delete_calendar_event": OpDeleteEvent,
	"check_availability":    OpCheckAvailability,
	"list_emails":           OpListEmails,
	"read_email":            OpReadEmail,
	"send_email":            OpSendEmail,
	"modify_email_labels":   OpModifyLabels,
	"search_emails":         OpSearchEmails,
}

var backendNames = func() map[string]string {
	m := make(map[string]string, len(canonicalNames))
	for backend, op := range canonicalNames {
		m[op] = backend
	}
	return m
}()

// Catalog returns the operations offered by a family.
func Catalog(f Family) []OperationSpec {
	return catalogs[f]
}

// CanonicalName maps a backend tool name to its operation name. Unknown
// names pass through unchanged.
func CanonicalName(tool string) string {
	if op, ok := canonicalNames[tool]; ok {
		return op
	}
	return tool
}

// BackendName maps an operation name to the backend tool name. Unknown
// names pass through unchanged.
func BackendName(op string) string {
	if tool, ok := backendNames[op]; ok {
		return tool
	}
	return op
}
