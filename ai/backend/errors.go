package backend

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotConnected is returned for calls to a backend without a live connection.
	ErrNotConnected = errors.New("backend not connected")
	// ErrUnknownBackend is returned by launchers for ids they cannot start.
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrBackendDied is returned when a freshly launched process is not alive
	// after the settle interval.
	ErrBackendDied = errors.New("backend process exited during startup")
)

// TimeoutError reports a backend call that exceeded its deadline.
type TimeoutError struct {
	Operation string
	After     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("MCP tool %s timed out after %d seconds", e.Operation, int(e.After.Seconds()))
}

// ToolError carries an error result reported by the backend tool itself.
type ToolError struct {
	Operation string
	Message   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("MCP tool %s failed: %s", e.Operation, e.Message)
}
