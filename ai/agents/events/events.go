// Package events defines the observer callback used to report step-by-step
// progress of long running capabilities (browser tasks, agent reasoning).
package events

import (
	"log/slog"
	"runtime/debug"
)

// Event types.
const (
	EventStep     = "step"      // a browser or agent step started or advanced
	EventThinking = "thinking"  // agent reasoning text
	EventToolCall = "tool_call" // agent invoked a backend operation
	EventResult   = "result"    // final result text
	EventError    = "error"
)

// StepEvent is the payload of EventStep.
type StepEvent struct {
	Number   int
	Message  string
	Progress float64
	Total    float64 // zero when unknown
}

// ToolCallEvent is the payload of EventToolCall.
type ToolCallEvent struct {
	Backend   string
	Operation string
	Params    map[string]any
}

// Callback receives an event type and its payload.
type Callback func(eventType string, eventData any) error

// SafeCallback is a callback variant that does not propagate errors.
type SafeCallback func(eventType string, eventData any)

// NoopCallback is a callback that does nothing.
var NoopCallback Callback = func(string, any) error { return nil }

// WrapSafe converts a Callback to a SafeCallback that logs errors and
// recovers panics raised by observers. Returns nil for a nil callback.
func WrapSafe(cb Callback) SafeCallback {
	if cb == nil {
		return nil
	}
	return func(eventType string, eventData any) {
		defer func() {
			if r := recover(); r != nil {
				slog.Warn("event observer panicked",
					"event_type", eventType,
					"panic", r,
					"stack", string(debug.Stack()))
			}
		}()
		if err := cb(eventType, eventData); err != nil {
			slog.Warn("event callback error (swallowed)",
				"event_type", eventType,
				"error", err)
		}
	}
}

// Emit sends an event through cb when it is non-nil.
func (cb SafeCallback) Emit(eventType string, eventData any) {
	if cb != nil {
		cb(eventType, eventData)
	}
}
