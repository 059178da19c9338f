// Package backend manages the lifecycle of MCP backend server processes
// (calendar, gmail, browser) and the calls made to them.
package backend

import (
	"context"
	"strings"
	"sync"
)

// Well-known backend ids.
const (
	Calendar = "calendar"
	Gmail    = "gmail"
	Browser  = "browser"
)

// ToolInfo describes one tool advertised by a backend.
type ToolInfo struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ProgressUpdate is a progress notification received during a call.
type ProgressUpdate struct {
	Message  string
	Progress float64
	Total    float64
}

// Handle is a live connection to one backend process.
type Handle interface {
	// Call invokes a backend operation and returns its text output.
	Call(ctx context.Context, operation string, params map[string]any) (string, error)
	// Tools lists the operations the backend offers.
	Tools(ctx context.Context) ([]ToolInfo, error)
	// IsAlive reports whether the process and its session are still running.
	IsAlive() bool
	// Stderr returns the tail of the process's standard error.
	Stderr() string
	// Close ends the session and the process.
	Close() error
}

// Launcher starts backend processes.
type Launcher interface {
	Launch(ctx context.Context, id string) (Handle, error)
}

type progressKey struct{}

// WithProgress returns a context whose backend calls report progress
// notifications to fn.
func WithProgress(ctx context.Context, fn func(ProgressUpdate)) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// ProgressFromContext returns the progress observer set by WithProgress.
func ProgressFromContext(ctx context.Context) func(ProgressUpdate) {
	fn, _ := ctx.Value(progressKey{}).(func(ProgressUpdate))
	return fn
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
