// Package registry holds the backend operations available to agent reasoning.
// Registration is append-only for the lifetime of a session.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrDuplicate is returned when an operation name is already registered.
var ErrDuplicate = errors.New("operation already registered")

// Operation describes one backend operation.
type Operation struct {
	Name        string
	Description string
	Backend     string         // backend id serving the operation
	InputSchema map[string]any // JSON schema as advertised by the backend, may be nil
}

// ExecutionStats holds per-operation call statistics.
type ExecutionStats struct {
	ExecutionCount int64
	ErrorCount     int64
	TotalLatencyMs int64
	LastExecution  time.Time
}

// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	ops   map[string]Operation
	order []string
	stats map[string]*ExecutionStats
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		ops:   make(map[string]Operation),
		stats: make(map[string]*ExecutionStats),
	}
}

// Register adds an operation. Existing names are never replaced.
func (r *Registry) Register(op Operation) error {
	if op.Name == "" {
		return fmt.Errorf("operation name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ops[op.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, op.Name)
	}
	r.ops[op.Name] = op
	r.order = append(r.order, op.Name)
	return nil
}

// RegisterAll adds every operation not yet present and returns how many
// were added.
func (r *Registry) RegisterAll(ops []Operation) int {
	added := 0
	for _, op := range ops {
		if err := r.Register(op); err == nil {
			added++
		}
	}
	return added
}

// Get looks up an operation by name.
func (r *Registry) Get(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// List returns operations in registration order.
func (r *Registry) List() []Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Operation, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.ops[name])
	}
	return out
}

// Backends returns the distinct backend ids with registered operations, sorted.
func (r *Registry) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, op := range r.ops {
		if !seen[op.Backend] {
			seen[op.Backend] = true
			out = append(out, op.Backend)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}

// RecordExecution records one call of an operation.
func (r *Registry) RecordExecution(name string, latency time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.stats[name]
	if !ok {
		stats = &ExecutionStats{}
		r.stats[name] = stats
	}
	stats.ExecutionCount++
	stats.TotalLatencyMs += latency.Milliseconds()
	stats.LastExecution = time.Now()
	if !success {
		stats.ErrorCount++
	}
}

// Stats returns a copy of the statistics of an operation.
func (r *Registry) Stats(name string) (ExecutionStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats, ok := r.stats[name]
	if !ok {
		return ExecutionStats{}, false
	}
	return *stats, true
}
