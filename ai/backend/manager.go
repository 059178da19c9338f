package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/switchboard/ai/agents/registry"
)

// State is the connection state of a backend.
type State string

const (
	StateUnconnected State = "unconnected"
	StateConnecting  State = "connecting"
	StateConnected   State = "connected"
)

// DefaultSettle is the wait between launching a backend and the first
// liveness check.
const DefaultSettle = time.Second

// EventRecorder counts lifecycle events. Implemented by the metrics exporter.
type EventRecorder interface {
	RecordBackendEvent(backend, event string)
	RecordBackendCall(backend, operation string, d time.Duration, err error)
}

// Options configures a Manager.
type Options struct {
	Settle   time.Duration // zero means DefaultSettle; negative disables the wait
	Recorder EventRecorder
	Logger   *slog.Logger
}

type entry struct {
	state      State
	handle     Handle
	registered bool
}

// Manager owns the backend connections of one session. Connect calls are
// serialized; state reads are safe from any goroutine.
type Manager struct {
	launcher Launcher
	settle   time.Duration
	recorder EventRecorder
	logger   *slog.Logger

	connectMu sync.Mutex
	mu        sync.RWMutex
	entries   map[string]*entry
}

// NewManager creates a Manager.
func NewManager(launcher Launcher, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	settle := opts.Settle
	switch {
	case settle == 0:
		settle = DefaultSettle
	case settle < 0:
		settle = 0
	}
	return &Manager{
		launcher: launcher,
		settle:   settle,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		entries:  make(map[string]*entry),
	}
}

// Connect returns the live handle for id, launching the backend when it is
// not connected. A handle that failed its liveness check is replaced.
func (m *Manager) Connect(ctx context.Context, id string) (Handle, error) {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	if h, ok := m.liveHandle(id); ok {
		return h, nil
	}

	m.setEntry(id, &entry{state: StateConnecting})
	m.logger.Info("Connecting backend", "backend", id)

	h, err := m.launcher.Launch(ctx, id)
	if err != nil {
		m.removeEntry(id)
		m.record(id, "connect_failed")
		return nil, fmt.Errorf("connect %s: %w", id, err)
	}

	if m.settle > 0 {
		select {
		case <-time.After(m.settle):
		case <-ctx.Done():
			m.removeEntry(id)
			_ = h.Close()
			return nil, ctx.Err()
		}
	}

	if !h.IsAlive() {
		stderr := h.Stderr()
		_ = h.Close()
		m.removeEntry(id)
		m.record(id, "connect_failed")
		if stderr != "" {
			return nil, fmt.Errorf("connect %s: %w: %s", id, ErrBackendDied, stderr)
		}
		return nil, fmt.Errorf("connect %s: %w", id, ErrBackendDied)
	}

	m.setEntry(id, &entry{state: StateConnected, handle: h})
	m.record(id, "connected")
	m.logger.Info("Backend connected", "backend", id)
	return h, nil
}

// EnsureConnected connects id and, on the first successful connection,
// registers its operations in reg. reg may be nil.
func (m *Manager) EnsureConnected(ctx context.Context, id string, reg *registry.Registry) (Handle, error) {
	h, err := m.Connect(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return h, nil
	}

	m.mu.RLock()
	e := m.entries[id]
	done := e != nil && e.registered
	m.mu.RUnlock()
	if done {
		return h, nil
	}

	tools, err := h.Tools(ctx)
	if err != nil {
		m.logger.Warn("Could not list backend operations", "backend", id, "error", err)
		return h, nil
	}
	ops := make([]registry.Operation, 0, len(tools))
	for _, t := range tools {
		ops = append(ops, registry.Operation{
			Name:        t.Name,
			Description: t.Description,
			Backend:     id,
			InputSchema: t.InputSchema,
		})
	}
	added := reg.RegisterAll(ops)
	m.logger.Debug("Registered backend operations", "backend", id, "offered", len(ops), "added", added)

	m.mu.Lock()
	if e := m.entries[id]; e != nil && e.handle == h {
		e.registered = true
	}
	m.mu.Unlock()
	return h, nil
}

// Handle returns the current handle without connecting.
func (m *Manager) Handle(id string) (Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok || e.state != StateConnected {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, id)
	}
	return e.handle, nil
}

// Call invokes an operation on a connected backend.
func (m *Manager) Call(ctx context.Context, id, operation string, params map[string]any) (string, error) {
	h, err := m.Handle(id)
	if err != nil {
		return "", err
	}
	start := time.Now()
	out, err := h.Call(ctx, operation, params)
	if m.recorder != nil {
		m.recorder.RecordBackendCall(id, operation, time.Since(start), err)
	}
	if err != nil {
		m.logger.Warn("Backend call failed", "backend", id, "operation", operation, "error", err)
	}
	return out, err
}

// HealthCheck reports whether id is connected and alive. Dead connections
// are evicted.
func (m *Manager) HealthCheck(id string) bool {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok || e.handle == nil {
		m.mu.Unlock()
		return false
	}
	if e.handle.IsAlive() {
		m.mu.Unlock()
		return true
	}
	delete(m.entries, id)
	m.mu.Unlock()

	m.logger.Warn("Backend died, evicting", "backend", id, "stderr", e.handle.Stderr())
	m.record(id, "evicted")
	_ = e.handle.Close()
	return false
}

// Disconnect closes and evicts id. Absent backends are a no-op; close
// errors are logged, not returned.
func (m *Manager) Disconnect(id string) {
	if err := m.disconnect(id); err != nil {
		m.logger.Warn("Backend close failed", "backend", id, "error", err)
	}
}

func (m *Manager) disconnect(id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()
	if !ok || e.handle == nil {
		return nil
	}
	m.logger.Info("Disconnecting backend", "backend", id)
	m.record(id, "disconnected")
	return e.handle.Close()
}

// Reconnect replaces the connection of id with a fresh one.
func (m *Manager) Reconnect(ctx context.Context, id string) (Handle, error) {
	m.Disconnect(id)
	return m.Connect(ctx, id)
}

// DisconnectAll closes every backend concurrently and returns the first
// close error.
func (m *Manager) DisconnectAll(ctx context.Context) error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	g, _ := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			if err := m.disconnect(id); err != nil {
				return fmt.Errorf("disconnect %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Status returns the state of every known backend.
func (m *Manager) Status() map[string]State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]State, len(m.entries))
	for id, e := range m.entries {
		out[id] = e.state
	}
	return out
}

// Connected returns the ids of connected backends, sorted.
func (m *Manager) Connected() []string {
	var ids []string
	for id, st := range m.Status() {
		if st == StateConnected {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// liveHandle returns the connected handle of id if it passes liveness;
// a dead one is evicted.
func (m *Manager) liveHandle(id string) (Handle, bool) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok || e.state != StateConnected {
		return nil, false
	}
	if m.HealthCheck(id) {
		return e.handle, true
	}
	return nil, false
}

func (m *Manager) setEntry(id string, e *entry) {
	m.mu.Lock()
	m.entries[id] = e
	m.mu.Unlock()
}

func (m *Manager) removeEntry(id string) {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
}

func (m *Manager) record(id, event string) {
	if m.recorder != nil {
		m.recorder.RecordBackendEvent(id, event)
	}
}
