package backend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/switchboard/ai/agents/registry"
)

type fakeHandle struct {
	alive    atomic.Bool
	closed   atomic.Int32
	stderr   string
	tools    []ToolInfo
	toolsErr error
	closeErr error

	mu    sync.Mutex
	calls []string
}

func newFakeHandle() *fakeHandle {
	h := &fakeHandle{}
	h.alive.Store(true)
	return h
}

func (h *fakeHandle) Call(_ context.Context, op string, _ map[string]any) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, op)
	return "ok:" + op, nil
}

func (h *fakeHandle) Tools(context.Context) ([]ToolInfo, error) { return h.tools, h.toolsErr }
func (h *fakeHandle) IsAlive() bool                             { return h.alive.Load() }
func (h *fakeHandle) Stderr() string                            { return h.stderr }

func (h *fakeHandle) Close() error {
	h.closed.Add(1)
	h.alive.Store(false)
	return h.closeErr
}

type fakeLauncher struct {
	mu       sync.Mutex
	launches map[string]int
	next     func(id string) (*fakeHandle, error)
	handles  []*fakeHandle
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{
		launches: map[string]int{},
		next:     func(string) (*fakeHandle, error) { return newFakeHandle(), nil },
	}
}

func (l *fakeLauncher) Launch(_ context.Context, id string) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches[id]++
	h, err := l.next(id)
	if err != nil {
		return nil, err
	}
	l.handles = append(l.handles, h)
	return h, nil
}

func (l *fakeLauncher) count(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches[id]
}

type eventSpy struct {
	mu     sync.Mutex
	events []string
}

func (s *eventSpy) RecordBackendEvent(backend, event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, backend+":"+event)
}

func (s *eventSpy) RecordBackendCall(string, string, time.Duration, error) {}

func newTestManager(l Launcher, rec EventRecorder) *Manager {
	return NewManager(l, Options{Settle: -1, Recorder: rec})
}

func TestManager_ConnectIsIdempotent(t *testing.T) {
	l := newFakeLauncher()
	m := newTestManager(l, nil)
	ctx := context.Background()

	first, err := m.Connect(ctx, Calendar)
	require.NoError(t, err)
	second, err := m.Connect(ctx, Calendar)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, l.count(Calendar))
	assert.Equal(t, map[string]State{Calendar: StateConnected}, m.Status())
}

func TestManager_ConnectConcurrentSpawnsOnce(t *testing.T) {
	l := newFakeLauncher()
	m := newTestManager(l, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Connect(context.Background(), Gmail)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, l.count(Gmail))
}

func TestManager_ConnectReplacesDeadHandle(t *testing.T) {
	l := newFakeLauncher()
	spy := &eventSpy{}
	m := newTestManager(l, spy)
	ctx := context.Background()

	first, err := m.Connect(ctx, Gmail)
	require.NoError(t, err)
	first.(*fakeHandle).alive.Store(false)

	second, err := m.Connect(ctx, Gmail)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, l.count(Gmail))
	assert.Equal(t, []string{"gmail:connected", "gmail:evicted", "gmail:connected"}, spy.events)
}

func TestManager_ConnectFailures(t *testing.T) {
	t.Run("launch error", func(t *testing.T) {
		l := newFakeLauncher()
		l.next = func(id string) (*fakeHandle, error) { return nil, ErrUnknownBackend }
		m := newTestManager(l, nil)

		_, err := m.Connect(context.Background(), "weather")
		assert.ErrorIs(t, err, ErrUnknownBackend)
		assert.Empty(t, m.Status())
	})

	t.Run("died during settle", func(t *testing.T) {
		l := newFakeLauncher()
		l.next = func(string) (*fakeHandle, error) {
			h := newFakeHandle()
			h.alive.Store(false)
			h.stderr = "credentials.json not found"
			return h, nil
		}
		m := newTestManager(l, nil)

		_, err := m.Connect(context.Background(), Calendar)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBackendDied)
		assert.Contains(t, err.Error(), "credentials.json not found")
		assert.Empty(t, m.Status())
		assert.Equal(t, int32(1), l.handles[0].closed.Load())
	})

	t.Run("cancelled while settling", func(t *testing.T) {
		l := newFakeLauncher()
		m := NewManager(l, Options{Settle: time.Hour})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := m.Connect(ctx, Calendar)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, m.Status())
	})
}

func TestManager_HealthCheck(t *testing.T) {
	l := newFakeLauncher()
	m := newTestManager(l, nil)

	assert.False(t, m.HealthCheck(Calendar))

	h, err := m.Connect(context.Background(), Calendar)
	require.NoError(t, err)
	assert.True(t, m.HealthCheck(Calendar))

	h.(*fakeHandle).alive.Store(false)
	assert.False(t, m.HealthCheck(Calendar))
	assert.Empty(t, m.Status())

	_, err = m.Handle(Calendar)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestManager_DisconnectAndReconnect(t *testing.T) {
	l := newFakeLauncher()
	m := newTestManager(l, nil)
	ctx := context.Background()

	m.Disconnect(Gmail) // absent: no-op

	first, err := m.Connect(ctx, Gmail)
	require.NoError(t, err)
	first.(*fakeHandle).closeErr = errors.New("broken pipe")

	second, err := m.Reconnect(ctx, Gmail)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(1), first.(*fakeHandle).closed.Load())
	assert.Equal(t, 2, l.count(Gmail))
	assert.Equal(t, []string{Gmail}, m.Connected())
}

func TestManager_DisconnectAll(t *testing.T) {
	l := newFakeLauncher()
	m := newTestManager(l, nil)
	ctx := context.Background()

	for _, id := range []string{Calendar, Gmail, Browser} {
		_, err := m.Connect(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, m.DisconnectAll(ctx))
	assert.Empty(t, m.Status())
	for _, h := range l.handles {
		assert.Equal(t, int32(1), h.closed.Load())
	}
}

func TestManager_EnsureConnectedRegistersOnce(t *testing.T) {
	l := newFakeLauncher()
	l.next = func(string) (*fakeHandle, error) {
		h := newFakeHandle()
		h.tools = []ToolInfo{
			{Name: "list_emails", Description: "List emails"},
			{Name: "send_email", Description: "Send email"},
		}
		return h, nil
	}
	m := newTestManager(l, nil)
	reg := registry.New()
	ctx := context.Background()

	_, err := m.EnsureConnected(ctx, Gmail, reg)
	require.NoError(t, err)
	_, err = m.EnsureConnected(ctx, Gmail, reg)
	require.NoError(t, err)

	assert.Equal(t, 2, reg.Len())
	op, ok := reg.Get("send_email")
	require.True(t, ok)
	assert.Equal(t, Gmail, op.Backend)
}

func TestManager_Call(t *testing.T) {
	l := newFakeLauncher()
	m := newTestManager(l, nil)
	ctx := context.Background()

	_, err := m.Call(ctx, Calendar, "list_calendar_events", nil)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = m.Connect(ctx, Calendar)
	require.NoError(t, err)
	out, err := m.Call(ctx, Calendar, "list_calendar_events", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok:list_calendar_events", out)
}

func TestTimeoutErrorMessage(t *testing.T) {
	err := &TimeoutError{Operation: "send_email", After: DefaultCallTimeout}
	assert.Equal(t, "MCP tool send_email timed out after 30 seconds", err.Error())
}

func TestTailBuffer(t *testing.T) {
	b := newTailBuffer(5)
	_, _ = b.Write([]byte("hello "))
	_, _ = b.Write([]byte("world"))
	assert.Equal(t, "world", b.String())
}
