package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hrygo/switchboard/ai/agents/events"
	"github.com/hrygo/switchboard/ai/backend"
	"github.com/hrygo/switchboard/ai/browser"
	"github.com/hrygo/switchboard/ai/e2e/mocks"
	"github.com/hrygo/switchboard/internal/profile"
)

type call struct {
	op     string
	params map[string]any
}

type reply struct {
	out string
	err error
}

// fakeHandle answers operations from a scripted table.
type fakeHandle struct {
	mu      sync.Mutex
	replies map[string]reply
	tools   []backend.ToolInfo
	calls   []call
	closed  bool
}

func (h *fakeHandle) Call(_ context.Context, op string, params map[string]any) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call{op: op, params: params})
	r, ok := h.replies[op]
	if !ok {
		return "", errors.New("unexpected operation " + op)
	}
	return r.out, r.err
}

func (h *fakeHandle) Tools(context.Context) ([]backend.ToolInfo, error) { return h.tools, nil }
func (h *fakeHandle) Stderr() string                                    { return "" }

func (h *fakeHandle) IsAlive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.closed
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *fakeHandle) callsTo(op string) []call {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []call
	for _, c := range h.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

type fakeLauncher struct {
	handles map[string]*fakeHandle
	err     error
}

func (l *fakeLauncher) Launch(_ context.Context, id string) (backend.Handle, error) {
	if l.err != nil {
		return nil, l.err
	}
	h, ok := l.handles[id]
	if !ok {
		return nil, errors.New("no such backend " + id)
	}
	return h, nil
}

// fakeEngine records browser tasks.
type fakeEngine struct {
	result browser.Result
	err    error
	block  bool
	tasks  []browser.Task
	closed int
}

func (e *fakeEngine) Run(ctx context.Context, task browser.Task, observer events.Callback) (browser.Result, error) {
	e.tasks = append(e.tasks, task)
	if observer != nil {
		_ = observer(events.EventStep, events.StepEvent{Number: 1, Message: "navigate"})
	}
	if e.block {
		<-ctx.Done()
		return browser.Result{}, ctx.Err()
	}
	return e.result, e.err
}

func (e *fakeEngine) Close() error {
	e.closed++
	return nil
}

type querySpy struct {
	tools   []string
	success []bool
}

func (q *querySpy) RecordQuery(tool string, _ time.Duration, success bool) {
	q.tools = append(q.tools, tool)
	q.success = append(q.success, success)
}

// fixture bundles a session with its collaborators.
type fixture struct {
	session  *Session
	llm      *mocks.MockLLM
	calendar *fakeHandle
	gmail    *fakeHandle
	launcher *fakeLauncher
	engine   *fakeEngine
	engines  int
	recorder *querySpy
}

func fixedNow() time.Time {
	return time.Date(2025, 10, 28, 9, 30, 0, 0, time.UTC)
}

func newFixture(mutate func(*profile.Profile)) *fixture {
	f := &fixture{
		llm: mocks.NewMockLLM().WithDefaultError(errors.New("llm offline")),
		calendar: &fakeHandle{
			replies: map[string]reply{},
			tools: []backend.ToolInfo{
				{Name: "list_calendar_events", Description: "List events"},
				{Name: "create_calendar_event", Description: "Create an event"},
			},
		},
		gmail: &fakeHandle{
			replies: map[string]reply{},
			tools: []backend.ToolInfo{
				{Name: "list_emails", Description: "List emails"},
				{Name: "read_email", Description: "Read one email"},
				{Name: "send_email", Description: "Send an email"},
			},
		},
		engine:   &fakeEngine{},
		recorder: &querySpy{},
	}
	f.launcher = &fakeLauncher{handles: map[string]*fakeHandle{
		backend.Calendar: f.calendar,
		backend.Gmail:    f.gmail,
	}}

	prof := profile.Default()
	if mutate != nil {
		mutate(prof)
	}
	f.session = New(Config{
		Profile:  prof,
		LLM:      f.llm,
		Backends: backend.NewManager(f.launcher, backend.Options{Settle: -1}),
		NewEngine: func() browser.Engine {
			f.engines++
			return f.engine
		},
		Recorder:       f.recorder,
		SummaryTimeout: 50 * time.Millisecond,
		Now:            fixedNow,
	})
	return f
}
