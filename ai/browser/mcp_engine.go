package browser

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/hrygo/switchboard/ai/agents/events"
	"github.com/hrygo/switchboard/ai/backend"
)

const (
	defaultTool       = "run_task"
	maxActionsPerStep = 10
)

// Backends is the part of backend.Manager the engine needs.
type Backends interface {
	Connect(ctx context.Context, id string) (backend.Handle, error)
	Call(ctx context.Context, id, operation string, params map[string]any) (string, error)
	Disconnect(id string)
}

// MCPEngine runs tasks through the browser backend's MCP tool.
type MCPEngine struct {
	backends Backends
	opts     Options
	http     *http.Client
	probeURL string
	logger   *slog.Logger

	mu       sync.Mutex
	prepared bool
	cdpURL   string
}

// NewMCPEngine creates an engine. Nothing is started until the first Run.
func NewMCPEngine(backends Backends, opts Options, logger *slog.Logger) *MCPEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Tool == "" {
		opts.Tool = defaultTool
	}
	return &MCPEngine{backends: backends, opts: opts, http: http.DefaultClient, probeURL: DefaultCDPURL, logger: logger}
}

// Run implements Engine.
func (e *MCPEngine) Run(ctx context.Context, task Task, observer events.Callback) (Result, error) {
	if _, err := e.backends.Connect(ctx, backend.Browser); err != nil {
		return Result{}, err
	}
	e.prepare(ctx)

	safe := events.WrapSafe(observer)
	var (
		stepMu sync.Mutex
		steps  int
	)
	ctx = backend.WithProgress(ctx, func(u backend.ProgressUpdate) {
		stepMu.Lock()
		steps++
		n := steps
		stepMu.Unlock()
		safe.Emit(events.EventStep, events.StepEvent{
			Number:   n,
			Message:  u.Message,
			Progress: u.Progress,
			Total:    u.Total,
		})
	})

	e.logger.Info("Running browser task",
		"max_steps", task.MaxSteps,
		"vision", task.UseVision,
		"headless", e.opts.Headless,
		"cdp", e.cdpURL != "",
	)
	out, err := e.backends.Call(ctx, backend.Browser, e.opts.Tool, e.params(task))
	stepMu.Lock()
	result := Result{Text: strings.TrimSpace(out), Steps: steps}
	stepMu.Unlock()
	if err != nil {
		safe.Emit(events.EventError, err.Error())
		return result, err
	}
	safe.Emit(events.EventResult, result.Text)
	return result, nil
}

// Close implements Engine.
func (e *MCPEngine) Close() error {
	e.backends.Disconnect(backend.Browser)
	e.mu.Lock()
	e.prepared = false
	e.cdpURL = ""
	e.mu.Unlock()
	return nil
}

// CDPURL returns the Chrome endpoint in use, empty when the backend
// launches its own browser.
func (e *MCPEngine) CDPURL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cdpURL
}

// prepare resolves the Chrome endpoint once per engine lifetime: a
// configured URL wins, otherwise a Chrome already listening on the default
// port is reused.
func (e *MCPEngine) prepare(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.prepared {
		return
	}
	e.prepared = true

	if e.opts.CDPURL != "" {
		e.cdpURL = e.opts.CDPURL
		return
	}
	v, err := ProbeCDP(ctx, e.http, e.probeURL)
	if err != nil {
		e.logger.Debug("No existing Chrome found", "url", e.probeURL, "error", err)
		return
	}
	e.logger.Info("Found existing Chrome", "url", e.probeURL, "browser", v.Browser)
	e.cdpURL = e.probeURL
}

func (e *MCPEngine) params(task Task) map[string]any {
	p := map[string]any{
		"task":                 task.Prompt,
		"max_steps":            task.MaxSteps,
		"use_vision":           task.UseVision,
		"headless":             e.opts.Headless,
		"max_actions_per_step": maxActionsPerStep,
	}
	if task.Query != "" {
		p["system_prompt_suffix"] = systemPromptSuffix(task.Query)
	}
	if e.cdpURL != "" {
		p["cdp_url"] = e.cdpURL
	}
	if e.opts.UserDataDir != "" {
		p["user_data_dir"] = e.opts.UserDataDir
	}
	if e.opts.ProfileDirectory != "" {
		p["profile_directory"] = e.opts.ProfileDirectory
	}
	return p
}

var _ Engine = (*MCPEngine)(nil)
