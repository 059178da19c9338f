package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hrygo/switchboard/internal/version"
)

const (
	// DefaultCallTimeout bounds each backend call.
	DefaultCallTimeout = 30 * time.Second
	// closeGrace is how long a graceful session close may take before the
	// process is killed.
	closeGrace = 5 * time.Second

	stderrTailBytes = 8 << 10
)

// Spec describes how to start one backend server.
type Spec struct {
	Command string
	Args    []string
	Env     []string // extra KEY=VALUE pairs appended to the parent environment

	// CallTimeout bounds each call; zero means DefaultCallTimeout and a
	// negative value disables the bound.
	CallTimeout time.Duration

	// WrapInput sends call parameters as {"input_data": params} and
	// advertises the inner input_data schema as the operation schema.
	WrapInput bool

	// MinServerVersion logs a warning for servers reporting an older version.
	MinServerVersion string
}

// MCPLauncher starts backend servers as child processes speaking MCP over
// stdio.
type MCPLauncher struct {
	Specs  map[string]Spec
	Logger *slog.Logger
}

// NewMCPLauncher creates a launcher for the given backend specs.
func NewMCPLauncher(specs map[string]Spec, logger *slog.Logger) *MCPLauncher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCPLauncher{Specs: specs, Logger: logger}
}

// Launch implements Launcher.
func (l *MCPLauncher) Launch(ctx context.Context, id string) (Handle, error) {
	spec, ok := l.Specs[id]
	if !ok || strings.TrimSpace(spec.Command) == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, id)
	}

	// The process outlives the request context that started it.
	// #nosec G204 -- command comes from local configuration
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Env = append(os.Environ(), spec.Env...)
	stderr := newTailBuffer(stderrTailBytes)
	cmd.Stderr = stderr

	h, err := connectMCP(ctx, id, spec, &mcp.CommandTransport{Command: cmd}, l.Logger)
	if err != nil {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		if tail := stderr.String(); tail != "" {
			return nil, fmt.Errorf("start %s backend: %w: %s", id, err, tail)
		}
		return nil, fmt.Errorf("start %s backend: %w", id, err)
	}
	h.cmd = cmd
	h.stderr = stderr
	return h, nil
}

// mcpHandle is a Handle backed by an MCP client session.
type mcpHandle struct {
	id      string
	spec    Spec
	session *mcp.ClientSession
	cmd     *exec.Cmd
	stderr  *tailBuffer
	logger  *slog.Logger
	done    chan struct{}

	tokenSeq  atomic.Int64
	mu        sync.Mutex
	listeners map[string]func(ProgressUpdate)
	closeOnce sync.Once
	closeErr  error
}

func connectMCP(ctx context.Context, id string, spec Spec, transport mcp.Transport, logger *slog.Logger) (*mcpHandle, error) {
	h := &mcpHandle{
		id:        id,
		spec:      spec,
		logger:    logger,
		done:      make(chan struct{}),
		listeners: make(map[string]func(ProgressUpdate)),
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "switchboard", Version: version.String()}, &mcp.ClientOptions{
		ProgressNotificationHandler: func(_ context.Context, req *mcp.ProgressNotificationClientRequest) {
			h.dispatchProgress(req.Params)
		},
	})
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, err
	}
	h.session = session

	go func() {
		_ = session.Wait()
		close(h.done)
	}()

	if init := session.InitializeResult(); init != nil && init.ServerInfo != nil {
		serverVersion := init.ServerInfo.Version
		if !version.CompatibleServer(serverVersion, spec.MinServerVersion) {
			logger.Warn("Backend server older than supported",
				"backend", id,
				"server", init.ServerInfo.Name,
				"version", serverVersion,
				"min_version", spec.MinServerVersion,
			)
		}
	}
	return h, nil
}

func (h *mcpHandle) callTimeout() time.Duration {
	if h.spec.CallTimeout == 0 {
		return DefaultCallTimeout
	}
	return h.spec.CallTimeout
}

// Call implements Handle.
func (h *mcpHandle) Call(ctx context.Context, operation string, params map[string]any) (string, error) {
	if !h.IsAlive() {
		return "", fmt.Errorf("%w: %s", ErrNotConnected, h.id)
	}
	if params == nil {
		params = map[string]any{}
	}
	var args any = params
	if h.spec.WrapInput {
		args = wrapInput(params)
	}

	callCtx := ctx
	timeout := h.callTimeout()
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	callParams := &mcp.CallToolParams{Name: operation, Arguments: args}
	if fn := ProgressFromContext(ctx); fn != nil {
		token := fmt.Sprintf("%s-%d", h.id, h.tokenSeq.Add(1))
		callParams.SetProgressToken(token)
		h.mu.Lock()
		h.listeners[token] = fn
		h.mu.Unlock()
		defer func() {
			h.mu.Lock()
			delete(h.listeners, token)
			h.mu.Unlock()
		}()
	}

	res, err := h.session.CallTool(callCtx, callParams)
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", &TimeoutError{Operation: operation, After: timeout}
		}
		return "", fmt.Errorf("call %s on %s: %w", operation, h.id, err)
	}

	text := resultText(res)
	if res.IsError {
		return "", &ToolError{Operation: operation, Message: text}
	}
	return text, nil
}

func resultText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func (h *mcpHandle) dispatchProgress(p *mcp.ProgressNotificationParams) {
	if p == nil {
		return
	}
	token := fmt.Sprint(p.ProgressToken)
	h.mu.Lock()
	fn := h.listeners[token]
	h.mu.Unlock()
	if fn != nil {
		fn(ProgressUpdate{Message: p.Message, Progress: p.Progress, Total: p.Total})
	}
}

// Tools implements Handle.
func (h *mcpHandle) Tools(ctx context.Context) ([]ToolInfo, error) {
	if !h.IsAlive() {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, h.id)
	}
	var out []ToolInfo
	for tool, err := range h.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("list %s tools: %w", h.id, err)
		}
		info := ToolInfo{Name: tool.Name, Description: tool.Description}
		if schema, ok := tool.InputSchema.(map[string]any); ok {
			if h.spec.WrapInput {
				schema = unwrapInputSchema(schema)
			}
			info.InputSchema = schema
		}
		out = append(out, info)
	}
	return out, nil
}

// IsAlive implements Handle.
func (h *mcpHandle) IsAlive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Stderr implements Handle.
func (h *mcpHandle) Stderr() string {
	if h.stderr == nil {
		return ""
	}
	return h.stderr.String()
}

// Close implements Handle. The session gets closeGrace to shut down before
// the process is killed.
func (h *mcpHandle) Close() error {
	h.closeOnce.Do(func() {
		closed := make(chan error, 1)
		go func() { closed <- h.session.Close() }()

		select {
		case err := <-closed:
			h.closeErr = err
		case <-time.After(closeGrace):
			h.logger.Warn("Backend did not stop in time, killing", "backend", h.id)
			if h.cmd != nil && h.cmd.Process != nil {
				h.closeErr = h.cmd.Process.Kill()
			}
		}
	})
	return h.closeErr
}

var _ Handle = (*mcpHandle)(nil)
