// Package session owns the per-process conversation state and turns each
// user query into a routed capability call.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/switchboard/ai/agents/events"
	"github.com/hrygo/switchboard/ai/agents/registry"
	"github.com/hrygo/switchboard/ai/agents/universal"
	"github.com/hrygo/switchboard/ai/backend"
	"github.com/hrygo/switchboard/ai/browser"
	"github.com/hrygo/switchboard/ai/core/llm"
	"github.com/hrygo/switchboard/ai/extract"
	"github.com/hrygo/switchboard/ai/observability/logging"
	"github.com/hrygo/switchboard/ai/router"
	"github.com/hrygo/switchboard/internal/profile"
)

const (
	// chatContextTurns is how many past turns the chat prompt recalls.
	chatContextTurns = 3
	// DefaultSummaryTimeout bounds the summarization LLM call.
	DefaultSummaryTimeout = 60 * time.Second
)

// Turn is one chat exchange.
type Turn struct {
	Query    string
	Response string
}

// QueryRecorder counts processed turns. Implemented by the metrics exporter.
type QueryRecorder interface {
	RecordQuery(tool string, latency time.Duration, success bool)
}

// Backends is the part of backend.Manager the session drives.
type Backends interface {
	EnsureConnected(ctx context.Context, id string, reg *registry.Registry) (backend.Handle, error)
	Call(ctx context.Context, id, operation string, params map[string]any) (string, error)
	Reconnect(ctx context.Context, id string) (backend.Handle, error)
	Disconnect(id string)
	DisconnectAll(ctx context.Context) error
	Status() map[string]backend.State
}

// Config wires a Session.
type Config struct {
	Profile   *profile.Profile
	LLM       llm.Service
	Router    *router.Service
	Backends  Backends
	Registry  *registry.Registry
	NewEngine func() browser.Engine // called lazily on the first browser task

	Extraction extract.OutcomeRecorder
	Recorder   QueryRecorder

	// Output receives progress lines written while a turn runs.
	Output         io.Writer
	SummaryTimeout time.Duration
	Now            func() time.Time
	Logger         *slog.Logger
}

// Session is one interactive session. Turns are processed one at a time;
// methods must not be called concurrently.
type Session struct {
	id       string
	prof     *profile.Profile
	llm      llm.Service
	router   *router.Service
	backends Backends
	registry *registry.Registry
	recorder QueryRecorder

	newEngine func() browser.Engine
	engine    browser.Engine
	optimizer *browser.Optimizer
	agent     *universal.Agent

	chains map[extract.Family]*extract.Chain

	history        []Turn
	commandHistory []string
	forceTool      *router.ToolType

	out            io.Writer
	summaryTimeout time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

// New creates a Session.
func New(cfg Config) *Session {
	if cfg.Profile == nil {
		cfg.Profile = profile.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	if cfg.SummaryTimeout <= 0 {
		cfg.SummaryTimeout = DefaultSummaryTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Registry == nil {
		cfg.Registry = registry.New()
	}
	if cfg.Router == nil {
		cfg.Router = router.NewService(router.Config{LLM: cfg.LLM, Logger: cfg.Logger})
	}

	id := uuid.New().String()
	logger := cfg.Logger.With("session", id)

	gen := extract.NewGenerator(cfg.LLM, logger)
	chains := make(map[extract.Family]*extract.Chain, 2)
	for _, f := range []extract.Family{extract.FamilyCalendar, extract.FamilyEmail} {
		var strategy *extract.LLMStrategy
		if cfg.LLM != nil {
			strategy = extract.NewLLMStrategy(f, cfg.LLM, gen, logger)
			strategy.Now = cfg.Now
		}
		chain := extract.NewChain(f, strategy, gen, cfg.Extraction, logger)
		for _, s := range chain.Strategies {
			if r, ok := s.(*extract.CalendarRegex); ok {
				r.Now = cfg.Now
			}
		}
		chains[f] = chain
	}

	return &Session{
		id:             id,
		prof:           cfg.Profile,
		llm:            cfg.LLM,
		router:         cfg.Router,
		backends:       cfg.Backends,
		registry:       cfg.Registry,
		recorder:       cfg.Recorder,
		newEngine:      cfg.NewEngine,
		optimizer:      browser.NewOptimizer(cfg.LLM, logger),
		chains:         chains,
		out:            cfg.Output,
		summaryTimeout: cfg.SummaryTimeout,
		now:            cfg.Now,
		logger:         logger,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// History returns a copy of the chat history.
func (s *Session) History() []Turn {
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// CommandHistory returns a copy of every line entered.
func (s *Session) CommandHistory() []string {
	out := make([]string, len(s.commandHistory))
	copy(out, s.commandHistory)
	return out
}

// ProcessForced runs query with tool, bypassing routing for this turn only.
func (s *Session) ProcessForced(ctx context.Context, tool router.ToolType, query string) string {
	s.forceTool = &tool
	defer func() { s.forceTool = nil }()
	return s.ProcessQuery(ctx, query)
}

// ProcessQuery runs one turn. Failures are rendered into the returned text.
func (s *Session) ProcessQuery(ctx context.Context, query string) string {
	start := time.Now()
	logger := s.logger.With("turn", shortuuid.New())
	ctx = logging.ToContext(ctx, logger)

	var decision router.ToolDecision
	if tool, ok := s.override(query); ok {
		query = router.StripCommandPrefix(query)
		decision = s.router.Route(ctx, query, &tool)
		logger.Info("Manual override", "tool", tool.Upper())
	} else {
		decision = s.router.Route(ctx, query, nil)
	}

	text, err := s.dispatch(ctx, decision, query)
	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		text = "Interrupted"
	}
	if err != nil {
		logger.Warn("Turn failed", "tool", decision.PrimaryTool, "error", err)
	}
	if s.recorder != nil {
		s.recorder.RecordQuery(string(decision.PrimaryTool), time.Since(start), err == nil)
	}
	logger.Debug("Turn complete", "tool", decision.PrimaryTool, "method", decision.Method, "latency_ms", time.Since(start).Milliseconds())
	return text
}

func (s *Session) override(query string) (router.ToolType, bool) {
	if s.forceTool != nil {
		return *s.forceTool, true
	}
	return router.DetectOverride(query)
}

func (s *Session) dispatch(ctx context.Context, d router.ToolDecision, query string) (string, error) {
	forced := d.Method == router.MethodForced
	switch d.PrimaryTool {
	case router.ToolChat:
		if s.prof.DisableChat {
			if forced {
				return "Chat mode disabled", errChatDisabled
			}
			logging.FromContext(ctx).Warn("Pure chat mode is disabled, using browser instead")
			return s.browse(ctx, query)
		}
		return s.chat(ctx, query)
	case router.ToolCalendar:
		return s.runBackendTask(ctx, extract.FamilyCalendar, query)
	case router.ToolEmail:
		return s.runBackendTask(ctx, extract.FamilyEmail, query)
	default:
		return s.browse(ctx, query)
	}
}

var errChatDisabled = errors.New("chat mode disabled")

// Clear tears down the browser engine and the agent.
func (s *Session) Clear() error {
	s.agent = nil
	if s.engine == nil {
		return nil
	}
	err := s.engine.Close()
	s.engine = nil
	return err
}

// Close releases everything the session started.
func (s *Session) Close(ctx context.Context) error {
	err := s.Clear()
	if s.backends != nil {
		err = errors.Join(err, s.backends.DisconnectAll(ctx))
	}
	return err
}

func (s *Session) agentHandle() *universal.Agent {
	if s.agent == nil {
		s.agent = universal.New(universal.Config{
			LLM:      s.llm,
			Registry: s.registry,
			Invoker:  s.backends,
			Now:      s.now,
			Logger:   s.logger,
		})
	}
	return s.agent
}

// stepPrinter renders agent and browser events on the session output.
func (s *Session) stepPrinter() events.Callback {
	if s.prof.Quiet {
		return events.NoopCallback
	}
	return func(eventType string, data any) error {
		switch ev := data.(type) {
		case events.StepEvent:
			switch eventType {
			case events.EventThinking:
				if s.prof.Verbose {
					s.printf("  💭 %s\n", ev.Message)
				}
			default:
				s.printf("  📍 Step %d: %s\n", ev.Number, ev.Message)
			}
		case events.ToolCallEvent:
			s.printf("  🔧 %s.%s\n", ev.Backend, ev.Operation)
		}
		return nil
	}
}
