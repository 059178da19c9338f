package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// ResponseAdapter is implemented once per provider family. Complete performs
// the provider call and returns its native response; ExtractText pulls the
// reply text out of that response. Providers are chosen in NewService, so the
// response shape is known statically and never inspected per call.
type ResponseAdapter[R any] interface {
	Complete(ctx context.Context, messages []Message) (R, error)
	ExtractText(resp R) (string, error)
}

// usageReporter is optionally implemented by adapters that expose token usage.
type usageReporter[R any] interface {
	Usage(resp R) LLMCallStats
}

// adaptedService turns a ResponseAdapter into a Service.
type adaptedService[R any] struct {
	adapter  ResponseAdapter[R]
	provider string
	model    string
	timeout  time.Duration
	limiter  *rate.Limiter
	recorder CallRecorder
	logger   *slog.Logger
}

func newAdaptedService[R any](adapter ResponseAdapter[R], provider string, cfg *Config) *adaptedService[R] {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &adaptedService[R]{
		adapter:  adapter,
		provider: provider,
		model:    cfg.Model,
		recorder: cfg.Recorder,
		logger:   logger,
	}
	if cfg.Timeout > 0 {
		s.timeout = time.Duration(cfg.Timeout) * time.Second
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return s
}

func (s *adaptedService[R]) Chat(ctx context.Context, messages []Message) (string, *LLMCallStats, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", nil, fmt.Errorf("LLM rate limit wait: %w", err)
		}
	}

	s.logger.Debug("LLM: Chat request",
		"provider", s.provider,
		"model", s.model,
		"messages_count", len(messages),
	)

	start := time.Now()
	resp, err := s.adapter.Complete(ctx, messages)
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Error("LLM: Chat request failed", "provider", s.provider, "error", err)
		if s.recorder != nil {
			s.recorder.RecordLLMError(s.model, s.provider)
		}
		return "", nil, fmt.Errorf("LLM chat failed: %w", err)
	}

	text, err := s.adapter.ExtractText(resp)
	if err != nil {
		s.logger.Warn("LLM: no text in response", "provider", s.provider, "error", err)
		if s.recorder != nil {
			s.recorder.RecordLLMError(s.model, s.provider)
		}
		return "", nil, err
	}

	stats := &LLMCallStats{TotalDurationMs: elapsed.Milliseconds()}
	if u, ok := any(s.adapter).(usageReporter[R]); ok {
		usage := u.Usage(resp)
		stats.PromptTokens = usage.PromptTokens
		stats.CompletionTokens = usage.CompletionTokens
		stats.TotalTokens = usage.TotalTokens
	}

	if s.recorder != nil {
		s.recorder.RecordLLMLatency(s.model, s.provider, elapsed)
		if stats.PromptTokens > 0 {
			s.recorder.RecordLLMTokens(s.model, "prompt", stats.PromptTokens)
		}
		if stats.CompletionTokens > 0 {
			s.recorder.RecordLLMTokens(s.model, "completion", stats.CompletionTokens)
		}
	}

	s.logger.Debug("LLM: Chat response",
		"provider", s.provider,
		"chars", len(text),
		"duration_ms", elapsed.Milliseconds(),
	)
	return text, stats, nil
}

func (s *adaptedService[R]) Warmup(ctx context.Context) {
	warmupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	start := time.Now()
	_, err := s.adapter.Complete(warmupCtx, []Message{UserMessage("Hi")})
	if err != nil {
		s.logger.Warn("LLM: warmup ping failed (service will still work, first request may be slower)",
			"provider", s.provider,
			"model", s.model,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	s.logger.Info("LLM: connection warmed up successfully",
		"provider", s.provider,
		"model", s.model,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
