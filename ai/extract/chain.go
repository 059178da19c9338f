package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// OutcomeRecorder counts strategy outcomes. Implemented by the metrics exporter.
type OutcomeRecorder interface {
	RecordExtraction(family, strategy string, ok bool)
}

// Chain tries strategies in order; the first operation wins.
type Chain struct {
	Family     Family
	Strategies []Strategy
	Recorder   OutcomeRecorder
	Logger     *slog.Logger
}

// NewChain creates the standard LLM-then-regex chain for a family.
func NewChain(family Family, llmStrategy *LLMStrategy, gen *Generator, rec OutcomeRecorder, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	var strategies []Strategy
	if llmStrategy != nil {
		strategies = append(strategies, llmStrategy)
	}
	switch family {
	case FamilyCalendar:
		strategies = append(strategies, &CalendarRegex{})
	case FamilyEmail:
		strategies = append(strategies, &EmailRegex{Generator: gen})
	}
	return &Chain{Family: family, Strategies: strategies, Recorder: rec, Logger: logger}
}

// Extract returns the first operation produced by a strategy. When all fail
// the error wraps ErrNoOperation and every individual failure.
func (c *Chain) Extract(ctx context.Context, query string) (*ParsedOperation, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var failures []error
	for _, s := range c.Strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		op, err := s.Extract(ctx, query)
		if err == nil && op != nil {
			c.record(s.Name(), true)
			logger.Debug("Operation extracted", "family", c.Family, "strategy", s.Name(), "operation", op.Operation)
			return op, nil
		}
		if err == nil {
			err = &ExtractionError{Strategy: s.Name(), Reason: "no result"}
		}
		c.record(s.Name(), false)
		logger.Warn("Extraction strategy failed", "family", c.Family, "strategy", s.Name(), "error", err)
		failures = append(failures, err)
	}
	if len(failures) == 0 {
		return nil, ErrNoOperation
	}
	return nil, fmt.Errorf("%w: %w", ErrNoOperation, errors.Join(failures...))
}

func (c *Chain) record(strategy string, ok bool) {
	if c.Recorder != nil {
		c.Recorder.RecordExtraction(string(c.Family), strategy, ok)
	}
}
