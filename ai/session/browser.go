package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/hrygo/switchboard/ai/browser"
	"github.com/hrygo/switchboard/ai/observability/logging"
)

var errNoEngine = errors.New("browser automation is not configured")

func (s *Session) browse(ctx context.Context, query string) (string, error) {
	logger := logging.FromContext(ctx)
	if s.engine == nil {
		if s.newEngine == nil {
			return "Failed: " + errNoEngine.Error(), errNoEngine
		}
		s.engine = s.newEngine()
		logger.Info("Browser engine created")
	}

	prompt := s.optimizer.Prepare(ctx, query, s.prof.Optimize)
	logger.Info("Running browser task",
		"max_steps", s.prof.MaxSteps,
		"vision", s.prof.UseVision,
		"headless", s.prof.Headless,
		"optimized", s.prof.Optimize,
	)

	res, err := s.engine.Run(ctx, browser.Task{
		Prompt:    prompt,
		Query:     query,
		MaxSteps:  s.prof.MaxSteps,
		UseVision: s.prof.UseVision,
	}, s.stepPrinter())
	switch {
	case err != nil && errors.Is(ctx.Err(), context.Canceled):
		logger.Warn("Browser task interrupted")
		return "Interrupted", err
	case err != nil:
		logger.Error("Browser task failed", "error", err)
		return fmt.Sprintf("Failed: %v", err), err
	case res.Text == "":
		return "Task completed", nil
	}
	logger.Info("Browser task completed", "steps", res.Steps)
	return res.Text, nil
}
