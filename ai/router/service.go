package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/switchboard/ai/core/llm"
	"github.com/hrygo/switchboard/ai/internal/strutil"
)

// DecisionRecorder receives one observation per routed turn.
type DecisionRecorder interface {
	RecordRoute(tool, method string)
}

// Config contains the configuration for the router service.
type Config struct {
	LLM      llm.Service
	Logger   *slog.Logger
	Recorder DecisionRecorder
}

// Service routes queries: forced override first, then LLM classification,
// then keyword fallback.
type Service struct {
	llm      llm.Service
	logger   *slog.Logger
	recorder DecisionRecorder
}

// NewService creates a new router service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{llm: cfg.LLM, logger: logger, recorder: cfg.Recorder}
}

// routingReply is the JSON shape the routing prompt asks for.
type routingReply struct {
	PrimaryTool     string   `json:"primary_tool"`
	SecondaryTools  []string `json:"secondary_tools"`
	Reasoning       string   `json:"reasoning"`
	SpecificActions []string `json:"specific_actions"`
}

var errEmptyReply = errors.New("LLM returned empty response")

// Route returns the decision for query. It never fails: any problem with
// the LLM reply is absorbed by Fallback.
func (s *Service) Route(ctx context.Context, query string, forced *ToolType) ToolDecision {
	start := time.Now()
	decision := s.route(ctx, query, forced)

	s.logger.Debug("query routed",
		"query", strutil.Truncate(query, 50),
		"decision", FormatDecision(decision),
		"method", decision.Method,
		"pure_chat", IsPureChatQuery(query),
		"multi_tool", DetectMultiTool(query),
		"latency_ms", time.Since(start).Milliseconds())
	if s.recorder != nil {
		s.recorder.RecordRoute(string(decision.PrimaryTool), decision.Method)
	}
	return decision
}

func (s *Service) route(ctx context.Context, query string, forced *ToolType) ToolDecision {
	if forced != nil {
		return ToolDecision{
			PrimaryTool:     *forced,
			SecondaryTools:  []ToolType{},
			Reasoning:       fmt.Sprintf("User explicitly requested %s tool", *forced),
			SpecificActions: []string{query},
			OriginalQuery:   query,
			Method:          MethodForced,
		}
	}

	if s.llm == nil {
		return Fallback(query, "no LLM configured")
	}

	text, _, err := s.llm.Chat(ctx, []llm.Message{llm.UserMessage(BuildRoutingPrompt(query))})
	if err != nil {
		s.logger.Warn("LLM routing failed, using keyword fallback", "error", err)
		return Fallback(query, err.Error())
	}

	decision, err := parseRoutingReply(text, query)
	if err != nil {
		s.logger.Warn("LLM routing reply unusable, using keyword fallback",
			"error", err,
			"reply", strutil.Truncate(text, 200))
		return Fallback(query, err.Error())
	}
	return decision
}

func parseRoutingReply(text, query string) (ToolDecision, error) {
	cleaned := strutil.StripCodeFence(text)
	if cleaned == "" {
		return ToolDecision{}, errEmptyReply
	}

	var reply routingReply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		return ToolDecision{}, fmt.Errorf("parse routing JSON: %w", err)
	}
	if strings.TrimSpace(reply.PrimaryTool) == "" {
		return ToolDecision{}, errors.New("routing JSON missing primary_tool")
	}

	primary, err := ParseToolType(reply.PrimaryTool)
	if err != nil {
		return ToolDecision{}, err
	}

	secondary := make([]ToolType, 0, len(reply.SecondaryTools))
	for _, name := range reply.SecondaryTools {
		t, err := ParseToolType(name)
		if err != nil {
			return ToolDecision{}, fmt.Errorf("secondary tools: %w", err)
		}
		secondary = append(secondary, t)
	}

	actions := reply.SpecificActions
	if len(actions) == 0 {
		actions = []string{query}
	}

	return ToolDecision{
		PrimaryTool:     primary,
		SecondaryTools:  secondary,
		Reasoning:       reply.Reasoning,
		SpecificActions: actions,
		OriginalQuery:   query,
		Method:          MethodLLM,
	}, nil
}
