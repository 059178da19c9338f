package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
)

type langchainResponse = *llms.ContentResponse

// langchainAdapter serves providers without an OpenAI-compatible endpoint.
type langchainAdapter struct {
	model       llms.Model
	maxTokens   int
	temperature float32
}

func newLangchainAdapter(provider string, cfg *Config) (*langchainAdapter, error) {
	var (
		model llms.Model
		err   error
	)
	switch provider {
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		model, err = anthropic.New(opts...)
	case "google", "gemini":
		opts := []googleai.Option{googleai.WithAPIKey(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, googleai.WithDefaultModel(cfg.Model))
		}
		model, err = googleai.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", provider, err)
	}
	return &langchainAdapter{model: model, maxTokens: cfg.MaxTokens, temperature: cfg.Temperature}, nil
}

func (a *langchainAdapter) Complete(ctx context.Context, messages []Message) (*llms.ContentResponse, error) {
	var opts []llms.CallOption
	if a.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(a.maxTokens))
	}
	if a.temperature > 0 {
		opts = append(opts, llms.WithTemperature(float64(a.temperature)))
	}
	return a.model.GenerateContent(ctx, toMessageContent(messages), opts...)
}

func (a *langchainAdapter) ExtractText(resp *llms.ContentResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", ErrEmptyResponse
	}
	text := resp.Choices[0].Content
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func toMessageContent(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case "system":
			role = llms.ChatMessageTypeSystem
		case "assistant":
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}
