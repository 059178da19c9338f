package llm

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type openAIResponse = openai.ChatCompletionResponse

// chatCompleter is the subset of *openai.Client used by the adapter.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// openAIAdapter serves every OpenAI-compatible provider, Ollama included.
type openAIAdapter struct {
	client      chatCompleter
	model       string
	maxTokens   int
	temperature float32
}

func newOpenAIAdapter(cfg *Config, baseURL string) *openAIAdapter {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	clientConfig.HTTPClient = newHTTPClient()

	return &openAIAdapter{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (a *openAIAdapter) Complete(ctx context.Context, messages []Message) (openai.ChatCompletionResponse, error) {
	return a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		Messages:    convertMessages(messages),
	})
}

func (a *openAIAdapter) ExtractText(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (a *openAIAdapter) Usage(resp openai.ChatCompletionResponse) LLMCallStats {
	return LLMCallStats{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		out[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}
