// Package llm provides the chat-completion capability used by the router,
// the parameter extractors and the chat dispatcher.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// LLMCallStats represents statistics for a single LLM call.
type LLMCallStats struct {
	PromptTokens     int   `json:"prompt_tokens"`
	CompletionTokens int   `json:"completion_tokens"`
	TotalTokens      int   `json:"total_tokens"`
	TotalDurationMs  int64 `json:"total_duration_ms"`
}

// Service is the LLM service interface.
type Service interface {
	// Chat sends the messages and returns the reply text.
	Chat(ctx context.Context, messages []Message) (string, *LLMCallStats, error)

	// Warmup sends a lightweight ping to establish the provider connection.
	Warmup(ctx context.Context)
}

// CallRecorder receives per-call measurements. Implemented by the metrics exporter.
type CallRecorder interface {
	RecordLLMLatency(model, provider string, d time.Duration)
	RecordLLMTokens(model, tokenType string, count int)
	RecordLLMError(model, provider string)
}

var (
	// ErrEmptyResponse is returned when the provider answered without any text.
	ErrEmptyResponse = errors.New("empty response from LLM")
	// ErrUnsupportedProvider is returned by NewService for unknown adapter families.
	ErrUnsupportedProvider = errors.New("unsupported LLM provider")
)

// Config represents LLM service configuration.
type Config struct {
	Provider    string // openai, ollama, anthropic, google, deepseek, openrouter, ...
	Model       string
	APIKey      string
	BaseURL     string // for ollama this is the host, e.g. http://localhost:11434
	MaxTokens   int
	Temperature float32

	// Timeout bounds each call in seconds. Zero leaves calls unbounded so the
	// caller decides (summarization wraps its own deadline).
	Timeout int

	// RequestsPerSecond throttles calls when positive.
	RequestsPerSecond float64

	Recorder CallRecorder
	Logger   *slog.Logger
}

// Provider base URLs for OpenAI-compatible endpoints.
var openAICompatibleDefaults = map[string]string{
	"openai":      "",
	"deepseek":    "https://api.deepseek.com",
	"siliconflow": "https://api.siliconflow.cn/v1",
	"dashscope":   "https://dashscope.aliyuncs.com/compatible-mode/v1",
	"openrouter":  "https://openrouter.ai/api/v1",
	"zai":         "https://open.bigmodel.cn/api/paas/v4",
	"ollama":      "http://localhost:11434",
}

// NewService selects the response adapter for cfg.Provider once, at
// construction time, and wraps it in a Service.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm config is nil")
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case "anthropic", "google", "gemini":
		adapter, err := newLangchainAdapter(provider, cfg)
		if err != nil {
			return nil, err
		}
		return newAdaptedService[langchainResponse](adapter, provider, cfg), nil
	case "":
		return nil, fmt.Errorf("%w: provider is empty", ErrUnsupportedProvider)
	}

	baseURL := cfg.BaseURL
	if def, ok := openAICompatibleDefaults[provider]; ok && baseURL == "" {
		baseURL = def
	} else if !ok {
		slog.Info("Using generic OpenAI-compatible provider", "provider", provider)
	}
	if provider == "ollama" {
		baseURL = ollamaBaseURL(baseURL)
	}

	adapter := newOpenAIAdapter(cfg, baseURL)
	return newAdaptedService[openAIResponse](adapter, provider, cfg), nil
}

// ollamaBaseURL maps an Ollama host to its OpenAI-compatible endpoint.
func ollamaBaseURL(host string) string {
	host = strings.TrimRight(host, "/")
	if strings.HasSuffix(host, "/v1") {
		return host
	}
	return host + "/v1"
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// SystemPrompt creates a system message.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// FormatMessages formats messages for prompt templates.
func FormatMessages(systemPrompt string, userContent string, history []Message) []Message {
	messages := []Message{}
	if systemPrompt != "" {
		messages = append(messages, SystemPrompt(systemPrompt))
	}
	messages = append(messages, history...)
	messages = append(messages, UserMessage(userContent))
	return messages
}
