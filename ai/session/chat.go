package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hrygo/switchboard/ai/core/llm"
	"github.com/hrygo/switchboard/ai/observability/logging"
)

const chatPromptTemplate = `You are a helpful AI assistant having a natural conversation.

Previous conversation:
%s

User: %s

Respond naturally and helpfully.`

// BuildChatPrompt renders the chat prompt with the most recent turns as context.
func BuildChatPrompt(history []Turn, query string) string {
	if len(history) > chatContextTurns {
		history = history[len(history)-chatContextTurns:]
	}
	lines := make([]string, 0, 2*len(history))
	for _, t := range history {
		lines = append(lines, "User: "+t.Query, "Assistant: "+t.Response)
	}
	recent := "No previous conversation"
	if len(lines) > 0 {
		recent = strings.Join(lines, "\n")
	}
	return fmt.Sprintf(chatPromptTemplate, recent, query)
}

func (s *Session) chat(ctx context.Context, query string) (string, error) {
	if s.llm == nil {
		err := errors.New("no LLM configured")
		return "I apologize, but I encountered an error: " + err.Error(), err
	}
	reply, _, err := s.llm.Chat(ctx, []llm.Message{llm.UserMessage(BuildChatPrompt(s.history, query))})
	if err != nil {
		logging.FromContext(ctx).Error("Chat response failed", "error", err)
		return "I apologize, but I encountered an error: " + err.Error(), err
	}
	s.history = append(s.history, Turn{Query: query, Response: reply})
	return reply, nil
}
