package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/switchboard/ai/e2e/mocks"
)

type routeSpy struct {
	calls map[string]int
}

func (r *routeSpy) RecordRoute(tool, method string) {
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	r.calls[tool+"/"+method]++
}

func TestService_Route_Forced(t *testing.T) {
	mock := mocks.NewMockLLM()
	svc := NewService(Config{LLM: mock})
	forced := ToolBrowser

	d := svc.Route(context.Background(), "weather in Oslo", &forced)

	assert.Equal(t, ToolBrowser, d.PrimaryTool)
	assert.Equal(t, "User explicitly requested browser tool", d.Reasoning)
	assert.Equal(t, []string{"weather in Oslo"}, d.SpecificActions)
	assert.Empty(t, d.SecondaryTools)
	assert.Equal(t, MethodForced, d.Method)
	assert.Empty(t, mock.Calls(), "forced routing must not call the LLM")
}

func TestService_Route_LLM(t *testing.T) {
	tests := []struct {
		name          string
		reply         string
		wantTool      ToolType
		wantMethod    string
		wantSecondary []ToolType
		wantActions   []string
	}{
		{
			name:          "plain json",
			reply:         `{"primary_tool":"email","secondary_tools":["calendar"],"reasoning":"inbox","specific_actions":["list unread"]}`,
			wantTool:      ToolEmail,
			wantMethod:    MethodLLM,
			wantSecondary: []ToolType{ToolCalendar},
			wantActions:   []string{"list unread"},
		},
		{
			name:          "fenced upper case",
			reply:         "```json\n{\"primary_tool\":\"BROWSER\",\"secondary_tools\":[],\"reasoning\":\"web\",\"specific_actions\":[]}\n```",
			wantTool:      ToolBrowser,
			wantMethod:    MethodLLM,
			wantSecondary: []ToolType{},
			wantActions:   []string{"check my unread mail"},
		},
		{
			name:          "malformed json falls back",
			reply:         "I think you want email",
			wantTool:      ToolEmail,
			wantMethod:    MethodFallback,
			wantSecondary: []ToolType{},
			wantActions:   []string{"check my unread mail"},
		},
		{
			name:          "unknown primary falls back",
			reply:         `{"primary_tool":"sheets","secondary_tools":[],"reasoning":"x","specific_actions":[]}`,
			wantTool:      ToolEmail,
			wantMethod:    MethodFallback,
			wantSecondary: []ToolType{},
			wantActions:   []string{"check my unread mail"},
		},
		{
			name:          "unknown secondary falls back",
			reply:         `{"primary_tool":"chat","secondary_tools":["fax"],"reasoning":"x","specific_actions":[]}`,
			wantTool:      ToolEmail,
			wantMethod:    MethodFallback,
			wantSecondary: []ToolType{},
			wantActions:   []string{"check my unread mail"},
		},
		{
			name:          "empty fence falls back",
			reply:         "```json\n```",
			wantTool:      ToolEmail,
			wantMethod:    MethodFallback,
			wantSecondary: []ToolType{},
			wantActions:   []string{"check my unread mail"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := mocks.NewMockLLM().WithDefaultResponse(tt.reply)
			spy := &routeSpy{}
			svc := NewService(Config{LLM: mock, Recorder: spy})

			d := svc.Route(context.Background(), "check my unread mail", nil)

			assert.Equal(t, tt.wantTool, d.PrimaryTool)
			assert.Equal(t, tt.wantMethod, d.Method)
			assert.Equal(t, tt.wantSecondary, d.SecondaryTools)
			assert.Equal(t, tt.wantActions, d.SpecificActions)
			assert.Equal(t, "check my unread mail", d.OriginalQuery)
			assert.Equal(t, 1, spy.calls[string(tt.wantTool)+"/"+tt.wantMethod])
		})
	}
}

func TestService_Route_LLMErrorFallsBack(t *testing.T) {
	mock := mocks.NewMockLLM().WithDefaultError(errors.New("connection refused"))
	svc := NewService(Config{LLM: mock})

	d := svc.Route(context.Background(), "tell me a story", nil)

	assert.Equal(t, ToolChat, d.PrimaryTool)
	assert.Contains(t, d.Reasoning, "connection refused")
	require.Len(t, mock.Calls(), 1)
	assert.Contains(t, mock.Calls()[0], `Analyze this user request: "tell me a story"`)
}

func TestService_Route_NoLLM(t *testing.T) {
	svc := NewService(Config{})
	d := svc.Route(context.Background(), "what's on my calendar", nil)
	assert.Equal(t, ToolCalendar, d.PrimaryTool)
	assert.Equal(t, MethodFallback, d.Method)
}
