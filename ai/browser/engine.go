// Package browser provides the browser-automation capability. Tasks run in an
// external browser agent reached over MCP; this package prepares the task,
// locates an existing Chrome instance and relays step progress to observers.
package browser

import (
	"context"
	"fmt"

	"github.com/hrygo/switchboard/ai/agents/events"
)

// Task is one browser automation request.
type Task struct {
	Prompt    string // prepared prompt sent to the browser agent
	Query     string // the user's original words, used to keep the agent on task
	MaxSteps  int
	UseVision bool
}

// Result is the outcome of a task.
type Result struct {
	Text  string
	Steps int
}

// Engine runs browser tasks.
type Engine interface {
	Run(ctx context.Context, task Task, observer events.Callback) (Result, error)
	Close() error
}

// Options configures the browser the engine drives.
type Options struct {
	Headless         bool
	UserDataDir      string
	ProfileDirectory string
	CDPURL           string // connect to this Chrome instead of probing
	Tool             string // MCP tool that runs a task, default "run_task"
}

// systemPromptSuffix keeps the browser agent focused on the user's request.
func systemPromptSuffix(query string) string {
	return fmt.Sprintf("\n\nIMPORTANT REMINDERS:\n- Your ONLY task is: %s\n- Do NOT switch to other tasks or examples\n- Stay focused on this specific goal\n- When you complete this task, call the 'done' action immediately\n- Do not continue to other unrelated tasks", query)
}
