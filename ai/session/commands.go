package session

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hrygo/switchboard/ai/backend"
	"github.com/hrygo/switchboard/ai/router"
)

const rule = "============================================================"

// connectable lists the backends /connect and /disconnect accept.
var connectable = []string{backend.Calendar, backend.Gmail}

// forcingCommands maps tool-forcing commands to their tool.
var forcingCommands = map[string]router.ToolType{
	"browser":  router.ToolBrowser,
	"calendar": router.ToolCalendar,
	"calender": router.ToolCalendar,
	"email":    router.ToolEmail,
	"mail":     router.ToolEmail,
	"chat":     router.ToolChat,
}

// Execute handles one line of REPL input: a slash command or a query. It
// returns the text to show and whether the REPL should exit.
func (s *Session) Execute(ctx context.Context, line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	s.commandHistory = append(s.commandHistory, line)
	if !strings.HasPrefix(line, "/") {
		return s.ProcessQuery(ctx, line), false
	}

	name, args, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	name = strings.ToLower(name)
	args = strings.TrimSpace(args)

	if tool, ok := forcingCommands[name]; ok {
		if args == "" {
			return forcingUsage(name), false
		}
		return s.ProcessForced(ctx, tool, args), false
	}

	switch name {
	case "exit", "quit":
		return "Exiting REPL...", true
	case "help":
		return helpText, false
	case "clear":
		if err := s.Clear(); err != nil {
			return fmt.Sprintf("Error closing browser: %v\nSession cleared", err), false
		}
		return "Session cleared", false
	case "history":
		return s.historyText(), false
	case "config":
		return s.configText(), false
	case "connect":
		return s.connectCommand(ctx, args), false
	case "disconnect":
		return s.disconnectCommand(args), false
	case "reconnect":
		return s.reconnectCommand(ctx, args), false
	case "status":
		return s.statusText(), false
	case "tools":
		return s.toolsText(), false
	}
	return fmt.Sprintf("Unknown command: /%s\nType /help to see available commands", name), false
}

func forcingUsage(name string) string {
	switch name {
	case "calendar", "calender":
		return "Usage: /calendar <query>"
	case "email", "mail":
		return "Usage: /email or /mail <query>"
	case "chat":
		return "Usage: /chat <message>"
	}
	return "Usage: /" + name + " <query>"
}

const helpText = rule + `
Switchboard REPL - Available Commands
` + rule + `

📋 Basic Commands:
  /help     - Show this help message
  /exit     - Exit the REPL
  /quit     - Exit the REPL
  /clear    - Clear browser session and start fresh
  /history  - Show command history
  /config   - Show current configuration

🎯 Tool Forcing (override automatic routing):
  /browser <query>         - Force use of browser tool
  /calendar <query>        - Force use of calendar tool
  /calender <query>        - Alias for /calendar
  /email <query>           - Force use of email/Gmail tool
  /mail <query>            - Alias for /email
  /chat <message>          - Force pure chat response

🔌 MCP Server Management:
  /connect <server>    - Connect to MCP server (calendar, gmail)
  /disconnect <server> - Disconnect from MCP server
  /reconnect <server>  - Restart the MCP server with a fresh connection
  /status              - Show MCP connection status
  /tools               - List available tools

💡 Tips:
  - Just type naturally - the AI will choose the right tool automatically
  - Calendar and email tools auto-connect on first use
  - Use /browser, /mail, /calendar, /chat to force specific tools

🌐 Using Existing Chrome:
  - Auto-connects to Chrome on port 9222 if available
  - Launch Chrome with:
    google-chrome --remote-debugging-port=9222 --user-data-dir=/tmp/chrome-debug
  - Or point at another instance with --cdp-url http://localhost:PORT
` + rule

func (s *Session) historyText() string {
	var b strings.Builder
	b.WriteString("Command History:\n")
	if len(s.commandHistory) == 0 {
		b.WriteString("  (empty)")
		return b.String()
	}
	lines := make([]string, len(s.commandHistory))
	for i, cmd := range s.commandHistory {
		lines[i] = fmt.Sprintf("  %d. %s", i+1, cmd)
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

func onOff(b bool, on, off string) string {
	if b {
		return on
	}
	return off
}

func (s *Session) configText() string {
	p := s.prof
	return strings.Join([]string{
		"Current Configuration:",
		"  Provider: " + p.Provider,
		"  Model: " + p.Model,
		"  Browser Mode: " + onOff(p.Headless, "Headless", "Visible"),
		"  Vision: " + onOff(p.UseVision, "Enabled", "Disabled"),
		fmt.Sprintf("  Max Steps: %d", p.MaxSteps),
		"  Prompt Optimization: " + onOff(p.Optimize, "Enabled", "Disabled"),
		"  MCP Enabled: " + onOff(!p.DisableMCP, "Yes", "No"),
		"  Pure Chat Mode: " + onOff(p.DisableChat, "Disabled", "Enabled"),
	}, "\n")
}

func (s *Session) connectCommand(ctx context.Context, args string) string {
	if args == "" {
		return "Usage: /connect <calendar|gmail>"
	}
	id := strings.ToLower(args)
	if s.prof.DisableMCP || s.backends == nil {
		return "MCP is disabled. Restart REPL with MCP enabled."
	}
	if !slices.Contains(connectable, id) {
		return fmt.Sprintf("Unknown server: %s. Valid: %s", id, strings.Join(connectable, ", "))
	}
	if err := s.connect(ctx, id); err != nil {
		return fmt.Sprintf("Failed to connect: %v", err)
	}
	return fmt.Sprintf("✅ Connected to %s MCP server", id)
}

func (s *Session) disconnectCommand(args string) string {
	if args == "" {
		return "Usage: /disconnect <calendar|gmail>"
	}
	id := strings.ToLower(args)
	if s.prof.DisableMCP || s.backends == nil {
		return "MCP is disabled"
	}
	if !slices.Contains(connectable, id) {
		return fmt.Sprintf("Unknown server: %s. Valid: %s", id, strings.Join(connectable, ", "))
	}
	s.backends.Disconnect(id)
	return fmt.Sprintf("🔌 Disconnected from %s MCP server", id)
}

func (s *Session) reconnectCommand(ctx context.Context, args string) string {
	if args == "" {
		return "Usage: /reconnect <calendar|gmail>"
	}
	id := strings.ToLower(args)
	if s.prof.DisableMCP || s.backends == nil {
		return "MCP is disabled. Restart REPL with MCP enabled."
	}
	if !slices.Contains(connectable, id) {
		return fmt.Sprintf("Unknown server: %s. Valid: %s", id, strings.Join(connectable, ", "))
	}
	if _, err := s.backends.Reconnect(ctx, id); err != nil {
		return fmt.Sprintf("Failed to reconnect: %v", err)
	}
	if _, err := s.backends.EnsureConnected(ctx, id, s.registry); err != nil {
		return fmt.Sprintf("Failed to reconnect: %v", err)
	}
	return fmt.Sprintf("🔄 Reconnected to %s MCP server", id)
}

func (s *Session) connectedSet() map[string]bool {
	out := map[string]bool{}
	if s.backends == nil {
		return out
	}
	for id, st := range s.backends.Status() {
		out[id] = st == backend.StateConnected
	}
	return out
}

func (s *Session) statusText() string {
	lines := []string{rule, "MCP Server Status", rule}
	if s.prof.DisableMCP || s.backends == nil {
		return strings.Join(append(lines, "MCP is disabled", rule), "\n")
	}
	connected := s.connectedSet()
	var names []string
	for _, id := range connectable {
		if connected[id] {
			names = append(names, id)
		}
	}
	lines = append(lines, "", fmt.Sprintf("Connected Servers (%d):", len(names)))
	if len(names) == 0 {
		lines = append(lines, "  (none)")
	}
	for _, id := range names {
		lines = append(lines, "  ✅ "+id)
	}
	lines = append(lines, "", fmt.Sprintf("Available Servers (%d):", len(connectable)))
	for _, id := range connectable {
		lines = append(lines, fmt.Sprintf("  %s - %s", onOff(connected[id], "✅ connected", "⚪ disconnected"), id))
	}
	if ops := s.registry.Len(); ops > 0 {
		lines = append(lines, "", fmt.Sprintf("Registered operations: %d", ops))
	}
	return strings.Join(append(lines, rule), "\n")
}

func (s *Session) toolsText() string {
	lines := []string{
		rule, "Available Tools", rule,
		"",
		"🌐 Browser Tool:",
		"  - Always available",
		"  - Web browsing, searching, data extraction",
		"",
		"💬 Chat Tool:",
		"  - " + onOff(s.prof.DisableChat, "Disabled", "Enabled"),
		"  - Pure conversation without external tools",
	}
	if s.prof.DisableMCP || s.backends == nil {
		lines = append(lines, "", "⚠️  MCP tools disabled", "  Restart with MCP enabled to use Calendar and Email")
		return strings.Join(append(lines, rule), "\n")
	}
	connected := s.connectedSet()
	for _, t := range []struct{ title, id, ops string }{
		{"📅 Calendar Tool (MCP):", backend.Calendar, "List/create/update/delete events, check availability"},
		{"📧 Email Tool (MCP):", backend.Gmail, "List/read/send emails, search, modify labels"},
	} {
		lines = append(lines, "", t.title)
		if connected[t.id] {
			lines = append(lines, "  - ✅ Connected", "  - "+t.ops)
		} else {
			lines = append(lines, "  - ⚪ Not connected (will auto-connect on first use)")
		}
	}
	return strings.Join(append(lines, rule), "\n")
}
