package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration the REPL is started with. It is built once
// from flags, env and defaults and passed to the constructors that need it.
type Profile struct {
	// LLM configuration.
	Provider   string  // openai, anthropic, google, ollama or another OpenAI-compatible provider
	Model      string  // e.g. qwen2.5:7b, gpt-4o
	Host       string  // Ollama server URL, or a base URL override for OpenAI-compatible providers
	APIKey     string  // resolved from the provider's env variable when empty
	LLMTimeout int     // per-call timeout in seconds, 0 = unbounded
	LLMRPS     float64 // request rate limit, 0 = unlimited

	// Browser configuration.
	Headless         bool
	MaxSteps         int
	UseVision        bool
	UserDataDir      string
	ProfileDirectory string
	CDPURL           string
	Optimize         bool

	// Tool configuration.
	DisableMCP        bool
	DisableChat       bool
	GoogleCredentials string
	GoogleTokenPath   string
	GmailTokenPath    string
	CalendarPort      int
	GmailPort         int
	CalendarCmd       string
	GmailCmd          string
	BrowserCmd        string

	// Output configuration.
	MetricsAddr string // empty disables the HTTP endpoint
	Quiet       bool
	Verbose     bool

	Version string
}

// Defaults used when neither a flag nor the environment provides a value.
const (
	DefaultProvider          = "ollama"
	DefaultModel             = "qwen2.5:7b"
	DefaultHost              = "http://localhost:11434"
	DefaultMaxSteps          = 10
	DefaultGoogleCredentials = "credentials.json"
	DefaultGoogleTokenPath   = "token.pickle"
	DefaultGmailTokenPath    = "gmail_token.pickle"
	DefaultCalendarPort      = 8002
	DefaultGmailPort         = 8001
	DefaultCalendarCmd       = "python3 scripts/mcp_calendar_server.py"
	DefaultGmailCmd          = "python3 scripts/mcp_gmail_server.py"
	DefaultBrowserCmd        = "uvx browser-use --mcp"
)

// apiKeyEnv maps providers to the variable holding their key.
var apiKeyEnv = map[string]string{
	"openai":      "OPENAI_API_KEY",
	"anthropic":   "ANTHROPIC_API_KEY",
	"google":      "GOOGLE_API_KEY",
	"deepseek":    "DEEPSEEK_API_KEY",
	"openrouter":  "OPENROUTER_API_KEY",
	"siliconflow": "SILICONFLOW_API_KEY",
	"dashscope":   "DASHSCOPE_API_KEY",
	"zai":         "ZAI_API_KEY",
}

// Default returns a profile holding every default value.
func Default() *Profile {
	return &Profile{
		Provider:          DefaultProvider,
		Model:             DefaultModel,
		Host:              DefaultHost,
		MaxSteps:          DefaultMaxSteps,
		UseVision:         true,
		GoogleCredentials: DefaultGoogleCredentials,
		GoogleTokenPath:   DefaultGoogleTokenPath,
		GmailTokenPath:    DefaultGmailTokenPath,
		CalendarPort:      DefaultCalendarPort,
		GmailPort:         DefaultGmailPort,
		CalendarCmd:       DefaultCalendarCmd,
		GmailCmd:          DefaultGmailCmd,
		BrowserCmd:        DefaultBrowserCmd,
	}
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv fills the backend settings and the API key from the environment.
// Values already set on the profile win.
func (p *Profile) FromEnv() {
	if p.GoogleCredentials == "" || p.GoogleCredentials == DefaultGoogleCredentials {
		p.GoogleCredentials = getEnvOrDefault("GOOGLE_CREDENTIALS_PATH", DefaultGoogleCredentials)
	}
	if p.GoogleTokenPath == "" || p.GoogleTokenPath == DefaultGoogleTokenPath {
		p.GoogleTokenPath = getEnvOrDefault("GOOGLE_TOKEN_PATH", DefaultGoogleTokenPath)
	}
	if p.GmailTokenPath == "" || p.GmailTokenPath == DefaultGmailTokenPath {
		p.GmailTokenPath = getEnvOrDefault("GMAIL_TOKEN_PATH", DefaultGmailTokenPath)
	}
	if p.CalendarPort == 0 || p.CalendarPort == DefaultCalendarPort {
		p.CalendarPort = getEnvOrDefaultInt("MCP_CALENDAR_PORT", DefaultCalendarPort)
	}
	if p.GmailPort == 0 || p.GmailPort == DefaultGmailPort {
		p.GmailPort = getEnvOrDefaultInt("MCP_GMAIL_PORT", DefaultGmailPort)
	}
	if p.APIKey == "" {
		if key, ok := apiKeyEnv[strings.ToLower(p.Provider)]; ok {
			p.APIKey = os.Getenv(key)
		}
	}
}

// APIKeyEnv returns the env variable expected to hold the provider's key.
func (p *Profile) APIKeyEnv() string {
	return apiKeyEnv[strings.ToLower(p.Provider)]
}

// LLMBaseURL returns the endpoint override for the LLM client. The default
// Ollama host only applies to the ollama provider.
func (p *Profile) LLMBaseURL() string {
	if p.Provider != "ollama" && p.Host == DefaultHost {
		return ""
	}
	return p.Host
}

// Validate normalizes the profile and reports values the REPL cannot start with.
func (p *Profile) Validate() error {
	p.Provider = strings.ToLower(strings.TrimSpace(p.Provider))
	if p.Provider == "" {
		p.Provider = DefaultProvider
	}
	if p.Model == "" {
		return errors.New("model must not be empty")
	}
	if p.Provider != "ollama" && p.APIKey == "" {
		if env := p.APIKeyEnv(); env != "" {
			return errors.Errorf("%s not found in environment", env)
		}
		return errors.Errorf("no API key configured for provider %s", p.Provider)
	}
	if p.Provider == "ollama" && p.Host == "" {
		p.Host = DefaultHost
	}
	if p.MaxSteps <= 0 {
		return errors.Errorf("max steps must be positive, got %d", p.MaxSteps)
	}
	if p.LLMRPS < 0 {
		return errors.Errorf("llm rate limit must not be negative, got %g", p.LLMRPS)
	}
	if p.LLMTimeout < 0 {
		return errors.Errorf("llm timeout must not be negative, got %d", p.LLMTimeout)
	}
	if p.Quiet && p.Verbose {
		p.Verbose = false
	}

	if p.UserDataDir != "" {
		dir, err := expandHome(p.UserDataDir)
		if err != nil {
			return errors.Wrapf(err, "unable to resolve user data dir %s", p.UserDataDir)
		}
		p.UserDataDir = dir
	}

	if !p.DisableMCP {
		if _, err := os.Stat(p.GoogleCredentials); err != nil {
			slog.Warn("Google credentials not accessible, calendar and email will fail to connect",
				slog.String("path", p.GoogleCredentials), slog.String("error", err.Error()))
		}
		for name, cmd := range map[string]string{"calendar": p.CalendarCmd, "gmail": p.GmailCmd} {
			if len(strings.Fields(cmd)) == 0 {
				return errors.Errorf("%s command must not be empty", name)
			}
		}
	}
	if len(strings.Fields(p.BrowserCmd)) == 0 {
		return errors.New("browser command must not be empty")
	}
	return nil
}

// BackendEnv returns the environment handed to the named backend process.
func (p *Profile) BackendEnv(id string) []string {
	env := []string{"GOOGLE_CREDENTIALS_PATH=" + p.GoogleCredentials}
	switch id {
	case "calendar":
		env = append(env,
			"GOOGLE_TOKEN_PATH="+p.GoogleTokenPath,
			fmt.Sprintf("MCP_CALENDAR_PORT=%d", p.CalendarPort))
	case "gmail":
		env = append(env,
			"GOOGLE_TOKEN_PATH="+p.GmailTokenPath,
			fmt.Sprintf("MCP_GMAIL_PORT=%d", p.GmailPort))
	default:
		return nil
	}
	if b := os.Getenv("BROWSER"); b != "" {
		env = append(env, "BROWSER="+b)
	}
	return env
}

func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
