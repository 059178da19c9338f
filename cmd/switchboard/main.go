package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/switchboard/ai/agents/registry"
	"github.com/hrygo/switchboard/ai/backend"
	"github.com/hrygo/switchboard/ai/browser"
	"github.com/hrygo/switchboard/ai/core/llm"
	"github.com/hrygo/switchboard/ai/metrics"
	"github.com/hrygo/switchboard/ai/observability/logging"
	"github.com/hrygo/switchboard/ai/router"
	"github.com/hrygo/switchboard/ai/session"
	"github.com/hrygo/switchboard/internal/profile"
	"github.com/hrygo/switchboard/internal/version"
	"github.com/hrygo/switchboard/server"
)

var (
	rootCmd = &cobra.Command{
		Use:   "switchboard",
		Short: `A personal assistant REPL that routes requests to chat, browser automation, Google Calendar and Gmail.`,
		Example: `  switchboard --provider ollama --model qwen2.5:7b
  switchboard --provider openai --model gpt-4o --optimize
  switchboard --cdp-url http://localhost:9222 --headless`,
		Version:      version.StringFull(),
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// A missing .env is fine.
			_ = godotenv.Load()
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			prof := profileFromViper()
			prof.FromEnv()
			if err := prof.Validate(); err != nil {
				return err
			}
			logger := logging.New(logging.Options{Verbose: prof.Verbose, Quiet: prof.Quiet})
			slog.SetDefault(logger)
			return run(cmd.Context(), prof, logger)
		},
	}
)

// flagKeys lists every persistent flag bound into viper.
var flagKeys = []string{
	"model", "provider", "host", "api-key", "llm-timeout", "llm-rps",
	"headless", "max-steps", "no-vision", "user-data-dir", "profile-directory", "cdp-url",
	"optimize", "disable-mcp", "disable-chat", "google-credentials",
	"calendar-cmd", "gmail-cmd", "browser-cmd",
	"metrics-addr", "quiet", "verbose",
}

func init() {
	viper.SetDefault("provider", profile.DefaultProvider)
	viper.SetDefault("model", profile.DefaultModel)
	viper.SetDefault("max-steps", profile.DefaultMaxSteps)

	flags := rootCmd.PersistentFlags()
	// LLM
	flags.String("model", profile.DefaultModel, "LLM model to use")
	flags.String("provider", profile.DefaultProvider, "LLM provider (openai, anthropic, google, ollama or another OpenAI-compatible provider)")
	flags.String("host", profile.DefaultHost, "Ollama server URL, or base URL override for OpenAI-compatible providers")
	flags.String("api-key", "", "LLM API key (default: read from the provider's environment variable)")
	flags.Int("llm-timeout", 0, "per-call LLM timeout in seconds (0 = no limit)")
	flags.Float64("llm-rps", 0, "maximum LLM requests per second (0 = unlimited)")
	// Browser
	flags.Bool("headless", false, "run the browser in headless mode")
	flags.Int("max-steps", profile.DefaultMaxSteps, "maximum steps per browser task")
	flags.Bool("no-vision", false, "disable vision/screenshots")
	flags.String("user-data-dir", "", "Chrome user data directory (e.g. ~/.config/google-chrome)")
	flags.String("profile-directory", "", `Chrome profile name (e.g. "Default")`)
	flags.String("cdp-url", "", "connect to an existing Chrome via CDP (e.g. http://localhost:9222)")
	// Tools
	flags.Bool("optimize", false, "rewrite browser tasks with the LLM before running them")
	flags.Bool("disable-mcp", false, "disable the Calendar and Gmail backends")
	flags.Bool("disable-chat", false, "disable pure chat mode (always use tools)")
	flags.String("google-credentials", profile.DefaultGoogleCredentials, "path to Google OAuth credentials")
	flags.String("calendar-cmd", profile.DefaultCalendarCmd, "command that starts the calendar MCP server")
	flags.String("gmail-cmd", profile.DefaultGmailCmd, "command that starts the Gmail MCP server")
	flags.String("browser-cmd", profile.DefaultBrowserCmd, "command that starts the browser automation MCP server")
	// Output
	flags.String("metrics-addr", "", "serve /metrics and /healthz on this address (e.g. :9090)")
	flags.Bool("quiet", false, "minimal output (only final results)")
	flags.BoolP("verbose", "v", false, "detailed output including agent thinking")

	for _, key := range flagKeys {
		if err := viper.BindPFlag(key, flags.Lookup(key)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("switchboard")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func profileFromViper() *profile.Profile {
	return &profile.Profile{
		Provider:          viper.GetString("provider"),
		Model:             viper.GetString("model"),
		Host:              viper.GetString("host"),
		APIKey:            viper.GetString("api-key"),
		LLMTimeout:        viper.GetInt("llm-timeout"),
		LLMRPS:            viper.GetFloat64("llm-rps"),
		Headless:          viper.GetBool("headless"),
		MaxSteps:          viper.GetInt("max-steps"),
		UseVision:         !viper.GetBool("no-vision"),
		UserDataDir:       viper.GetString("user-data-dir"),
		ProfileDirectory:  viper.GetString("profile-directory"),
		CDPURL:            viper.GetString("cdp-url"),
		Optimize:          viper.GetBool("optimize"),
		DisableMCP:        viper.GetBool("disable-mcp"),
		DisableChat:       viper.GetBool("disable-chat"),
		GoogleCredentials: viper.GetString("google-credentials"),
		CalendarCmd:       viper.GetString("calendar-cmd"),
		GmailCmd:          viper.GetString("gmail-cmd"),
		BrowserCmd:        viper.GetString("browser-cmd"),
		MetricsAddr:       viper.GetString("metrics-addr"),
		Quiet:             viper.GetBool("quiet"),
		Verbose:           viper.GetBool("verbose"),
		Version:           version.String(),
	}
}

// backendSpecs describes how to start each backend server.
func backendSpecs(prof *profile.Profile) map[string]backend.Spec {
	specs := map[string]backend.Spec{}
	if fields := strings.Fields(prof.BrowserCmd); len(fields) > 0 {
		specs[backend.Browser] = backend.Spec{Command: fields[0], Args: fields[1:], CallTimeout: -1}
	}
	if prof.DisableMCP {
		return specs
	}
	for id, cmdline := range map[string]string{backend.Calendar: prof.CalendarCmd, backend.Gmail: prof.GmailCmd} {
		fields := strings.Fields(cmdline)
		if len(fields) == 0 {
			continue
		}
		specs[id] = backend.Spec{
			Command:   fields[0],
			Args:      fields[1:],
			Env:       prof.BackendEnv(id),
			WrapInput: true,
		}
	}
	return specs
}

func run(ctx context.Context, prof *profile.Profile, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())

	svc, err := llm.NewService(&llm.Config{
		Provider:          prof.Provider,
		Model:             prof.Model,
		APIKey:            prof.APIKey,
		BaseURL:           prof.LLMBaseURL(),
		Timeout:           prof.LLMTimeout,
		RequestsPerSecond: prof.LLMRPS,
		Recorder:          exporter,
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create LLM service: %w", err)
	}

	manager := backend.NewManager(backend.NewMCPLauncher(backendSpecs(prof), logger), backend.Options{
		Recorder: exporter,
		Logger:   logger,
	})

	if prof.MetricsAddr != "" {
		srv := server.NewServer(prof.MetricsAddr, exporter, manager, logger)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer srv.Shutdown(context.Background())
	}

	browserOpts := browser.Options{
		Headless:         prof.Headless,
		UserDataDir:      prof.UserDataDir,
		ProfileDirectory: prof.ProfileDirectory,
		CDPURL:           prof.CDPURL,
	}
	sess := session.New(session.Config{
		Profile:  prof,
		LLM:      svc,
		Router:   router.NewService(router.Config{LLM: svc, Logger: logger, Recorder: exporter}),
		Backends: manager,
		Registry: registry.New(),
		NewEngine: func() browser.Engine {
			return browser.NewMCPEngine(manager, browserOpts, logger)
		},
		Extraction: exporter,
		Recorder:   exporter,
		Output:     os.Stdout,
		Logger:     logger,
	})

	printGreetings(prof)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, terminationSignals...)
	defer signal.Stop(signals)

	r := newREPL(sess, os.Stdin, os.Stdout, signals, logger)
	err = r.run(ctx)

	fmt.Fprintln(os.Stdout, "Cleaning up...")
	if cerr := sess.Close(context.Background()); cerr != nil {
		logger.Warn("cleanup failed", "error", cerr)
	}
	fmt.Fprintln(os.Stdout, "Goodbye!")
	return err
}

func printGreetings(prof *profile.Profile) {
	fmt.Printf("Switchboard %s\n", prof.Version)
	fmt.Printf("Provider: %s\n", prof.Provider)
	fmt.Printf("Model: %s\n", prof.Model)
	if prof.DisableMCP {
		fmt.Println("Calendar and email: disabled")
	} else {
		fmt.Println("Calendar and email: connect on first use")
	}
	if prof.MetricsAddr != "" {
		fmt.Printf("Metrics: http://%s/metrics\n", prof.MetricsAddr)
	}
	fmt.Println("\nType naturally, or /help for commands.")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
