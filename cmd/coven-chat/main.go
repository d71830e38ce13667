// ABOUTME: Entry point for coven-chat, a single-conversation assistant widget
// ABOUTME: Runs the widget in a terminal, as a line REPL, or as a local web page

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/2389/coven-chat/internal/assistant"
	"github.com/2389/coven-chat/internal/chat"
	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/tui"
	"github.com/2389/coven-chat/internal/webchat"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  ___ _____   _____ _ __         ___| |__   __ _| |_
 / __/ _ \ \ / / _ \ '_ \ _____ / __| '_ \ / _' | __|
| (_| (_) \ V /  __/ | | |_____| (__| | | | (_| | |_
 \___\___/ \_/ \___|_| |_|      \___|_| |_|\__,_|\__|
`

// errNotReady makes `probe` exit non-zero without printing a second error.
var errNotReady = errors.New("assistant not ready")

// getConfigPath returns the path to the chat config file.
// Priority: COVEN_CHAT_CONFIG env var > XDG_CONFIG_HOME/coven/chat.yaml > ~/.config/coven/chat.yaml
func getConfigPath() string {
	if envPath := os.Getenv("COVEN_CHAT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "chat.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "coven", "chat.yaml")
}

func usage() {
	fmt.Println("Usage: coven-chat <command> [-config PATH]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  tui     Full-screen terminal widget")
	fmt.Println("  repl    Line-mode conversation on stdin/stdout")
	fmt.Println("  serve   Serve the widget over HTTP")
	fmt.Println("  probe   Check once whether the assistant is ready")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// A missing .env is normal.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "tui":
		err = runTUI(ctx, args)
	case "repl":
		err = runREPL(ctx, args)
	case "serve":
		err = runServe(ctx, args)
	case "probe":
		err = runProbe(ctx, args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(1)
	}

	if errors.Is(err, errNotReady) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig parses the subcommand's flags and loads the config file,
// falling back to defaults when it does not exist.
func loadConfig(name string, args []string) (*config.Config, string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", getConfigPath(), "Path to config file (.yaml or .toml)")
	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, *configPath, nil
}

// session is a controller wired to its configured backend.
type session struct {
	backend    *assistant.Backend
	controller *chat.Controller
}

func newSession(cfg *config.Config, logger *slog.Logger) (*session, error) {
	backend, err := assistant.FromConfig(cfg.Assistant, logger)
	if err != nil {
		return nil, fmt.Errorf("creating assistant: %w", err)
	}

	c := chat.New(backend.Locator,
		chat.WithPollInterval(cfg.Chat.PollInterval),
		chat.WithExchangeTimeout(cfg.Chat.ExchangeTimeout),
		chat.WithLogger(logger),
	)
	return &session{backend: backend, controller: c}, nil
}

func (s *session) Close() {
	s.controller.Close()
	_ = s.backend.Close()
}

func printBanner(w io.Writer) {
	cyan := color.New(color.FgCyan)
	cyan.Fprint(w, banner)

	gray := color.New(color.FgHiBlack)
	gray.Fprintf(w, "    version: %s\n\n", version)
}

func printStartup(w io.Writer, cfg *config.Config, configPath string) {
	green := color.New(color.FgGreen)

	green.Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "Config:    %s\n", configPath)
	green.Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "Assistant: %s\n", describeBackend(cfg.Assistant))
	fmt.Fprintln(w)
}

// describeBackend is the one-line summary shown at startup.
func describeBackend(cfg config.AssistantConfig) string {
	switch cfg.Kind {
	case config.KindGateway:
		s := fmt.Sprintf("gateway %s (readiness: %s)", cfg.Gateway.URL, cfg.Gateway.Readiness)
		if cfg.Gateway.AgentID != "" {
			s += ", agent " + cfg.Gateway.AgentID
		}
		return s
	case config.KindOpenAI:
		if cfg.OpenAI.BaseURL != "" {
			return fmt.Sprintf("openai %s at %s", cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
		}
		return "openai " + cfg.OpenAI.Model
	default:
		return fmt.Sprintf("echo (startup delay %s)", cfg.Echo.StartupDelay)
	}
}

func runTUI(ctx context.Context, args []string) error {
	cfg, _, err := loadConfig("tui", args)
	if err != nil {
		return err
	}

	// The screen belongs to the widget; logs go to a file or nowhere.
	logOut := io.Discard
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := setupLogger(cfg.Logging, logOut)

	s, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	s.controller.Start(ctx)
	return tui.New(s.controller, logger).Run(ctx)
}

func runREPL(ctx context.Context, args []string) error {
	cfg, configPath, err := loadConfig("repl", args)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging, os.Stderr)

	printBanner(os.Stdout)
	printStartup(os.Stdout, cfg, configPath)

	s, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	s.controller.Start(ctx)
	if err := repl(ctx, s.controller, os.Stdin, os.Stdout); err != nil {
		return err
	}
	fmt.Println("\nGoodbye!")
	return nil
}

func runServe(ctx context.Context, args []string) error {
	cfg, configPath, err := loadConfig("serve", args)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging, os.Stdout)

	printBanner(os.Stdout)
	printStartup(os.Stdout, cfg, configPath)
	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      http://%s\n\n", cfg.Server.HTTPAddr)

	logger.Info("starting coven-chat",
		"config", configPath,
		"assistant", cfg.Assistant.Kind,
		"http_addr", cfg.Server.HTTPAddr,
	)

	s, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	s.controller.Start(ctx)
	return webchat.New(s.controller, logger).Run(ctx, cfg.Server.HTTPAddr)
}

func runProbe(ctx context.Context, args []string) error {
	cfg, _, err := loadConfig("probe", args)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging, os.Stderr)

	backend, err := assistant.FromConfig(cfg.Assistant, logger)
	if err != nil {
		return fmt.Errorf("creating assistant: %w", err)
	}
	defer backend.Close()

	ready := probeOnce(ctx, backend.Locator, cfg.Chat.PollInterval)

	label := describeBackend(cfg.Assistant)
	if !ready {
		color.New(color.FgYellow).Print("not ready")
		fmt.Printf("  %s\n", label)
		return errNotReady
	}
	color.New(color.FgGreen).Print("ready")
	fmt.Printf("  %s\n", label)
	return nil
}

// probeOnce asks the locator once. A locator that announces readiness gets
// one poll interval to do so, which covers backends installed at startup.
func probeOnce(ctx context.Context, loc assistant.Locator, wait time.Duration) bool {
	if n, ok := loc.(assistant.Notifier); ok && wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-n.Ready():
		case <-timer.C:
		case <-ctx.Done():
		}
	}
	_, ok := loc.Lookup(ctx)
	return ok
}
