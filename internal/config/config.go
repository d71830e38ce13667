// ABOUTME: Configuration loading and parsing for coven-chat
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Assistant backend kinds
const (
	KindGateway = "gateway"
	KindOpenAI  = "openai"
	KindEcho    = "echo"
)

// Gateway readiness probes
const (
	ReadinessHTTP = "http"
	ReadinessGRPC = "grpc"
	ReadinessNone = "none"
)

// DefaultPollInterval is how often the widget checks whether the assistant is available.
const DefaultPollInterval = 300 * time.Millisecond

// Config represents the complete coven-chat configuration
type Config struct {
	Assistant AssistantConfig `yaml:"assistant" toml:"assistant"`
	Chat      ChatConfig      `yaml:"chat" toml:"chat"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// AssistantConfig selects and configures the assistant backend
type AssistantConfig struct {
	Kind    string        `yaml:"kind" toml:"kind"`
	Gateway GatewayConfig `yaml:"gateway" toml:"gateway"`
	OpenAI  OpenAIConfig  `yaml:"openai" toml:"openai"`
	Echo    EchoConfig    `yaml:"echo" toml:"echo"`
}

// GatewayConfig holds settings for the coven gateway backend
type GatewayConfig struct {
	URL       string `yaml:"url" toml:"url"`
	AgentID   string `yaml:"agent_id" toml:"agent_id"`
	Sender    string `yaml:"sender" toml:"sender"`
	Token     string `yaml:"token" toml:"token"`
	Readiness string `yaml:"readiness" toml:"readiness"` // http, grpc, none
	GRPCAddr  string `yaml:"grpc_addr" toml:"grpc_addr"`
}

// OpenAIConfig holds settings for an OpenAI-compatible backend
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key" toml:"api_key"`
	BaseURL string `yaml:"base_url" toml:"base_url"`
	Model   string `yaml:"model" toml:"model"`
}

// EchoConfig holds settings for the local echo backend
type EchoConfig struct {
	Latency      time.Duration `yaml:"-" toml:"-"`
	StartupDelay time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	LatencyRaw      string `yaml:"latency" toml:"latency"`
	StartupDelayRaw string `yaml:"startup_delay" toml:"startup_delay"`
}

// ChatConfig holds conversation controller timing
type ChatConfig struct {
	PollInterval time.Duration `yaml:"-" toml:"-"`
	// ExchangeTimeout bounds a single assistant call. Zero means no timeout.
	ExchangeTimeout time.Duration `yaml:"-" toml:"-"`

	PollIntervalRaw    string `yaml:"poll_interval" toml:"poll_interval"`
	ExchangeTimeoutRaw string `yaml:"exchange_timeout" toml:"exchange_timeout"`
}

// ServerConfig holds the web widget listen address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	// File receives logs from the full-screen terminal widget, which cannot write to stdout.
	File string `yaml:"file" toml:"file"`
}

// Default returns the configuration used when no config file exists:
// the local echo backend, so the widget works out of the box.
func Default() *Config {
	cfg := &Config{}
	cfg.Assistant.Kind = KindEcho
	applyDefaults(cfg)
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads path, or returns Default() if the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Assistant.Kind == "" {
		cfg.Assistant.Kind = KindGateway
	}
	if cfg.Assistant.Gateway.URL == "" {
		cfg.Assistant.Gateway.URL = "http://localhost:8080"
	}
	if cfg.Assistant.Gateway.Sender == "" {
		cfg.Assistant.Gateway.Sender = "coven-chat"
	}
	if cfg.Assistant.Gateway.Readiness == "" {
		cfg.Assistant.Gateway.Readiness = ReadinessHTTP
	}
	if cfg.Assistant.Gateway.GRPCAddr == "" {
		cfg.Assistant.Gateway.GRPCAddr = "localhost:50051"
	}
	if cfg.Assistant.OpenAI.Model == "" {
		cfg.Assistant.OpenAI.Model = "gpt-4o"
	}
	if cfg.Chat.PollInterval == 0 {
		cfg.Chat.PollInterval = DefaultPollInterval
	}
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = "127.0.0.1:8090"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Assistant.Kind {
	case KindGateway:
		u, err := url.Parse(c.Assistant.Gateway.URL)
		if err != nil {
			return fmt.Errorf("assistant.gateway.url is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("assistant.gateway.url must use http or https scheme")
		}
		switch c.Assistant.Gateway.Readiness {
		case ReadinessHTTP, ReadinessGRPC, ReadinessNone:
		default:
			return fmt.Errorf("assistant.gateway.readiness must be http, grpc or none, got %q", c.Assistant.Gateway.Readiness)
		}
	case KindOpenAI:
		if c.Assistant.OpenAI.APIKey == "" {
			return fmt.Errorf("assistant.openai.api_key is required")
		}
	case KindEcho:
	default:
		return fmt.Errorf("assistant.kind must be gateway, openai or echo, got %q", c.Assistant.Kind)
	}

	if c.Chat.PollInterval < 0 {
		return fmt.Errorf("chat.poll_interval must be positive")
	}
	if c.Chat.ExchangeTimeout < 0 {
		return fmt.Errorf("chat.exchange_timeout must not be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"chat.poll_interval", cfg.Chat.PollIntervalRaw, &cfg.Chat.PollInterval},
		{"chat.exchange_timeout", cfg.Chat.ExchangeTimeoutRaw, &cfg.Chat.ExchangeTimeout},
		{"assistant.echo.latency", cfg.Assistant.Echo.LatencyRaw, &cfg.Assistant.Echo.Latency},
		{"assistant.echo.startup_delay", cfg.Assistant.Echo.StartupDelayRaw, &cfg.Assistant.Echo.StartupDelay},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
