// ABOUTME: Builds the configured assistant backend together with its readiness locator
// ABOUTME: Maps assistant.kind (gateway, openai, echo) onto concrete implementations

package assistant

import (
	"fmt"
	"log/slog"

	"github.com/2389/coven-chat/internal/config"
)

// Backend is a configured assistant ready to be handed to the controller.
type Backend struct {
	Locator Locator

	closers []func() error
}

// Close releases probe connections and pending installs.
func (b *Backend) Close() error {
	var firstErr error
	for _, c := range b.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.closers = nil
	return firstErr
}

// FromConfig builds the backend selected by cfg.Kind.
func FromConfig(cfg config.AssistantConfig, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Kind {
	case config.KindGateway:
		return gatewayBackend(cfg.Gateway, logger)

	case config.KindOpenAI:
		a := NewOpenAI(OpenAIOptions{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		}, logger)
		return &Backend{Locator: NewProbeLocator(a, AlwaysReady, logger)}, nil

	case config.KindEcho:
		host := NewHost()
		stop := InstallAfter(host, Echo{Latency: cfg.Echo.Latency}, cfg.Echo.StartupDelay)
		return &Backend{
			Locator: host,
			closers: []func() error{func() error { stop(); return nil }},
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

func gatewayBackend(cfg config.GatewayConfig, logger *slog.Logger) (*Backend, error) {
	a := NewGateway(GatewayOptions{
		URL:     cfg.URL,
		AgentID: cfg.AgentID,
		Sender:  cfg.Sender,
		Token:   ResolveToken(cfg.Token),
	}, logger)

	switch cfg.Readiness {
	case config.ReadinessGRPC:
		prober, err := NewGRPCProber(cfg.GRPCAddr, "")
		if err != nil {
			return nil, fmt.Errorf("creating grpc prober: %w", err)
		}
		return &Backend{
			Locator: NewProbeLocator(a, prober, logger),
			closers: []func() error{prober.Close},
		}, nil

	case config.ReadinessNone:
		return &Backend{Locator: NewProbeLocator(a, AlwaysReady, logger)}, nil

	default:
		return &Backend{Locator: NewProbeLocator(a, NewHTTPProber(cfg.URL, nil), logger)}, nil
	}
}
