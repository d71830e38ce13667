// ABOUTME: Readiness probes that decide when a configured backend counts as callable
// ABOUTME: HTTP probes hit /health/ready; gRPC probes use the standard health service

package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// probeTimeout bounds a single probe so a poll tick stays short.
const probeTimeout = 2 * time.Second

// Prober checks whether a backend is ready to take chat calls.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context) error {
	return f(ctx)
}

// AlwaysReady is a Prober for backends without readiness semantics.
var AlwaysReady Prober = ProberFunc(func(context.Context) error { return nil })

// ProbeLocator exposes an assistant once its prober succeeds.
type ProbeLocator struct {
	assistant Assistant
	prober    Prober
	logger    *slog.Logger
}

// NewProbeLocator creates a locator for a backend guarded by prober.
// A nil prober means the backend is always ready.
func NewProbeLocator(a Assistant, prober Prober, logger *slog.Logger) *ProbeLocator {
	if prober == nil {
		prober = AlwaysReady
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProbeLocator{
		assistant: a,
		prober:    prober,
		logger:    logger.With("component", "probe"),
	}
}

// Lookup runs the prober once.
func (l *ProbeLocator) Lookup(ctx context.Context) (Assistant, bool) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := l.prober.Probe(ctx); err != nil {
		l.logger.Debug("assistant not ready", "error", err)
		return nil, false
	}
	return l.assistant, true
}

// HTTPProber expects 200 OK from GET <baseURL>/health/ready.
type HTTPProber struct {
	url    string
	client *http.Client
}

// NewHTTPProber creates a prober for the gateway at baseURL.
func NewHTTPProber(baseURL string, client *http.Client) *HTTPProber {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProber{
		url:    strings.TrimRight(baseURL, "/") + "/health/ready",
		client: client,
	}
}

// Probe performs one readiness request.
func (p *HTTPProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("checking readiness: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("readiness returned status %d", resp.StatusCode)
	}
	return nil
}

// GRPCProber asks the standard gRPC health service whether service is SERVING.
// An empty service name checks the server as a whole.
type GRPCProber struct {
	conn    *grpc.ClientConn
	client  healthpb.HealthClient
	service string
}

// NewGRPCProber creates a prober for addr. The connection is established
// lazily by gRPC, so an absent server is not an error here.
func NewGRPCProber(addr, service string) (*GRPCProber, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("creating grpc client: %w", err)
	}
	return &GRPCProber{
		conn:    conn,
		client:  healthpb.NewHealthClient(conn),
		service: service,
	}, nil
}

// Probe performs one health check.
func (p *GRPCProber) Probe(ctx context.Context) error {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("health status %s", resp.GetStatus())
	}
	return nil
}

// Close releases the underlying connection.
func (p *GRPCProber) Close() error {
	return p.conn.Close()
}
