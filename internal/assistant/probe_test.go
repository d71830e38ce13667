// ABOUTME: Tests for readiness probes and the backend factory
// ABOUTME: Runs an httptest readiness endpoint and an in-process gRPC health server

package assistant

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/2389/coven-chat/internal/config"
)

func TestProbeLocator(t *testing.T) {
	var up atomic.Bool
	prober := ProberFunc(func(context.Context) error {
		if up.Load() {
			return nil
		}
		return errors.New("not yet")
	})
	loc := NewProbeLocator(Echo{}, prober, nil)

	_, ok := loc.Lookup(context.Background())
	assert.False(t, ok)

	up.Store(true)
	a, ok := loc.Lookup(context.Background())
	require.True(t, ok)
	assert.Equal(t, Echo{}, a)
}

func TestProbeLocator_NilProberIsAlwaysReady(t *testing.T) {
	loc := NewProbeLocator(Echo{}, nil, nil)
	_, ok := loc.Lookup(context.Background())
	assert.True(t, ok)
}

func TestHTTPProber(t *testing.T) {
	var ready atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("no agents connected"))
			return
		}
		_, _ = w.Write([]byte("ready (1 agents)"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewHTTPProber(srv.URL+"/", nil)

	err := p.Probe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	ready.Store(true)
	assert.NoError(t, p.Probe(context.Background()))
}

func TestHTTPProber_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	err := NewHTTPProber(addr, nil).Probe(context.Background())
	assert.Error(t, err)
}

// startHealthServer serves the gRPC health service on a random port.
func startHealthServer(t *testing.T) (*health.Server, string) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return hs, lis.Addr().String()
}

func TestGRPCProber(t *testing.T) {
	hs, addr := startHealthServer(t)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	p, err := NewGRPCProber(addr, "")
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = p.Probe(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_SERVING")

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	assert.NoError(t, p.Probe(ctx))
}

func TestFromConfig_Echo(t *testing.T) {
	cfg := config.Default().Assistant
	cfg.Echo.StartupDelay = 10 * time.Millisecond

	backend, err := FromConfig(cfg, nil)
	require.NoError(t, err)
	defer backend.Close()

	n, ok := backend.Locator.(Notifier)
	require.True(t, ok, "echo backend signals readiness")

	select {
	case <-n.Ready():
	case <-time.After(time.Second):
		t.Fatal("echo backend never became ready")
	}

	a, ok := backend.Locator.Lookup(context.Background())
	require.True(t, ok)
	reply, err := a.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", reply.Content())
}

func TestFromConfig_GatewayHTTPReadiness(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.AssistantConfig{
		Kind: config.KindGateway,
		Gateway: config.GatewayConfig{
			URL:       srv.URL,
			Readiness: config.ReadinessHTTP,
		},
	}

	backend, err := FromConfig(cfg, nil)
	require.NoError(t, err)
	defer backend.Close()

	a, ok := backend.Locator.Lookup(context.Background())
	require.True(t, ok)
	assert.IsType(t, &Gateway{}, a)
}

func TestFromConfig_GatewayGRPCReadiness(t *testing.T) {
	hs, addr := startHealthServer(t)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	cfg := config.AssistantConfig{
		Kind: config.KindGateway,
		Gateway: config.GatewayConfig{
			URL:       "http://127.0.0.1:1",
			Readiness: config.ReadinessGRPC,
			GRPCAddr:  addr,
		},
	}

	backend, err := FromConfig(cfg, nil)
	require.NoError(t, err)
	defer backend.Close()

	_, ok := backend.Locator.Lookup(context.Background())
	assert.True(t, ok)
}

func TestFromConfig_OpenAI(t *testing.T) {
	cfg := config.AssistantConfig{
		Kind:   config.KindOpenAI,
		OpenAI: config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini"},
	}

	backend, err := FromConfig(cfg, nil)
	require.NoError(t, err)

	a, ok := backend.Locator.Lookup(context.Background())
	require.True(t, ok)
	require.IsType(t, &OpenAI{}, a)
	assert.Equal(t, "gpt-4o-mini", a.(*OpenAI).model)
}

func TestFromConfig_UnknownKind(t *testing.T) {
	_, err := FromConfig(config.AssistantConfig{Kind: "telepathy"}, nil)
	assert.ErrorIs(t, err, ErrUnknownKind)
}
