// ABOUTME: Fake coven gateway for manual and E2E testing of coven-chat
// ABOUTME: Usage: fake-assistant [-http :8080] [-grpc :50051] [-delay 3s] [-fail]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	httpAddr := flag.String("http", "localhost:8080", "HTTP listen address")
	grpcAddr := flag.String("grpc", "localhost:50051", "gRPC health listen address (empty to disable)")
	delay := flag.Duration("delay", 3*time.Second, "Time until the assistant reports ready")
	fail := flag.Bool("fail", false, "Answer every message with an error event")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *httpAddr, *grpcAddr, *delay, *fail); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, httpAddr, grpcAddr string, delay time.Duration, fail bool) error {
	fa := &fakeAssistant{fail: fail}

	var healthSrv *health.Server
	if grpcAddr != "" {
		ln, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", grpcAddr, err)
		}
		grpcServer := grpc.NewServer()
		healthSrv = health.NewServer()
		healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		healthpb.RegisterHealthServer(grpcServer, healthSrv)

		go func() {
			log.Printf("gRPC health listening on %s", ln.Addr())
			if err := grpcServer.Serve(ln); err != nil {
				log.Printf("gRPC server: %v", err)
			}
		}()
		defer grpcServer.GracefulStop()
	}

	readyTimer := time.AfterFunc(delay, func() {
		fa.ready.Store(true)
		if healthSrv != nil {
			healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		}
		log.Printf("assistant ready")
	})
	defer readyTimer.Stop()

	srv := &http.Server{
		Addr:              httpAddr,
		Handler:           fa.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP listening on %s (ready in %s)", httpAddr, delay)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// fakeAssistant answers the subset of the gateway HTTP API coven-chat uses.
type fakeAssistant struct {
	ready atomic.Bool
	fail  bool
}

func (f *fakeAssistant) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /health/ready", f.handleReady)
	mux.HandleFunc("POST /api/send", f.handleSend)
	return mux
}

func (f *fakeAssistant) handleReady(w http.ResponseWriter, r *http.Request) {
	if !f.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no agents connected"))
		return
	}
	_, _ = w.Write([]byte("ready (1 agents)"))
}

type sendRequest struct {
	ThreadID string `json:"thread_id,omitempty"`
	Sender   string `json:"sender"`
	Content  string `json:"content"`
}

func (f *fakeAssistant) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !f.ready.Load() {
		writeJSONError(w, http.StatusServiceUnavailable, "agent unavailable")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}
	log.Printf("received message [%s] from %s: %s", threadID, req.Sender, req.Content)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	writeEvent(w, flusher, "started", map[string]string{"thread_id": threadID})
	writeEvent(w, flusher, "thinking", map[string]string{"text": "considering"})

	if f.fail {
		writeEvent(w, flusher, "error", map[string]string{"error": "agent crashed"})
		return
	}

	reply := echoReply(req.Content)
	for _, chunk := range chunks(reply, 16) {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(30 * time.Millisecond):
		}
		writeEvent(w, flusher, "text", map[string]string{"text": chunk})
	}
	writeEvent(w, flusher, "done", map[string]string{"full_response": reply})
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	b, _ := json.Marshal(data)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	flusher.Flush()
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// chunks splits s into pieces of at most n bytes, on rune boundaries.
func chunks(s string, n int) []string {
	var out []string
	for len(s) > 0 {
		end := n
		if end >= len(s) {
			out = append(out, s)
			break
		}
		for end > 0 && !utf8RuneStart(s[end]) {
			end--
		}
		if end == 0 {
			end = n
		}
		out = append(out, s[:end])
		s = s[end:]
	}
	return out
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func echoReply(input string) string {
	lower := strings.ToLower(input)
	if strings.Contains(lower, "markdown") || strings.Contains(lower, "list") {
		return "Here is a **markdown** response:\n\n- First item\n- Second item with `code`\n- Third item\n"
	}
	return fmt.Sprintf("Echo: **%s**", input)
}
