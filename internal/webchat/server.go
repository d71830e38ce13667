// ABOUTME: HTTP surface for the conversation controller
// ABOUTME: Serves the chat page, a JSON API, and an SSE stream of controller events

package webchat

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"github.com/2389/coven-chat/internal/chat"
	"github.com/2389/coven-chat/internal/dedupe"
)

const (
	// idempotencyTTL is how long a completed send is replayed for its key.
	idempotencyTTL     = 10 * time.Minute
	idempotencyMaxKeys = 1000

	heartbeatInterval = 30 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server exposes one controller over HTTP.
type Server struct {
	controller *chat.Controller
	sends      *dedupe.Cache[sendResponse]
	markdown   goldmark.Markdown
	page       *template.Template
	logger     *slog.Logger
	mux        *http.ServeMux

	httpServer *http.Server
}

// New creates a server for c. The caller keeps ownership of c.
func New(c *chat.Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		controller: c,
		sends:      dedupe.New[sendResponse](idempotencyTTL, idempotencyMaxKeys),
		markdown:   goldmark.New(),
		page:       template.Must(template.ParseFS(templateFS, "templates/page.html")),
		logger:     logger.With("component", "webchat"),
		mux:        http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handlePage)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("POST /api/send", s.handleSend)
	s.mux.HandleFunc("POST /api/key", s.handleKey)
	s.mux.HandleFunc("POST /api/draft", s.handleDraft)
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run listens on addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
		close(errCh)
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case err, ok := <-errCh:
		if ok {
			s.logger.Error("server error", "error", err)
			serverErr = err
		}
	}

	// The parent context is already done, so shut down on a fresh one.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdownErr := s.Shutdown(shutdownCtx)

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// Shutdown stops the HTTP server and releases the idempotency cache.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sends.Close()
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}
