// ABOUTME: JSON and SSE handlers for the chat widget
// ABOUTME: Send is idempotent per Idempotency-Key; events mirror controller state changes

package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/2389/coven-chat/internal/chat"
	"github.com/2389/coven-chat/internal/dedupe"
)

// IdempotencyHeader names the request header that makes a send idempotent.
const IdempotencyHeader = "Idempotency-Key"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 * 1024

// SendRequest is the JSON request body for POST /api/send.
type SendRequest struct {
	Text string `json:"text"`
}

// KeyRequest is the JSON request body for POST /api/key. Draft carries the
// input's current text so the key applies to what the user sees.
type KeyRequest struct {
	Key   string  `json:"key"`
	Shift bool    `json:"shift"`
	Draft *string `json:"draft,omitempty"`
}

// DraftRequest is the JSON request body for POST /api/draft.
type DraftRequest struct {
	Draft string `json:"draft"`
}

type sendResponse struct {
	Outcome string `json:"outcome"`
	// Replayed is set when the response was recorded by an earlier request
	// with the same idempotency key.
	Replayed bool `json:"replayed,omitempty"`
}

type keyResponse struct {
	Consumed bool `json:"consumed"`
}

// handleSend handles POST /api/send. It blocks until the exchange finishes.
// The exchange outlives the request: the conversation is shared, so a client
// that goes away must not abort the assistant call.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := context.WithoutCancel(r.Context())
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if key == "" {
		outcome := s.controller.Submit(ctx, req.Text)
		s.writeJSON(w, http.StatusOK, sendResponse{Outcome: outcome.String()})
		return
	}

	state, prev := s.sends.Claim(key)
	switch state {
	case dedupe.Done:
		s.logger.Debug("replaying send", "idempotency_key", key, "outcome", prev.Outcome)
		prev.Replayed = true
		s.writeJSON(w, http.StatusOK, prev)
		return
	case dedupe.Pending:
		s.sendJSONError(w, http.StatusConflict, "request with this idempotency key is in progress")
		return
	}

	outcome := s.controller.Submit(ctx, req.Text)
	resp := sendResponse{Outcome: outcome.String()}
	if outcome == chat.OutcomeBusy {
		// Nothing happened, so a retry with the same key must be allowed to run.
		s.sends.Release(key)
	} else {
		s.sends.Complete(key, resp)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleKey handles POST /api/key.
func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var req KeyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Key == "" {
		s.sendJSONError(w, http.StatusBadRequest, "key is required")
		return
	}

	if req.Draft != nil {
		s.controller.SetDraft(*req.Draft)
	}
	consumed := s.controller.HandleKey(context.WithoutCancel(r.Context()), chat.KeyEvent{Key: req.Key, Shift: req.Shift})
	s.writeJSON(w, http.StatusOK, keyResponse{Consumed: consumed})
}

// handleDraft handles POST /api/draft.
func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.controller.SetDraft(req.Draft)
	w.WriteHeader(http.StatusNoContent)
}

// handleState handles GET /api/state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.state())
}

// handleEvents handles GET /api/events, streaming one SSE event per
// controller event until the client goes away or the controller closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("streaming not supported")
		s.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events := s.controller.Subscribe(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Clients render from the snapshot and then apply events.
	s.writeSSEEvent(w, "state", s.state())
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()

		case ev, ok := <-events:
			if !ok {
				s.writeSSEEvent(w, "closed", map[string]string{})
				flusher.Flush()
				return
			}
			s.writeSSEEvent(w, string(ev.Kind), s.renderEvent(ev))
			flusher.Flush()
		}
	}
}

// handleHealth returns 200 OK while the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

// writeSSEEvent writes a single SSE event to the response writer.
func (s *Server) writeSSEEvent(w http.ResponseWriter, event string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
