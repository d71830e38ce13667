// ABOUTME: Assistant backed by a coven gateway's HTTP API
// ABOUTME: Posts to /api/send and folds the SSE response stream into a single Reply

package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// GatewayOptions configures a Gateway assistant.
type GatewayOptions struct {
	URL     string
	AgentID string
	Sender  string
	Token   string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// sendRequest is the JSON body sent to POST /api/send.
type sendRequest struct {
	ThreadID string `json:"thread_id,omitempty"`
	Sender   string `json:"sender"`
	Content  string `json:"content"`
	AgentID  string `json:"agent_id,omitempty"`
}

// Gateway sends prompts to an agent through the gateway and collects the
// streamed text into one reply. The thread ID announced by the first
// response is reused so the agent sees one continuous conversation.
type Gateway struct {
	url     string
	agentID string
	sender  string
	token   string
	client  *http.Client
	logger  *slog.Logger

	mu       sync.Mutex
	threadID string
}

// NewGateway creates a gateway-backed assistant.
func NewGateway(opts GatewayOptions, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	sender := opts.Sender
	if sender == "" {
		sender = "coven-chat"
	}

	g := &Gateway{
		url:     strings.TrimRight(opts.URL, "/"),
		agentID: opts.AgentID,
		sender:  sender,
		token:   opts.Token,
		client:  client,
		logger:  logger.With("component", "gateway_assistant"),
	}

	if g.token != "" {
		if exp, ok := tokenExpiry(g.token); ok && time.Now().After(exp) {
			g.logger.Warn("gateway token has expired", "expired_at", exp)
		}
	}

	return g
}

// ThreadID returns the gateway thread this assistant is attached to, if any.
func (g *Gateway) ThreadID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.threadID
}

// Chat sends prompt and waits for the agent to finish responding.
func (g *Gateway) Chat(ctx context.Context, prompt string) (Reply, error) {
	body, err := json.Marshal(sendRequest{
		ThreadID: g.ThreadID(),
		Sender:   g.sender,
		Content:  prompt,
		AgentID:  g.agentID,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url+"/api/send", bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Reply{}, &Error{Description: "could not reach the assistant", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Reply{}, statusError(resp)
	}

	var text strings.Builder
	var final string
	var streamErr error

	err = readSSE(ctx, resp.Body, func(ev sseEvent) error {
		payload := map[string]any{}
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			return fmt.Errorf("parsing %s event: %w", ev.Event, err)
		}

		switch ev.Event {
		case "started":
			if id, ok := payload["thread_id"].(string); ok && id != "" {
				g.mu.Lock()
				g.threadID = id
				g.mu.Unlock()
			}
		case "text":
			if s, ok := payload["text"].(string); ok {
				text.WriteString(s)
			}
		case "done":
			for _, key := range []string{"full_response", "text"} {
				if s, ok := payload[key].(string); ok && s != "" {
					final = s
					break
				}
			}
			return errStopStream
		case "error":
			msg, _ := payload["error"].(string)
			streamErr = &Error{Description: msg}
			return errStopStream
		case "cancelled":
			reason, _ := payload["reason"].(string)
			streamErr = &Error{Description: strings.TrimSpace("cancelled " + reason)}
			return errStopStream
		default:
			g.logger.Debug("ignoring event", "event", ev.Event)
		}
		return nil
	})
	if err != nil {
		return Reply{}, &Error{Description: "reading response stream", Err: err}
	}
	if streamErr != nil {
		return Reply{}, streamErr
	}

	switch {
	case text.Len() > 0:
		return Text(text.String()), nil
	case final != "":
		return Text(final), nil
	default:
		// Agent finished without saying anything
		return Structured(nil), nil
	}
}

// statusError turns a non-200 response into an Error, preferring the
// gateway's {"error": "..."} body when present.
func statusError(resp *http.Response) error {
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var errResp map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			if msg, ok := errResp["error"]; ok && msg != "" {
				return &Error{Description: msg}
			}
		}
	}
	return &Error{Description: fmt.Sprintf("server returned status %d", resp.StatusCode)}
}
