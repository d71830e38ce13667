// ABOUTME: Tests for the gateway-backed assistant against an httptest SSE server
// ABOUTME: Verifies request shape, text folding, thread continuity, and error mapping

package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway serves /api/send with a scripted list of SSE events.
type fakeGateway struct {
	mu       sync.Mutex
	requests []sendRequest
	auth     []string
	events   [][2]string // event, data
	status   int
	errBody  string
}

func (f *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/send" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	status, errBody, events := f.status, f.errBody, f.events
	f.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if errBody != "" {
			json.NewEncoder(w).Encode(map[string]string{"error": errBody})
		}
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	flusher := w.(http.Flusher)
	for _, ev := range events {
		fmt.Fprintf(w, "event: %s\n", ev[0])
		fmt.Fprintf(w, "data: %s\n\n", ev[1])
		flusher.Flush()
	}
}

func (f *fakeGateway) recorded() ([]sendRequest, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendRequest(nil), f.requests...), append([]string(nil), f.auth...)
}

func writeTokenFile(t *testing.T, configDir, token string) {
	t.Helper()
	dir := filepath.Join(configDir, "coven")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "token"), []byte(token), 0o600))
}

func newGatewayForTest(t *testing.T, f *fakeGateway, token string) *Gateway {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewGateway(GatewayOptions{
		URL:     srv.URL + "/",
		AgentID: "agent-1",
		Sender:  "tester",
		Token:   token,
	}, nil)
}

func TestGatewayChat_FoldsTextChunks(t *testing.T) {
	f := &fakeGateway{events: [][2]string{
		{"started", `{"thread_id":"thread-42"}`},
		{"thinking", `{"text":"hmm"}`},
		{"text", `{"text":"Hi "}`},
		{"tool_use", `{"name":"search"}`},
		{"text", `{"text":"there"}`},
		{"done", `{}`},
	}}
	g := newGatewayForTest(t, f, "")

	reply, err := g.Chat(context.Background(), "hi")

	require.NoError(t, err)
	assert.True(t, reply.IsText())
	assert.Equal(t, "Hi there", reply.Content())
	assert.Equal(t, "thread-42", g.ThreadID())

	requests, auth := f.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, sendRequest{Sender: "tester", Content: "hi", AgentID: "agent-1"}, requests[0])
	assert.Empty(t, auth[0])
}

func TestGatewayChat_ReusesThread(t *testing.T) {
	f := &fakeGateway{events: [][2]string{
		{"started", `{"thread_id":"thread-7"}`},
		{"text", `{"text":"ok"}`},
		{"done", `{}`},
	}}
	g := newGatewayForTest(t, f, "")

	_, err := g.Chat(context.Background(), "one")
	require.NoError(t, err)
	_, err = g.Chat(context.Background(), "two")
	require.NoError(t, err)

	requests, _ := f.recorded()
	require.Len(t, requests, 2)
	assert.Empty(t, requests[0].ThreadID)
	assert.Equal(t, "thread-7", requests[1].ThreadID)
}

func TestGatewayChat_DoneTextUsedWhenNoChunks(t *testing.T) {
	f := &fakeGateway{events: [][2]string{
		{"done", `{"text":"final answer"}`},
	}}
	g := newGatewayForTest(t, f, "")

	reply, err := g.Chat(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, "final answer", reply.Content())
}

func TestGatewayChat_DoneFullResponse(t *testing.T) {
	f := &fakeGateway{events: [][2]string{
		{"done", `{"full_response":"folded by the gateway"}`},
	}}
	g := newGatewayForTest(t, f, "")

	reply, err := g.Chat(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, "folded by the gateway", reply.Content())
}

func TestGatewayChat_EmptyResponseIsPlaceholder(t *testing.T) {
	f := &fakeGateway{events: [][2]string{
		{"started", `{"thread_id":"t"}`},
		{"done", `{}`},
	}}
	g := newGatewayForTest(t, f, "")

	reply, err := g.Chat(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, NoReplyPlaceholder, reply.Content())
}

func TestGatewayChat_ErrorEvent(t *testing.T) {
	f := &fakeGateway{events: [][2]string{
		{"text", `{"text":"partial"}`},
		{"error", `{"error":"timeout"}`},
	}}
	g := newGatewayForTest(t, f, "")

	_, err := g.Chat(context.Background(), "q")

	require.Error(t, err)
	assert.Equal(t, "timeout", Describe(err))
}

func TestGatewayChat_CancelledEvent(t *testing.T) {
	f := &fakeGateway{events: [][2]string{
		{"cancelled", `{"reason":"by user"}`},
	}}
	g := newGatewayForTest(t, f, "")

	_, err := g.Chat(context.Background(), "q")

	require.Error(t, err)
	assert.Equal(t, "cancelled by user", Describe(err))
}

func TestGatewayChat_StatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		errBody string
		want    string
	}{
		{"json error body", http.StatusServiceUnavailable, "agent unavailable", "agent unavailable"},
		{"no body", http.StatusBadGateway, "", "server returned status 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeGateway{status: tt.status, errBody: tt.errBody}
			g := newGatewayForTest(t, f, "")

			_, err := g.Chat(context.Background(), "q")

			require.Error(t, err)
			assert.Equal(t, tt.want, Describe(err))
		})
	}
}

func TestGatewayChat_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g := NewGateway(GatewayOptions{URL: url}, nil)
	_, err := g.Chat(context.Background(), "q")

	require.Error(t, err)
	assert.Equal(t, "could not reach the assistant", Describe(err))
}

func TestGatewayChat_MalformedEvent(t *testing.T) {
	f := &fakeGateway{events: [][2]string{
		{"text", `not json`},
	}}
	g := newGatewayForTest(t, f, "")

	_, err := g.Chat(context.Background(), "q")

	require.Error(t, err)
	assert.Equal(t, "reading response stream", Describe(err))
}

func TestGatewayChat_SendsBearerToken(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	f := &fakeGateway{events: [][2]string{{"done", `{"text":"ok"}`}}}
	g := newGatewayForTest(t, f, token)

	_, err := g.Chat(context.Background(), "q")

	require.NoError(t, err)
	_, auth := f.recorded()
	require.Len(t, auth, 1)
	assert.Equal(t, "Bearer "+token, auth[0])
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "principal-123",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret-that-is-long-enough!"))
	require.NoError(t, err)
	return s
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(-time.Minute).Truncate(time.Second)

	got, ok := tokenExpiry(signedToken(t, exp))
	require.True(t, ok)
	assert.True(t, got.Equal(exp))

	_, ok = tokenExpiry("opaque-token")
	assert.False(t, ok)
}

func TestResolveToken(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("COVEN_TOKEN", "")

	assert.Equal(t, "", ResolveToken(""))
	assert.Equal(t, "configured", ResolveToken("configured"))

	writeTokenFile(t, dir, "from-file\n")
	assert.Equal(t, "from-file", ResolveToken(""))

	t.Setenv("COVEN_TOKEN", "from-env")
	assert.Equal(t, "from-env", ResolveToken(""))
}
