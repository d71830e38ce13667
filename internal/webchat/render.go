// ABOUTME: Turns controller snapshots and events into page-ready data
// ABOUTME: Assistant messages are rendered from markdown; user messages are escaped text

package webchat

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/2389/coven-chat/internal/chat"
)

// messageView is a message plus its rendered HTML body.
type messageView struct {
	chat.Message
	HTML template.HTML `json:"html"`
}

// stateResponse is the JSON body of GET /api/state and the initial SSE event.
type stateResponse struct {
	chat.View
	Messages []messageView `json:"messages"`
}

// eventResponse is the data of one streamed controller event.
type eventResponse struct {
	chat.Event
	Message *messageView `json:"message,omitempty"`
}

func (s *Server) state() stateResponse {
	v := s.controller.View()
	resp := stateResponse{
		View:     v,
		Messages: make([]messageView, 0, len(v.Messages)),
	}
	for _, m := range v.Messages {
		resp.Messages = append(resp.Messages, s.renderMessage(m))
	}
	return resp
}

func (s *Server) renderEvent(ev chat.Event) eventResponse {
	resp := eventResponse{Event: ev}
	if ev.Message != nil {
		mv := s.renderMessage(*ev.Message)
		resp.Message = &mv
	}
	return resp
}

func (s *Server) renderMessage(m chat.Message) messageView {
	return messageView{Message: m, HTML: s.renderContent(m)}
}

// renderContent returns the HTML body for m. goldmark's default renderer
// drops raw HTML, so assistant content cannot inject markup.
func (s *Server) renderContent(m chat.Message) template.HTML {
	if m.IsUser {
		return template.HTML(template.HTMLEscapeString(m.Content))
	}

	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(m.Content), &buf); err != nil {
		s.logger.Error("failed to convert markdown", "message_id", m.ID, "error", err)
		return template.HTML(template.HTMLEscapeString(m.Content))
	}
	return template.HTML(buf.String())
}

// handlePage renders the widget with the current state inlined.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, s.state()); err != nil {
		s.logger.Error("failed to render page", "error", err)
	}
}
