// ABOUTME: Contract for the external chat capability the widget forwards user text to
// ABOUTME: Defines Reply normalization and the failure description used in error messages

package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// NoReplyPlaceholder replaces a structured reply that lacks message.content.
	NoReplyPlaceholder = "No reply received"

	// FallbackDescription is used when a failure carries no description.
	FallbackDescription = "Something went wrong."
)

// ErrUnknownKind is returned by FromConfig for an unsupported assistant kind.
var ErrUnknownKind = errors.New("unknown assistant kind")

// Assistant is an asynchronous chat function supplied by the host environment.
type Assistant interface {
	Chat(ctx context.Context, prompt string) (Reply, error)
}

// Func adapts a plain function to the Assistant interface.
type Func func(ctx context.Context, prompt string) (Reply, error)

// Chat calls f.
func (f Func) Chat(ctx context.Context, prompt string) (Reply, error) {
	return f(ctx, prompt)
}

// ReplyMessage is the nested part of a structured reply.
type ReplyMessage struct {
	Content *string `json:"content,omitempty"`
}

// Reply is either plain text or a structured value carrying a nested
// message.content field. The zero value is a structured reply with no message.
type Reply struct {
	text    string
	plain   bool
	Message *ReplyMessage `json:"message,omitempty"`
}

// Text returns a plain text reply.
func Text(s string) Reply {
	return Reply{text: s, plain: true}
}

// Structured returns a structured reply with the given nested message.
func Structured(msg *ReplyMessage) Reply {
	return Reply{Message: msg}
}

// StructuredContent is shorthand for Structured(&ReplyMessage{Content: &content}).
func StructuredContent(content string) Reply {
	return Structured(&ReplyMessage{Content: &content})
}

// IsText reports whether the reply is in plain text form.
func (r Reply) IsText() bool {
	return r.plain
}

// Content normalizes the reply into the text shown in the conversation.
// Plain text is returned unchanged; a structured reply yields its nested
// content, or NoReplyPlaceholder when that field is absent or empty.
func (r Reply) Content() string {
	if r.plain {
		return r.text
	}
	if r.Message == nil || r.Message.Content == nil || *r.Message.Content == "" {
		return NoReplyPlaceholder
	}
	return *r.Message.Content
}

// UnmarshalJSON accepts either a JSON string or {"message":{"content":"..."}}.
func (r *Reply) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding text reply: %w", err)
		}
		*r = Text(s)
		return nil
	}

	var structured struct {
		Message *ReplyMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &structured); err != nil {
		return fmt.Errorf("decoding structured reply: %w", err)
	}
	*r = Structured(structured.Message)
	return nil
}

// MarshalJSON emits the same two shapes UnmarshalJSON accepts.
func (r Reply) MarshalJSON() ([]byte, error) {
	if r.plain {
		return json.Marshal(r.text)
	}
	return json.Marshal(struct {
		Message *ReplyMessage `json:"message,omitempty"`
	}{Message: r.Message})
}

// Error is a failed chat call with an optional human-readable description.
type Error struct {
	Description string
	Err         error
}

func (e *Error) Error() string {
	switch {
	case e.Description != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Description, e.Err)
	case e.Description != "":
		return e.Description
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "assistant error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Describe returns the human-readable description of a chat failure,
// falling back to FallbackDescription when there is none.
func Describe(err error) string {
	if err == nil {
		return FallbackDescription
	}

	var ae *Error
	if errors.As(err, &ae) {
		if ae.Description != "" {
			return ae.Description
		}
		if ae.Err == nil {
			return FallbackDescription
		}
		err = ae.Err
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return FallbackDescription
}
