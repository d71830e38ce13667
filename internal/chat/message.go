// ABOUTME: Conversation message type and the fixed texts the controller appends
// ABOUTME: Messages are immutable values identified by a UUID

package chat

import (
	"time"

	"github.com/google/uuid"
)

const (
	// NotReadyNotice is appended when the user sends before the assistant is available.
	NotReadyNotice = "AI service is still loading. Please wait..."

	// ErrorPrefix starts every message describing a failed exchange.
	ErrorPrefix = "Error : "
)

// Message is one entry of the conversation.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"is_user"`
	Timestamp time.Time `json:"timestamp"`
}

func newMessage(content string, isUser bool) Message {
	return Message{
		ID:        uuid.New().String(),
		Content:   content,
		IsUser:    isUser,
		Timestamp: time.Now(),
	}
}
