// ABOUTME: Render-ready snapshot of the controller for terminal and web surfaces
// ABOUTME: Derives status, placeholder, and disabled flags from readiness, busy, and draft

package chat

import "strings"

// Texts shown by every surface.
const (
	StatusReady        = "AI Ready"
	StatusWaiting      = "Waiting for AI..."
	PlaceholderReady   = "Type your message..."
	PlaceholderWaiting = "Waiting for AI to be ready..."
	EmptyHint          = "Start the conversation by typing a message below."
	ThinkingIndicator  = "Thinking..."
	SendLabel          = "send"
	SendingLabel       = "Sending"
)

// View is everything a surface needs to draw the widget.
type View struct {
	Messages []Message `json:"messages"`
	Draft    string    `json:"draft"`
	Ready    bool      `json:"ready"`
	Busy     bool      `json:"busy"`

	Status        string `json:"status"`
	Placeholder   string `json:"placeholder"`
	InputDisabled bool   `json:"input_disabled"`
	SendDisabled  bool   `json:"send_disabled"`
	SendLabel     string `json:"send_label"`
	// EmptyHint is set only while the conversation is empty.
	EmptyHint string `json:"empty_hint,omitempty"`
	// Thinking is set while an exchange is in flight.
	Thinking string `json:"thinking,omitempty"`
	// ScrollTarget is the ID of the newest message; surfaces keep it in view.
	ScrollTarget string `json:"scroll_target,omitempty"`
}

// View returns a consistent snapshot of the controller.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	busy := c.state == Dispatching
	v := View{
		Messages:      append([]Message(nil), c.messages...),
		Draft:         c.draft,
		Ready:         c.ready,
		Busy:          busy,
		Status:        StatusWaiting,
		Placeholder:   PlaceholderWaiting,
		InputDisabled: !c.ready || busy,
		SendDisabled:  !c.ready || busy || strings.TrimSpace(c.draft) == "",
		SendLabel:     SendLabel,
	}

	if c.ready {
		v.Status = StatusReady
		v.Placeholder = PlaceholderReady
	}
	if busy {
		v.Thinking = ThinkingIndicator
		v.SendLabel = SendingLabel
	}
	if len(c.messages) == 0 {
		v.EmptyHint = EmptyHint
	} else {
		v.ScrollTarget = c.messages[len(c.messages)-1].ID
	}

	return v
}
