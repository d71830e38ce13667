// ABOUTME: Key handling for the input control
// ABOUTME: Enter without Shift submits the draft; Shift+Enter is left to the input

package chat

import "context"

// KeyEnter is the primary submit key.
const KeyEnter = "Enter"

// KeyEvent is a key press in the input control.
type KeyEvent struct {
	Key   string `json:"key"`
	Shift bool   `json:"shift"`
}

// Submits reports whether ev is the submit gesture.
func (ev KeyEvent) Submits() bool {
	return ev.Key == KeyEnter && !ev.Shift
}

// HandleKey submits the draft when ev is Enter without Shift and reports
// whether the key was consumed, in which case the surface must suppress its
// default handling. It blocks for the duration of the exchange.
func (c *Controller) HandleKey(ctx context.Context, ev KeyEvent) bool {
	if !ev.Submits() {
		return false
	}
	c.SubmitDraft(ctx)
	return true
}
