// ABOUTME: Pure rendering of controller views into tview color-tagged text
// ABOUTME: Kept free of tview primitives so it can be tested without a terminal

package tui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/2389/coven-chat/internal/chat"
)

const (
	userLabel      = "You"
	assistantLabel = "AI"
)

// statusLine renders the readiness indicator.
func statusLine(v chat.View) string {
	if v.Ready {
		return "[green]● " + v.Status + "[-]"
	}
	return "[yellow]○ " + v.Status + "[-]"
}

// transcript renders the conversation, the empty hint, and the thinking line.
func transcript(v chat.View) string {
	var b strings.Builder

	if v.EmptyHint != "" {
		b.WriteString("[gray]" + tview.Escape(v.EmptyHint) + "[-]\n")
	}

	for _, m := range v.Messages {
		b.WriteString(renderMessage(m))
		b.WriteString("\n\n")
	}

	if v.Thinking != "" {
		b.WriteString("[gray::i]" + tview.Escape(v.Thinking) + "[-::-]\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderMessage(m chat.Message) string {
	if m.IsUser {
		return "[blue::b]" + userLabel + ":[-::-] " + tview.Escape(m.Content)
	}

	color := "white"
	switch {
	case m.Content == chat.NotReadyNotice:
		color = "yellow"
	case strings.HasPrefix(m.Content, chat.ErrorPrefix):
		color = "red"
	}
	return "[green::b]" + assistantLabel + ":[-::-] [" + color + "]" + tview.Escape(m.Content) + "[-]"
}

// keyEvent maps a terminal key press to the controller's key vocabulary.
// Keys other than Enter are reported as not relevant.
func keyEvent(key tcell.Key, mod tcell.ModMask) (chat.KeyEvent, bool) {
	if key != tcell.KeyEnter {
		return chat.KeyEvent{}, false
	}
	return chat.KeyEvent{Key: chat.KeyEnter, Shift: mod&tcell.ModShift != 0}, true
}
