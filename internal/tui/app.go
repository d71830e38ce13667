// ABOUTME: Full-screen terminal widget built on tview
// ABOUTME: Redraws from the controller view on every event and keeps the newest message in view

package tui

import (
	"context"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/2389/coven-chat/internal/chat"
)

// App is the terminal surface for one controller.
type App struct {
	controller *chat.Controller
	logger     *slog.Logger

	app      *tview.Application
	status   *tview.TextView
	messages *tview.TextView
	input    *tview.InputField
}

// New builds the widget. It does not touch the terminal until Run.
func New(c *chat.Controller, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		controller: c,
		logger:     logger.With("component", "tui"),
		app:        tview.NewApplication(),
	}

	a.status = tview.NewTextView().SetDynamicColors(true)

	a.messages = tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true)
	a.messages.SetBorder(true).SetTitle(" coven chat ")

	a.input = tview.NewInputField().SetLabel("> ")
	a.input.SetChangedFunc(c.SetDraft)
	a.input.SetInputCapture(a.captureKey)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.status, 1, 0, false).
		AddItem(a.messages, 0, 1, false).
		AddItem(a.input, 1, 0, true)

	a.app.SetRoot(root, true).SetFocus(a.input)
	a.refresh()
	return a
}

// captureKey submits on Enter without Shift. The exchange runs off the UI
// goroutine; the controller's events drive the redraws.
func (a *App) captureKey(event *tcell.EventKey) *tcell.EventKey {
	ke, ok := keyEvent(event.Key(), event.Modifiers())
	if !ok || !ke.Submits() {
		return event
	}
	go a.controller.HandleKey(context.Background(), ke)
	return nil
}

// refresh copies the controller view into the primitives. Must run on the
// UI goroutine once the application is running.
func (a *App) refresh() {
	v := a.controller.View()

	a.status.SetText(statusLine(v))
	a.messages.SetText(transcript(v))
	a.messages.ScrollToEnd()

	a.input.SetPlaceholder(v.Placeholder)
	a.input.SetDisabled(v.InputDisabled)
	if a.input.GetText() != v.Draft {
		a.input.SetText(v.Draft)
	}
}

// Run shows the widget until ctx is cancelled, the user quits with Ctrl+C,
// or the controller is closed.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := a.controller.Subscribe(ctx)
	go func() {
		defer a.app.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				a.logger.Debug("redraw", "event", ev.Kind)
				a.app.QueueUpdateDraw(a.refresh)
			}
		}
	}()

	return a.app.Run()
}
