// Package chat implements the conversation controller behind every coven-chat surface.
//
// # Overview
//
// A Controller owns one conversation: an append-only list of messages, the
// draft in the input box, a readiness flag, and the exchange state. It gets
// its assistant from an assistant.Locator injected at construction, because
// the capability may not exist yet when the widget starts.
//
// # Readiness
//
// Start launches a poller that asks the locator every poll interval (300ms by
// default) whether the assistant is callable. If the locator also implements
// assistant.Notifier, its Ready channel triggers an immediate check. The first
// successful check makes the controller ready for the rest of the session and
// stops the poller. Close stops the poller even if readiness was never reached.
//
// # Exchanges
//
// An exchange is one Submit. The exchange state is Idle or Dispatching:
//
//	Idle --submit, not ready--> (notice appended) --> Idle
//	Idle --submit, ready--> Dispatching --reply or failure--> Idle
//
// Submitting while Dispatching, or submitting whitespace, does nothing. A
// dispatched exchange always appends exactly two messages: the user's text and
// then the reply or an "Error : ..." message. Nothing the assistant does
// escapes Submit.
//
// # Views
//
// View returns a snapshot with the derived status text, placeholder, disabled
// flags and scroll target. Subscribe delivers an Event after every mutation so
// surfaces can redraw and scroll to the newest message.
//
// # Usage
//
//	ctrl := chat.New(locator, chat.WithLogger(logger))
//	ctrl.Start(ctx)
//	defer ctrl.Close()
//
//	ctrl.SetDraft("hello")
//	ctrl.HandleKey(ctx, chat.KeyEvent{Key: chat.KeyEnter})
package chat
