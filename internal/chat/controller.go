// ABOUTME: Conversation controller mediating between user input, the assistant, and the message list
// ABOUTME: Polls for assistant readiness and allows at most one exchange in flight

package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/2389/coven-chat/internal/assistant"
)

// DefaultPollInterval is used when WithPollInterval is not given.
const DefaultPollInterval = 300 * time.Millisecond

// Option configures a Controller.
type Option func(*Controller)

// WithPollInterval sets how often readiness is checked.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithExchangeTimeout bounds each assistant call. Zero (the default) means
// the call runs until the assistant answers or the caller's context ends.
func WithExchangeTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.exchangeTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller owns the conversation state. All methods are safe for
// concurrent use; the mutex is never held across the assistant call.
type Controller struct {
	locator         assistant.Locator
	pollInterval    time.Duration
	exchangeTimeout time.Duration
	logger          *slog.Logger
	events          *broadcaster

	mu        sync.Mutex
	messages  []Message
	draft     string
	ready     bool
	assistant assistant.Assistant
	state     ExchangeState

	lifecycleMu sync.Mutex
	started     bool
	closed      bool
	cancelPoll  context.CancelFunc
	pollDone    chan struct{}
}

// New creates a controller that obtains its assistant from locator, which
// must not be nil. Call Start to begin polling for readiness and Close on
// teardown.
func New(locator assistant.Locator, opts ...Option) *Controller {
	c := &Controller{
		locator:      locator,
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "chat")
	c.events = newBroadcaster(c.logger)
	return c
}

// Start launches the readiness poller. It runs until the assistant becomes
// available, ctx is cancelled, or Close is called. Calling Start more than
// once, or after Close, has no effect.
func (c *Controller) Start(ctx context.Context) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.started || c.closed {
		return
	}
	c.started = true

	pollCtx, cancel := context.WithCancel(ctx)
	c.cancelPoll = cancel
	c.pollDone = make(chan struct{})

	go c.pollReadiness(pollCtx, c.pollDone)
}

// Close stops the readiness poller, whether or not readiness was reached,
// waits for it to exit, and closes all subscriber channels. Close is idempotent.
func (c *Controller) Close() {
	c.lifecycleMu.Lock()
	if c.closed {
		c.lifecycleMu.Unlock()
		return
	}
	c.closed = true
	cancel, done := c.cancelPoll, c.pollDone
	c.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	c.events.close()
}

// Subscribe returns a channel receiving an Event after every state change.
// The subscription ends when ctx is cancelled or the controller is closed.
func (c *Controller) Subscribe(ctx context.Context) <-chan Event {
	ch, _ := c.events.subscribe(ctx)
	return ch
}

// SetDraft replaces the input buffer.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draft == text {
		return
	}
	c.draft = text
	c.publishLocked(Event{Kind: EventDraft})
}

// Draft returns the input buffer.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Ready reports whether the assistant has become available.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// State returns the exchange state.
func (c *Controller) State() ExchangeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether an exchange is in flight.
func (c *Controller) Busy() bool {
	return c.State() == Dispatching
}

// Messages returns a copy of the conversation in display order.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// SubmitDraft submits the current input buffer, as the send control does.
func (c *Controller) SubmitDraft(ctx context.Context) Outcome {
	return c.Submit(ctx, c.Draft())
}

// Submit runs one exchange for text and blocks until it completes.
//
// Whitespace-only text is ignored, as is any submit while another exchange
// is in flight. Before the assistant is available a notice is appended and the
// draft is kept. Otherwise the user message is appended, the draft cleared,
// and the assistant called; its reply, or a description of its failure, is
// appended as the second message. Failures never escape Submit.
func (c *Controller) Submit(ctx context.Context, text string) Outcome {
	text = strings.TrimSpace(text)
	if text == "" {
		return OutcomeIgnored
	}

	c.mu.Lock()
	if c.state == Dispatching {
		c.mu.Unlock()
		c.logger.Debug("submit ignored, exchange in flight")
		return OutcomeBusy
	}
	if !c.ready {
		c.appendLocked(NotReadyNotice, false)
		c.mu.Unlock()
		return OutcomeNotReady
	}

	a := c.assistant
	c.appendLocked(text, true)
	if c.draft != "" {
		c.draft = ""
		c.publishLocked(Event{Kind: EventDraft})
	}
	c.state = Dispatching
	c.publishLocked(Event{Kind: EventExchange})
	c.mu.Unlock()

	start := time.Now()
	content, outcome := c.dispatch(ctx, a, text)

	c.mu.Lock()
	c.appendLocked(content, false)
	c.state = Idle
	c.publishLocked(Event{Kind: EventExchange})
	c.mu.Unlock()

	c.logger.Info("exchange completed",
		"outcome", outcome.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return outcome
}

// dispatch calls the assistant and turns the result into message content.
func (c *Controller) dispatch(ctx context.Context, a assistant.Assistant, text string) (content string, outcome Outcome) {
	if c.exchangeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.exchangeTimeout)
		defer cancel()
	}

	// A panicking assistant is reported like any other failure.
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("assistant panicked", "panic", r)
			content = ErrorPrefix + assistant.Describe(fmt.Errorf("%v", r))
			outcome = OutcomeFailed
		}
	}()

	reply, err := a.Chat(ctx, text)
	if err != nil {
		c.logger.Warn("assistant call failed", "error", err)
		return ErrorPrefix + assistant.Describe(err), OutcomeFailed
	}
	return reply.Content(), OutcomeReplied
}

// appendLocked adds a message and notifies subscribers. c.mu must be held.
func (c *Controller) appendLocked(content string, isUser bool) {
	msg := newMessage(content, isUser)
	c.messages = append(c.messages, msg)
	c.publishLocked(Event{Kind: EventMessage, Message: &msg})
}

// publishLocked stamps ev with the current flags and broadcasts it. c.mu must be held.
func (c *Controller) publishLocked(ev Event) {
	ev.Ready = c.ready
	ev.State = c.state
	ev.Busy = c.state == Dispatching
	c.events.publish(ev)
}
