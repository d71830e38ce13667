// ABOUTME: In-memory fan-out of controller state changes to views
// ABOUTME: Views use message events to re-render and scroll to the newest entry

package chat

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// EventKind says which part of the controller state changed.
type EventKind string

// Event kinds. EventMessage carries the appended message; the others only
// report the values after the change.
const (
	EventMessage   EventKind = "message"
	EventReadiness EventKind = "readiness"
	EventExchange  EventKind = "exchange"
	EventDraft     EventKind = "draft"
)

// Event is published after every state mutation.
type Event struct {
	Kind EventKind `json:"kind"`
	// Message is set for EventMessage and is the entry views scroll to.
	Message *Message `json:"message,omitempty"`
	// Ready and State are the values after the mutation.
	Ready bool          `json:"ready"`
	State ExchangeState `json:"-"`
	Busy  bool          `json:"busy"`
}

// broadcaster delivers events to subscribers without ever blocking the
// controller. Events for a subscriber whose buffer is full are dropped; views
// re-read the full View on every event, so a dropped event only delays a redraw.
type broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	closed      bool
	done        chan struct{}
	logger      *slog.Logger

	// watchers tracks the goroutines that unsubscribe on context cancellation.
	watchers sync.WaitGroup
}

func newBroadcaster(logger *slog.Logger) *broadcaster {
	return &broadcaster{
		subscribers: make(map[string]chan Event),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// subscribe registers a subscriber that is removed when ctx is cancelled or
// the broadcaster closes. After close, the returned channel is already closed.
func (b *broadcaster) subscribe(ctx context.Context) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID
	}
	b.subscribers[subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	b.watchers.Add(1)
	go func() {
		defer b.watchers.Done()
		select {
		case <-ctx.Done():
			b.unsubscribe(subID)
		case <-b.done:
		}
	}()

	return ch, subID
}

func (b *broadcaster) publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			b.logger.Debug("dropped event for slow subscriber", "sub_id", id, "kind", ev.Kind)
		}
	}
}

func (b *broadcaster) unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}

func (b *broadcaster) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
