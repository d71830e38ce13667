// ABOUTME: Late-binding slot for the assistant capability and the lookup contracts around it
// ABOUTME: Host lets an environment install the capability after the widget has started

package assistant

import (
	"context"
	"sync"
)

// Locator reports whether the assistant capability is present and callable.
// Lookup must be fast and free of side effects other than the check itself.
type Locator interface {
	Lookup(ctx context.Context) (Assistant, bool)
}

// Notifier is implemented by locators that can signal initialization
// instead of waiting to be polled. The channel is closed once the capability
// becomes available.
type Notifier interface {
	Ready() <-chan struct{}
}

// Host holds an assistant installed by the surrounding environment. Until
// Install is called Lookup reports false. Host implements Locator and Notifier.
type Host struct {
	mu        sync.RWMutex
	assistant Assistant
	ready     chan struct{}
}

// NewHost creates an empty host.
func NewHost() *Host {
	return &Host{ready: make(chan struct{})}
}

// Install makes a available. Only the first call has an effect; later calls
// return false.
func (h *Host) Install(a Assistant) bool {
	if a == nil {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.assistant != nil {
		return false
	}
	h.assistant = a
	close(h.ready)
	return true
}

// Lookup returns the installed assistant, if any.
func (h *Host) Lookup(ctx context.Context) (Assistant, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.assistant, h.assistant != nil
}

// Ready is closed when Install succeeds.
func (h *Host) Ready() <-chan struct{} {
	return h.ready
}
