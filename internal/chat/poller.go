// ABOUTME: Readiness polling for the late-initializing assistant capability
// ABOUTME: Checks on a fixed interval, or immediately when the locator signals initialization

package chat

import (
	"context"
	"time"

	"github.com/2389/coven-chat/internal/assistant"
)

// pollReadiness checks the locator every poll interval until the assistant
// is available or ctx ends. If the locator can signal initialization, that
// signal triggers an immediate check as well.
func (c *Controller) pollReadiness(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	if c.Ready() {
		return
	}

	var notify <-chan struct{}
	if n, ok := c.locator.(assistant.Notifier); ok {
		notify = n.Ready()
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	c.logger.Debug("waiting for assistant", "poll_interval", c.pollInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-notify:
			// Closed channel: stop selecting on it after the first wakeup
			notify = nil
			if c.CheckReadiness(ctx) {
				return
			}
		case <-ticker.C:
			if c.CheckReadiness(ctx) {
				return
			}
		}
	}
}

// CheckReadiness performs one readiness check. The first successful check
// makes the controller ready; readiness never reverts.
func (c *Controller) CheckReadiness(ctx context.Context) bool {
	if c.Ready() {
		return true
	}

	a, ok := c.locator.Lookup(ctx)
	if !ok || a == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ready {
		c.ready = true
		c.assistant = a
		c.publishLocked(Event{Kind: EventReadiness})
		c.logger.Info("assistant ready")
	}
	return true
}
