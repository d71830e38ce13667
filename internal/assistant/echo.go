// ABOUTME: Local echo assistant for demos and tests
// ABOUTME: Replies "echo: <prompt>" after an optional latency

package assistant

import (
	"context"
	"time"
)

// Echo answers every prompt by repeating it.
type Echo struct {
	Latency time.Duration
}

// Chat waits Latency (or until ctx is done) and echoes prompt.
func (e Echo) Chat(ctx context.Context, prompt string) (Reply, error) {
	if e.Latency > 0 {
		timer := time.NewTimer(e.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Reply{}, &Error{Description: "request cancelled", Err: ctx.Err()}
		case <-timer.C:
		}
	}
	return Text("echo: " + prompt), nil
}

// InstallAfter installs a into h once delay has elapsed, simulating a host
// environment that finishes loading late. The returned function cancels a
// pending install.
func InstallAfter(h *Host, a Assistant, delay time.Duration) (stop func() bool) {
	if delay <= 0 {
		h.Install(a)
		return func() bool { return false }
	}
	t := time.AfterFunc(delay, func() { h.Install(a) })
	return t.Stop
}
