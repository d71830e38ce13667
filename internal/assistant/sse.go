// ABOUTME: Minimal Server-Sent Events reader for gateway response streams
// ABOUTME: Groups event/data lines and hands complete events to a callback

package assistant

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// sseEvent is one parsed Server-Sent Event.
type sseEvent struct {
	Event string
	Data  string
}

// errStopStream lets a handler end the stream early without reporting a failure.
var errStopStream = errors.New("stop stream")

// readSSE parses events from body until EOF, context cancellation, or a
// handler error. Returning errStopStream from the handler ends the read cleanly.
func readSSE(ctx context.Context, body io.Reader, handle func(sseEvent) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventType string
	var dataLines []string

	flush := func() error {
		defer func() {
			eventType = ""
			dataLines = nil
		}()
		if eventType == "" || len(dataLines) == 0 {
			return nil
		}
		return handle(sseEvent{Event: eventType, Data: strings.Join(dataLines, "\n")})
	}

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Text()

		// Blank line terminates an event
		if line == "" {
			if err := flush(); err != nil {
				if errors.Is(err, errStopStream) {
					return nil
				}
				return err
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	// Stream ended without a trailing blank line
	if err := flush(); err != nil && !errors.Is(err, errStopStream) {
		return err
	}
	return nil
}
