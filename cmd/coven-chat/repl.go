// ABOUTME: Line-mode front end: one line of input is one submit
// ABOUTME: Prints new conversation entries after each exchange and readiness changes

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/coven-chat/internal/chat"
)

// repl reads lines from in until EOF, /quit, or ctx is cancelled.
func repl(ctx context.Context, c *chat.Controller, in io.Reader, out io.Writer) error {
	var (
		green  = color.New(color.FgGreen)
		yellow = color.New(color.FgYellow)
		red    = color.New(color.FgRed)
		gray   = color.New(color.FgHiBlack)
	)

	printStatus := func(v chat.View) {
		if v.Ready {
			green.Fprintln(out, v.Status)
		} else {
			yellow.Fprintln(out, v.Status)
		}
	}

	printMessage := func(m chat.Message) {
		switch {
		case m.IsUser:
			return
		case m.Content == chat.NotReadyNotice:
			yellow.Fprintln(out, m.Content)
		case strings.HasPrefix(m.Content, chat.ErrorPrefix):
			red.Fprintln(out, m.Content)
		default:
			fmt.Fprintln(out, m.Content)
		}
	}

	v := c.View()
	printStatus(v)
	gray.Fprintln(out, "Type a message and press Enter. /status for readiness, /quit to exit.")

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	seen := len(v.Messages)
	wasReady := v.Ready

	for {
		fmt.Fprint(out, "> ")

		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("reading input: %w", err)
					}
				default:
				}
				return nil
			}
			line = l
		}

		switch strings.TrimSpace(line) {
		case "/quit", "/exit":
			return nil
		case "/status":
			printStatus(c.View())
			continue
		}

		if outcome := c.Submit(ctx, line); outcome == chat.OutcomeBusy {
			gray.Fprintln(out, "still waiting for the previous reply")
		}

		v := c.View()
		if v.Ready && !wasReady {
			printStatus(v)
			wasReady = true
		}
		for _, m := range v.Messages[seen:] {
			printMessage(m)
		}
		seen = len(v.Messages)
	}
}
