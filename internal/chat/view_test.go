// ABOUTME: Tests for view derivation and change notifications
// ABOUTME: Checks status texts, disabled flags, scroll target, and event delivery

package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/assistant"
)

func TestView_NotReady(t *testing.T) {
	c := New(assistant.NewHost())
	defer c.Close()

	v := c.View()

	assert.Equal(t, StatusWaiting, v.Status)
	assert.Equal(t, PlaceholderWaiting, v.Placeholder)
	assert.True(t, v.InputDisabled)
	assert.True(t, v.SendDisabled)
	assert.Equal(t, EmptyHint, v.EmptyHint)
	assert.Empty(t, v.ScrollTarget)
	assert.Empty(t, v.Thinking)
}

func TestView_ReadyFlags(t *testing.T) {
	c := readyController(t, &fakeAssistant{reply: assistant.Text("ok")})

	v := c.View()
	assert.Equal(t, StatusReady, v.Status)
	assert.Equal(t, PlaceholderReady, v.Placeholder)
	assert.False(t, v.InputDisabled)
	assert.True(t, v.SendDisabled, "empty draft disables send")

	c.SetDraft("   ")
	assert.True(t, c.View().SendDisabled, "whitespace draft disables send")

	c.SetDraft("hi")
	v = c.View()
	assert.False(t, v.SendDisabled)
	assert.Equal(t, SendLabel, v.SendLabel)
}

func TestView_BusyAndScrollTarget(t *testing.T) {
	fa := &fakeAssistant{
		reply:   assistant.Text("done"),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	c := readyController(t, fa)

	go c.Submit(context.Background(), "hi")
	<-fa.entered

	v := c.View()
	assert.True(t, v.Busy)
	assert.True(t, v.InputDisabled)
	assert.True(t, v.SendDisabled)
	assert.Equal(t, ThinkingIndicator, v.Thinking)
	assert.Equal(t, SendingLabel, v.SendLabel)
	require.Len(t, v.Messages, 1)
	assert.Equal(t, v.Messages[0].ID, v.ScrollTarget)
	assert.Empty(t, v.EmptyHint)

	close(fa.release)
	require.Eventually(t, func() bool { return !c.Busy() }, time.Second, 5*time.Millisecond)

	v = c.View()
	require.Len(t, v.Messages, 2)
	assert.Equal(t, v.Messages[1].ID, v.ScrollTarget)
}

func TestSubscribe_ReceivesEventsInOrder(t *testing.T) {
	c := readyController(t, &fakeAssistant{reply: assistant.Text("hey")})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := c.Subscribe(ctx)

	c.SetDraft("yo")
	c.SubmitDraft(context.Background())

	var kinds []EventKind
	var contents []string
	timeout := time.After(time.Second)
	for len(kinds) < 6 {
		select {
		case ev := <-events:
			kinds = append(kinds, ev.Kind)
			if ev.Message != nil {
				contents = append(contents, ev.Message.Content)
			}
		case <-timeout:
			t.Fatalf("timed out, got %v", kinds)
		}
	}

	assert.Equal(t, []EventKind{
		EventDraft,    // SetDraft
		EventMessage,  // user message
		EventDraft,    // draft cleared
		EventExchange, // dispatching
		EventMessage,  // reply
		EventExchange, // idle
	}, kinds)
	assert.Equal(t, []string{"yo", "hey"}, contents)
}

func TestSubscribe_ClosedOnControllerClose(t *testing.T) {
	c := New(assistant.NewHost())
	events := c.Subscribe(context.Background())

	c.Close()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed")
	}

	late := c.Subscribe(context.Background())
	_, ok := <-late
	assert.False(t, ok, "subscribing after Close yields a closed channel")
}

func TestSubscribe_ContextCancelUnsubscribes(t *testing.T) {
	c := New(assistant.NewHost())
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c.Subscribe(ctx)
	assert.Equal(t, 1, c.events.count())

	cancel()
	require.Eventually(t, func() bool { return c.events.count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSubscribe_CloseReleasesWatchers(t *testing.T) {
	c := New(assistant.NewHost())
	c.Subscribe(context.Background())
	c.Subscribe(context.Background())

	c.Close()

	released := make(chan struct{})
	go func() {
		c.events.watchers.Wait()
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("unsubscribe goroutines outlived Close")
	}
}

func TestSubscribe_SlowSubscriberDoesNotBlock(t *testing.T) {
	c := New(assistant.NewHost())
	defer c.Close()

	c.Subscribe(context.Background()) // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBufferSize*2; i++ {
			c.Submit(context.Background(), "hello")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked on a full subscriber")
	}
	assert.Len(t, c.Messages(), subscriberBufferSize*2)
}
