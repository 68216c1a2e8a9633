package event_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avtoolkit/clipforge/internal/event"
)

func Test_FunctionHandlers(t *testing.T) {
	bus := event.New()

	var got []event.Payload
	bus.RegisterHandlerFunction(event.JobQueuedEvent, func(e event.Event, payload event.Payload) {
		assert.Equal(t, event.JobQueuedEvent, e)
		got = append(got, payload)
	})

	bus.Dispatch(event.JobQueuedEvent, "payload-1")
	bus.Dispatch(event.JobCompleteEvent, "other-event")
	bus.Dispatch(event.JobQueuedEvent, "payload-2")

	assert.Equal(t, []event.Payload{"payload-1", "payload-2"}, got)
}

func Test_AsyncFunctionHandlers(t *testing.T) {
	bus := event.New()

	var wg sync.WaitGroup
	wg.Add(1)
	bus.RegisterAsyncHandlerFunction(event.JobCompleteEvent, func(event.Event, event.Payload) {
		wg.Done()
	})

	bus.Dispatch(event.JobCompleteEvent, nil)
	wg.Wait()
}

func Test_ChannelHandlers(t *testing.T) {
	bus := event.New()

	handle := make(event.HandlerChannel, 2)
	bus.RegisterHandlerChannel(handle, event.JobQueuedEvent, event.JobCompleteEvent)

	bus.Dispatch(event.JobQueuedEvent, 1)
	bus.Dispatch(event.JobUpdateEvent, 2)
	bus.Dispatch(event.JobCompleteEvent, 3)

	first := <-handle
	assert.Equal(t, event.JobQueuedEvent, first.Event)
	assert.Equal(t, 1, first.Payload)

	second := <-handle
	assert.Equal(t, event.JobCompleteEvent, second.Event)
	assert.Equal(t, 3, second.Payload)

	select {
	case unexpected := <-handle:
		t.Fatalf("received event %s that the channel never registered for", unexpected.Event)
	default:
	}
}

func Test_ChannelHandlers_DropWhenFull(t *testing.T) {
	bus := event.New()

	handle := make(event.HandlerChannel, 1)
	bus.RegisterHandlerChannel(handle, event.JobProgressEvent)

	// The second dispatch finds the buffer full and must not block.
	done := make(chan struct{})
	go func() {
		bus.Dispatch(event.JobProgressEvent, 1)
		bus.Dispatch(event.JobProgressEvent, 2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on a full handler channel")
	}

	got := <-handle
	require.Equal(t, 1, got.Payload)
	assert.Empty(t, handle)
}
