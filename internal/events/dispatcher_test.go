package events_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-routing/internal/events"
)

func TestDispatcherRunsHandlersSynchronously(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()

	var calls []string
	dispatcher.Subscribe(events.EventTicketStatusChanged, func(ctx context.Context, e events.Event) error {
		calls = append(calls, "first:"+e.TicketID)
		return nil
	})
	dispatcher.Subscribe(events.EventTicketStatusChanged, func(ctx context.Context, e events.Event) error {
		calls = append(calls, "second:"+e.TicketID)
		return nil
	})
	dispatcher.Subscribe(events.EventTicketAssigned, func(ctx context.Context, e events.Event) error {
		calls = append(calls, "unrelated")
		return nil
	})

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: "tkt-1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first:tkt-1", "second:tkt-1"}, calls)
}

func TestDispatcherReturnsFirstHandlerError(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()

	first := assert.AnError
	var secondRan bool
	dispatcher.Subscribe(events.EventTicketStatusChanged, func(ctx context.Context, e events.Event) error {
		return first
	})
	dispatcher.Subscribe(events.EventTicketStatusChanged, func(ctx context.Context, e events.Event) error {
		secondRan = true
		return nil
	})

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketStatusChanged})
	assert.ErrorIs(t, err, first)
	assert.True(t, secondRan, "later handlers still run after an earlier failure")
}

func TestDispatcherNoSubscribers(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated})
	assert.NoError(t, err)
}
