package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishInvokesHandlersInOrder(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketUpdated, func(context.Context, Event) error {
		calls = append(calls, "updated")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "t1"}))
	assert.Equal(t, []string{"first:t1", "second:t1"}, calls)
}

func TestPublishJoinsHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	ran := false
	d.Subscribe(EventTicketUpdated, func(context.Context, Event) error { return boom })
	d.Subscribe(EventTicketUpdated, func(context.Context, Event) error {
		ran = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketUpdated})
	assert.ErrorIs(t, err, boom)
	assert.True(t, ran)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	assert.NoError(t, NewInMemoryDispatcher().Publish(context.Background(), Event{Type: EventTicketCreated}))
}

func TestActorContext(t *testing.T) {
	assert.Equal(t, Actor{}, ActorFromContext(context.Background()))

	ctx := ContextWithActor(context.Background(), Actor{SubjectID: "agent-1", IPAddress: "10.0.0.1"})
	assert.Equal(t, "agent-1", ActorFromContext(ctx).SubjectID)
	assert.Equal(t, "10.0.0.1", ActorFromContext(ctx).IPAddress)
}
