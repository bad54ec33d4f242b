package events

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversEventsWithOrigin(t *testing.T) {
	bus := NewInMemoryBus(watermill.NopLogger{}, WithOrigin("instance-a"))
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(Event{Type: EventDocumentUploaded, Count: 2, Origin: "ignored"}))

	select {
	case ev := <-ch:
		require.Equal(t, EventDocumentUploaded, ev.Type)
		require.Equal(t, "instance-a", ev.Origin)
		require.Equal(t, 2, ev.Count)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestTwoBusesShareTransport(t *testing.T) {
	ch := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	a := NewBus(ch, ch)
	b := NewBus(ch, ch)
	require.NotEqual(t, a.Origin(), b.Origin())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := b.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, a.Publish(Event{Type: EventDocumentsCleared}))
	select {
	case ev := <-events:
		require.Equal(t, a.Origin(), ev.Origin)
		require.Equal(t, EventDocumentsCleared, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	require.NoError(t, a.Close())
}

func TestMalformedMessagesAreSkipped(t *testing.T) {
	ch := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	bus := NewBus(ch, ch)
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, ch.Publish(TopicDocuments, message.NewMessage(watermill.NewUUID(), []byte("not json"))))
	require.NoError(t, bus.Publish(Event{Type: EventDocumentsReloaded}))

	select {
	case ev := <-events:
		require.Equal(t, EventDocumentsReloaded, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}
