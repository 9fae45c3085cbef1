package runtime

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"pulse/domain/event"
	"pulse/errors"
)

func TestRelay_Publish_Fans_Out_To_All_Subscribers(t *testing.T) {
	req := require.New(t)
	relay := NewRelay(slog.Default())
	ctx := context.Background()
	first := &recordingSink{}
	second := &recordingSink{}

	// Given two connections subscribed under the same group identity
	relay.Subscribe("group-42", first)
	relay.Subscribe("group-42", second)

	// When an event is published to that identity
	relay.Publish(ctx, "group-42", event.Typing{From: "alice"})

	// Then both subscribers received it
	req.Len(first.events, 1)
	req.Len(second.events, 1)
	req.Equal(event.Typing{From: "alice"}, first.events[0])
}

func TestRelay_Publish_Without_Subscriber_Is_Silent(t *testing.T) {
	relay := NewRelay(slog.Default())

	// Publishing into the void must not panic or error
	relay.Publish(context.Background(), "nobody", event.Typing{From: "alice"})
}

func TestRelay_Unsubscribe_Stops_Delivery(t *testing.T) {
	req := require.New(t)
	relay := NewRelay(slog.Default())
	ctx := context.Background()
	sink := &recordingSink{}

	relay.Subscribe("alice", sink)
	relay.Unsubscribe("alice", sink)

	relay.Publish(ctx, "alice", event.Typing{From: "bob"})
	req.Empty(sink.events)
}

func TestRelay_Events_Are_Addressed_Per_Identity(t *testing.T) {
	req := require.New(t)
	relay := NewRelay(slog.Default())
	ctx := context.Background()
	alice := &recordingSink{}
	bob := &recordingSink{}

	relay.Subscribe("alice", alice)
	relay.Subscribe("bob", bob)

	// When an event targets bob only
	relay.Publish(ctx, "bob", event.Typing{From: "alice"})

	// Then alice sees nothing
	req.Empty(alice.events)
	req.Len(bob.events, 1)
}

// failingSink always reports a full buffer.
type failingSink struct{}

func (failingSink) Consume(context.Context, event.Event) error {
	return errors.ErrSinkFull
}

func TestRelay_Sink_Overflow_Does_Not_Block_Publish(t *testing.T) {
	relay := NewRelay(slog.Default())

	relay.Subscribe("alice", failingSink{})

	// The publish returns despite the sink refusing the event
	relay.Publish(context.Background(), "alice", event.Typing{From: "bob"})
}
