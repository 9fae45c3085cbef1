package sink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"pulse/domain/event"
	"pulse/errors"
)

func TestSessionSink_Buffers_Events(t *testing.T) {
	req := require.New(t)
	s := NewSessionSink(2)
	ctx := context.Background()

	req.NoError(s.Consume(ctx, event.Typing{From: "alice"}))
	req.NoError(s.Consume(ctx, event.StopTyping{From: "alice"}))

	req.Equal(event.Typing{From: "alice"}, <-s.Events)
	req.Equal(event.StopTyping{From: "alice"}, <-s.Events)
}

func TestSessionSink_Overflow_Drops_Without_Blocking(t *testing.T) {
	req := require.New(t)
	s := NewSessionSink(1)
	ctx := context.Background()

	// Given a full buffer with no consumer
	req.NoError(s.Consume(ctx, event.Typing{From: "alice"}))

	// When another event arrives
	err := s.Consume(ctx, event.Typing{From: "bob"})

	// Then the publisher is released immediately with a drop
	req.ErrorIs(err, errors.ErrSinkFull)
}

func TestSessionSink_Canceled_Context(t *testing.T) {
	req := require.New(t)
	s := NewSessionSink(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Consume(ctx, event.Typing{From: "alice"})
	req.Error(err)
}
