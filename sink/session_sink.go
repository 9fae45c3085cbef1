// Package sink provides per-connection event inboxes.
package sink

import (
	"context"

	"pulse/domain/event"
	"pulse/errors"
)

// SessionSink buffers outbound events for one connection. The write
// pump drains Events and encodes them onto the wire.
type SessionSink struct {
	Events chan event.Event

	// OnDrop, when set, is called once per event lost to a full
	// buffer. Set before the sink is shared.
	OnDrop func()
}

func NewSessionSink(bufferSize int) *SessionSink {
	return &SessionSink{Events: make(chan event.Event, bufferSize)}
}

// Consume is called by the relay and the presence registry.
// It hands the event to the owning connection without ever blocking
// the publisher: a full buffer drops the event. Delivery here is
// advisory; the store is the durable record.
func (s *SessionSink) Consume(ctx context.Context, e event.Event) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if s.OnDrop != nil {
			s.OnDrop()
		}
		return errors.ErrSinkFull
	}
}
