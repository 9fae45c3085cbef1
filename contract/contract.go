package contract

import (
	"context"
	"reflect"

	"pulse/domain"
	"pulse/domain/event"
)

// EventSink is one connection's inbox. Consume must never block the
// publisher: implementations buffer and drop on overflow.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IPresence is the process-wide identity -> connection registry.
// Single active session per identity: a re-registration overwrites.
type IPresence interface {
	Register(ctx context.Context, id domain.Identity, sink EventSink)
	Unregister(ctx context.Context, sink EventSink) (domain.Identity, bool)
	IsOnline(id domain.Identity) bool
	Identities() []domain.Identity
}

// IRelay is the addressable pub/sub fabric. Publishing to an identity
// with no subscriber is a silent no-op; the store stays the durable
// record.
type IRelay interface {
	Subscribe(id domain.Identity, sink EventSink)
	Unsubscribe(id domain.Identity, sink EventSink)
	Publish(ctx context.Context, id domain.Identity, e event.Event)
}

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision during worker lifecycle events,
// avoiding manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
