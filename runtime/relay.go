package runtime

import (
	"context"
	"log/slog"
	"sync"

	"pulse/contract"
	"pulse/domain"
	"pulse/domain/event"
)

// Relay is the addressable fan-out fabric. Connections subscribe under
// their own identity (and under any group identity they join);
// publishing to an identity delivers the event to every sink currently
// subscribed under it.
//
// Delivery is best-effort: sinks buffer and drop on overflow, there is
// no queueing for absent subscribers, and the caller never blocks on
// completion. The message store remains the durable record.
type Relay struct {
	mu   sync.RWMutex
	log  *slog.Logger
	subs map[domain.Identity]map[contract.EventSink]struct{}
}

func NewRelay(log *slog.Logger) *Relay {
	return &Relay{
		log:  log,
		subs: make(map[domain.Identity]map[contract.EventSink]struct{}),
	}
}

func (r *Relay) Subscribe(id domain.Identity, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[id]; !ok {
		r.subs[id] = make(map[contract.EventSink]struct{})
	}
	r.subs[id][sink] = struct{}{}
}

// Unsubscribe detaches one sink from one target. Empty target sets are
// removed so the map does not accumulate dead identities.
func (r *Relay) Unsubscribe(id domain.Identity, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.subs[id]
	if !ok {
		return
	}
	delete(members, sink)
	if len(members) == 0 {
		delete(r.subs, id)
	}
}

// Publish fans out to every subscriber of the identity. No subscriber
// is a silent no-op, not an error.
func (r *Relay) Publish(ctx context.Context, id domain.Identity, e event.Event) {
	r.mu.RLock()
	var sinks []contract.EventSink
	for sink := range r.subs[id] {
		sinks = append(sinks, sink)
	}
	r.mu.RUnlock()

	for _, sink := range sinks {
		if err := sink.Consume(ctx, e); err != nil {
			r.log.Debug("relay event dropped",
				"target", id,
				"event", e.EventName(),
				"error", err)
		}
	}
}
