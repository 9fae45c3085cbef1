// Package runtime holds the shared in-process state of the
// synchronization core: the presence registry and the event relay.
// Both are plain injected services, never package globals, so tests
// and a future multi-process split can substitute them.
package runtime

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"

	"pulse/contract"
	"pulse/domain"
	"pulse/domain/event"
)

// Presence maps each identity to its single active connection sink.
// Registration is last-wins: a new session for an identity silently
// replaces the previous one. Every change re-broadcasts the full
// online identity list to all registered connections.
type Presence struct {
	mu       sync.RWMutex
	log      *slog.Logger
	sessions map[domain.Identity]contract.EventSink
}

func NewPresence(log *slog.Logger) *Presence {
	return &Presence{
		log:      log,
		sessions: make(map[domain.Identity]contract.EventSink),
	}
}

func (p *Presence) Register(ctx context.Context, id domain.Identity, sink contract.EventSink) {
	p.mu.Lock()
	if _, ok := p.sessions[id]; ok {
		p.log.Debug("presence entry replaced", "identity", id)
	}
	p.sessions[id] = sink
	p.mu.Unlock()

	p.broadcastOnline(ctx)
}

// Unregister removes the entry owned by this sink. The ownership check
// is what keeps a stale disconnect from evicting a newer session for
// the same identity: if the identity re-registered with another sink,
// the map no longer points at us and nothing is removed.
func (p *Presence) Unregister(ctx context.Context, sink contract.EventSink) (domain.Identity, bool) {
	p.mu.Lock()
	var owner domain.Identity
	var found bool
	for id, registered := range p.sessions {
		if registered == sink {
			owner = id
			found = true
			break
		}
	}
	if found {
		delete(p.sessions, owner)
	}
	p.mu.Unlock()

	if found {
		p.broadcastOnline(ctx)
	}
	return owner, found
}

// IsOnline is a pure lookup; a miss means "offline".
func (p *Presence) IsOnline(id domain.Identity) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.sessions[id]
	return ok
}

// Identities returns a sorted snapshot of everyone online.
func (p *Presence) Identities() []domain.Identity {
	p.mu.RLock()
	ids := lo.Keys(p.sessions)
	p.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (p *Presence) broadcastOnline(ctx context.Context) {
	snapshot := event.OnlineUsers{Identities: p.Identities()}

	p.mu.RLock()
	sinks := lo.Values(p.sessions)
	p.mu.RUnlock()

	for _, sink := range sinks {
		if err := sink.Consume(ctx, snapshot); err != nil {
			p.log.Debug("online snapshot dropped", "error", err)
		}
	}
}
