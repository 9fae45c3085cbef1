// Package observability exposes Prometheus metrics and periodic
// process telemetry for the relay server.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the counters mutated by the lifecycle engine and the
// connection layer. All registration happens once at construction.
type Metrics struct {
	MessagesSent      prometheus.Counter
	MessagesDelivered prometheus.Counter
	MessagesSeen      prometheus.Counter
	MessagesEdited    prometheus.Counter
	MessagesDeleted   prometheus.Counter
	Reactions         prometheus.Counter
	RejectedCommands  prometheus.Counter
	DroppedEvents     prometheus.Counter
	Connections       prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulse_messages_sent_total",
			Help: "Messages accepted and persisted by the lifecycle engine.",
		}),
		MessagesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulse_messages_delivered_total",
			Help: "Delivery acknowledgements applied.",
		}),
		MessagesSeen: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulse_messages_seen_total",
			Help: "Seen-set insertions (idempotent repeats excluded).",
		}),
		MessagesEdited: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulse_messages_edited_total",
			Help: "Successful in-place edits.",
		}),
		MessagesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulse_messages_deleted_total",
			Help: "Hard deletions.",
		}),
		Reactions: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulse_reactions_total",
			Help: "Reaction toggles applied (add, replace, or remove).",
		}),
		RejectedCommands: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulse_rejected_commands_total",
			Help: "Inbound commands rejected with an explicit denial.",
		}),
		DroppedEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulse_dropped_events_total",
			Help: "Outbound events dropped on a full connection buffer.",
		}),
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pulse_connections",
			Help: "Currently attached realtime connections.",
		}),
	}
}
