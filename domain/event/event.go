// Package event defines the closed set of outbound events pushed to
// connected clients. Wire names are part of the client compatibility
// contract and must not change.
package event

import (
	"github.com/google/uuid"

	"pulse/domain"
)

// Wire event names, shared with the browser client.
const (
	NameReceiveMessage      = "receive-message"
	NameReceiveGroupMessage = "receive-group-message"
	NameSendConfirmed       = "message-sent-confirmation"
	NameStatusUpdated       = "message-status-updated"
	NameMessageEdited       = "message-edited"
	NameMessageDeleted      = "message-deleted"
	NameMessageReacted      = "message-reacted"
	NameTyping              = "typing"
	NameStopTyping          = "stop-typing"
	NameOnlineUsers         = "online-users"
	NameError               = "error"
)

// Event is an outbound notification addressed to one relay target.
// Dispatch on the concrete type, never on the wire name.
type Event interface {
	EventName() string
}

// MessageReceived delivers a freshly persisted message to its
// recipient, carrying the durable identifier.
type MessageReceived struct {
	Message domain.Message
}

func (MessageReceived) EventName() string { return NameReceiveMessage }

// GroupMessageReceived is the group-addressed variant, fanned out to
// every sink subscribed under the group identity.
type GroupMessageReceived struct {
	Message domain.Message
}

func (GroupMessageReceived) EventName() string { return NameReceiveGroupMessage }

// SendConfirmed closes the reconciliation loop: the originating
// connection swaps its provisional identifier for the durable one.
// Sent exactly once per accepted send, to the sender identity only.
type SendConfirmed struct {
	ProvisionalID string
	DurableID     uuid.UUID
}

func (SendConfirmed) EventName() string { return NameSendConfirmed }

// StatusUpdated notifies the sender of a delivery-state transition.
// Delivered is nil for seen-only updates; SeenBy is nil for
// delivered-only updates.
type StatusUpdated struct {
	MessageID uuid.UUID
	Delivered *bool
	SeenBy    []domain.Identity
}

func (StatusUpdated) EventName() string { return NameStatusUpdated }

// MessageEdited carries the full updated message to both parties.
type MessageEdited struct {
	Message domain.Message
}

func (MessageEdited) EventName() string { return NameMessageEdited }

// MessageDeleted tells both parties to drop the message locally.
type MessageDeleted struct {
	MessageID uuid.UUID
}

func (MessageDeleted) EventName() string { return NameMessageDeleted }

// MessageReacted carries the full current reaction mapping so clients
// replace rather than merge.
type MessageReacted struct {
	MessageID uuid.UUID
	Reactions map[domain.Identity]string
}

func (MessageReacted) EventName() string { return NameMessageReacted }

// Typing and StopTyping are forwarded verbatim; expiry of the indicator
// is a client-side timer, not a server guarantee.
type Typing struct {
	From domain.Identity
}

func (Typing) EventName() string { return NameTyping }

type StopTyping struct {
	From domain.Identity
}

func (StopTyping) EventName() string { return NameStopTyping }

// OnlineUsers is the full current presence snapshot, broadcast to every
// connection whenever the registry changes.
type OnlineUsers struct {
	Identities []domain.Identity
}

func (OnlineUsers) EventName() string { return NameOnlineUsers }

// Rejection reports an explicit denial back to the offending
// connection. Relay misses are not rejections.
type Rejection struct {
	Code   string
	Reason string
}

func (Rejection) EventName() string { return NameError }
