package domain

import (
	"time"

	"github.com/google/uuid"
)

// Command is the closed set of inbound client intents. Each connection
// decodes wire payloads into exactly one of these variants; the engine
// dispatches with an exhaustive type switch so an unhandled kind is a
// compile-time concern, not a silently ignored string.
type Command interface {
	Sender() Identity
}

// SendCommand carries a new message together with the client-generated
// provisional identifier that the confirmation will echo back.
// Group marks To as a group identity; recipients then get the group
// variant of the receive event.
type SendCommand struct {
	ProvisionalID string   `validate:"required,max=128"`
	From          Identity `validate:"required,max=128"`
	To            Identity `validate:"required,max=128"`
	Content       string   `validate:"max=8192"`
	FileURL       string   `validate:"omitempty,max=2048"`
	FileType      string   `validate:"omitempty,max=255"`
	Timestamp     time.Time
	Group         bool
}

func (c SendCommand) Sender() Identity { return c.From }

// DeliverCommand acknowledges receipt of a message by its recipient.
type DeliverCommand struct {
	MessageID uuid.UUID
	Receiver  Identity
}

func (c DeliverCommand) Sender() Identity { return c.Receiver }

// SeenCommand records that a viewer observed a message.
type SeenCommand struct {
	MessageID uuid.UUID
	Viewer    Identity
}

func (c SeenCommand) Sender() Identity { return c.Viewer }

// EditCommand replaces the body of an existing message.
type EditCommand struct {
	MessageID uuid.UUID
	Requester Identity
	Content   string `validate:"required,max=8192"`
}

func (c EditCommand) Sender() Identity { return c.Requester }

// DeleteCommand removes a message permanently.
type DeleteCommand struct {
	MessageID uuid.UUID
	Requester Identity
}

func (c DeleteCommand) Sender() Identity { return c.Requester }

// ReactCommand toggles a user's emoji reaction on a message.
type ReactCommand struct {
	MessageID uuid.UUID
	User      Identity
	Emoji     string `validate:"required,max=32"`
}

func (c ReactCommand) Sender() Identity { return c.User }

// TypingCommand is a transient, unpersisted signal forwarded from one
// identity to another. Stop distinguishes typing from stop-typing.
type TypingCommand struct {
	From Identity
	To   Identity
	Stop bool
}

func (c TypingCommand) Sender() Identity { return c.From }
