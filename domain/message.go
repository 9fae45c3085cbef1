// Package domain contains core concepts of the messaging system.
// This file defines the Message entity and its mutation rules.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"

	"pulse/errors"
)

// Identity is an opaque stable token identifying a user or a group as
// an addressable delivery target.
type Identity string

// Message is a direct message and its delivery-state lifecycle.
// The ID is assigned by the store on first persistence; before that the
// client only knows its own provisional identifier.
type Message struct {
	ID        uuid.UUID
	From      Identity
	To        Identity
	Content   string
	FileURL   string
	FileType  string
	Timestamp time.Time
	Edited    bool
	Delivered bool
	SeenBy    []Identity
	Reactions map[Identity]string
}

// Validate enforces the payload invariant: a message carries text,
// an attachment, or both. Never neither.
func (m Message) Validate() error {
	if m.From == "" || m.To == "" {
		return errors.ErrValidation
	}
	if m.Content == "" && m.FileURL == "" {
		return errors.ErrValidation
	}
	return nil
}

// HasSeen reports whether the viewer already observed the message.
func (m Message) HasSeen(viewer Identity) bool {
	for _, id := range m.SeenBy {
		if id == viewer {
			return true
		}
	}
	return false
}

// MarkSeen adds the viewer to the seen set. The insert is idempotent:
// re-applying it for the same viewer changes nothing and reports false.
func (m *Message) MarkSeen(viewer Identity) bool {
	if m.HasSeen(viewer) {
		return false
	}
	m.SeenBy = append(m.SeenBy, viewer)
	return true
}

// ToggleReaction applies the single-reaction-per-user merge rule:
// no existing reaction adds one, the same emoji removes it, and a
// different emoji replaces it.
func (m *Message) ToggleReaction(user Identity, emoji string) {
	if m.Reactions == nil {
		m.Reactions = make(map[Identity]string)
	}
	if current, ok := m.Reactions[user]; ok && current == emoji {
		delete(m.Reactions, user)
		return
	}
	m.Reactions[user] = emoji
}
