// Package ws carries the realtime wire contract. Event names and
// payload shapes match the browser client exactly; they exist only
// here, at the JSON boundary. Everything behind this package speaks
// typed commands and events.
package ws

import (
	"encoding/json"
	"time"

	"github.com/samber/lo"

	"pulse/domain"
	"pulse/domain/event"
)

// Inbound wire event names.
const (
	nameSendMessage      = "send-message"
	nameSendGroupMessage = "send-group-message"
	nameMessageDelivered = "message-delivered"
	nameMessageSeen      = "message-seen"
	nameEditMessage      = "edit-message"
	nameDeleteMessage    = "delete-message"
	nameReactMessage     = "react-message"
	nameTyping           = "typing"
	nameStopTyping       = "stop-typing"
	nameJoinGroup        = "join-group"
)

// envelope frames every frame in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// wireMessage is the full message shape pushed to clients.
type wireMessage struct {
	ID        string            `json:"_id"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Content   string            `json:"content"`
	FileURL   string            `json:"fileUrl,omitempty"`
	FileType  string            `json:"fileType,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Delivered bool              `json:"delivered"`
	Edited    bool              `json:"edited,omitempty"`
	SeenBy    []string          `json:"seenBy"`
	Reactions map[string]string `json:"reactions,omitempty"`
}

func toWireMessage(m domain.Message) wireMessage {
	return wireMessage{
		ID:        m.ID.String(),
		From:      string(m.From),
		To:        string(m.To),
		Content:   m.Content,
		FileURL:   m.FileURL,
		FileType:  m.FileType,
		Timestamp: m.Timestamp,
		Delivered: m.Delivered,
		Edited:    m.Edited,
		SeenBy:    identitiesToStrings(m.SeenBy),
		Reactions: reactionsToStrings(m.Reactions),
	}
}

// Inbound payloads. The authenticated connection identity always wins
// over any identity field a client sends.

type sendPayload struct {
	ProvisionalID string    `json:"_id"`
	To            string    `json:"to"`
	Content       string    `json:"content"`
	FileURL       string    `json:"fileUrl"`
	FileType      string    `json:"fileType"`
	Timestamp     time.Time `json:"timestamp"`
}

type sendGroupPayload struct {
	ProvisionalID string    `json:"_id"`
	GroupID       string    `json:"groupId"`
	Content       string    `json:"content"`
	FileURL       string    `json:"fileUrl"`
	FileType      string    `json:"fileType"`
	Timestamp     time.Time `json:"timestamp"`
}

type deliveredPayload struct {
	MessageID string `json:"messageId"`
}

type seenPayload struct {
	MessageID string `json:"messageId"`
}

type editPayload struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

type deletePayload struct {
	MessageID string `json:"messageId"`
}

type reactPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

type typingPayload struct {
	To string `json:"to"`
}

type joinGroupPayload struct {
	GroupID string `json:"groupId"`
}

// encodeEvent maps an outbound event variant to its wire envelope.
// The switch is exhaustive over the closed event set.
func encodeEvent(e event.Event) (envelope, error) {
	var payload any
	switch evt := e.(type) {
	case event.MessageReceived:
		payload = toWireMessage(evt.Message)
	case event.GroupMessageReceived:
		payload = toWireMessage(evt.Message)
	case event.SendConfirmed:
		payload = struct {
			TempID string `json:"tempId"`
			RealID string `json:"realId"`
		}{TempID: evt.ProvisionalID, RealID: evt.DurableID.String()}
	case event.StatusUpdated:
		if evt.Delivered != nil {
			payload = struct {
				MessageID string `json:"messageId"`
				Delivered bool   `json:"delivered"`
			}{MessageID: evt.MessageID.String(), Delivered: *evt.Delivered}
		} else {
			payload = struct {
				MessageID string   `json:"messageId"`
				SeenBy    []string `json:"seenBy"`
			}{MessageID: evt.MessageID.String(), SeenBy: identitiesToStrings(evt.SeenBy)}
		}
	case event.MessageEdited:
		payload = toWireMessage(evt.Message)
	case event.MessageDeleted:
		payload = struct {
			MessageID string `json:"messageId"`
		}{MessageID: evt.MessageID.String()}
	case event.MessageReacted:
		payload = struct {
			MessageID string            `json:"messageId"`
			Reactions map[string]string `json:"reactions"`
		}{MessageID: evt.MessageID.String(), Reactions: reactionsToStrings(evt.Reactions)}
	case event.Typing:
		payload = struct {
			From string `json:"from"`
		}{From: string(evt.From)}
	case event.StopTyping:
		payload = struct {
			From string `json:"from"`
		}{From: string(evt.From)}
	case event.OnlineUsers:
		payload = identitiesToStrings(evt.Identities)
	case event.Rejection:
		payload = struct {
			Code   string `json:"code"`
			Reason string `json:"reason"`
		}{Code: evt.Code, Reason: evt.Reason}
	default:
		payload = nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return envelope{}, err
	}
	return envelope{Event: e.EventName(), Data: data}, nil
}

func identitiesToStrings(ids []domain.Identity) []string {
	if ids == nil {
		return []string{}
	}
	return lo.Map(ids, func(id domain.Identity, _ int) string { return string(id) })
}

func reactionsToStrings(reactions map[domain.Identity]string) map[string]string {
	return lo.MapKeys(reactions, func(_ string, id domain.Identity) string { return string(id) })
}
