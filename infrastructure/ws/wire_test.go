package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"pulse/domain"
	"pulse/domain/event"
)

func TestEncode_ReceiveMessage_Wire_Shape(t *testing.T) {
	req := require.New(t)
	id := uuid.New()
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	env, err := encodeEvent(event.MessageReceived{Message: domain.Message{
		ID:        id,
		From:      "alice",
		To:        "bob",
		Content:   "hi",
		Timestamp: at,
	}})
	req.NoError(err)
	req.Equal("receive-message", env.Event)

	var payload map[string]any
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal(id.String(), payload["_id"])
	req.Equal("alice", payload["from"])
	req.Equal("bob", payload["to"])
	req.Equal("hi", payload["content"])
	req.Equal(false, payload["delivered"])
	req.Equal([]any{}, payload["seenBy"])
	// optional fields are omitted when absent
	req.NotContains(payload, "fileUrl")
	req.NotContains(payload, "fileType")
}

func TestEncode_SendConfirmation_Carries_Both_Identifiers(t *testing.T) {
	req := require.New(t)
	id := uuid.New()

	env, err := encodeEvent(event.SendConfirmed{ProvisionalID: "p1", DurableID: id})
	req.NoError(err)
	req.Equal("message-sent-confirmation", env.Event)

	var payload map[string]string
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal("p1", payload["tempId"])
	req.Equal(id.String(), payload["realId"])
}

func TestEncode_StatusUpdated_Delivered_Variant(t *testing.T) {
	req := require.New(t)
	id := uuid.New()
	delivered := true

	env, err := encodeEvent(event.StatusUpdated{MessageID: id, Delivered: &delivered})
	req.NoError(err)
	req.Equal("message-status-updated", env.Event)

	var payload map[string]any
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal(true, payload["delivered"])
	req.NotContains(payload, "seenBy")
}

func TestEncode_StatusUpdated_Seen_Variant(t *testing.T) {
	req := require.New(t)
	id := uuid.New()

	env, err := encodeEvent(event.StatusUpdated{
		MessageID: id,
		SeenBy:    []domain.Identity{"bob"},
	})
	req.NoError(err)

	var payload map[string]any
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal([]any{"bob"}, payload["seenBy"])
	req.NotContains(payload, "delivered")
}

func TestEncode_OnlineUsers_Is_A_Bare_Array(t *testing.T) {
	req := require.New(t)

	env, err := encodeEvent(event.OnlineUsers{Identities: []domain.Identity{"alice", "bob"}})
	req.NoError(err)
	req.Equal("online-users", env.Event)
	req.JSONEq(`["alice","bob"]`, string(env.Data))
}

func TestEncode_Reactions_Mapping(t *testing.T) {
	req := require.New(t)
	id := uuid.New()

	env, err := encodeEvent(event.MessageReacted{
		MessageID: id,
		Reactions: map[domain.Identity]string{"bob": "👍"},
	})
	req.NoError(err)
	req.Equal("message-reacted", env.Event)

	var payload struct {
		MessageID string            `json:"messageId"`
		Reactions map[string]string `json:"reactions"`
	}
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal(id.String(), payload.MessageID)
	req.Equal(map[string]string{"bob": "👍"}, payload.Reactions)
}

func TestDecode_Send_Payload(t *testing.T) {
	req := require.New(t)

	raw := []byte(`{"event":"send-message","data":{"_id":"tmp-8f2","to":"bob","content":"hi","fileUrl":"","timestamp":"2026-03-14T09:26:53Z"}}`)
	var env envelope
	req.NoError(json.Unmarshal(raw, &env))
	req.Equal(nameSendMessage, env.Event)

	var payload sendPayload
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal("tmp-8f2", payload.ProvisionalID)
	req.Equal("bob", payload.To)
	req.Equal("hi", payload.Content)
}
