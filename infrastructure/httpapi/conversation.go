package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"pulse/domain"
	"pulse/errors"
	"pulse/services"
)

// ConversationHandler serves the persisted pair history. Clients call
// it once after connecting, then rely on realtime events: an offline
// stretch is recovered here, not by event replay.
type ConversationHandler struct {
	log     *slog.Logger
	service services.ILifecycleService
}

type conversationMessage struct {
	ID        string            `json:"_id"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Content   string            `json:"content"`
	FileURL   string            `json:"fileUrl,omitempty"`
	FileType  string            `json:"fileType,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Delivered bool              `json:"delivered"`
	Edited    bool              `json:"edited"`
	SeenBy    []string          `json:"seenBy"`
	Reactions map[string]string `json:"reactions"`
}

func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	requester := identityFrom(r.Context())
	peer := domain.Identity(chi.URLParam(r, "peer"))

	messages, err := h.service.Conversation(r.Context(), requester, peer)
	if err != nil {
		h.log.Error("conversation fetch failed",
			"requester", requester,
			"peer", peer,
			"error", err)
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}

	body := lo.Map(messages, func(m domain.Message, _ int) conversationMessage {
		return conversationMessage{
			ID:        m.ID.String(),
			From:      string(m.From),
			To:        string(m.To),
			Content:   m.Content,
			FileURL:   m.FileURL,
			FileType:  m.FileType,
			Timestamp: m.Timestamp,
			Delivered: m.Delivered,
			Edited:    m.Edited,
			SeenBy: lo.Map(m.SeenBy, func(id domain.Identity, _ int) string {
				return string(id)
			}),
			Reactions: lo.MapKeys(m.Reactions, func(_ string, id domain.Identity) string {
				return string(id)
			}),
		}
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("conversation encode failed", "error", err)
	}
}
