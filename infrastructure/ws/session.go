package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pulse/contract"
	"pulse/domain"
	"pulse/domain/event"
	"pulse/errors"
	"pulse/observability"
	"pulse/services"
	"pulse/sink"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// session is one authenticated realtime connection: a read pump that
// decodes inbound commands and a write pump that drains the sink.
// The presence registry and the relay are shared services injected by
// the handler; the session adds and removes itself around its own
// lifetime.
type session struct {
	log      *slog.Logger
	conn     *websocket.Conn
	identity domain.Identity
	sink     *sink.SessionSink
	service  services.ILifecycleService
	presence contract.IPresence
	relay    contract.IRelay
	metrics  *observability.Metrics

	// groups joined over this connection, unsubscribed on close
	groups []domain.Identity
}

func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.presence.Register(ctx, s.identity, s.sink)
	s.relay.Subscribe(s.identity, s.sink)
	s.metrics.Connections.Inc()

	defer func() {
		s.relay.Unsubscribe(s.identity, s.sink)
		for _, group := range s.groups {
			s.relay.Unsubscribe(group, s.sink)
		}
		s.presence.Unregister(context.WithoutCancel(ctx), s.sink)
		s.metrics.Connections.Dec()
	}()

	go s.writePump(ctx)
	s.readPump(ctx)
}

func (s *session) readPump(ctx context.Context) {
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("connection dropped", "identity", s.identity, "error", err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.reject(ctx, fmt.Errorf("%w: malformed frame", errors.ErrValidation))
			continue
		}
		if err := s.dispatch(ctx, env); err != nil {
			s.reject(ctx, err)
		}
	}
}

func (s *session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-s.sink.Events:
			env, err := encodeEvent(evt)
			if err != nil {
				s.log.Error("failed to encode event", "event", evt.EventName(), "error", err)
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(env); err != nil {
				s.log.Warn("failed to push event", "identity", s.identity, "error", err)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch decodes the envelope into a typed command and hands it to
// the lifecycle engine. Event names are only strings here; everything
// past this switch is a closed variant.
func (s *session) dispatch(ctx context.Context, env envelope) error {
	switch env.Event {
	case nameSendMessage:
		var payload sendPayload
		if err := decode(env.Data, &payload); err != nil {
			return err
		}
		_, err := s.service.Send(ctx, domain.SendCommand{
			ProvisionalID: payload.ProvisionalID,
			From:          s.identity,
			To:            domain.Identity(payload.To),
			Content:       payload.Content,
			FileURL:       payload.FileURL,
			FileType:      payload.FileType,
			Timestamp:     payload.Timestamp,
		})
		return err

	case nameSendGroupMessage:
		var payload sendGroupPayload
		if err := decode(env.Data, &payload); err != nil {
			return err
		}
		_, err := s.service.Send(ctx, domain.SendCommand{
			ProvisionalID: payload.ProvisionalID,
			From:          s.identity,
			To:            domain.Identity(payload.GroupID),
			Content:       payload.Content,
			FileURL:       payload.FileURL,
			FileType:      payload.FileType,
			Timestamp:     payload.Timestamp,
			Group:         true,
		})
		return err

	case nameMessageDelivered:
		var payload deliveredPayload
		if err := decode(env.Data, &payload); err != nil {
			return err
		}
		id, err := parseMessageID(payload.MessageID)
		if err != nil {
			return err
		}
		return s.service.MarkDelivered(ctx, domain.DeliverCommand{
			MessageID: id,
			Receiver:  s.identity,
		})

	case nameMessageSeen:
		var payload seenPayload
		if err := decode(env.Data, &payload); err != nil {
			return err
		}
		id, err := parseMessageID(payload.MessageID)
		if err != nil {
			return err
		}
		return s.service.MarkSeen(ctx, domain.SeenCommand{
			MessageID: id,
			Viewer:    s.identity,
		})

	case nameEditMessage:
		var payload editPayload
		if err := decode(env.Data, &payload); err != nil {
			return err
		}
		id, err := parseMessageID(payload.MessageID)
		if err != nil {
			return err
		}
		_, err = s.service.Edit(ctx, domain.EditCommand{
			MessageID: id,
			Requester: s.identity,
			Content:   payload.Content,
		})
		return err

	case nameDeleteMessage:
		var payload deletePayload
		if err := decode(env.Data, &payload); err != nil {
			return err
		}
		id, err := parseMessageID(payload.MessageID)
		if err != nil {
			return err
		}
		return s.service.Delete(ctx, domain.DeleteCommand{
			MessageID: id,
			Requester: s.identity,
		})

	case nameReactMessage:
		var payload reactPayload
		if err := decode(env.Data, &payload); err != nil {
			return err
		}
		id, err := parseMessageID(payload.MessageID)
		if err != nil {
			return err
		}
		return s.service.React(ctx, domain.ReactCommand{
			MessageID: id,
			User:      s.identity,
			Emoji:     payload.Emoji,
		})

	case nameTyping, nameStopTyping:
		var payload typingPayload
		if err := decode(env.Data, &payload); err != nil {
			return err
		}
		s.service.Typing(ctx, domain.TypingCommand{
			From: s.identity,
			To:   domain.Identity(payload.To),
			Stop: env.Event == nameStopTyping,
		})
		return nil

	case nameJoinGroup:
		var payload joinGroupPayload
		if err := decode(env.Data, &payload); err != nil {
			return err
		}
		group := domain.Identity(payload.GroupID)
		if group == "" {
			return fmt.Errorf("%w: empty group identity", errors.ErrValidation)
		}
		s.relay.Subscribe(group, s.sink)
		s.groups = append(s.groups, group)
		return nil

	default:
		return fmt.Errorf("%w: unknown event %q", errors.ErrValidation, env.Event)
	}
}

// reject reports an explicit denial back to this connection only.
func (s *session) reject(ctx context.Context, err error) {
	s.metrics.RejectedCommands.Inc()
	s.log.Debug("command rejected", "identity", s.identity, "error", err)
	_ = s.sink.Consume(ctx, event.Rejection{
		Code:   errors.Code(err),
		Reason: err.Error(),
	})
}

func decode(data json.RawMessage, target any) error {
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return nil
}

func parseMessageID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed message identifier", errors.ErrValidation)
	}
	return id, nil
}
