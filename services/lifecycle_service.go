package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"pulse/contract"
	"pulse/domain"
	"pulse/domain/event"
	"pulse/errors"
	"pulse/observability"
	"pulse/repositories"
)

type ILifecycleService interface {
	Send(ctx context.Context, cmd domain.SendCommand) (domain.Message, error)
	MarkDelivered(ctx context.Context, cmd domain.DeliverCommand) error
	MarkSeen(ctx context.Context, cmd domain.SeenCommand) error
	Edit(ctx context.Context, cmd domain.EditCommand) (domain.Message, error)
	Delete(ctx context.Context, cmd domain.DeleteCommand) error
	React(ctx context.Context, cmd domain.ReactCommand) error
	Typing(ctx context.Context, cmd domain.TypingCommand)
	Conversation(ctx context.Context, a, b domain.Identity) ([]domain.Message, error)
}

// LifecycleService orchestrates every message state transition. It is
// the only component that talks to both the store and the relay: state
// changes are persisted first, then the resulting events are published
// to the concerned identities. A store failure aborts the operation
// with nothing published; a relay miss (offline party) is silent.
type LifecycleService struct {
	log      *slog.Logger
	store    repositories.IMessageRepository
	relay    contract.IRelay
	metrics  *observability.Metrics
	validate *validator.Validate
}

func NewLifecycleService(log *slog.Logger, store repositories.IMessageRepository,
	relay contract.IRelay, metrics *observability.Metrics) *LifecycleService {
	return &LifecycleService{
		log:      log,
		store:    store,
		relay:    relay,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// Send persists a new message and publishes two events addressed to
// two different identities: receive-message to the recipient, and the
// provisional/durable confirmation to the sender only. An offline
// recipient misses the live event and re-syncs from the store on its
// next conversation fetch.
func (s *LifecycleService) Send(ctx context.Context, cmd domain.SendCommand) (domain.Message, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	message := domain.Message{
		From:      cmd.From,
		To:        cmd.To,
		Content:   cmd.Content,
		FileURL:   cmd.FileURL,
		FileType:  cmd.FileType,
		Timestamp: cmd.Timestamp,
	}
	if err := s.store.Create(ctx, &message); err != nil {
		return domain.Message{}, err
	}

	if cmd.Group {
		s.relay.Publish(ctx, message.To, event.GroupMessageReceived{Message: message})
	} else {
		s.relay.Publish(ctx, message.To, event.MessageReceived{Message: message})
	}
	s.relay.Publish(ctx, message.From, event.SendConfirmed{
		ProvisionalID: cmd.ProvisionalID,
		DurableID:     message.ID,
	})

	s.metrics.MessagesSent.Inc()
	s.log.Debug("message sent",
		"message_id", message.ID,
		"from", message.From,
		"to", message.To)
	return message, nil
}

// MarkDelivered sets the delivered flag unconditionally. Re-marking an
// already delivered message is a no-op with no observable difference,
// so duplicate acks from a retrying client are harmless.
func (s *LifecycleService) MarkDelivered(ctx context.Context, cmd domain.DeliverCommand) error {
	message, err := s.store.Update(ctx, cmd.MessageID, func(m *domain.Message) error {
		m.Delivered = true
		return nil
	})
	if err != nil {
		return err
	}

	delivered := true
	s.relay.Publish(ctx, message.From, event.StatusUpdated{
		MessageID: message.ID,
		Delivered: &delivered,
	})
	s.metrics.MessagesDelivered.Inc()
	return nil
}

// MarkSeen inserts the viewer into the seen set, idempotently. Only a
// recipient of the message may mark it seen; the sender watching their
// own message is rejected.
func (s *LifecycleService) MarkSeen(ctx context.Context, cmd domain.SeenCommand) error {
	var changed bool
	message, err := s.store.Update(ctx, cmd.MessageID, func(m *domain.Message) error {
		if cmd.Viewer == m.From {
			return errors.ErrUnauthorized
		}
		changed = m.MarkSeen(cmd.Viewer)
		return nil
	})
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	s.relay.Publish(ctx, message.From, event.StatusUpdated{
		MessageID: message.ID,
		SeenBy:    message.SeenBy,
	})
	s.metrics.MessagesSeen.Inc()
	return nil
}

// Edit replaces the body. Only the original sender may edit; anyone
// else gets an explicit denial with no state mutated and no event
// published.
func (s *LifecycleService) Edit(ctx context.Context, cmd domain.EditCommand) (domain.Message, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	message, err := s.store.Update(ctx, cmd.MessageID, func(m *domain.Message) error {
		if cmd.Requester != m.From {
			return errors.ErrUnauthorized
		}
		m.Content = cmd.Content
		m.Edited = true
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}

	s.publishToBoth(ctx, message.From, message.To, event.MessageEdited{Message: message})
	s.metrics.MessagesEdited.Inc()
	return message, nil
}

// Delete hard-removes the message. The identifier is gone for good:
// any later operation against it is ErrNotFound, and no stale event
// can resurrect it because events are only published after the store
// mutation succeeded.
func (s *LifecycleService) Delete(ctx context.Context, cmd domain.DeleteCommand) error {
	message, err := s.store.FindByID(ctx, cmd.MessageID)
	if err != nil {
		return err
	}
	if cmd.Requester != message.From {
		return errors.ErrUnauthorized
	}
	if err := s.store.Delete(ctx, cmd.MessageID); err != nil {
		return err
	}

	s.publishToBoth(ctx, message.From, message.To, event.MessageDeleted{MessageID: message.ID})
	s.metrics.MessagesDeleted.Inc()
	return nil
}

// React applies the toggle merge rule inside the per-message write
// path, then publishes the full resulting mapping so clients replace
// their local state instead of merging increments.
func (s *LifecycleService) React(ctx context.Context, cmd domain.ReactCommand) error {
	if err := s.validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	message, err := s.store.Update(ctx, cmd.MessageID, func(m *domain.Message) error {
		m.ToggleReaction(cmd.User, cmd.Emoji)
		return nil
	})
	if err != nil {
		return err
	}

	s.publishToBoth(ctx, message.From, message.To, event.MessageReacted{
		MessageID: message.ID,
		Reactions: message.Reactions,
	})
	s.metrics.Reactions.Inc()
	return nil
}

// Typing forwards the transient signal straight through the relay.
// Nothing is persisted and nothing fails: an offline peer simply never
// sees it.
func (s *LifecycleService) Typing(ctx context.Context, cmd domain.TypingCommand) {
	if cmd.Stop {
		s.relay.Publish(ctx, cmd.To, event.StopTyping{From: cmd.From})
		return
	}
	s.relay.Publish(ctx, cmd.To, event.Typing{From: cmd.From})
}

// Conversation returns the persisted pair history, both directions,
// oldest first. Consumed once at session start by the client.
func (s *LifecycleService) Conversation(ctx context.Context, a, b domain.Identity) ([]domain.Message, error) {
	if a == "" || b == "" {
		return nil, errors.ErrValidation
	}
	return s.store.FindConversation(ctx, a, b)
}

func (s *LifecycleService) publishToBoth(ctx context.Context, from, to domain.Identity, e event.Event) {
	s.relay.Publish(ctx, from, e)
	if to != from {
		s.relay.Publish(ctx, to, e)
	}
}

var _ ILifecycleService = (*LifecycleService)(nil)
