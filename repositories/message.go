package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"pulse/domain"
	"pulse/errors"
)

type IMessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	FindByID(ctx context.Context, id uuid.UUID) (domain.Message, error)
	FindConversation(ctx context.Context, a, b domain.Identity) ([]domain.Message, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*domain.Message) error) (domain.Message, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MessageRepository persists messages in BadgerDB under two keys:
//
//	msg:{uuid}                               -> the JSON record
//	conv:{pair}:{timestamp_padded}:{uuid}    -> the primary key
//
// The conversation index uses 19-digit zero padding so a plain prefix
// scan returns both directions of a pair ordered by creation time, and
// the trailing UUID disambiguates two messages persisted in the same
// nanosecond.
type MessageRepository struct {
	db    *badger.DB
	log   *slog.Logger
	locks *keyedMutex
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log, locks: newKeyedMutex()}
}

type diskMessage struct {
	ID        string            `json:"id"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Content   string            `json:"content"`
	FileURL   string            `json:"fileUrl,omitempty"`
	FileType  string            `json:"fileType,omitempty"`
	Timestamp int64             `json:"at"`
	Edited    bool              `json:"edited"`
	Delivered bool              `json:"delivered"`
	SeenBy    []string          `json:"seenBy"`
	Reactions map[string]string `json:"reactions"`
}

func messageKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s", id))
}

// pairKey is direction-independent: (a,b) and (b,a) index under the
// same conversation prefix.
func pairKey(a, b domain.Identity) string {
	if strings.Compare(string(a), string(b)) > 0 {
		a, b = b, a
	}
	return fmt.Sprintf("%s|%s", a, b)
}

func conversationKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("conv:%s:%019d:%s",
		pairKey(m.From, m.To),
		m.Timestamp.UnixNano(),
		m.ID,
	))
}

// Create assigns the durable identifier and writes the record together
// with its conversation index entry in one transaction.
func (r *MessageRepository) Create(_ context.Context, message *domain.Message) error {
	if err := message.Validate(); err != nil {
		return err
	}
	message.ID = uuid.New()
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
	bytes, err := json.Marshal(fromMessage(*message))
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(message.ID), bytes); err != nil {
			return err
		}
		return txn.Set(conversationKey(*message), messageKey(message.ID))
	})
}

func (r *MessageRepository) FindByID(_ context.Context, id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		message, err = readMessage(txn, messageKey(id))
		return err
	})
	return message, err
}

// FindConversation returns every message between the two identities,
// both directions, ordered by creation time ascending. The padded
// timestamp in the index key makes the iteration order the answer.
func (r *MessageRepository) FindConversation(_ context.Context, a, b domain.Identity) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("conv:%s:", pairKey(a, b)))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var primary []byte
			if err := it.Item().Value(func(value []byte) error {
				primary = append([]byte(nil), value...)
				return nil
			}); err != nil {
				return err
			}
			message, err := readMessage(txn, primary)
			if stderrors.Is(err, errors.ErrNotFound) {
				// Dangling index entry, the record was hard-deleted.
				r.log.Debug("skipping dangling conversation index entry", "key", string(primary))
				continue
			}
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	return messages, err
}

// Update applies a read-modify-write under a per-identifier lock so
// concurrent mutations of the same message (a reaction racing an edit)
// never lose writes. Unrelated identifiers do not contend.
func (r *MessageRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*domain.Message) error) (domain.Message, error) {
	unlock := r.locks.lock(id)
	defer unlock()

	message, err := r.FindByID(ctx, id)
	if err != nil {
		return domain.Message{}, err
	}
	if err := mutate(&message); err != nil {
		return domain.Message{}, err
	}
	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(id), bytes)
	})
	return message, err
}

// Delete hard-removes the record and its index entry. A deleted
// identifier is never resurrected: later operations on it are
// ErrNotFound.
func (r *MessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	unlock := r.locks.lock(id)
	defer unlock()

	return r.db.Update(func(txn *badger.Txn) error {
		message, err := readMessage(txn, messageKey(id))
		if err != nil {
			return err
		}
		if err := txn.Delete(conversationKey(message)); err != nil {
			return err
		}
		return txn.Delete(messageKey(id))
	})
}

func readMessage(txn *badger.Txn, key []byte) (domain.Message, error) {
	item, err := txn.Get(key)
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}
	var disk diskMessage
	if err := item.Value(func(value []byte) error {
		return json.Unmarshal(value, &disk)
	}); err != nil {
		return domain.Message{}, err
	}
	return toMessage(disk)
}

func fromMessage(m domain.Message) diskMessage {
	return diskMessage{
		ID:        m.ID.String(),
		From:      string(m.From),
		To:        string(m.To),
		Content:   m.Content,
		FileURL:   m.FileURL,
		FileType:  m.FileType,
		Timestamp: m.Timestamp.UnixNano(),
		Edited:    m.Edited,
		Delivered: m.Delivered,
		SeenBy:    lo.Map(m.SeenBy, func(id domain.Identity, _ int) string { return string(id) }),
		Reactions: lo.MapKeys(m.Reactions, func(_ string, id domain.Identity) string { return string(id) }),
	}
}

func toMessage(disk diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        parsedID,
		From:      domain.Identity(disk.From),
		To:        domain.Identity(disk.To),
		Content:   disk.Content,
		FileURL:   disk.FileURL,
		FileType:  disk.FileType,
		Timestamp: time.Unix(0, disk.Timestamp).UTC(),
		Edited:    disk.Edited,
		Delivered: disk.Delivered,
		SeenBy:    lo.Map(disk.SeenBy, func(id string, _ int) domain.Identity { return domain.Identity(id) }),
		Reactions: lo.MapKeys(disk.Reactions, func(_ string, id string) domain.Identity { return domain.Identity(id) }),
	}, nil
}
