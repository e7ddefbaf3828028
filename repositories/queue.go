//go:generate go run go.uber.org/mock/mockgen -source=queue.go -destination=../mocks/mock_queue_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IQueueRepository interface {
	Enqueue(recipientID string, msg domain.Message) error
	Drain(recipientID string) ([]domain.Message, error)
	MarkDelivered(recipientID string, messageID string) error
}

// QueueRepository is the durable offline queue, backed by BadgerDB.
// One pending entry per (recipient, message) obligation; entries survive
// restarts and are removed only once delivered.
type QueueRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewQueueRepository(db *badger.DB, log *slog.Logger) QueueRepository {
	return QueueRepository{db: db, log: log}
}

// DiskMessage is the persisted shape of one queued copy.
type DiskMessage struct {
	ID         uuid.UUID `json:"id"`
	SenderID   string    `json:"senderId"`
	Mode       string    `json:"mode"`
	ReceiverID string    `json:"receiverId"`
	GroupID    string    `json:"groupId,omitempty"`
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sentAt"`
}

// queueKey formats "queue:{recipient}:{timestamp_padded}:{uuid}" so that:
//  1. A prefix scan per recipient yields sentAt order through 19-digit
//     zero padding (lexicographical order).
//  2. The message UUID both disambiguates same-nanosecond entries and
//     lets removal be keyed by message identity, never by a
//     recipient-only filter.
func queueKey(recipientID string, sentAt time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("queue:%s:%019d:%s", recipientID, sentAt.UnixNano(), id))
}

func queuePrefix(recipientID string) []byte {
	return []byte(fmt.Sprintf("queue:%s:", recipientID))
}

// Enqueue durably appends one pending copy for a recipient.
func (q QueueRepository) Enqueue(recipientID string, msg domain.Message) error {
	bytes, err := json.Marshal(fromDomain(msg))
	if err != nil {
		return err
	}
	return q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(queueKey(recipientID, msg.SentAt, msg.ID), bytes)
	})
}

// Drain returns every pending message for a recipient, oldest first.
// It does not remove anything: the engine marks each entry delivered
// individually once its write succeeded.
func (q QueueRepository) Drain(recipientID string) ([]domain.Message, error) {
	var byteMessages [][]byte
	err := q.db.View(func(txn *badger.Txn) error {
		prefix := queuePrefix(recipientID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var messages []domain.Message
	for _, b := range byteMessages {
		var dm DiskMessage
		if err = json.Unmarshal(b, &dm); err != nil {
			return nil, err
		}
		messages = append(messages, toDomain(dm))
	}
	return messages, nil
}

// MarkDelivered removes exactly the entry whose key carries messageID.
// Idempotent: a message already removed is not an error.
func (q QueueRepository) MarkDelivered(recipientID string, messageID string) error {
	return q.db.Update(func(txn *badger.Txn) error {
		prefix := queuePrefix(recipientID)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		suffix := ":" + messageID
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if strings.HasSuffix(string(key), suffix) {
				return txn.Delete(key)
			}
		}
		q.log.Debug("No pending entry to remove",
			"recipient", recipientID, "message_id", messageID)
		return nil
	})
}

func fromDomain(msg domain.Message) DiskMessage {
	return DiskMessage{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		Mode:       string(msg.Mode),
		ReceiverID: msg.ReceiverID,
		GroupID:    msg.GroupID,
		Content:    msg.Content,
		SentAt:     msg.SentAt,
	}
}

func toDomain(dm DiskMessage) domain.Message {
	return domain.Message{
		ID:         dm.ID,
		SenderID:   dm.SenderID,
		Mode:       domain.Mode(dm.Mode),
		ReceiverID: dm.ReceiverID,
		GroupID:    dm.GroupID,
		Content:    dm.Content,
		SentAt:     dm.SentAt,
		Status:     domain.StatusPending,
	}
}
