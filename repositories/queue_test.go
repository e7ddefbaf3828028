package repositories

import (
	"chat-relay/domain"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func pendingMessage(sender, receiver, content string, sentAt time.Time) domain.Message {
	return domain.Message{
		ID:         uuid.New(),
		SenderID:   sender,
		Mode:       domain.ModePrivate,
		ReceiverID: receiver,
		Content:    content,
		SentAt:     sentAt,
		Status:     domain.StatusPending,
	}
}

func Test_Enqueue_And_Drain_In_SentAt_Order(t *testing.T) {
	req := require.New(t)
	repository := NewQueueRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()

	// Given messages enqueued out of chronological order
	second := pendingMessage("alice", "bob", "second", at.Add(1*time.Minute))
	third := pendingMessage("alice", "bob", "third", at.Add(2*time.Minute))
	first := pendingMessage("alice", "bob", "first", at)
	for _, msg := range []domain.Message{second, third, first} {
		req.NoError(repository.Enqueue("bob", msg))
	}

	// When draining
	pending, err := repository.Drain("bob")
	req.NoError(err)

	// Then replay is oldest first
	contents := lo.Map(pending, func(m domain.Message, _ int) string { return m.Content })
	req.Equal([]string{"first", "second", "third"}, contents)
}

func Test_Drain_Is_Scoped_To_One_Recipient(t *testing.T) {
	req := require.New(t)
	repository := NewQueueRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()

	req.NoError(repository.Enqueue("bob", pendingMessage("alice", "bob", "for bob", at)))
	req.NoError(repository.Enqueue("clara", pendingMessage("alice", "clara", "for clara", at)))

	pending, err := repository.Drain("bob")
	req.NoError(err)
	req.Len(pending, 1)
	req.Equal("for bob", pending[0].Content)
}

func Test_Drain_Empty_Queue(t *testing.T) {
	req := require.New(t)
	repository := NewQueueRepository(openTestDB(t), slog.Default())

	pending, err := repository.Drain("nobody")
	req.NoError(err)
	req.Empty(pending)
}

func Test_MarkDelivered_Removes_Exactly_The_Identified_Message(t *testing.T) {
	req := require.New(t)
	repository := NewQueueRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()

	// Given two pending messages for the same recipient
	older := pendingMessage("alice", "bob", "older", at)
	newer := pendingMessage("alice", "bob", "newer", at.Add(time.Minute))
	req.NoError(repository.Enqueue("bob", older))
	req.NoError(repository.Enqueue("bob", newer))

	// When marking the newer one delivered
	req.NoError(repository.MarkDelivered("bob", newer.ID.String()))

	// Then only the identified message is gone, never "the first one
	// matching the receiver"
	pending, err := repository.Drain("bob")
	req.NoError(err)
	req.Len(pending, 1)
	req.Equal(older.ID, pending[0].ID)
}

func Test_MarkDelivered_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	repository := NewQueueRepository(openTestDB(t), slog.Default())

	msg := pendingMessage("alice", "bob", "hi", time.Now().UTC())
	req.NoError(repository.Enqueue("bob", msg))

	req.NoError(repository.MarkDelivered("bob", msg.ID.String()))
	req.NoError(repository.MarkDelivered("bob", msg.ID.String()))

	pending, err := repository.Drain("bob")
	req.NoError(err)
	req.Empty(pending)
}

func Test_Queued_Message_Round_Trips_Its_Fields(t *testing.T) {
	req := require.New(t)
	repository := NewQueueRepository(openTestDB(t), slog.Default())

	msg := domain.Message{
		ID:         uuid.New(),
		SenderID:   "alice",
		Mode:       domain.ModeGroup,
		ReceiverID: "bob",
		GroupID:    "team",
		Content:    "stand-up in 5",
		SentAt:     time.Now().UTC().Truncate(time.Millisecond),
		Status:     domain.StatusPending,
	}
	req.NoError(repository.Enqueue("bob", msg))

	pending, err := repository.Drain("bob")
	req.NoError(err)
	req.Len(pending, 1)
	req.Equal(msg.ID, pending[0].ID)
	req.Equal(msg.SenderID, pending[0].SenderID)
	req.Equal(msg.Mode, pending[0].Mode)
	req.Equal(msg.GroupID, pending[0].GroupID)
	req.Equal(msg.Content, pending[0].Content)
	req.True(msg.SentAt.Equal(pending[0].SentAt))
	req.Equal(domain.StatusPending, pending[0].Status)
}
