//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Session is one client's live connection as seen by the delivery side.
// Send must serialize concurrent callers internally; Close is idempotent.
type Session interface {
	Send(msg domain.Message) error
	Close() error
}

// IRegistry is the single source of truth for "is this user online".
type IRegistry interface {
	Register(identity string, session Session) (prev Session)
	Unregister(identity string, session Session) bool
	Lookup(identity string) (Session, bool)
	Snapshot() []string
}

// Store is the durable offline queue collaborator. Restart-safety is the
// store's responsibility; the engine only orders calls correctly.
type Store interface {
	Enqueue(recipientID string, msg domain.Message) error
	Drain(recipientID string) ([]domain.Message, error)
	MarkDelivered(recipientID string, messageID string) error
}

// Directory resolves group membership, read-only for the router.
type Directory interface {
	MembersOf(groupID string) ([]string, error)
}
