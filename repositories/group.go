//go:generate go run go.uber.org/mock/mockgen -source=group.go -destination=../mocks/mock_group_repository.go -package=mocks
package repositories

import (
	"chat-relay/errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

type IGroupRepository interface {
	MembersOf(groupID string) ([]string, error)
	AddMember(groupID, userID string) error
	RemoveMember(groupID, userID string) error
}

// GroupRepository is the directory collaborator: membership records in
// BadgerDB under "group:{group_id}:{user_id}" keys. The router only ever
// reads it; the write helpers exist for provisioning.
type GroupRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewGroupRepository(db *badger.DB, log *slog.Logger) GroupRepository {
	return GroupRepository{db: db, log: log}
}

func groupKey(groupID, userID string) []byte {
	return []byte(fmt.Sprintf("group:%s:%s", groupID, userID))
}

func groupPrefix(groupID string) string {
	return fmt.Sprintf("group:%s:", groupID)
}

// MembersOf returns the identities belonging to a group. A group with no
// membership records at all does not exist: ErrUnknownGroup.
func (g GroupRepository) MembersOf(groupID string) ([]string, error) {
	var members []string
	err := g.db.View(func(txn *badger.Txn) error {
		prefixStr := groupPrefix(groupID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			members = append(members, strings.TrimPrefix(key, prefixStr))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: %s", errors.ErrUnknownGroup, groupID)
	}
	return members, nil
}

func (g GroupRepository) AddMember(groupID, userID string) error {
	return g.db.Update(func(txn *badger.Txn) error {
		return txn.Set(groupKey(groupID, userID), nil)
	})
}

func (g GroupRepository) RemoveMember(groupID, userID string) error {
	return g.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(groupKey(groupID, userID))
	})
}
