package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
)

// Router resolves a message's addressing mode to the concrete set of
// per-recipient deliveries. It never touches a socket or the store, so
// addressing rules stay testable in isolation.
type Router struct {
	registry  contract.IRegistry
	directory contract.Directory
	log       *slog.Logger
}

func NewRouter(log *slog.Logger, registry contract.IRegistry, directory contract.Directory) *Router {
	return &Router{registry: registry, directory: directory, log: log}
}

// Route expands msg into independent delivery obligations.
//
// Private: the single receiver; self-send resolves to nothing.
// Group: current members minus the sender, one copy each.
// Broadcast: every identity online right now, the sender included; a
// user connecting a moment later simply does not receive that broadcast.
func (r *Router) Route(msg domain.Message) ([]domain.Delivery, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	switch msg.Mode {
	case domain.ModePrivate:
		if msg.ReceiverID == msg.SenderID {
			r.log.Debug(fmt.Sprintf("Self-send from %s dropped", msg.SenderID))
			return nil, nil
		}
		return []domain.Delivery{domain.NewDelivery(msg.ReceiverID, msg)}, nil

	case domain.ModeGroup:
		members, err := r.directory.MembersOf(msg.GroupID)
		if err != nil {
			return nil, err
		}
		targets := lo.Filter(members, func(member string, _ int) bool {
			return member != msg.SenderID
		})
		return toDeliveries(targets, msg), nil

	case domain.ModeBroadcast:
		return toDeliveries(r.registry.Snapshot(), msg), nil
	}

	return nil, errors.ErrUnknownMode
}

func toDeliveries(recipients []string, msg domain.Message) []domain.Delivery {
	return lo.Map(recipients, func(recipient string, _ int) domain.Delivery {
		return domain.NewDelivery(recipient, msg)
	})
}
