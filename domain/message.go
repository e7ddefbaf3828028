// Package domain contains core concepts of the delivery engine.
// This file defines Messages, addressing modes and per-recipient
// delivery obligations. Messages are immutable once stamped at ingress.
package domain

import (
	"chat-relay/errors"
	"time"

	"github.com/google/uuid"
)

// Mode is the addressing mode of a message.
type Mode string

const (
	ModePrivate   Mode = "Private"
	ModeGroup     Mode = "Group"
	ModeBroadcast Mode = "Broadcast"
)

// DeliveryStatus tracks one recipient's copy, not the message as a whole.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "Pending"
	StatusDelivered DeliveryStatus = "Delivered"
)

// Message represents one text message accepted by the engine.
// ID and SentAt are assigned at ingress, never trusted from the client.
// SenderID is empty for a system broadcast.
type Message struct {
	ID         uuid.UUID
	SenderID   string
	Mode       Mode
	ReceiverID string
	GroupID    string
	Content    string
	SentAt     time.Time
	Status     DeliveryStatus
}

// Validate enforces the mode/target consistency invariant:
// exactly one of ReceiverID/GroupID is set for Private/Group,
// neither for Broadcast.
func (m Message) Validate() error {
	switch m.Mode {
	case ModePrivate:
		if m.ReceiverID == "" || m.GroupID != "" {
			return errors.ErrInvalidAddress
		}
	case ModeGroup:
		if m.GroupID == "" || m.ReceiverID != "" {
			return errors.ErrInvalidAddress
		}
	case ModeBroadcast:
		if m.ReceiverID != "" || m.GroupID != "" {
			return errors.ErrInvalidAddress
		}
	default:
		return errors.ErrUnknownMode
	}
	return nil
}

// Delivery is one independent per-recipient obligation produced by fan-out.
// It carries its own identity while Message.ID stays the original message
// identifier, so recipients can de-duplicate on redelivery.
type Delivery struct {
	ID        uuid.UUID
	Recipient string
	Message   Message
}

// NewDelivery addresses a copy of msg to one recipient.
func NewDelivery(recipient string, msg Message) Delivery {
	copied := msg
	copied.ReceiverID = recipient
	return Delivery{
		ID:        uuid.New(),
		Recipient: recipient,
		Message:   copied,
	}
}
