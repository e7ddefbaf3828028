package wire

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// Handshake is the first frame a client must send, declaring its identity.
type Handshake struct {
	UserID string `json:"userId" validate:"required,min=1,max=128"`
}

// Message is the JSON payload of every non-handshake frame.
// SentAt round-trips as RFC 3339, which is what encoding/json
// produces for time.Time.
type Message struct {
	ID         string    `json:"id"`
	SenderID   *string   `json:"senderId"`
	Mode       string    `json:"mode" validate:"required,oneof=Private Group Broadcast"`
	ReceiverID *string   `json:"receiverId"`
	GroupID    *string   `json:"groupId"`
	Content    string    `json:"content" validate:"max=65536"`
	SentAt     time.Time `json:"sentAt"`
	Status     string    `json:"status"`
}

// DecodeHandshake parses and validates an identity handshake frame.
func DecodeHandshake(payload []byte) (Handshake, error) {
	var hs Handshake
	if err := json.Unmarshal(payload, &hs); err != nil {
		return Handshake{}, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}
	if err := validate.Struct(hs); err != nil {
		return Handshake{}, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}
	return hs, nil
}

// EncodeHandshake is the client-side counterpart of DecodeHandshake.
func EncodeHandshake(hs Handshake) ([]byte, error) {
	return json.Marshal(hs)
}

// DecodeMessage parses a message frame into the domain form.
// A zero ID or SentAt is left zero for the engine to stamp at ingress.
func DecodeMessage(payload []byte) (domain.Message, error) {
	var wm Message
	if err := json.Unmarshal(payload, &wm); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}
	if err := validate.Struct(wm); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}

	msg := domain.Message{
		Mode:    domain.Mode(wm.Mode),
		Content: wm.Content,
		SentAt:  wm.SentAt,
		Status:  domain.DeliveryStatus(wm.Status),
	}
	if wm.ID != "" {
		parsed, err := uuid.Parse(wm.ID)
		if err != nil {
			return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
		}
		msg.ID = parsed
	}
	if wm.SenderID != nil {
		msg.SenderID = *wm.SenderID
	}
	if wm.ReceiverID != nil {
		msg.ReceiverID = *wm.ReceiverID
	}
	if wm.GroupID != nil {
		msg.GroupID = *wm.GroupID
	}
	if msg.Status == "" {
		msg.Status = domain.StatusPending
	}
	return msg, nil
}

// EncodeMessage serializes a domain message for the wire.
func EncodeMessage(msg domain.Message) ([]byte, error) {
	wm := Message{
		ID:      msg.ID.String(),
		Mode:    string(msg.Mode),
		Content: msg.Content,
		SentAt:  msg.SentAt,
		Status:  string(msg.Status),
	}
	if msg.SenderID != "" {
		wm.SenderID = &msg.SenderID
	}
	if msg.ReceiverID != "" {
		wm.ReceiverID = &msg.ReceiverID
	}
	if msg.GroupID != "" {
		wm.GroupID = &msg.GroupID
	}
	return json.Marshal(wm)
}
