package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageStatus indicates the delivery state of a message.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
	StatusRecalled  MessageStatus = "recalled"
)

// Terminal reports whether no further status transition is allowed.
func (s MessageStatus) Terminal() bool {
	return s == StatusFailed || s == StatusRecalled
}

// deliveryRank orders the monotonic sent → delivered → read pipeline.
func (s MessageStatus) deliveryRank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

// Advances reports whether moving from s to next is a forward step of the delivery pipeline.
func (s MessageStatus) Advances(next MessageStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return s == StatusSent
	}
	return next.deliveryRank() > s.deliveryRank()
}

// Message represents a chat message persisted to storage.
// Payload is nil only after the message has been recalled.
type Message struct {
	ID             uuid.UUID     `json:"id"`
	ConversationID string        `json:"conversationId"`
	SenderID       uuid.UUID     `json:"senderId"`
	ReceiverID     uuid.UUID     `json:"receiverId"`
	Kind           Kind          `json:"kind"`
	Payload        Payload       `json:"payload"`
	IsRead         bool          `json:"isRead"`
	Status         MessageStatus `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      *time.Time    `json:"updatedAt,omitempty"`
	RecalledAt     *time.Time    `json:"recalledAt,omitempty"`
}

// IsRecalled reports whether the message has been tombstoned by its sender.
func (m *Message) IsRecalled() bool {
	return m.Status == StatusRecalled
}

// Recall tombstones the message: the payload is dropped while id, kind and timestamps stay.
func (m *Message) Recall(at time.Time) {
	m.Payload = nil
	m.Status = StatusRecalled
	m.RecalledAt = &at
	m.UpdatedAt = &at
}

// Touch stamps UpdatedAt.
func (m *Message) Touch(at time.Time) {
	m.UpdatedAt = &at
}

// Clone returns a copy that shares no mutable state with m.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.UpdatedAt != nil {
		t := *m.UpdatedAt
		c.UpdatedAt = &t
	}
	if m.RecalledAt != nil {
		t := *m.RecalledAt
		c.RecalledAt = &t
	}
	return &c
}

// UnmarshalJSON decodes the payload into the variant named by kind.
func (m *Message) UnmarshalJSON(b []byte) error {
	type plain Message
	aux := struct {
		*plain
		Payload json.RawMessage `json:"payload"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	p, err := DecodePayload(m.Kind, aux.Payload)
	if err != nil {
		return err
	}
	m.Payload = p
	return nil
}

// MessageAcknowledgementRequest captures status updates for a message.
type MessageAcknowledgementRequest struct {
	MessageID uuid.UUID     `json:"messageId" binding:"required"`
	Status    MessageStatus `json:"status" binding:"required,oneof=delivered read failed"`
}

// MessagePage is one page of a conversation's chat log, oldest first.
type MessagePage struct {
	Messages []*Message `json:"messages"`
	HasMore  bool       `json:"hasMore"`
	Total    int        `json:"total"`
}
