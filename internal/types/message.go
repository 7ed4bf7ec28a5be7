package types

import (
	"time"
)

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// MessageStatus tracks a message's delivery state. Remote messages are
// always StatusSent; the other states only occur on locally minted
// messages that have not been confirmed by the message log yet.
type MessageStatus string

const (
	StatusPending MessageStatus = "pending"
	StatusSent    MessageStatus = "sent"
	StatusFailed  MessageStatus = "failed"
)

// Message represents a single message in a conversation.
//
// A message is "local" until the remote log assigns it a sequence number;
// local messages have Sequence == nil and are ordered by CreatedAt.
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	Role           MessageRole   `json:"role"`
	Content        string        `json:"content"`
	Status         MessageStatus `json:"status"`
	Sequence       *int64        `json:"sequence,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Confirmed reports whether the message carries a server-assigned sequence.
func (m *Message) Confirmed() bool {
	return m.Sequence != nil
}
