package types

import (
	"time"
)

// DefaultTitle is the placeholder title a conversation carries until the
// first user message derives a real one or the user renames it.
const DefaultTitle = "New Chat"

// Conversation represents a chat conversation and its message thread.
type Conversation struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// TitleCustom is set once the user renames the conversation; a custom
	// title is never overwritten by automatic derivation again.
	TitleCustom bool `json:"title_custom"`

	Messages []Message `json:"messages"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// LastKnownSequence is the highest remote sequence observed for this
	// conversation. It is the low-water mark for delta polling: the next
	// fetch asks only for messages with sequence > LastKnownSequence.
	LastKnownSequence int64 `json:"last_known_sequence"`
}

// Clone returns a deep copy of the conversation, including its messages.
func (c *Conversation) Clone() Conversation {
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}
