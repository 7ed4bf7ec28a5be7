// Package store owns all conversation and message state on the client.
// Every mutation goes through a named operation on Store; no other
// component holds a writable reference to the records.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opendoor-ai/chatcore/internal/ident"
	"github.com/opendoor-ai/chatcore/internal/types"
)

// ErrNotFound is returned when a conversation is not found.
var ErrNotFound = errors.New("not found")

// titleMaxLen is the bound for titles derived from the first user message.
const titleMaxLen = 50

// Store is the single source of truth for conversations, the active
// thread, and in-flight request status. All operations are safe for
// concurrent use; the mutex gives preemptively scheduled callers the
// same one-mutation-at-a-time guarantee a browser event loop has.
type Store struct {
	mu     sync.Mutex
	logger *logrus.Logger

	conversations map[string]*types.Conversation
	order         []string // conversation IDs, most recently created first
	currentID     string
	loading       bool

	now func() time.Time
}

// New creates an empty Store.
func New(logger *logrus.Logger) *Store {
	return &Store{
		logger:        logger,
		conversations: make(map[string]*types.Conversation),
		now:           time.Now,
	}
}

// CreateConversation inserts a new empty conversation at the head of the
// list, makes it current, and returns its ID.
func (s *Store) CreateConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv := &types.Conversation{
		ID:        ident.New("chat"),
		Title:     types.DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[conv.ID] = conv
	s.order = append([]string{conv.ID}, s.order...)
	s.currentID = conv.ID
	return conv.ID
}

// AppendMessage constructs a message and appends it to the conversation.
// User messages start out pending (they have not been sent yet);
// assistant and system messages arrive already resolved and are sent.
// The first user message derives the conversation title unless the user
// has renamed it.
func (s *Store) AppendMessage(conversationID string, role types.MessageRole, content string) (types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return types.Message{}, ErrNotFound
	}

	status := types.StatusSent
	if role == types.RoleUser {
		status = types.StatusPending
	}
	msg := types.Message{
		ID:             ident.New("msg"),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Status:         status,
		CreatedAt:      s.now(),
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = msg.CreatedAt

	if role == types.RoleUser && !conv.TitleCustom && conv.Title == types.DefaultTitle {
		conv.Title = deriveTitle(content)
	}
	return msg, nil
}

// UpdateMessageStatus transitions a local message's status. It is a
// silent no-op when the conversation or message no longer exists, e.g.
// when the conversation was deleted while a send was in flight.
func (s *Store) UpdateMessageStatus(conversationID, messageID string, status types.MessageStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return
	}
	for i := range conv.Messages {
		if conv.Messages[i].ID == messageID {
			conv.Messages[i].Status = status
			return
		}
	}
}

// RenameConversation sets an explicit title. Renamed conversations keep
// their title permanently; automatic derivation never applies again.
func (s *Store) RenameConversation(conversationID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conv.Title = title
	conv.TitleCustom = true
	conv.UpdatedAt = s.now()
	return nil
}

// DeleteConversation removes a conversation. Deleting the current
// conversation clears the current pointer; no replacement is selected.
func (s *Store) DeleteConversation(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return ErrNotFound
	}
	delete(s.conversations, conversationID)
	for i, id := range s.order {
		if id == conversationID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.currentID == conversationID {
		s.currentID = ""
	}
	return nil
}

// LoadConversation makes a conversation current and returns a copy of it.
// Unknown IDs return ErrNotFound without mutating any state.
func (s *Store) LoadConversation(conversationID string) (types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return types.Conversation{}, ErrNotFound
	}
	s.currentID = conversationID
	return conv.Clone(), nil
}

// CurrentID returns the ID of the current conversation, or "" when none
// is selected.
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Get returns a copy of a conversation without changing the current
// pointer.
func (s *Store) Get(conversationID string) (types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return types.Conversation{}, ErrNotFound
	}
	return conv.Clone(), nil
}

// Conversations returns copies of all conversations, most recently
// created first.
func (s *Store) Conversations() []types.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Conversation, 0, len(s.order))
	for _, id := range s.order {
		if conv, ok := s.conversations[id]; ok {
			out = append(out, conv.Clone())
		}
	}
	return out
}

// LastKnownSequence returns the polling low-water mark for a
// conversation, or 0 when the conversation does not exist.
func (s *Store) LastKnownSequence(conversationID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.conversations[conversationID]; ok {
		return conv.LastKnownSequence
	}
	return 0
}

// SetLoading toggles the in-flight request flag. The flag is a UI
// convenience; per-message status is the ground truth for correctness.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

// Loading reports whether a send is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func deriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) > titleMaxLen {
		return string(runes[:titleMaxLen]) + "..."
	}
	return content
}
