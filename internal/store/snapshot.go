package store

import (
	"github.com/opendoor-ai/chatcore/internal/types"
)

// State is the serializable snapshot of the store, exchanged with the
// persistence layer at UI-lifecycle boundaries. The store itself never
// decides when to persist.
type State struct {
	Conversations []types.Conversation `json:"conversations"`
	CurrentID     string               `json:"current_id"`
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{CurrentID: s.currentID}
	for _, id := range s.order {
		if conv, ok := s.conversations[id]; ok {
			state.Conversations = append(state.Conversations, conv.Clone())
		}
	}
	return state
}

// Restore replaces the store's contents with a previously captured
// snapshot. In-flight sends against the old state resolve as silent
// no-ops through UpdateMessageStatus.
func (s *Store) Restore(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make(map[string]*types.Conversation, len(state.Conversations))
	s.order = s.order[:0]
	for _, conv := range state.Conversations {
		c := conv.Clone()
		s.conversations[c.ID] = &c
		s.order = append(s.order, c.ID)
	}
	s.currentID = ""
	if _, ok := s.conversations[state.CurrentID]; ok {
		s.currentID = state.CurrentID
	}
	s.loading = false
}
