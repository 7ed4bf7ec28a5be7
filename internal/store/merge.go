package store

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/opendoor-ai/chatcore/internal/types"
)

// MergeRemoteMessages reconciles a batch of remote messages into a
// conversation. The merge is idempotent in the sequence number: a
// sequence already present in the thread is skipped. A remote message
// that echoes a locally authored message (same role and content, not yet
// confirmed) promotes the local record in place instead of inserting a
// duplicate. Pending local messages are never removed or reordered.
// LastKnownSequence advances to the highest sequence observed in the
// batch.
//
// The call is a no-op when the conversation no longer exists (it may
// have been deleted between the poller's fetch and the merge).
func (s *Store) MergeRemoteMessages(conversationID string, remote []types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return
	}

	batch := make([]types.Message, len(remote))
	copy(batch, remote)
	sort.SliceStable(batch, func(i, j int) bool {
		return seqOf(batch[i]) < seqOf(batch[j])
	})

	merged := 0
	for _, rm := range batch {
		if rm.Sequence == nil {
			// The remote log is the only source of sequence numbers; an
			// unsequenced entry cannot be positioned and is dropped.
			s.logger.WithField("message_id", rm.ID).Warn("remote message without sequence dropped")
			continue
		}
		seq := *rm.Sequence

		if existing := findBySequence(conv.Messages, seq); existing != nil {
			if existing.ID != rm.ID {
				// Sequence collision with a differently keyed record:
				// local wins, remote entry dropped rather than risk a
				// duplicate in the thread.
				s.logger.WithFields(logrus.Fields{
					"conversation_id": conversationID,
					"sequence":        seq,
					"local_id":        existing.ID,
					"remote_id":       rm.ID,
				}).Warn("merge conflict, keeping local message")
			}
		} else if local := findUnconfirmedMatch(conv.Messages, rm); local != nil {
			// The remote log echoed a message this client authored:
			// promote the local record instead of inserting a copy.
			local.Sequence = rm.Sequence
			local.Status = types.StatusSent
		} else {
			rm.ConversationID = conversationID
			rm.Status = types.StatusSent
			conv.Messages = insertBySequence(conv.Messages, rm)
			merged++
		}

		if seq > conv.LastKnownSequence {
			conv.LastKnownSequence = seq
		}
	}

	if merged > 0 {
		conv.UpdatedAt = s.now()
	}
}

func seqOf(m types.Message) int64 {
	if m.Sequence == nil {
		return 0
	}
	return *m.Sequence
}

func findBySequence(msgs []types.Message, seq int64) *types.Message {
	for i := range msgs {
		if msgs[i].Sequence != nil && *msgs[i].Sequence == seq {
			return &msgs[i]
		}
	}
	return nil
}

// findUnconfirmedMatch returns the earliest local message the remote one
// could be an echo of: same role and content, no sequence yet, and not
// already failed.
func findUnconfirmedMatch(msgs []types.Message, rm types.Message) *types.Message {
	for i := range msgs {
		m := &msgs[i]
		if m.Sequence == nil && m.Status != types.StatusFailed && m.Role == rm.Role && m.Content == rm.Content {
			return m
		}
	}
	return nil
}

// insertBySequence places a confirmed message before the first confirmed
// message with a greater sequence. Unconfirmed messages (sequence nil)
// are transparent to the scan, so pending entries keep their positions.
func insertBySequence(msgs []types.Message, rm types.Message) []types.Message {
	at := len(msgs)
	for i := range msgs {
		if msgs[i].Sequence != nil && *msgs[i].Sequence > *rm.Sequence {
			at = i
			break
		}
	}
	msgs = append(msgs, types.Message{})
	copy(msgs[at+1:], msgs[at:])
	msgs[at] = rm
	return msgs
}
