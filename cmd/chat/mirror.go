package main

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opendoor-ai/chatcore/internal/remotelog"
	"github.com/opendoor-ai/chatcore/internal/store"
	"github.com/opendoor-ai/chatcore/internal/types"
)

// logMirror bridges local conversation IDs to the remote message log.
// Conversations are created locally first; the mirror lazily registers
// them with the log and remembers the mapping. It implements
// poller.Fetcher against the remote ID, so the poller can keep using
// local IDs.
type logMirror struct {
	client *remotelog.Client
	logger *logrus.Logger

	mu     sync.Mutex
	remote map[string]string // local conversation ID -> remote ID
}

func newLogMirror(client *remotelog.Client, logger *logrus.Logger) *logMirror {
	return &logMirror{
		client: client,
		logger: logger,
		remote: make(map[string]string),
	}
}

// Fetch satisfies poller.Fetcher. A conversation that has never been
// mirrored has no remote history yet.
func (m *logMirror) Fetch(ctx context.Context, conversationID string, afterSequence int64) ([]types.Message, error) {
	m.mu.Lock()
	remoteID, ok := m.remote[conversationID]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	msgs, err := m.client.Fetch(ctx, remoteID, afterSequence)
	if err != nil {
		return nil, err
	}
	// Remote records carry the remote conversation ID; rewrite to the
	// local one before the merge.
	for i := range msgs {
		msgs[i].ConversationID = conversationID
	}
	return msgs, nil
}

// forwardTurn appends the conversation's unconfirmed sent messages to
// the remote log. The poller later fetches them back and the store
// promotes the local records by content match, closing the optimistic
// send cycle.
func (m *logMirror) forwardTurn(ctx context.Context, st *store.Store, conversationID string) {
	conv, err := st.Get(conversationID)
	if err != nil {
		return
	}

	remoteID, err := m.remoteID(ctx, conversationID)
	if err != nil {
		m.logger.WithError(err).Warn("failed to register conversation with remote log")
		return
	}

	for _, msg := range conv.Messages {
		if msg.Status != types.StatusSent || msg.Confirmed() {
			continue
		}
		if _, err := m.client.Append(ctx, remoteID, msg.Role, msg.Content); err != nil {
			// Mirroring is best effort; local state is the source of
			// truth for unsent data and the next turn retries.
			m.logger.WithError(err).WithField("message_id", msg.ID).Warn("failed to mirror message")
			return
		}
	}
}

func (m *logMirror) remoteID(ctx context.Context, conversationID string) (string, error) {
	m.mu.Lock()
	id, ok := m.remote[conversationID]
	m.mu.Unlock()
	if ok {
		return id, nil
	}

	id, err := m.client.CreateConversation(ctx)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.remote[conversationID] = id
	m.mu.Unlock()
	return id, nil
}
