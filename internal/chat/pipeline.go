// Package chat implements the optimistic send pipeline: append locally,
// dispatch the provider call, reconcile the outcome back into the store.
package chat

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/opendoor-ai/chatcore/internal/provider"
	"github.com/opendoor-ai/chatcore/internal/store"
	"github.com/opendoor-ai/chatcore/internal/types"
)

// In-thread notices for failed sends. Failures are always surfaced as a
// visible assistant message, never as an error escaping to the UI.
const (
	rateLimitNotice = "The model is receiving too many requests right now. Please wait a moment and send your message again."
	authNotice      = "The provider rejected the API credentials. Please check your API key and try again."
	networkNotice   = "Could not reach the model provider. Please check your connection and try again."
)

// Pipeline sends user messages through a provider adapter and reconciles
// results into the store.
type Pipeline struct {
	store   *store.Store
	adapter provider.Adapter
	model   string
	logger  *logrus.Logger
}

// New creates a Pipeline bound to a store and a provider adapter.
func New(st *store.Store, adapter provider.Adapter, model string, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		store:   st,
		adapter: adapter,
		model:   model,
		logger:  logger,
	}
}

// Send appends text as a pending user message (creating a conversation
// when conversationID is empty and none is current), dispatches the
// provider call, and reconciles the reply or failure into the store. It
// returns the conversation ID that received the message.
//
// Send blocks until the exchange resolves; callers wanting
// fire-and-forget run it in a goroutine and observe progress through
// the store. Concurrent sends are allowed: each message carries its own
// identity and status, so interleaved resolutions cannot corrupt the
// thread.
func (p *Pipeline) Send(ctx context.Context, conversationID, text string) string {
	if conversationID == "" {
		conversationID = p.store.CurrentID()
	}
	if conversationID == "" {
		conversationID = p.store.CreateConversation()
	}

	userMsg, err := p.store.AppendMessage(conversationID, types.RoleUser, text)
	if err != nil {
		// The conversation vanished between lookup and append; nothing
		// to reconcile against.
		p.logger.WithError(err).WithField("conversation_id", conversationID).Warn("send aborted")
		return conversationID
	}

	p.store.SetLoading(true)
	defer p.store.SetLoading(false)

	reply, err := p.adapter.Send(ctx, p.model, p.history(conversationID))
	if err != nil {
		p.resolveFailure(conversationID, userMsg.ID, err)
		return conversationID
	}

	p.store.UpdateMessageStatus(conversationID, userMsg.ID, types.StatusSent)
	if _, err := p.store.AppendMessage(conversationID, types.RoleAssistant, reply); err != nil {
		p.logger.WithError(err).WithField("conversation_id", conversationID).Warn("conversation deleted before reply arrived")
	}
	return conversationID
}

// history projects the conversation's resolved and in-flight messages
// into provider turns. Failed messages are excluded: their text was
// never accepted and resending them silently would surprise the user.
func (p *Pipeline) history(conversationID string) []provider.Message {
	conv, err := p.store.Get(conversationID)
	if err != nil {
		return nil
	}
	msgs := make([]provider.Message, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		if m.Status == types.StatusFailed {
			continue
		}
		msgs = append(msgs, provider.Message{Role: string(m.Role), Content: m.Content})
	}
	return msgs
}

// resolveFailure marks the originating message failed and appends an
// in-thread assistant notice describing the failure. The failed user
// message keeps its original text so the user can copy or resend it.
func (p *Pipeline) resolveFailure(conversationID, messageID string, err error) {
	p.store.UpdateMessageStatus(conversationID, messageID, types.StatusFailed)

	notice := networkNotice
	var perr *provider.Error
	if errors.As(err, &perr) {
		switch perr.Kind {
		case provider.RateLimited:
			notice = rateLimitNotice
		case provider.AuthFailure:
			notice = authNotice
		case provider.ProviderError:
			notice = "The provider returned an error: " + perr.Message
		}
	}

	p.logger.WithError(err).WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"message_id":      messageID,
	}).Error("send failed")

	if _, err := p.store.AppendMessage(conversationID, types.RoleAssistant, notice); err != nil {
		p.logger.WithError(err).WithField("conversation_id", conversationID).Warn("conversation deleted before failure notice")
	}
}
