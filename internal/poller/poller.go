// Package poller reconciles the local store with the remote message log
// by periodic delta fetches against the conversation's sequence
// low-water mark.
package poller

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opendoor-ai/chatcore/internal/store"
	"github.com/opendoor-ai/chatcore/internal/types"
)

// DefaultInterval is the reference polling interval.
const DefaultInterval = 2500 * time.Millisecond

// Fetcher retrieves messages with sequence > afterSequence for a
// conversation from the remote log, ordered by sequence.
type Fetcher interface {
	Fetch(ctx context.Context, conversationID string, afterSequence int64) ([]types.Message, error)
}

// Poller periodically merges remote messages into the store. A Poller is
// scoped to one conversation per Run; switching conversations means
// cancelling the old Run's context before starting a new one, so two
// timers never write on behalf of different "current" contexts.
type Poller struct {
	store    *store.Store
	fetcher  Fetcher
	interval time.Duration
	logger   *logrus.Logger
}

// New creates a Poller. A non-positive interval falls back to
// DefaultInterval.
func New(st *store.Store, fetcher Fetcher, interval time.Duration, logger *logrus.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		store:    st,
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
	}
}

// Run polls the conversation until ctx is cancelled. The first tick runs
// immediately: on a fresh conversation it loads full history and
// establishes the low-water mark, afterwards each tick fetches only
// strictly newer sequences. Fetch failures are logged and retried next
// tick; they never clear existing messages or reset the mark.
func (p *Poller) Run(ctx context.Context, conversationID string) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx, conversationID)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, conversationID)
		}
	}
}

// tick performs one delta fetch and merge. The fetch is bounded by the
// polling interval so a hung request cannot overlap the next one.
func (p *Poller) tick(ctx context.Context, conversationID string) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	after := p.store.LastKnownSequence(conversationID)
	msgs, err := p.fetcher.Fetch(fetchCtx, conversationID, after)
	if err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"after_sequence":  after,
		}).Warn("poll failed, retrying next tick")
		return
	}
	if len(msgs) == 0 {
		return
	}
	p.store.MergeRemoteMessages(conversationID, msgs)
}
