// Package view derives read-only projections from repository snapshots.
// Nothing in this package mutates state.
package view

import (
	"strings"
	"time"

	"github.com/opendoor-ai/chatcore/internal/types"
)

// Bucket labels, in display order.
const (
	LabelToday     = "Today"
	LabelYesterday = "Yesterday"
	LabelWeek      = "Previous 7 days"
	LabelOlder     = "Older"
)

// Bucket is a recency group of conversations.
type Bucket struct {
	Label         string
	Conversations []types.Conversation
}

// Filter returns the conversations whose title contains the query,
// case-insensitively. An empty query matches everything.
func Filter(conversations []types.Conversation, query string) []types.Conversation {
	q := strings.ToLower(query)
	out := make([]types.Conversation, 0, len(conversations))
	for _, conv := range conversations {
		if strings.Contains(strings.ToLower(conv.Title), q) {
			out = append(out, conv)
		}
	}
	return out
}

// GroupByRecency partitions conversations by the age of their last
// update: under 24h, 24-48h, 48h to 7 days, and older. Relative order
// within a bucket follows the input order; empty buckets are omitted.
func GroupByRecency(conversations []types.Conversation, now time.Time) []Bucket {
	const day = 24 * time.Hour

	groups := []Bucket{
		{Label: LabelToday},
		{Label: LabelYesterday},
		{Label: LabelWeek},
		{Label: LabelOlder},
	}
	for _, conv := range conversations {
		age := now.Sub(conv.UpdatedAt)
		switch {
		case age < day:
			groups[0].Conversations = append(groups[0].Conversations, conv)
		case age < 2*day:
			groups[1].Conversations = append(groups[1].Conversations, conv)
		case age < 7*day:
			groups[2].Conversations = append(groups[2].Conversations, conv)
		default:
			groups[3].Conversations = append(groups[3].Conversations, conv)
		}
	}

	out := groups[:0]
	for _, g := range groups {
		if len(g.Conversations) > 0 {
			out = append(out, g)
		}
	}
	return out
}
