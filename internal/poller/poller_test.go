package poller

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendoor-ai/chatcore/internal/store"
	"github.com/opendoor-ai/chatcore/internal/types"
)

// scriptedFetcher returns one batch per call and records the
// afterSequence values it was asked for.
type scriptedFetcher struct {
	mu      sync.Mutex
	batches [][]types.Message
	errs    []error
	calls   int
	asked   []int64
}

func (f *scriptedFetcher) Fetch(ctx context.Context, conversationID string, afterSequence int64) ([]types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, afterSequence)
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.batches) {
		return f.batches[i], nil
	}
	return nil, nil
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *scriptedFetcher) askedSequences() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.asked))
	copy(out, f.asked)
	return out
}

func newTestStore() *store.Store {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return store.New(logger)
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func seq(n int64) *int64 { return &n }

func remoteMsg(id string, s int64, content string) types.Message {
	return types.Message{
		ID:        id,
		Role:      types.RoleAssistant,
		Content:   content,
		Status:    types.StatusSent,
		Sequence:  seq(s),
		CreatedAt: time.Now(),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestRun_InitialLoadThenDelta(t *testing.T) {
	st := newTestStore()
	id := st.CreateConversation()

	fetcher := &scriptedFetcher{
		batches: [][]types.Message{
			{remoteMsg("r1", 1, "one"), remoteMsg("r2", 2, "two")},
			{remoteMsg("r3", 3, "three")},
		},
	}
	p := New(st, fetcher, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx, id)

	waitFor(t, func() bool { return st.LastKnownSequence(id) == 3 })
	cancel()

	conv, err := st.Get(id)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, "one", conv.Messages[0].Content)
	assert.Equal(t, "three", conv.Messages[2].Content)

	asked := fetcher.askedSequences()
	require.GreaterOrEqual(t, len(asked), 2)
	assert.Equal(t, int64(0), asked[0], "initial load starts from zero")
	assert.Equal(t, int64(2), asked[1], "second tick fetches strictly newer sequences")
}

func TestRun_FetchFailureKeepsState(t *testing.T) {
	st := newTestStore()
	id := st.CreateConversation()

	fetcher := &scriptedFetcher{
		batches: [][]types.Message{
			{remoteMsg("r1", 1, "one")},
			nil,
			{remoteMsg("r2", 2, "two")},
		},
		errs: []error{nil, errors.New("network down"), nil},
	}
	p := New(st, fetcher, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx, id)

	waitFor(t, func() bool { return st.LastKnownSequence(id) == 2 })
	cancel()

	// The failed tick in the middle neither cleared messages nor reset
	// the low-water mark.
	conv, _ := st.Get(id)
	require.Len(t, conv.Messages, 2)

	asked := fetcher.askedSequences()
	require.GreaterOrEqual(t, len(asked), 3)
	assert.Equal(t, int64(1), asked[1], "mark survives the failure")
	assert.Equal(t, int64(1), asked[2], "failed tick does not advance the mark")
}

func TestRun_StopsOnCancel(t *testing.T) {
	st := newTestStore()
	id := st.CreateConversation()

	fetcher := &scriptedFetcher{}
	p := New(st, fetcher, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx, id)
	}()

	waitFor(t, func() bool { return fetcher.callCount() >= 2 })
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}

	calls := fetcher.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, fetcher.callCount(), "no ticks after cancellation")
}
