package chat

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendoor-ai/chatcore/internal/provider"
	"github.com/opendoor-ai/chatcore/internal/store"
	"github.com/opendoor-ai/chatcore/internal/types"
)

// fakeAdapter resolves every call with a fixed reply or error and
// records the turns it was given.
type fakeAdapter struct {
	mu      sync.Mutex
	reply   string
	err     error
	history [][]provider.Message
}

func (f *fakeAdapter) Send(ctx context.Context, model string, messages []provider.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestPipeline(adapter provider.Adapter) (*Pipeline, *store.Store) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	st := store.New(logger)
	return New(st, adapter, "test-model", logger), st
}

func TestSend_Success(t *testing.T) {
	p, st := newTestPipeline(&fakeAdapter{reply: "Hi there"})
	id := st.CreateConversation()

	p.Send(context.Background(), id, "Hello")

	conv, err := st.Get(id)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)

	assert.Equal(t, types.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "Hello", conv.Messages[0].Content)
	assert.Equal(t, types.StatusSent, conv.Messages[0].Status)

	assert.Equal(t, types.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "Hi there", conv.Messages[1].Content)
	assert.Equal(t, types.StatusSent, conv.Messages[1].Status)

	assert.False(t, st.Loading())
}

func TestSend_RateLimited(t *testing.T) {
	p, st := newTestPipeline(&fakeAdapter{
		err: provider.Classify(http.StatusTooManyRequests, "slow down"),
	})
	id := st.CreateConversation()

	p.Send(context.Background(), id, "Hello")

	conv, _ := st.Get(id)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "Hello", conv.Messages[0].Content, "failed message keeps its text")
	assert.Equal(t, types.StatusFailed, conv.Messages[0].Status)
	assert.Equal(t, types.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, rateLimitNotice, conv.Messages[1].Content)
	assert.Equal(t, types.StatusSent, conv.Messages[1].Status)
	assert.False(t, st.Loading())
}

func TestSend_AuthFailure(t *testing.T) {
	p, st := newTestPipeline(&fakeAdapter{
		err: provider.Classify(http.StatusUnauthorized, "invalid key"),
	})
	id := st.CreateConversation()

	p.Send(context.Background(), id, "Hello")

	conv, _ := st.Get(id)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, types.StatusFailed, conv.Messages[0].Status)
	assert.Equal(t, authNotice, conv.Messages[1].Content)
}

func TestSend_ProviderErrorSurfacesMessage(t *testing.T) {
	p, st := newTestPipeline(&fakeAdapter{
		err: provider.Classify(http.StatusInternalServerError, "model overloaded"),
	})
	id := st.CreateConversation()

	p.Send(context.Background(), id, "Hello")

	conv, _ := st.Get(id)
	require.Len(t, conv.Messages, 2)
	assert.Contains(t, conv.Messages[1].Content, "model overloaded")
}

func TestSend_CreatesConversationLazily(t *testing.T) {
	p, st := newTestPipeline(&fakeAdapter{reply: "ok"})

	id := p.Send(context.Background(), "", "first message of a new thread")

	require.NotEmpty(t, id)
	assert.Equal(t, id, st.CurrentID())

	conv, err := st.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "first message of a new thread", conv.Title)
	require.Len(t, conv.Messages, 2)
}

func TestSend_UsesCurrentConversation(t *testing.T) {
	p, st := newTestPipeline(&fakeAdapter{reply: "ok"})
	id := st.CreateConversation()

	got := p.Send(context.Background(), "", "hello")
	assert.Equal(t, id, got)
}

func TestSend_FailedMessagesExcludedFromHistory(t *testing.T) {
	adapter := &fakeAdapter{err: provider.Classify(http.StatusInternalServerError, "boom")}
	p, st := newTestPipeline(adapter)
	id := st.CreateConversation()

	p.Send(context.Background(), id, "doomed")

	adapter.mu.Lock()
	adapter.err = nil
	adapter.reply = "recovered"
	adapter.mu.Unlock()

	p.Send(context.Background(), id, "retry")

	adapter.mu.Lock()
	last := adapter.history[len(adapter.history)-1]
	adapter.mu.Unlock()

	for _, m := range last {
		assert.NotEqual(t, "doomed", m.Content, "failed text must not be resent silently")
	}
}

func TestSend_DeletedConversationMidFlight(t *testing.T) {
	blocked := make(chan struct{})
	release := make(chan struct{})
	adapter := adapterFunc(func(ctx context.Context, model string, msgs []provider.Message) (string, error) {
		close(blocked)
		<-release
		return "late reply", nil
	})
	p, st := newTestPipeline(adapter)
	id := st.CreateConversation()

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Send(context.Background(), id, "hello")
	}()

	<-blocked
	require.NoError(t, st.DeleteConversation(id))
	close(release)
	<-done

	// The resolution lands on a deleted conversation: silent no-op.
	_, err := st.Get(id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, st.Loading())
}

type adapterFunc func(ctx context.Context, model string, messages []provider.Message) (string, error)

func (f adapterFunc) Send(ctx context.Context, model string, messages []provider.Message) (string, error) {
	return f(ctx, model, messages)
}
