package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/carehub/internal/notify"
	"github.com/wolfman30/carehub/pkg/logging"
)

type scriptedStreamer struct {
	deltas []string
	err    error
	seen   []Message
}

func (s *scriptedStreamer) Stream(_ context.Context, messages []Message, onDelta func(string) error) (string, error) {
	s.seen = messages
	reply := ""
	for _, d := range s.deltas {
		reply += d
		if err := onDelta(d); err != nil {
			return reply, err
		}
	}
	return reply, s.err
}

type reasonRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *reasonRecorder) ChatStreamFailed(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func TestService_SendPersistsReply(t *testing.T) {
	streamer := &scriptedStreamer{deltas: []string{"Sure", ", booked."}}
	store := NewMemoryStore(50)
	svc := NewService(streamer, store, logging.Discard())

	var forwarded []string
	msg, err := svc.Send(context.Background(), "user-1", "conv-1", "  book me  ", func(d string) error {
		forwarded = append(forwarded, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Sure, booked.", msg.Content)
	assert.Equal(t, []string{"Sure", ", booked."}, forwarded)

	require.Len(t, streamer.seen, 1)
	assert.Equal(t, "book me", streamer.seen[0].Content)

	history, err := svc.History(context.Background(), "user-1", "conv-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, RoleAssistant, history[1].Role)
	assert.Equal(t, "Sure, booked.", history[1].Content)

	other, err := svc.History(context.Background(), "user-2", "conv-1")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestService_FailureRollsBackPartialReply(t *testing.T) {
	streamer := &scriptedStreamer{deltas: []string{"Half an ans"}, err: ErrInterrupted}
	store := NewMemoryStore(50)
	notes := notify.NewMemoryStore()
	observer := &reasonRecorder{}
	svc := NewService(streamer, store, logging.Discard(), WithNotifier(notes), WithFailureObserver(observer))

	_, err := svc.Send(context.Background(), "user-1", "conv-1", "hello", nil)
	require.ErrorIs(t, err, ErrInterrupted)

	history, err := svc.History(context.Background(), "user-1", "conv-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, RoleUser, history[0].Role)

	pending, err := notes.Drain(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, notify.KindError, pending[0].Kind)
	assert.Equal(t, []string{"interrupted"}, observer.reasons)
}

func TestService_FailureBeforeFirstDelta(t *testing.T) {
	streamer := &scriptedStreamer{err: ErrRateLimited}
	store := NewMemoryStore(50)
	observer := &reasonRecorder{}
	svc := NewService(streamer, store, logging.Discard(), WithFailureObserver(observer))

	_, err := svc.Send(context.Background(), "user-1", "conv-1", "hello", nil)
	require.ErrorIs(t, err, ErrRateLimited)

	history, err := svc.History(context.Background(), "user-1", "conv-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, []string{"rate_limited"}, observer.reasons)
}

func TestService_ValidatesInput(t *testing.T) {
	svc := NewService(&scriptedStreamer{}, nil, logging.Discard())
	ctx := context.Background()

	_, err := svc.Send(ctx, "", "c", "hi", nil)
	assert.ErrorIs(t, err, ErrMissingUser)
	_, err = svc.Send(ctx, "u", "c", "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = svc.Send(ctx, "u", "", "hi", nil)
	assert.Error(t, err)
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "upstream", FailureReason(ErrUpstream))
	assert.Equal(t, "canceled", FailureReason(context.Canceled))
	assert.Equal(t, "internal", FailureReason(assert.AnError))
}
