package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/carehub/internal/notify"
	"github.com/wolfman30/carehub/pkg/logging"
)

var (
	ErrEmptyMessage = errors.New("chat: message required")
	ErrMissingUser  = errors.New("chat: user id required")
)

// FailureObserver is told why a stream failed.
type FailureObserver interface {
	ChatStreamFailed(reason string)
}

// Service runs one conversational turn: it records the user's message,
// streams the reply, and keeps the transcript consistent when the stream
// breaks.
type Service struct {
	streamer     Streamer
	store        TranscriptStore
	notifier     notify.Notifier
	observer     FailureObserver
	logger       *logging.Logger
	historyLimit int64
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithNotifier(n notify.Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

func WithFailureObserver(o FailureObserver) ServiceOption {
	return func(s *Service) { s.observer = o }
}

// WithHistoryLimit caps how many past messages are sent upstream.
func WithHistoryLimit(n int64) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

func NewService(streamer Streamer, store TranscriptStore, logger *logging.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if store == nil {
		store = NewMemoryStore(defaultMaxMessages)
	}
	s := &Service{
		streamer:     streamer,
		store:        store,
		logger:       logger,
		historyLimit: 40,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func conversationKey(userID, conversationID string) string {
	return userID + ":" + conversationID
}

// Send records content as the user's turn and streams the assistant reply to
// onDelta. The reply is written to the transcript as soon as its first delta
// arrives and replaced with the full text on completion. If the stream fails
// the partial reply is rolled back and the user is notified.
func (s *Service) Send(ctx context.Context, userID, conversationID, content string, onDelta func(string) error) (Message, error) {
	userID = strings.TrimSpace(userID)
	content = strings.TrimSpace(content)
	switch {
	case userID == "":
		return Message{}, ErrMissingUser
	case conversationID == "":
		return Message{}, errConversationRequired
	case content == "":
		return Message{}, ErrEmptyMessage
	}
	key := conversationKey(userID, conversationID)

	if err := s.store.Append(ctx, key, Message{Role: RoleUser, Content: content}); err != nil {
		return Message{}, err
	}
	history, err := s.store.List(ctx, key, s.historyLimit)
	if err != nil {
		return Message{}, err
	}

	started := false
	var partial strings.Builder
	reply, err := s.streamer.Stream(ctx, history, func(delta string) error {
		partial.WriteString(delta)
		if !started {
			if err := s.store.Append(ctx, key, Message{Role: RoleAssistant, Content: partial.String()}); err != nil {
				return err
			}
			started = true
		}
		if onDelta != nil {
			return onDelta(delta)
		}
		return nil
	})
	if err != nil {
		s.fail(ctx, userID, key, started, err)
		return Message{}, err
	}

	final := Message{Role: RoleAssistant, Content: reply}
	if started {
		err = s.store.ReplaceLast(ctx, key, final)
	} else {
		err = s.store.Append(ctx, key, final)
	}
	if err != nil {
		return Message{}, fmt.Errorf("chat: save reply: %w", err)
	}
	return final, nil
}

// History returns the stored transcript of a user's conversation.
func (s *Service) History(ctx context.Context, userID, conversationID string) ([]Message, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}
	return s.store.List(ctx, conversationKey(userID, conversationID), 0)
}

func (s *Service) fail(ctx context.Context, userID, key string, started bool, cause error) {
	reason := FailureReason(cause)
	s.logger.Warn("chat stream failed", "user_id", userID, "reason", reason, "error", cause)
	if s.observer != nil {
		s.observer.ChatStreamFailed(reason)
	}
	if started {
		// The request context may already be gone; the rollback must still land.
		if _, err := s.store.RollbackLastAssistant(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Error("chat rollback failed", "user_id", userID, "error", err)
		}
	}
	if s.notifier != nil {
		n := notify.Failure("Assistant unavailable", userMessage(cause))
		if err := s.notifier.Push(context.WithoutCancel(ctx), userID, n); err != nil {
			s.logger.Warn("chat failure notification not stored", "user_id", userID, "error", err)
		}
	}
}

// FailureReason maps a stream error to a short label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrCreditsExhausted):
		return "credits_exhausted"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrInterrupted):
		return "interrupted"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "Too many requests. Please wait a moment and try again."
	case errors.Is(err, ErrCreditsExhausted):
		return "The assistant is temporarily unavailable."
	default:
		return "The assistant connection was lost. Please try again."
	}
}
