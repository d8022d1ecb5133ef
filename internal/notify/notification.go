package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Kind controls how the front-end renders a notification.
type Kind string

const (
	KindError   Kind = "error"
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
)

// Notification is a transient, user-visible message (a toast).
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Failure builds an error notification.
func Failure(title, message string) Notification {
	return Notification{Kind: KindError, Title: title, Message: message}
}

// Success builds a success notification.
func Success(title, message string) Notification {
	return Notification{Kind: KindSuccess, Title: title, Message: message}
}

// Notifier pushes notifications to a user.
type Notifier interface {
	Push(ctx context.Context, userID string, n Notification) error
}

var errMissingUser = errors.New("notify: user id required")

const (
	notificationKeyPrefix = "notifications:"
	maxPending            = 50
)

// RedisStore keeps pending notifications per user in a Redis list.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
	now    func() time.Time
}

// NewRedisStore returns nil without a client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("carehub.internal.notify"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *RedisStore) Push(ctx context.Context, userID string, n Notification) error {
	if userID == "" {
		return errMissingUser
	}
	n = stamp(n, s.now)
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notify: marshal notification: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "notify.push")
	defer span.End()

	key := notificationKeyPrefix + userID
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -maxPending, -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("notify: push notification: %w", err)
	}
	return nil
}

// Drain returns and removes a user's pending notifications, oldest first.
func (s *RedisStore) Drain(ctx context.Context, userID string) ([]Notification, error) {
	if userID == "" {
		return nil, errMissingUser
	}

	ctx, span := s.tracer.Start(ctx, "notify.drain")
	defer span.End()

	key := notificationKeyPrefix + userID
	pipe := s.redis.TxPipeline()
	rangeCmd := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		span.RecordError(err)
		return nil, fmt.Errorf("notify: drain notifications: %w", err)
	}

	raw := rangeCmd.Val()
	out := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// MemoryStore is the in-process fallback used when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	pending map[string][]Notification
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pending: make(map[string][]Notification),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Push(_ context.Context, userID string, n Notification) error {
	if userID == "" {
		return errMissingUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.pending[userID], stamp(n, s.now))
	if len(list) > maxPending {
		list = list[len(list)-maxPending:]
	}
	s.pending[userID] = list
	return nil
}

func (s *MemoryStore) Drain(_ context.Context, userID string) ([]Notification, error) {
	if userID == "" {
		return nil, errMissingUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending[userID]
	delete(s.pending, userID)
	if out == nil {
		out = []Notification{}
	}
	return out, nil
}

func stamp(n Notification, now func() time.Time) Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}
	if n.Kind == "" {
		n.Kind = KindInfo
	}
	return n
}

var (
	_ Notifier = (*RedisStore)(nil)
	_ Notifier = (*MemoryStore)(nil)
)
