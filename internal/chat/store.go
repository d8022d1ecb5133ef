package chat

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

const (
	transcriptKeyPrefix  = "chat_transcript:"
	defaultTranscriptTTL = 24 * time.Hour
	defaultMaxMessages   = 100
)

var errConversationRequired = errors.New("chat: conversation id required")

// TranscriptStore keeps the ordered messages of a conversation.
type TranscriptStore interface {
	Append(ctx context.Context, conversationID string, msg Message) error
	ReplaceLast(ctx context.Context, conversationID string, msg Message) error
	RollbackLastAssistant(ctx context.Context, conversationID string) (bool, error)
	List(ctx context.Context, conversationID string, limit int64) ([]Message, error)
}

// RedisStore keeps transcripts as capped Redis lists.
type RedisStore struct {
	redis       *redis.Client
	tracer      trace.Tracer
	ttl         time.Duration
	maxMessages int64
}

// NewRedisStore returns nil when no client is configured.
func NewRedisStore(client *redis.Client, maxMessages int64, ttl time.Duration) *RedisStore {
	if client == nil {
		return nil
	}
	if maxMessages <= 0 {
		maxMessages = defaultMaxMessages
	}
	if ttl <= 0 {
		ttl = defaultTranscriptTTL
	}
	return &RedisStore{
		redis:       client,
		tracer:      otel.Tracer("carehub.internal.chat.transcript"),
		ttl:         ttl,
		maxMessages: maxMessages,
	}
}

func transcriptKey(conversationID string) string {
	return transcriptKeyPrefix + conversationID
}

func stamp(msg Message) Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return msg
}

func (s *RedisStore) Append(ctx context.Context, conversationID string, msg Message) error {
	if conversationID == "" {
		return errConversationRequired
	}
	data, err := json.Marshal(stamp(msg))
	if err != nil {
		return fmt.Errorf("chat: marshal transcript message: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "chat.transcript.append")
	defer span.End()

	key := transcriptKey(conversationID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, s.ttl)
	pipe.LTrim(ctx, key, -s.maxMessages, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: append transcript message: %w", err)
	}
	return nil
}

// ReplaceLast overwrites the newest message, used to grow the assistant
// reply while it streams.
func (s *RedisStore) ReplaceLast(ctx context.Context, conversationID string, msg Message) error {
	if conversationID == "" {
		return errConversationRequired
	}
	data, err := json.Marshal(stamp(msg))
	if err != nil {
		return fmt.Errorf("chat: marshal transcript message: %w", err)
	}
	ctx, span := s.tracer.Start(ctx, "chat.transcript.replace_last")
	defer span.End()

	if err := s.redis.LSet(ctx, transcriptKey(conversationID), -1, data).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: replace transcript message: %w", err)
	}
	return nil
}

// RollbackLastAssistant removes the newest message if the assistant wrote it.
// The check and the removal run inside a WATCH so a concurrent append is
// never dropped.
func (s *RedisStore) RollbackLastAssistant(ctx context.Context, conversationID string) (bool, error) {
	if conversationID == "" {
		return false, errConversationRequired
	}
	ctx, span := s.tracer.Start(ctx, "chat.transcript.rollback")
	defer span.End()

	key := transcriptKey(conversationID)
	removed := false
	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.LIndex(ctx, key, -1).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var last Message
		if err := json.Unmarshal([]byte(raw), &last); err != nil || last.Role != RoleAssistant {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPop(ctx, key)
			return nil
		})
		if err == nil {
			removed = true
		}
		return err
	}, key)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("chat: rollback transcript: %w", err)
	}
	return removed, nil
}

func (s *RedisStore) List(ctx context.Context, conversationID string, limit int64) ([]Message, error) {
	if conversationID == "" {
		return nil, errConversationRequired
	}
	ctx, span := s.tracer.Start(ctx, "chat.transcript.list")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := s.redis.LRange(ctx, transcriptKey(conversationID), start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("chat: list transcript: %w", err)
	}
	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// MemoryStore is the in-process fallback when Redis is not configured.
type MemoryStore struct {
	mu          sync.Mutex
	maxMessages int
	byID        map[string][]Message
}

func NewMemoryStore(maxMessages int) *MemoryStore {
	if maxMessages <= 0 {
		maxMessages = defaultMaxMessages
	}
	return &MemoryStore{maxMessages: maxMessages, byID: make(map[string][]Message)}
}

func (s *MemoryStore) Append(_ context.Context, conversationID string, msg Message) error {
	if conversationID == "" {
		return errConversationRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.byID[conversationID], stamp(msg))
	if len(list) > s.maxMessages {
		list = list[len(list)-s.maxMessages:]
	}
	s.byID[conversationID] = list
	return nil
}

func (s *MemoryStore) ReplaceLast(_ context.Context, conversationID string, msg Message) error {
	if conversationID == "" {
		return errConversationRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byID[conversationID]
	if len(list) == 0 {
		return fmt.Errorf("chat: replace transcript message: empty conversation")
	}
	list[len(list)-1] = stamp(msg)
	return nil
}

func (s *MemoryStore) RollbackLastAssistant(_ context.Context, conversationID string) (bool, error) {
	if conversationID == "" {
		return false, errConversationRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byID[conversationID]
	if len(list) == 0 || list[len(list)-1].Role != RoleAssistant {
		return false, nil
	}
	s.byID[conversationID] = list[:len(list)-1]
	return true, nil
}

func (s *MemoryStore) List(_ context.Context, conversationID string, limit int64) ([]Message, error) {
	if conversationID == "" {
		return nil, errConversationRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byID[conversationID]
	if limit > 0 && int64(len(list)) > limit {
		list = list[int64(len(list))-limit:]
	}
	return append([]Message(nil), list...), nil
}
