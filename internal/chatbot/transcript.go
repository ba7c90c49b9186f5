package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const transcriptKeyPrefix = "chatbot_transcript:"

// Transcript roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	defaultTranscriptTTL         = 72 * time.Hour
	defaultTranscriptMaxMessages = 200
)

var errTranscriptScope = errors.New("chatbot: transcript tenant and subject required")

// TranscriptMessage is one stored turn of a chatbot conversation.
type TranscriptMessage struct {
	ID         string     `json:"id"`
	Role       string     `json:"role"`
	Text       string     `json:"text"`
	IntentType ResultType `json:"intentType,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// TranscriptStore keeps recent conversation turns per tenant and subject in
// Redis lists.
type TranscriptStore struct {
	redis       *redis.Client
	tracer      trace.Tracer
	ttl         time.Duration
	maxMessages int64
}

// NewTranscriptStore returns nil when redisClient is nil; a nil store drops
// writes and reads back nothing.
func NewTranscriptStore(redisClient *redis.Client, ttl time.Duration, maxMessages int) *TranscriptStore {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultTranscriptTTL
	}
	if maxMessages <= 0 {
		maxMessages = defaultTranscriptMaxMessages
	}
	return &TranscriptStore{
		redis:       redisClient,
		tracer:      otel.Tracer("orderdesk.internal.chatbot.transcript"),
		ttl:         ttl,
		maxMessages: int64(maxMessages),
	}
}

// Append stores msgs in order, then refreshes the TTL and trims the list.
func (s *TranscriptStore) Append(ctx context.Context, tenantID, subject string, msgs ...TranscriptMessage) error {
	if s == nil || s.redis == nil || len(msgs) == 0 {
		return nil
	}
	if tenantID == "" || subject == "" {
		return errTranscriptScope
	}

	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now().UTC()
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("chatbot: marshal transcript message: %w", err)
		}
		values = append(values, data)
	}

	ctx, span := s.tracer.Start(ctx, "chatbot.transcript.append")
	defer span.End()

	key := transcriptKey(tenantID, subject)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.Expire(ctx, key, s.ttl)
	pipe.LTrim(ctx, key, -s.maxMessages, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chatbot: append transcript: %w", err)
	}
	return nil
}

// List returns the last limit messages, oldest first. A limit <= 0 returns
// everything kept.
func (s *TranscriptStore) List(ctx context.Context, tenantID, subject string, limit int64) ([]TranscriptMessage, error) {
	if s == nil || s.redis == nil {
		return []TranscriptMessage{}, nil
	}
	if tenantID == "" || subject == "" {
		return nil, errTranscriptScope
	}

	ctx, span := s.tracer.Start(ctx, "chatbot.transcript.list")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := s.redis.LRange(ctx, transcriptKey(tenantID, subject), start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []TranscriptMessage{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("chatbot: list transcript: %w", err)
	}

	out := make([]TranscriptMessage, 0, len(raw))
	for _, item := range raw {
		var msg TranscriptMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func transcriptKey(tenantID, subject string) string {
	return transcriptKeyPrefix + tenantID + ":" + subject
}
