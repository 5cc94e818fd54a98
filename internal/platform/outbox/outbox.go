// Package outbox implements the transactional outbox: messages are written in
// the same transaction as the state change they describe and published later
// by a Worker, at least once.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Message is one outbox entry.
type Message struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       json.RawMessage
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

// NewMessage encodes payload into a new outbox message.
func NewMessage(aggregateType, aggregateID, eventType string, payload any, now time.Time) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal outbox payload: %w", err)
	}
	return Message{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       raw,
		CreatedAt:     now,
	}, nil
}

// Writer appends messages. Implementations join the transaction carried by ctx.
type Writer interface {
	Append(ctx context.Context, msgs ...Message) error
}

// Store hands pending messages to fn in creation order and marks them
// processed when fn succeeds. A failing fn leaves the batch pending.
type Store interface {
	ProcessBatch(ctx context.Context, limit int, fn func(ctx context.Context, msgs []Message) error) (int, error)
}

// Publisher delivers a batch of messages to the broker.
type Publisher interface {
	Publish(ctx context.Context, msgs []Message) error
}

// LogPublisher logs messages instead of delivering them. It is used when no
// broker is configured so the outbox still drains.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, msgs []Message) error {
	for _, m := range msgs {
		p.Logger.InfoContext(ctx, "outbox message",
			"event_type", m.EventType,
			"aggregate_type", m.AggregateType,
			"aggregate_id", m.AggregateID,
			"message_id", m.ID,
		)
	}
	return nil
}
