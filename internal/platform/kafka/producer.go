// Package kafka wraps franz-go for the outbox publisher and the catalog
// notification consumer.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"zac/internal/platform/outbox"
)

const (
	HeaderEventType     = "event_type"
	HeaderMessageID     = "message_id"
	HeaderAggregateType = "aggregate_type"
)

// Producer publishes outbox messages to one topic, keyed by aggregate id so
// events of one case stay ordered.
type Producer struct {
	client *kgo.Client
	topic  string
}

func NewProducer(brokers []string, topic string, opts ...kgo.Opt) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.AllowAutoTopicCreation(),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{client: client, topic: topic}, nil
}

// Publish sends the batch and waits for every record to be acknowledged.
func (p *Producer) Publish(ctx context.Context, msgs []outbox.Message) error {
	records := make([]*kgo.Record, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(m.AggregateID),
			Value: m.Payload,
			Headers: []kgo.RecordHeader{
				{Key: HeaderEventType, Value: []byte(m.EventType)},
				{Key: HeaderMessageID, Value: []byte(m.ID.String())},
				{Key: HeaderAggregateType, Value: []byte(m.AggregateType)},
			},
			Timestamp: m.CreatedAt,
		})
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", p.topic, err)
	}
	return nil
}

func (p *Producer) Close() {
	p.client.Close()
}

// Header returns the value of header key, or "".
func Header(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
