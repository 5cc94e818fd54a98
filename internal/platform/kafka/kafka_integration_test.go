//go:build integration

package kafka_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"zac/internal/platform/kafka"
	"zac/internal/platform/outbox"
	"zac/pkg/testutil/containers"
)

type KafkaSuite struct {
	suite.Suite
	brokers []string
}

func TestKafkaSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSuite))
}

func (s *KafkaSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
}

func (s *KafkaSuite) TestEnsureTopicsIsRepeatable() {
	ctx := context.Background()
	s.Require().NoError(kafka.EnsureTopics(ctx, s.brokers, 1, 1, "zaak.events.ensure"))
	s.Require().NoError(kafka.EnsureTopics(ctx, s.brokers, 1, 1, "zaak.events.ensure"))
}

func (s *KafkaSuite) TestOutboxRoundTrip() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	const topic = "zaak.events.roundtrip"
	s.Require().NoError(kafka.EnsureTopics(ctx, s.brokers, 1, 1, topic))

	producer, err := kafka.NewProducer(s.brokers, topic)
	s.Require().NoError(err)
	defer producer.Close()

	store := outbox.NewInMemory()
	msg, err := outbox.NewMessage("case", "case-1", "case_updated", map[string]string{"status": "SUSPENDED"}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(store.Append(ctx, msg))

	worker, err := outbox.NewWorker(store, producer, outbox.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	n, err := worker.RunOnce(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	consumer, err := kafka.NewConsumer(s.brokers, "zac-test", []string{topic})
	s.Require().NoError(err)
	defer consumer.Close()

	var once sync.Once
	got := make(chan *kgo.Record, 1)
	go func() {
		_ = consumer.Run(ctx, func(_ context.Context, r *kgo.Record) error {
			once.Do(func() { got <- r })
			return nil
		})
	}()

	select {
	case r := <-got:
		s.Equal("case-1", string(r.Key))
		s.Equal("case_updated", kafka.Header(r, kafka.HeaderEventType))
		s.Equal(msg.ID.String(), kafka.Header(r, kafka.HeaderMessageID))
		s.JSONEq(`{"status":"SUSPENDED"}`, string(r.Value))
	case <-ctx.Done():
		s.Fail("no record consumed")
	}
}
