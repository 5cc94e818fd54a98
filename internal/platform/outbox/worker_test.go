package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]Message
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, msgs []Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, msgs)
	return nil
}

func (p *recordingPublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func appendMessages(t *testing.T, store *InMemory, n int) {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		m, err := NewMessage("case", "c1", "case_updated", map[string]int{"seq": i}, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.NoError(t, store.Append(context.Background(), m))
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorker_RunOncePublishesInOrder(t *testing.T) {
	store := NewInMemory()
	appendMessages(t, store, 3)
	pub := &recordingPublisher{}
	w, err := NewWorker(store, pub, WithBatchSize(2), WithLogger(quietLogger()))
	require.NoError(t, err)

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.Pending(), 1)
	assert.JSONEq(t, `{"seq":0}`, string(pub.batches[0][0].Payload))

	n, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, store.Pending())

	n, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWorker_FailedPublishKeepsBatchPending(t *testing.T) {
	store := NewInMemory()
	appendMessages(t, store, 2)
	pub := &recordingPublisher{err: errors.New("broker down")}
	w, err := NewWorker(store, pub, WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = w.RunOnce(context.Background())
	require.Error(t, err)
	assert.Len(t, store.Pending(), 2)

	pub.err = nil
	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWorker_RunDrainsUntilCancelled(t *testing.T) {
	store := NewInMemory()
	appendMessages(t, store, 5)
	pub := &recordingPublisher{}
	w, err := NewWorker(store, pub, WithBatchSize(2), WithInterval(5*time.Millisecond), WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return pub.published() == 5 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestNewWorker_RequiresDependencies(t *testing.T) {
	_, err := NewWorker(nil, &recordingPublisher{})
	assert.Error(t, err)
	_, err = NewWorker(NewInMemory(), nil)
	assert.Error(t, err)
}

func TestLogPublisherDrainsTheOutbox(t *testing.T) {
	store := NewInMemory()
	msg, err := NewMessage("case", "c-1", "case_updated", map[string]string{"status": "OPEN"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), msg))

	w, err := NewWorker(store, LogPublisher{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, store.Pending())
}
