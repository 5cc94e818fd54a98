package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

// Worker drains the outbox into a Publisher.
type Worker struct {
	store     Store
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

type WorkerOption func(*Worker)

func WithInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func NewWorker(store Store, publisher Publisher, opts ...WorkerOption) (*Worker, error) {
	if store == nil {
		return nil, errors.New("outbox store is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	w := &Worker{
		store:     store,
		publisher: publisher,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run drains the outbox every interval until ctx is done. A full batch is
// followed immediately by the next one.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		for {
			n, err := w.RunOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.WarnContext(ctx, "outbox publish failed", "error", err)
				break
			}
			if n < w.batchSize {
				break
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce publishes one batch and returns how many messages it published.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	n, err := w.store.ProcessBatch(ctx, w.batchSize, w.publisher.Publish)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		w.logger.DebugContext(ctx, "outbox batch published", "count", n)
	}
	return n, nil
}
