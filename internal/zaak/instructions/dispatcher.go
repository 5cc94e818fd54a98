package instructions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"zac/internal/zaak/models"
)

const (
	defaultQueue    = "default"
	defaultMaxRetry = 8
)

// Enqueuer is the part of asynq.Client the Dispatcher uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher enqueues instructions as asynq tasks.
type Dispatcher struct {
	client   Enqueuer
	queue    string
	maxRetry int
	logger   *slog.Logger
}

type DispatcherOption func(*Dispatcher)

func WithQueue(queue string) DispatcherOption {
	return func(d *Dispatcher) {
		if queue != "" {
			d.queue = queue
		}
	}
}

func WithMaxRetry(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n >= 0 {
			d.maxRetry = n
		}
	}
}

func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func NewDispatcher(client Enqueuer, opts ...DispatcherOption) (*Dispatcher, error) {
	if client == nil {
		return nil, errors.New("asynq client is required")
	}
	d := &Dispatcher{
		client:   client,
		queue:    defaultQueue,
		maxRetry: defaultMaxRetry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch enqueues every instruction as its own task. A failed enqueue does
// not stop the others; the failures are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, instructions []models.Instruction) error {
	var errs []error
	for _, in := range instructions {
		task, err := NewTask(in)
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s: %w", in.Kind, err))
			continue
		}
		info, err := d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue), asynq.MaxRetry(d.maxRetry))
		if err != nil {
			errs = append(errs, fmt.Errorf("enqueue %s for case %s: %w", in.Kind, in.CaseID, err))
			continue
		}
		d.logger.DebugContext(ctx, "instruction enqueued",
			"kind", in.Kind,
			"case_id", in.CaseID,
			"task_id", info.ID,
		)
	}
	return errors.Join(errs...)
}

// RedisConnOpt builds the asynq connection options from a redis URL.
func RedisConnOpt(redisURL string) (asynq.RedisClientOpt, error) {
	if redisURL == "" {
		return asynq.RedisClientOpt{}, errors.New("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

// Inline runs instructions in-process, one after another. Each instruction
// is attempted even when an earlier one failed.
type Inline struct {
	executor *Executor
	logger   *slog.Logger
}

func NewInline(executor *Executor, logger *slog.Logger) *Inline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inline{executor: executor, logger: logger}
}

func (d *Inline) Dispatch(ctx context.Context, instructions []models.Instruction) error {
	var errs []error
	for _, in := range instructions {
		if err := d.executor.Execute(ctx, in); err != nil {
			d.logger.WarnContext(ctx, "instruction failed", "kind", in.Kind, "case_id", in.CaseID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
