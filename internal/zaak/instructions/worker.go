package instructions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

const defaultConcurrency = 10

// Worker consumes the instruction queue.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	executor *Executor
	logger   *slog.Logger
}

// WorkerConfig sizes the worker.
type WorkerConfig struct {
	Queue       string
	Concurrency int
}

func NewWorker(opt asynq.RedisConnOpt, cfg WorkerConfig, executor *Executor, logger *slog.Logger) (*Worker, error) {
	if executor == nil {
		return nil, errors.New("executor is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	queue := cfg.Queue
	if queue == "" {
		queue = defaultQueue
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	w := &Worker{
		server: asynq.NewServer(opt, asynq.Config{
			Concurrency: concurrency,
			Queues:      map[string]int{queue: 1},
			Logger:      slogAdapter{logger},
		}),
		mux:      asynq.NewServeMux(),
		executor: executor,
		logger:   logger,
	}
	for _, kind := range kinds {
		w.mux.HandleFunc(TaskType(kind), w.ProcessTask)
	}
	return w, nil
}

// ProcessTask executes one queued instruction. Malformed tasks are not
// retried.
func (w *Worker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	in, err := ParseTask(task)
	if err != nil {
		w.logger.ErrorContext(ctx, "dropping malformed instruction task", "type", task.Type(), "error", err)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if err := w.executor.Execute(ctx, in); err != nil {
		if errors.Is(err, ErrUnknownInstruction) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		w.logger.WarnContext(ctx, "instruction failed; will retry",
			"kind", in.Kind,
			"case_id", in.CaseID,
			"error", err,
		)
		return err
	}
	return nil
}

// Run processes tasks until ctx is cancelled, then waits for in-flight
// tasks to finish.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start instruction worker: %w", err)
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}

// slogAdapter routes asynq's own logging through slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Debug(args ...any) { a.logger.Debug(fmt.Sprint(args...)) }
func (a slogAdapter) Info(args ...any)  { a.logger.Info(fmt.Sprint(args...)) }
func (a slogAdapter) Warn(args ...any)  { a.logger.Warn(fmt.Sprint(args...)) }
func (a slogAdapter) Error(args ...any) { a.logger.Error(fmt.Sprint(args...)) }
func (a slogAdapter) Fatal(args ...any) { a.logger.Error(fmt.Sprint(args...)) }
