// Package reconcile runs the configuration reconcile sweep on a cron schedule.
// It catches catalog notifications that were lost or failed.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	rcron "github.com/robfig/cron/v3"
)

const defaultTimeout = 5 * time.Minute

// Reconciler re-processes every published case-type version.
type Reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// Scheduler triggers Reconcile on spec. Overlapping runs are skipped.
type Scheduler struct {
	reconciler Reconciler
	spec       string
	timeout    time.Duration
	runOnStart bool
	logger     *slog.Logger
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithTimeout bounds a single sweep.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRunOnStart sweeps once as soon as Run is called.
func WithRunOnStart() Option {
	return func(s *Scheduler) {
		s.runOnStart = true
	}
}

// New validates spec, which accepts standard five-field expressions and
// descriptors such as "@every 1h".
func New(reconciler Reconciler, spec string, opts ...Option) (*Scheduler, error) {
	if reconciler == nil {
		return nil, errors.New("reconciler is required")
	}
	if _, err := rcron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", spec, err)
	}
	s := &Scheduler{
		reconciler: reconciler,
		spec:       spec,
		timeout:    defaultTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run schedules sweeps until ctx is done, then waits for a running sweep to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	schedule, err := rcron.ParseStandard(s.spec)
	if err != nil {
		return fmt.Errorf("schedule reconcile: %w", err)
	}
	logger := cronLogger{logger: s.logger}
	// One wrapped job serves both schedules so a start-up sweep and the
	// first tick never overlap.
	job := rcron.NewChain(rcron.Recover(logger), rcron.SkipIfStillRunning(logger)).
		Then(rcron.FuncJob(func() { s.RunOnce(ctx) }))

	c := rcron.New(rcron.WithLogger(logger))
	c.Schedule(schedule, job)
	if s.runOnStart {
		c.Schedule(&once{}, job)
	}

	c.Start()
	s.logger.InfoContext(ctx, "configuration reconcile scheduled", "spec", s.spec)
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// RunOnce performs one sweep and logs its result.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	processed, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "configuration reconcile finished with errors",
			"processed", processed,
			"duration", time.Since(start),
			"error", err,
		)
		return
	}
	s.logger.InfoContext(ctx, "configuration reconcile finished",
		"processed", processed,
		"duration", time.Since(start),
	)
}

// once fires a single time, immediately.
type once struct {
	fired bool
}

func (o *once) Next(now time.Time) time.Time {
	if o.fired {
		return time.Time{}
	}
	o.fired = true
	return now
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
