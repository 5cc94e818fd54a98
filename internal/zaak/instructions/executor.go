package instructions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zac/internal/zaak/metrics"
	"zac/internal/zaak/models"
	id "zac/pkg/domain"
)

// ErrUnknownInstruction is returned for an instruction kind no executor
// handles. Retrying it cannot help.
var ErrUnknownInstruction = errors.New("unknown instruction kind")

// TaskDueDateShifter moves the due date of a human task.
type TaskDueDateShifter interface {
	ShiftDueDate(ctx context.Context, caseID id.CaseID, taskID string, days int) error
}

// SearchIndexer refreshes the search index entry of a case.
type SearchIndexer interface {
	Reindex(ctx context.Context, caseID id.CaseID) error
}

// CaseRegistry is the external case registry.
type CaseRegistry interface {
	PersistCase(ctx context.Context, caseID id.CaseID, reason string) error
	NotifyParent(ctx context.Context, parentID id.CaseID, reason string) error
	SetInitiator(ctx context.Context, caseID id.CaseID, role models.InitiatorRole) error
}

// Executor routes an instruction to the collaborator that performs it.
type Executor struct {
	tasks    TaskDueDateShifter
	index    SearchIndexer
	registry CaseRegistry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type ExecutorOption func(*Executor)

func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

func WithExecutorMetrics(m *metrics.Metrics) ExecutorOption {
	return func(e *Executor) {
		e.metrics = m
	}
}

func NewExecutor(tasks TaskDueDateShifter, index SearchIndexer, registry CaseRegistry, opts ...ExecutorOption) (*Executor, error) {
	if tasks == nil {
		return nil, errors.New("task due date shifter is required")
	}
	if index == nil {
		return nil, errors.New("search indexer is required")
	}
	if registry == nil {
		return nil, errors.New("case registry is required")
	}
	e := &Executor{
		tasks:    tasks,
		index:    index,
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Execute performs one instruction.
func (e *Executor) Execute(ctx context.Context, in models.Instruction) error {
	err := e.execute(ctx, in)
	if err != nil {
		e.metrics.IncrementInstruction(string(in.Kind), "failed")
		return err
	}
	e.metrics.IncrementInstruction(string(in.Kind), "executed")
	return nil
}

func (e *Executor) execute(ctx context.Context, in models.Instruction) error {
	switch in.Kind {
	case models.InstructionPersistCase:
		return e.registry.PersistCase(ctx, in.CaseID, in.Reason)
	case models.InstructionShiftTaskDueDate:
		if in.TaskID == "" {
			return fmt.Errorf("%w: %s without task id", ErrUnknownInstruction, in.Kind)
		}
		return e.tasks.ShiftDueDate(ctx, in.CaseID, in.TaskID, in.Days)
	case models.InstructionReindexCase:
		return e.index.Reindex(ctx, in.CaseID)
	case models.InstructionNotifyParent:
		return e.registry.NotifyParent(ctx, in.CaseID, in.Reason)
	case models.InstructionSetInitiator:
		if in.Initiator == nil {
			return fmt.Errorf("%w: %s without initiator", ErrUnknownInstruction, in.Kind)
		}
		return e.registry.SetInitiator(ctx, in.CaseID, *in.Initiator)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownInstruction, in.Kind)
	}
}

// Logging stands in for every collaborator by logging the calls it gets.
// It is wired when no registry is configured.
type Logging struct {
	Logger *slog.Logger
}

func (l Logging) log(ctx context.Context, msg string, args ...any) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, msg, args...)
	return nil
}

func (l Logging) ShiftDueDate(ctx context.Context, caseID id.CaseID, taskID string, days int) error {
	return l.log(ctx, "shift task due date", "case_id", caseID, "task_id", taskID, "days", days)
}

func (l Logging) Reindex(ctx context.Context, caseID id.CaseID) error {
	return l.log(ctx, "reindex case", "case_id", caseID)
}

func (l Logging) PersistCase(ctx context.Context, caseID id.CaseID, reason string) error {
	return l.log(ctx, "persist case", "case_id", caseID, "reason", reason)
}

func (l Logging) NotifyParent(ctx context.Context, parentID id.CaseID, reason string) error {
	return l.log(ctx, "notify parent", "case_id", parentID, "reason", reason)
}

func (l Logging) SetInitiator(ctx context.Context, caseID id.CaseID, role models.InitiatorRole) error {
	return l.log(ctx, "set initiator", "case_id", caseID, "initiator_type", role.Type)
}
