// Package lifecycle is the case state machine.
//
// The Manager never mutates the case it is given: it validates the request
// against the case's status and the caller's permission verdict, then returns
// an Outcome holding a modified copy plus the follow-up instructions and
// events. Persisting the copy and executing the instructions is up to the
// caller.
package lifecycle

import (
	"context"
	"log/slog"

	cfgmodels "zac/internal/configuration/models"
	"zac/internal/zaak/models"
	"zac/internal/zaak/suspension"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/requestcontext"
)

// Manager runs lifecycle transitions.
type Manager struct {
	logger *slog.Logger
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func New(opts ...Option) *Manager {
	m := &Manager{logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ExtendRequest describes an extension of the completion deadline.
type ExtendRequest struct {
	ExtraDays      int
	CascadeToTasks bool
	// OpenTasks is the case's open task list; only read when cascading.
	OpenTasks []models.Task
	Reason    string
}

// TerminateRequest describes an early termination.
type TerminateRequest struct {
	EndingReasonID string
	Reason         string
	// HasDecision is true when a decision record is attached to the case.
	HasDecision   bool
	Configuration *cfgmodels.Configuration
}

// Suspend puts an open case on hold. A positive expectedDays moves the
// completion dates forward right away; Resume corrects for the actual
// duration.
func (m *Manager) Suspend(ctx context.Context, c *models.Case, mayMutate bool, reason string, expectedDays int) (*models.Outcome, error) {
	next, to, err := m.begin(c, mayMutate, OpSuspend)
	if err != nil {
		return nil, err
	}
	if expectedDays < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "expected suspension days cannot be negative")
	}
	now := requestcontext.Now(ctx)

	start := suspension.Begin(now)
	next.Status = to
	next.SuspensionStart = &start
	next.SuspensionExpectedDays = expectedDays
	if expectedDays > 0 {
		applyDates(next, suspension.ShiftForExtension(datesOf(next), expectedDays))
	}
	return m.finish(ctx, c, next, OpSuspend, reason), nil
}

// Resume reopens a suspended case and books the elapsed whole days.
func (m *Manager) Resume(ctx context.Context, c *models.Case, mayMutate bool, reason string) (*models.Outcome, error) {
	next, to, err := m.begin(c, mayMutate, OpResume)
	if err != nil {
		return nil, err
	}
	if next.SuspensionStart == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "suspended case has no suspension start")
	}
	now := requestcontext.Now(ctx)

	elapsed := suspension.End(*next.SuspensionStart, now)
	next.CumulativeSuspendedDays += elapsed
	if correction := elapsed - next.SuspensionExpectedDays; correction != 0 {
		applyDates(next, suspension.ShiftDates(datesOf(next), correction))
	}
	next.SuspensionStart = nil
	next.SuspensionExpectedDays = 0
	next.Status = to
	return m.finish(ctx, c, next, OpResume, reason), nil
}

// Extend moves the completion dates forward and, when asked, every open
// task's due date by the same number of days.
func (m *Manager) Extend(ctx context.Context, c *models.Case, mayMutate bool, req ExtendRequest) (*models.Outcome, error) {
	next, _, err := m.begin(c, mayMutate, OpExtend)
	if err != nil {
		return nil, err
	}
	if next.Reopened {
		return nil, dErrors.New(dErrors.CodeExtensionNotAllowed, "a reopened case cannot be extended")
	}
	if req.ExtraDays <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "extension must be at least one day")
	}
	now := requestcontext.Now(ctx)

	applyDates(next, suspension.ShiftForExtension(datesOf(next), req.ExtraDays))
	out := m.finish(ctx, c, next, OpExtend, req.Reason)
	if !req.CascadeToTasks {
		return out, nil
	}

	shifted := 0
	for _, task := range req.OpenTasks {
		if task.DueDate == nil {
			continue
		}
		out.Instructions = append(out.Instructions, models.Instruction{
			Kind:   models.InstructionShiftTaskDueDate,
			CaseID: next.ID,
			TaskID: task.ID,
			Days:   req.ExtraDays,
			Reason: req.Reason,
		})
		out.Events = append(out.Events, models.Event{
			Type:       models.EventTaskUpdated,
			CaseID:     next.ID,
			TaskID:     task.ID,
			OccurredAt: now,
		})
		shifted++
	}
	if shifted > 0 {
		out.Events = append(out.Events, models.Event{
			Type:       models.EventTasksBatchChanged,
			CaseID:     next.ID,
			OccurredAt: now,
		})
	}
	return out, nil
}

// Close ends an open case with the given result type.
func (m *Manager) Close(ctx context.Context, c *models.Case, mayMutate bool, resultTypeRef id.ResultTypeRef, reason string) (*models.Outcome, error) {
	next, to, err := m.begin(c, mayMutate, OpClose)
	if err != nil {
		return nil, err
	}
	if resultTypeRef.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "result type is required")
	}
	now := requestcontext.Now(ctx)

	ref := resultTypeRef
	next.ResultTypeRef = &ref
	next.EndDate = &now
	next.Status = to
	return m.finish(ctx, c, next, OpClose, reason), nil
}

// Terminate ends an open case early. The ending reason is resolved to a
// result type through the configuration's completion reasons.
func (m *Manager) Terminate(ctx context.Context, c *models.Case, mayMutate bool, req TerminateRequest) (*models.Outcome, error) {
	next, to, err := m.begin(c, mayMutate, OpTerminate)
	if err != nil {
		return nil, err
	}
	if req.HasDecision {
		return nil, dErrors.New(dErrors.CodeDecisionPreventsTermination, "a decision is attached to the case")
	}
	reasonID, err := id.ParseEndingReasonID(req.EndingReasonID)
	if err != nil {
		return nil, err
	}
	if req.Configuration == nil {
		return nil, dErrors.New(dErrors.CodeConfigurationNotFound, "no configuration for the case type")
	}
	reason, ok := req.Configuration.CompletionReasonFor(reasonID)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeUnknownEndingReason, "ending reason %s has no result type", reasonID)
	}
	now := requestcontext.Now(ctx)

	ref := reason.ResultTypeRef
	next.ResultTypeRef = &ref
	next.EndDate = &now
	next.Status = to
	return m.finish(ctx, c, next, OpTerminate, req.Reason), nil
}

// Reopen brings a closed case back to OPEN and marks it as reopened.
func (m *Manager) Reopen(ctx context.Context, c *models.Case, mayMutate bool, reason string) (*models.Outcome, error) {
	next, to, err := m.begin(c, mayMutate, OpReopen)
	if err != nil {
		return nil, err
	}
	next.ResultTypeRef = nil
	next.EndDate = nil
	next.Reopened = true
	next.Status = to
	return m.finish(ctx, c, next, OpReopen, reason), nil
}

// SetInitiator produces the instruction that writes the initiator role to
// the registry. The configuration's linking policy decides which registries
// an initiator may come from.
func (m *Manager) SetInitiator(ctx context.Context, c *models.Case, mayMutate bool, ident models.Identification, cfg *cfgmodels.Configuration) (*models.Outcome, error) {
	if _, _, err := m.begin(c, mayMutate, OpSetInitiator); err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, dErrors.New(dErrors.CodeConfigurationNotFound, "no configuration for the case type")
	}
	role, err := models.NewInitiatorRole(ident)
	if err != nil {
		return nil, err
	}
	if models.UsesCitizenRegistry(ident) {
		if !cfg.LinkingPolicy.MayLinkCitizenRegistry {
			return nil, dErrors.New(dErrors.CodeForbidden, "case type does not allow initiators from the citizen registry")
		}
	} else if !cfg.LinkingPolicy.MayLinkBusinessRegistry {
		return nil, dErrors.New(dErrors.CodeForbidden, "case type does not allow initiators from the business registry")
	}

	now := requestcontext.Now(ctx)
	m.logger.InfoContext(ctx, "initiator set", "case_id", c.ID, "initiator_type", role.Type)
	return &models.Outcome{
		Instructions: []models.Instruction{{
			Kind:      models.InstructionSetInitiator,
			CaseID:    c.ID,
			Initiator: &role,
		}},
		Events: []models.Event{{Type: models.EventCaseUpdated, CaseID: c.ID, OccurredAt: now}},
	}, nil
}

func (m *Manager) begin(c *models.Case, mayMutate bool, op Operation) (*models.Case, models.Status, error) {
	if c == nil {
		return nil, "", dErrors.New(dErrors.CodeBadRequest, "case is required")
	}
	if !mayMutate {
		return nil, "", dErrors.Newf(dErrors.CodeForbidden, "not allowed to %s this case", op)
	}
	to, err := guard(c, op)
	if err != nil {
		return nil, "", err
	}
	return c.Clone(), to, nil
}

// finish stamps the new state and emits the persist instruction and the
// case_updated event every case mutation produces.
func (m *Manager) finish(ctx context.Context, prev, next *models.Case, op Operation, reason string) *models.Outcome {
	now := requestcontext.Now(ctx)
	next.UpdatedAt = now
	m.logger.InfoContext(ctx, "case transition",
		"case_id", next.ID,
		"operation", op,
		"from", prev.Status,
		"to", next.Status,
	)
	return &models.Outcome{
		Case: next,
		Instructions: []models.Instruction{{
			Kind:   models.InstructionPersistCase,
			CaseID: next.ID,
			Reason: reason,
		}},
		Events: []models.Event{{Type: models.EventCaseUpdated, CaseID: next.ID, OccurredAt: now}},
	}
}

func datesOf(c *models.Case) suspension.Dates {
	ultimate := c.UltimateCompletionDate
	return suspension.Dates{Planned: c.PlannedCompletionDate, Ultimate: &ultimate}
}

func applyDates(c *models.Case, d suspension.Dates) {
	c.PlannedCompletionDate = d.Planned
	if d.Ultimate != nil {
		c.UltimateCompletionDate = *d.Ultimate
	}
}
