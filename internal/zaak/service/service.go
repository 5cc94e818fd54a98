// Package service runs case lifecycle and relation operations end to end.
//
// Every mutation follows the same path: load the case, gather the
// collaborator inputs, let the lifecycle or relation manager compute the
// outcome, write the new case and its events in one transaction, then hand
// the follow-up instructions to the dispatcher. Case writes are conditional
// on the version that was read; a lost race is retried with a fresh read.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"zac/internal/platform/outbox"
	"zac/internal/zaak/lifecycle"
	"zac/internal/zaak/metrics"
	"zac/internal/zaak/models"
	"zac/internal/zaak/ports"
	"zac/internal/zaak/relation"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/platform/sentinel"
	"zac/pkg/requestcontext"
)

const (
	defaultConflictRetries = 3
	aggregateCase          = "case"
)

// Store is the case store the service reads from outside a transaction.
type Store interface {
	ports.TxRunner
	ports.CaseStore
	relation.Store
}

// Collaborators are the external systems a transition consults.
type Collaborators struct {
	Catalog        ports.CaseTypeCatalog
	Configurations ports.ConfigurationResolver
	Permissions    ports.PermissionEvaluator
	Tasks          ports.OpenTaskProvider
	Decisions      ports.DecisionRegistry
	Dispatcher     ports.Dispatcher
}

// Service orchestrates case lifecycle and relation operations.
type Service struct {
	store       Store
	catalog     ports.CaseTypeCatalog
	configs     ports.ConfigurationResolver
	permissions ports.PermissionEvaluator
	tasks       ports.OpenTaskProvider
	decisions   ports.DecisionRegistry
	dispatcher  ports.Dispatcher

	lifecycle       *lifecycle.Manager
	relations       *relation.Manager
	conflictRetries int
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithConflictRetries sets how often a write that lost a concurrency race is
// retried before the caller sees CodeConcurrentModification.
func WithConflictRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.conflictRetries = n
		}
	}
}

func New(store Store, c Collaborators, opts ...Option) (*Service, error) {
	switch {
	case store == nil:
		return nil, errors.New("store is required")
	case c.Catalog == nil:
		return nil, errors.New("case type catalog is required")
	case c.Configurations == nil:
		return nil, errors.New("configuration resolver is required")
	case c.Permissions == nil:
		return nil, errors.New("permission evaluator is required")
	case c.Tasks == nil:
		return nil, errors.New("open task provider is required")
	case c.Decisions == nil:
		return nil, errors.New("decision registry is required")
	case c.Dispatcher == nil:
		return nil, errors.New("instruction dispatcher is required")
	}

	s := &Service{
		store:           store,
		catalog:         c.Catalog,
		configs:         c.Configurations,
		permissions:     c.Permissions,
		tasks:           c.Tasks,
		decisions:       c.Decisions,
		dispatcher:      c.Dispatcher,
		conflictRetries: defaultConflictRetries,
		logger:          slog.Default(),
		tracer:          otel.Tracer("zac/zaak"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lifecycle = lifecycle.New(lifecycle.WithLogger(s.logger))
	s.relations = relation.New(relation.WithLogger(s.logger))
	return s, nil
}

// Get returns the case with its parent filled in.
func (s *Service) Get(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	c, err := s.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	parent, err := s.relations.Parent(ctx, s.store, caseID)
	if err != nil {
		return nil, err
	}
	c.ParentID = parent
	return c, nil
}

// Suspend puts an open case on hold.
func (s *Service) Suspend(ctx context.Context, caseID id.CaseID, reason string, expectedDays int) (*models.Outcome, error) {
	return s.mutate(ctx, lifecycle.OpSuspend, caseID, func(ctx context.Context, c *models.Case) (*models.Outcome, error) {
		in, err := s.gather(ctx, c, needs{})
		if err != nil {
			return nil, err
		}
		return s.lifecycle.Suspend(ctx, c, in.mayMutate, reason, expectedDays)
	})
}

// Resume lifts the suspension of a case.
func (s *Service) Resume(ctx context.Context, caseID id.CaseID, reason string) (*models.Outcome, error) {
	return s.mutate(ctx, lifecycle.OpResume, caseID, func(ctx context.Context, c *models.Case) (*models.Outcome, error) {
		in, err := s.gather(ctx, c, needs{})
		if err != nil {
			return nil, err
		}
		return s.lifecycle.Resume(ctx, c, in.mayMutate, reason)
	})
}

// Extend moves the completion deadline, optionally with the open tasks.
// The case type must allow extension and the extension may not exceed its
// extension term.
func (s *Service) Extend(ctx context.Context, caseID id.CaseID, extraDays int, cascadeToTasks bool, reason string) (*models.Outcome, error) {
	return s.mutate(ctx, lifecycle.OpExtend, caseID, func(ctx context.Context, c *models.Case) (*models.Outcome, error) {
		in, err := s.gather(ctx, c, needs{tasks: cascadeToTasks, caseType: true})
		if err != nil {
			return nil, err
		}
		out, err := s.lifecycle.Extend(ctx, c, in.mayMutate, lifecycle.ExtendRequest{
			ExtraDays:      extraDays,
			CascadeToTasks: cascadeToTasks,
			OpenTasks:      in.openTasks,
			Reason:         reason,
		})
		if err != nil {
			return nil, err
		}
		if !in.caseType.ExtensionAllowed {
			return nil, dErrors.New(dErrors.CodeExtensionNotAllowed, "case type does not allow extension")
		}
		if term := in.caseType.ExtensionTermDays; term > 0 && extraDays > term {
			return nil, dErrors.Newf(dErrors.CodeValidation, "extension of %d days exceeds the extension term of %d days", extraDays, term)
		}
		return out, nil
	})
}

// Close ends an open case with a result type of its case-type version.
func (s *Service) Close(ctx context.Context, caseID id.CaseID, resultTypeRef id.ResultTypeRef, reason string) (*models.Outcome, error) {
	return s.mutate(ctx, lifecycle.OpClose, caseID, func(ctx context.Context, c *models.Case) (*models.Outcome, error) {
		in, err := s.gather(ctx, c, needs{caseType: true})
		if err != nil {
			return nil, err
		}
		out, err := s.lifecycle.Close(ctx, c, in.mayMutate, resultTypeRef, reason)
		if err != nil {
			return nil, err
		}
		if !in.caseType.HasResultType(resultTypeRef) {
			return nil, dErrors.Newf(dErrors.CodeValidation, "result type %s does not belong to the case type", resultTypeRef)
		}
		return out, nil
	})
}

// Terminate ends an open case early for the given ending reason.
func (s *Service) Terminate(ctx context.Context, caseID id.CaseID, endingReasonID, reason string) (*models.Outcome, error) {
	return s.mutate(ctx, lifecycle.OpTerminate, caseID, func(ctx context.Context, c *models.Case) (*models.Outcome, error) {
		in, err := s.gather(ctx, c, needs{decision: true, configuration: true})
		if err != nil {
			return nil, err
		}
		return s.lifecycle.Terminate(ctx, c, in.mayMutate, lifecycle.TerminateRequest{
			EndingReasonID: endingReasonID,
			Reason:         reason,
			HasDecision:    in.hasDecision,
			Configuration:  in.configuration,
		})
	})
}

// Reopen brings a closed case back to OPEN.
func (s *Service) Reopen(ctx context.Context, caseID id.CaseID, reason string) (*models.Outcome, error) {
	return s.mutate(ctx, lifecycle.OpReopen, caseID, func(ctx context.Context, c *models.Case) (*models.Outcome, error) {
		in, err := s.gather(ctx, c, needs{})
		if err != nil {
			return nil, err
		}
		return s.lifecycle.Reopen(ctx, c, in.mayMutate, reason)
	})
}

// SetInitiator links an initiator to the case. The case itself is not
// written; the registry update travels as an instruction.
func (s *Service) SetInitiator(ctx context.Context, caseID id.CaseID, ident models.Identification) (*models.Outcome, error) {
	return s.mutate(ctx, lifecycle.OpSetInitiator, caseID, func(ctx context.Context, c *models.Case) (*models.Outcome, error) {
		in, err := s.gather(ctx, c, needs{configuration: true})
		if err != nil {
			return nil, err
		}
		return s.lifecycle.SetInitiator(ctx, c, in.mayMutate, ident, in.configuration)
	})
}

type transitionFunc func(ctx context.Context, c *models.Case) (*models.Outcome, error)

// mutate loads the case, runs fn and commits its outcome, retrying on a lost
// concurrency race.
func (s *Service) mutate(ctx context.Context, op lifecycle.Operation, caseID id.CaseID, fn transitionFunc) (*models.Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "zaak."+string(op),
		trace.WithAttributes(attribute.String("case_id", caseID.String())),
	)
	defer span.End()

	for attempt := 0; ; attempt++ {
		c, err := s.load(ctx, caseID)
		if err != nil {
			return nil, s.fail(ctx, span, string(op), err)
		}
		out, err := fn(ctx, c)
		if err != nil {
			return nil, s.fail(ctx, span, string(op), err)
		}

		err = s.commit(ctx, c.Version, out)
		if errors.Is(err, sentinel.ErrStale) {
			s.metrics.IncrementConflict()
			if attempt < s.conflictRetries {
				s.logger.DebugContext(ctx, "case changed concurrently; retrying",
					"case_id", caseID,
					"operation", op,
					"attempt", attempt+1,
				)
				continue
			}
			return nil, s.fail(ctx, span, string(op),
				dErrors.Wrap(err, dErrors.CodeConcurrentModification, "case was modified concurrently; retry"))
		}
		if err != nil {
			return nil, s.fail(ctx, span, string(op), err)
		}

		span.SetAttributes(attribute.Int("attempts", attempt+1))
		s.metrics.IncrementTransition(string(op), "ok")
		s.dispatch(ctx, out.Instructions)
		return out, nil
	}
}

// commit writes the new case, when there is one, and the outcome's events in
// one transaction.
func (s *Service) commit(ctx context.Context, expectedVersion int64, out *models.Outcome) error {
	return s.store.RunInTx(ctx, func(ctx context.Context, stores ports.Stores) error {
		if out.Case != nil {
			if err := stores.Cases.Update(ctx, out.Case, expectedVersion); err != nil {
				if errors.Is(err, sentinel.ErrStale) {
					return err
				}
				return translateStoreError(err, "failed to save case")
			}
		}
		return appendEvents(ctx, stores.Outbox, out)
	})
}

// eventPayload is the outbox body of a case event.
type eventPayload struct {
	models.Event
	Status models.Status `json:"status,omitempty"`
	Actor  string        `json:"actor,omitempty"`
}

func appendEvents(ctx context.Context, w outbox.Writer, out *models.Outcome) error {
	if len(out.Events) == 0 {
		return nil
	}
	actor := requestcontext.Actor(ctx)
	msgs := make([]outbox.Message, 0, len(out.Events))
	for _, ev := range out.Events {
		p := eventPayload{Event: ev, Actor: actor}
		if out.Case != nil && out.Case.ID == ev.CaseID {
			p.Status = out.Case.Status
		}
		msg, err := outbox.NewMessage(aggregateCase, ev.CaseID.String(), string(ev.Type), p, ev.OccurredAt)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode event")
		}
		msgs = append(msgs, msg)
	}
	if err := w.Append(ctx, msgs...); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record events")
	}
	return nil
}

// dispatch hands the instructions over after the write is durable. A failed
// hand-over is logged; the committed transition stands.
func (s *Service) dispatch(ctx context.Context, instructions []models.Instruction) {
	if len(instructions) == 0 {
		return
	}
	result := "dispatched"
	if err := s.dispatcher.Dispatch(ctx, instructions); err != nil {
		result = "failed"
		s.logger.ErrorContext(ctx, "failed to dispatch follow-up instructions",
			"count", len(instructions),
			"error", err,
		)
	}
	for _, in := range instructions {
		s.metrics.IncrementInstruction(string(in.Kind), result)
	}
}

func (s *Service) load(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	if caseID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "case id is required")
	}
	c, err := s.store.FindByID(ctx, caseID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load case")
	}
	return c, nil
}

func (s *Service) fail(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.GetCode(err)))

	result := "rejected"
	if code := dErrors.GetCode(err); code == dErrors.CodeInternal || code == dErrors.CodeTimeout || code == "" {
		result = "error"
		s.logger.ErrorContext(ctx, "case operation failed", "operation", op, "error", err)
	}
	s.metrics.IncrementTransition(op, result)
	return err
}

func translateStoreError(err error, msg string) error {
	switch {
	case dErrors.GetCode(err) != "":
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "case already exists")
	case errors.Is(err, sentinel.ErrStale):
		return dErrors.Wrap(err, dErrors.CodeConcurrentModification, "case was modified concurrently; retry")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
