package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"zac/internal/zaak/models"
	"zac/internal/zaak/ports"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/requestcontext"
)

// OpenRequest registers a new case.
type OpenRequest struct {
	Identification         string
	CaseTypeVersionID      id.CaseTypeVersionID
	StartDate              time.Time
	PlannedCompletionDate  *time.Time
	UltimateCompletionDate time.Time
	// AssignedGroup and AssignedUser default to the case type's configuration.
	AssignedGroup string
	AssignedUser  string
}

func (r OpenRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Identification) == "":
		return dErrors.New(dErrors.CodeValidation, "identification is required")
	case r.CaseTypeVersionID.IsNil():
		return dErrors.New(dErrors.CodeValidation, "case type version is required")
	case r.StartDate.IsZero():
		return dErrors.New(dErrors.CodeValidation, "start date is required")
	case r.UltimateCompletionDate.Before(r.StartDate):
		return dErrors.New(dErrors.CodeValidation, "ultimate completion date is before the start date")
	case r.PlannedCompletionDate != nil && r.PlannedCompletionDate.Before(r.StartDate):
		return dErrors.New(dErrors.CodeValidation, "planned completion date is before the start date")
	}
	return nil
}

// Open registers a new OPEN case of a published case-type version.
func (s *Service) Open(ctx context.Context, req OpenRequest) (*models.Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "zaak.open", trace.WithAttributes(
		attribute.String("version_id", req.CaseTypeVersionID.String()),
	))
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, s.fail(ctx, span, "open", err)
	}
	probe := &models.Case{CaseTypeVersionID: req.CaseTypeVersionID}
	in, err := s.gather(ctx, probe, needs{caseType: true, configuration: true})
	if err != nil {
		return nil, s.fail(ctx, span, "open", err)
	}
	if !in.mayMutate {
		return nil, s.fail(ctx, span, "open", dErrors.New(dErrors.CodeForbidden, "not allowed to open cases of this case type"))
	}
	if in.caseType.IsConcept {
		return nil, s.fail(ctx, span, "open", dErrors.New(dErrors.CodeValidation, "cannot open a case of a concept case type"))
	}

	now := requestcontext.Now(ctx)
	c := &models.Case{
		ID:                     id.NewCaseID(),
		Identification:         strings.TrimSpace(req.Identification),
		CaseTypeVersionID:      req.CaseTypeVersionID,
		Status:                 models.StatusOpen,
		StartDate:              req.StartDate,
		PlannedCompletionDate:  req.PlannedCompletionDate,
		UltimateCompletionDate: req.UltimateCompletionDate,
		AssignedGroup:          req.AssignedGroup,
		AssignedUser:           req.AssignedUser,
		UpdatedAt:              now,
	}
	if cfg := in.configuration; cfg != nil {
		if c.AssignedGroup == "" {
			c.AssignedGroup = cfg.DefaultGroup
		}
		if c.AssignedUser == "" {
			c.AssignedUser = cfg.DefaultUser
		}
	}

	out := &models.Outcome{
		Case:         c,
		Instructions: []models.Instruction{{Kind: models.InstructionReindexCase, CaseID: c.ID}},
		Events:       []models.Event{{Type: models.EventCaseCreated, CaseID: c.ID, OccurredAt: now}},
	}
	err = s.store.RunInTx(ctx, func(ctx context.Context, stores ports.Stores) error {
		if err := stores.Cases.Create(ctx, c); err != nil {
			return err
		}
		return appendEvents(ctx, stores.Outbox, out)
	})
	if err != nil {
		return nil, s.fail(ctx, span, "open", translateStoreError(err, "failed to create case"))
	}

	s.logger.InfoContext(ctx, "case opened",
		"case_id", c.ID,
		"identification", c.Identification,
		"version_id", c.CaseTypeVersionID,
	)
	s.metrics.IncrementTransition("open", "ok")
	s.dispatch(ctx, out.Instructions)
	return out, nil
}
