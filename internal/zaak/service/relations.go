package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"zac/internal/zaak/models"
	"zac/internal/zaak/ports"
	"zac/internal/zaak/relation"
	id "zac/pkg/domain"
)

// LinkRequest links Source to Target. ReverseKind adds the edge back.
// ChildIsTarget picks the child for PARENT_CHILD links.
type LinkRequest struct {
	Source        id.CaseID
	Target        id.CaseID
	Kind          models.RelationKind
	ReverseKind   models.RelationKind
	ChildIsTarget bool
}

// UnlinkRequest removes the edge Source->Target of Kind.
type UnlinkRequest struct {
	Source id.CaseID
	Target id.CaseID
	Kind   models.RelationKind
	Reason string
}

// Link relates two cases. Linking an existing edge again is a no-op.
func (s *Service) Link(ctx context.Context, req LinkRequest) (*models.Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "zaak.link", trace.WithAttributes(
		attribute.String("source_id", req.Source.String()),
		attribute.String("target_id", req.Target.String()),
		attribute.String("kind", string(req.Kind)),
	))
	defer span.End()

	maySource, mayTarget, err := s.pairPermissions(ctx, req.Source, req.Target)
	if err != nil {
		return nil, s.fail(ctx, span, "link", err)
	}
	return s.relate(ctx, span, "link", func(ctx context.Context, store relation.Store) (*models.Outcome, error) {
		return s.relations.Link(ctx, store, relation.LinkRequest{
			Source:          req.Source,
			Target:          req.Target,
			Kind:            req.Kind,
			ReverseKind:     req.ReverseKind,
			ChildIsTarget:   req.ChildIsTarget,
			MayMutateSource: maySource,
			MayMutateTarget: mayTarget,
		})
	})
}

// Unlink removes exactly the matching edge.
func (s *Service) Unlink(ctx context.Context, req UnlinkRequest) (*models.Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "zaak.unlink", trace.WithAttributes(
		attribute.String("source_id", req.Source.String()),
		attribute.String("target_id", req.Target.String()),
		attribute.String("kind", string(req.Kind)),
	))
	defer span.End()

	maySource, mayTarget, err := s.pairPermissions(ctx, req.Source, req.Target)
	if err != nil {
		return nil, s.fail(ctx, span, "unlink", err)
	}
	return s.relate(ctx, span, "unlink", func(ctx context.Context, store relation.Store) (*models.Outcome, error) {
		return s.relations.Unlink(ctx, store, relation.UnlinkRequest{
			Source:          req.Source,
			Target:          req.Target,
			Kind:            req.Kind,
			Reason:          req.Reason,
			MayMutateSource: maySource,
			MayMutateTarget: mayTarget,
		})
	})
}

// ListRelations returns the outgoing relations of a case.
func (s *Service) ListRelations(ctx context.Context, caseID id.CaseID) ([]models.CaseRelation, error) {
	if _, err := s.load(ctx, caseID); err != nil {
		return nil, err
	}
	return s.relations.ListRelations(ctx, s.store, caseID)
}

// Children returns the direct children of a case.
func (s *Service) Children(ctx context.Context, caseID id.CaseID) ([]id.CaseID, error) {
	if _, err := s.load(ctx, caseID); err != nil {
		return nil, err
	}
	return s.relations.Children(ctx, s.store, caseID)
}

// relate runs a relation change and records its events in one transaction.
func (s *Service) relate(ctx context.Context, span trace.Span, op string, fn func(ctx context.Context, store relation.Store) (*models.Outcome, error)) (*models.Outcome, error) {
	var out *models.Outcome
	err := s.store.RunInTx(ctx, func(ctx context.Context, stores ports.Stores) error {
		var err error
		out, err = fn(ctx, stores.Relations)
		if err != nil {
			return err
		}
		return appendEvents(ctx, stores.Outbox, out)
	})
	if err != nil {
		return nil, s.fail(ctx, span, op, translateStoreError(err, "failed to change relation"))
	}
	s.metrics.IncrementTransition(op, "ok")
	s.dispatch(ctx, out.Instructions)
	return out, nil
}

// pairPermissions loads both cases and reads both permission verdicts in
// parallel.
func (s *Service) pairPermissions(ctx context.Context, source, target id.CaseID) (bool, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, gatherTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	var maySource, mayTarget bool
	check := func(caseID id.CaseID, may *bool) func() error {
		return func() error {
			c, err := s.load(ctx, caseID)
			if err != nil {
				return err
			}
			ok, err := s.permissions.MayMutate(ctx, c)
			if err != nil {
				return collaboratorError(err, "failed to evaluate permissions")
			}
			*may = ok
			return nil
		}
	}
	g.Go(check(source, &maySource))
	g.Go(check(target, &mayTarget))
	if err := g.Wait(); err != nil {
		return false, false, err
	}
	return maySource, mayTarget, nil
}
