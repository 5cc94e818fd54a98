package relation_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"zac/internal/platform/outbox"
	"zac/internal/zaak/models"
	"zac/internal/zaak/relation"
	"zac/internal/zaak/store"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
)

type ManagerSuite struct {
	suite.Suite
	manager *relation.Manager
	store   *store.InMemory
	ctx     context.Context
	a, b, c id.CaseID
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.manager = relation.New(relation.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.store = store.NewInMemory(outbox.NewInMemory())
	s.ctx = context.Background()
	s.a, s.b, s.c = id.NewCaseID(), id.NewCaseID(), id.NewCaseID()
}

func (s *ManagerSuite) link(source, target id.CaseID, kind, reverse models.RelationKind) (*models.Outcome, error) {
	return s.manager.Link(s.ctx, s.store, relation.LinkRequest{
		Source: source, Target: target, Kind: kind, ReverseKind: reverse,
		MayMutateSource: true, MayMutateTarget: true,
	})
}

func (s *ManagerSuite) unlink(source, target id.CaseID, kind models.RelationKind) (*models.Outcome, error) {
	return s.manager.Unlink(s.ctx, s.store, relation.UnlinkRequest{
		Source: source, Target: target, Kind: kind, Reason: "registered in error",
		MayMutateSource: true, MayMutateTarget: true,
	})
}

func (s *ManagerSuite) relationsOf(caseID id.CaseID) []models.CaseRelation {
	rels, err := s.manager.ListRelations(s.ctx, s.store, caseID)
	s.Require().NoError(err)
	return rels
}

func (s *ManagerSuite) requireCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.Equal(code, dErrors.GetCode(err), err.Error())
}

func (s *ManagerSuite) TestLinkWithReverseKind() {
	out, err := s.link(s.a, s.b, models.RelationContribution, models.RelationSubject)
	s.Require().NoError(err)
	s.Equal(2, out.CountEvents(models.EventCaseLinked))

	s.Equal([]models.CaseRelation{{SourceID: s.a, TargetID: s.b, Kind: models.RelationContribution}}, s.relationsOf(s.a))
	s.Equal([]models.CaseRelation{{SourceID: s.b, TargetID: s.a, Kind: models.RelationSubject}}, s.relationsOf(s.b))
}

func (s *ManagerSuite) TestLinkIsIdempotent() {
	_, err := s.link(s.a, s.b, models.RelationFollowup, "")
	s.Require().NoError(err)

	out, err := s.link(s.a, s.b, models.RelationFollowup, "")
	s.Require().NoError(err)
	s.Empty(out.Events)
	s.Empty(out.Instructions)
	s.Len(s.relationsOf(s.a), 1)
}

func (s *ManagerSuite) TestLinkValidation() {
	s.Run("self relation", func() {
		_, err := s.link(s.a, s.a, models.RelationFollowup, "")
		s.requireCode(err, dErrors.CodeValidation)
	})
	s.Run("reverse parent child", func() {
		_, err := s.link(s.a, s.b, models.RelationFollowup, models.RelationParentChild)
		s.requireCode(err, dErrors.CodeValidation)
	})
	s.Run("unknown kind", func() {
		_, err := s.link(s.a, s.b, models.RelationKind("SIBLING"), "")
		s.requireCode(err, dErrors.CodeValidation)
	})
	s.Run("one case not mutable", func() {
		_, err := s.manager.Link(s.ctx, s.store, relation.LinkRequest{
			Source: s.a, Target: s.b, Kind: models.RelationFollowup, MayMutateSource: true,
		})
		s.requireCode(err, dErrors.CodeForbidden)
	})
}

func (s *ManagerSuite) TestUnlinkRemovesExactlyOneEdge() {
	_, err := s.link(s.a, s.b, models.RelationFollowup, "")
	s.Require().NoError(err)
	_, err = s.link(s.a, s.b, models.RelationSubject, models.RelationContribution)
	s.Require().NoError(err)

	out, err := s.unlink(s.a, s.b, models.RelationFollowup)
	s.Require().NoError(err)
	s.Equal(1, out.CountEvents(models.EventCaseUnlinked))

	s.Equal([]models.CaseRelation{{SourceID: s.a, TargetID: s.b, Kind: models.RelationSubject}}, s.relationsOf(s.a))
	s.Len(s.relationsOf(s.b), 1)

	_, err = s.unlink(s.a, s.b, models.RelationFollowup)
	s.requireCode(err, dErrors.CodeNotFound)
}

func (s *ManagerSuite) TestParentChild() {
	out, err := s.manager.Link(s.ctx, s.store, relation.LinkRequest{
		Source: s.a, Target: s.b, Kind: models.RelationParentChild, ChildIsTarget: true,
		MayMutateSource: true, MayMutateTarget: true,
	})
	s.Require().NoError(err)
	s.Require().Equal(1, out.CountInstructions(models.InstructionNotifyParent))
	for _, in := range out.Instructions {
		if in.Kind == models.InstructionNotifyParent {
			s.Equal(s.a, in.CaseID)
		}
	}
	s.Empty(s.relationsOf(s.a), "parent links are not typed relations")

	parent, err := s.manager.Parent(s.ctx, s.store, s.b)
	s.Require().NoError(err)
	s.Equal(s.a, *parent)
	children, err := s.manager.Children(s.ctx, s.store, s.a)
	s.Require().NoError(err)
	s.Equal([]id.CaseID{s.b}, children)

	s.Run("same parent again is a no-op", func() {
		out, err := s.link(s.b, s.a, models.RelationParentChild, "")
		s.Require().NoError(err)
		s.Empty(out.Instructions)
	})

	s.Run("a second parent conflicts", func() {
		_, err := s.link(s.b, s.c, models.RelationParentChild, "")
		s.requireCode(err, dErrors.CodeConflict)
	})

	s.Run("cycles are refused", func() {
		_, err := s.link(s.a, s.b, models.RelationParentChild, "")
		s.requireCode(err, dErrors.CodeInvariantViolation)
	})

	s.Run("self parent is refused", func() {
		_, err := s.link(s.c, s.c, models.RelationParentChild, "")
		s.requireCode(err, dErrors.CodeInvariantViolation)
	})

	s.Run("unlink from either side clears the link and notifies the parent", func() {
		out, err := s.unlink(s.a, s.b, models.RelationParentChild)
		s.Require().NoError(err)
		s.Equal(1, out.CountInstructions(models.InstructionNotifyParent))

		parent, err := s.manager.Parent(s.ctx, s.store, s.b)
		s.Require().NoError(err)
		s.Nil(parent)

		_, err = s.unlink(s.b, s.a, models.RelationParentChild)
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *ManagerSuite) TestDeepCycleIsRefused() {
	chain := []id.CaseID{s.a, s.b, s.c, id.NewCaseID()}
	for i := 1; i < len(chain); i++ {
		_, err := s.link(chain[i], chain[i-1], models.RelationParentChild, "")
		s.Require().NoError(err)
	}
	_, err := s.link(s.a, chain[len(chain)-1], models.RelationParentChild, "")
	s.requireCode(err, dErrors.CodeInvariantViolation)
}
