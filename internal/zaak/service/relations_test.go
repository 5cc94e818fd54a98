package service_test

import (
	"go.uber.org/mock/gomock"

	"zac/internal/zaak/models"
	"zac/internal/zaak/service"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
)

func (s *ServiceSuite) TestLink_WithReverseKind() {
	s.allowAll()
	a := s.seed("ZAAK-2026-0000000101")
	b := s.seed("ZAAK-2026-0000000102")

	out, err := s.service.Link(s.ctx, service.LinkRequest{
		Source:      a.ID,
		Target:      b.ID,
		Kind:        models.RelationFollowup,
		ReverseKind: models.RelationContribution,
	})
	s.Require().NoError(err)
	s.Equal(2, out.CountEvents(models.EventCaseLinked))

	fromA, err := s.service.ListRelations(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal([]models.CaseRelation{{SourceID: a.ID, TargetID: b.ID, Kind: models.RelationFollowup}}, fromA)

	fromB, err := s.service.ListRelations(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal([]models.CaseRelation{{SourceID: b.ID, TargetID: a.ID, Kind: models.RelationContribution}}, fromB)
	s.Len(s.outbox.Pending(), 2)

	s.Run("linking again changes nothing", func() {
		out, err := s.service.Link(s.ctx, service.LinkRequest{
			Source:      a.ID,
			Target:      b.ID,
			Kind:        models.RelationFollowup,
			ReverseKind: models.RelationContribution,
		})
		s.Require().NoError(err)
		s.Empty(out.Events)
		s.Len(s.outbox.Pending(), 2)
	})

	s.Run("unlink removes only the named edge", func() {
		_, err := s.service.Unlink(s.ctx, service.UnlinkRequest{Source: a.ID, Target: b.ID, Kind: models.RelationFollowup})
		s.Require().NoError(err)

		fromA, err := s.service.ListRelations(s.ctx, a.ID)
		s.Require().NoError(err)
		s.Empty(fromA)
		fromB, err := s.service.ListRelations(s.ctx, b.ID)
		s.Require().NoError(err)
		s.Len(fromB, 1)

		_, err = s.service.Unlink(s.ctx, service.UnlinkRequest{Source: a.ID, Target: b.ID, Kind: models.RelationFollowup})
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *ServiceSuite) TestLink_ParentChild() {
	s.allowAll()
	parent := s.seed("ZAAK-2026-0000000103")
	child := s.seed("ZAAK-2026-0000000104")

	out, err := s.service.Link(s.ctx, service.LinkRequest{
		Source: child.ID,
		Target: parent.ID,
		Kind:   models.RelationParentChild,
	})
	s.Require().NoError(err)
	s.Equal(1, out.CountInstructions(models.InstructionNotifyParent))

	got, err := s.service.Get(s.ctx, child.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.ParentID)
	s.Equal(parent.ID, *got.ParentID)

	children, err := s.service.Children(s.ctx, parent.ID)
	s.Require().NoError(err)
	s.Equal([]id.CaseID{child.ID}, children)

	s.Run("the reverse link would close a cycle", func() {
		_, err := s.service.Link(s.ctx, service.LinkRequest{
			Source: parent.ID,
			Target: child.ID,
			Kind:   models.RelationParentChild,
		})
		s.requireCode(err, dErrors.CodeInvariantViolation)
	})

	s.Run("unlink clears the parent", func() {
		_, err := s.service.Unlink(s.ctx, service.UnlinkRequest{Source: parent.ID, Target: child.ID, Kind: models.RelationParentChild})
		s.Require().NoError(err)

		got, err := s.service.Get(s.ctx, child.ID)
		s.Require().NoError(err)
		s.Nil(got.ParentID)
	})
}

func (s *ServiceSuite) TestLink_RequiresPermissionOnBothCases() {
	a := s.seed("ZAAK-2026-0000000105")
	b := s.seed("ZAAK-2026-0000000106")
	s.permissions.EXPECT().MayMutate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, c *models.Case) (bool, error) {
			return c.ID == a.ID, nil
		}).Times(2)

	_, err := s.service.Link(s.ctx, service.LinkRequest{Source: a.ID, Target: b.ID, Kind: models.RelationSubject})
	s.requireCode(err, dErrors.CodeForbidden)
	s.Empty(s.outbox.Pending())
}

func (s *ServiceSuite) TestLink_UnknownCase() {
	s.allowAll()
	a := s.seed("ZAAK-2026-0000000107")

	_, err := s.service.Link(s.ctx, service.LinkRequest{Source: a.ID, Target: id.NewCaseID(), Kind: models.RelationSubject})
	s.requireCode(err, dErrors.CodeNotFound)
}
