//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"zac/internal/platform/outbox"
	"zac/internal/zaak/models"
	"zac/internal/zaak/ports"
	"zac/internal/zaak/relation"
	"zac/internal/zaak/store"
	id "zac/pkg/domain"
	"zac/pkg/platform/sentinel"
	"zac/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "case_parent_links", "case_relations", "cases", "outbox"))
}

func (s *PostgresStoreSuite) createCase(identification string) *models.Case {
	planned := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	c := &models.Case{
		ID:                     id.NewCaseID(),
		Identification:         identification,
		CaseTypeVersionID:      id.CaseTypeVersionID(uuid.New()),
		Status:                 models.StatusOpen,
		StartDate:              time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		PlannedCompletionDate:  &planned,
		UltimateCompletionDate: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		AssignedGroup:          "vergunningen",
		UpdatedAt:              time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.Create(context.Background(), c))
	return c
}

func (s *PostgresStoreSuite) TestCaseRoundTrip() {
	ctx := context.Background()
	c := s.createCase("ZAAK-1")

	got, err := s.store.FindByIdentification(ctx, "ZAAK-1")
	s.Require().NoError(err)
	s.Equal(c.ID, got.ID)
	s.Equal(int64(1), got.Version)
	s.True(c.PlannedCompletionDate.Equal(*got.PlannedCompletionDate))
	s.Nil(got.ResultTypeRef)
	s.Empty(got.AssignedUser)

	s.ErrorIs(s.store.Create(ctx, &models.Case{ID: id.NewCaseID(), Identification: "ZAAK-1", Status: models.StatusOpen}), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestConditionalUpdate() {
	ctx := context.Background()
	c := s.createCase("ZAAK-1")

	now := time.Now().UTC().Truncate(time.Microsecond)
	ref := id.ResultTypeRef(uuid.New())
	c.Status = models.StatusClosed
	c.ResultTypeRef = &ref
	c.EndDate = &now
	s.Require().NoError(s.store.Update(ctx, c, 1))
	s.Equal(int64(2), c.Version)

	got, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(ref, *got.ResultTypeRef)

	s.ErrorIs(s.store.Update(ctx, c, 1), sentinel.ErrStale)
	s.ErrorIs(s.store.Update(ctx, &models.Case{ID: id.NewCaseID(), Status: models.StatusOpen}, 1), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestStatusConstraintsHold() {
	c := s.createCase("ZAAK-1")
	c.Status = models.StatusSuspended
	err := s.store.Update(context.Background(), c, 1)
	s.Error(err, "a suspended case needs a suspension start")
}

func (s *PostgresStoreSuite) TestRelationsAndParents() {
	ctx := context.Background()
	a := s.createCase("ZAAK-A")
	b := s.createCase("ZAAK-B")
	c := s.createCase("ZAAK-C")

	inserted, err := s.store.AddRelation(ctx, models.CaseRelation{SourceID: a.ID, TargetID: b.ID, Kind: models.RelationContribution})
	s.Require().NoError(err)
	s.True(inserted)
	inserted, err = s.store.AddRelation(ctx, models.CaseRelation{SourceID: a.ID, TargetID: b.ID, Kind: models.RelationContribution})
	s.Require().NoError(err)
	s.False(inserted)

	rels, err := s.store.ListRelations(ctx, a.ID)
	s.Require().NoError(err)
	s.Len(rels, 1)

	s.Require().NoError(s.store.SetParent(ctx, models.ParentLink{ChildID: b.ID, ParentID: a.ID}))
	s.Require().NoError(s.store.SetParent(ctx, models.ParentLink{ChildID: c.ID, ParentID: b.ID}))
	s.ErrorIs(s.store.SetParent(ctx, models.ParentLink{ChildID: a.ID, ParentID: c.ID}), relation.ErrCycle)
	s.ErrorIs(s.store.SetParent(ctx, models.ParentLink{ChildID: c.ID, ParentID: a.ID}), sentinel.ErrConflict)

	children, err := s.store.ChildrenOf(ctx, a.ID)
	s.Require().NoError(err)
	s.Equal([]id.CaseID{b.ID}, children)

	s.Require().NoError(s.store.ClearParent(ctx, c.ID))
	s.ErrorIs(s.store.ClearParent(ctx, c.ID), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentOppositeParentLinks() {
	ctx := context.Background()
	a := s.createCase("ZAAK-A")
	b := s.createCase("ZAAK-B")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, link := range []models.ParentLink{{ChildID: a.ID, ParentID: b.ID}, {ChildID: b.ID, ParentID: a.ID}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.store.RunInTx(ctx, func(ctx context.Context, stores ports.Stores) error {
				return stores.Relations.SetParent(ctx, link)
			})
		}()
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			s.ErrorIs(err, relation.ErrCycle)
			failed++
		}
	}
	s.Equal(1, failed, "exactly one of two opposite links may win")
}

func (s *PostgresStoreSuite) TestRunInTxRollsBackOutbox() {
	ctx := context.Background()
	a := s.createCase("ZAAK-A")
	boom := errors.New("boom")

	err := s.store.RunInTx(ctx, func(ctx context.Context, stores ports.Stores) error {
		msg, err := outbox.NewMessage("case", a.ID.String(), "case_updated", map[string]string{}, time.Now())
		s.Require().NoError(err)
		s.Require().NoError(stores.Outbox.Append(ctx, msg))
		return boom
	})
	s.ErrorIs(err, boom)

	var n int
	s.Require().NoError(s.postgres.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&n))
	s.Zero(n)
}
