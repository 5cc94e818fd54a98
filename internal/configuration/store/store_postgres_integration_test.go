//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"zac/internal/configuration/models"
	"zac/internal/configuration/resolver"
	"zac/internal/configuration/store"
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
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "configuration_template_bindings", "case_type_configurations")
	s.Require().NoError(err)
}

func newConfiguration(description string) *models.Configuration {
	now := time.Now().UTC().Truncate(time.Microsecond)
	cfg := models.NewPlaceholder(id.CaseTypeVersionID(uuid.New()), description, now)
	cfg.HumanTaskDefinitions = []string{"intake", "beoordeling"}
	cfg.SenderPolicy = models.SenderPolicy{Allowed: []string{"post@gemeente.nl"}, Default: "post@gemeente.nl"}
	cfg.CompletionReasons[1] = models.CompletionReason{
		ResultTypeRef:         id.ResultTypeRef(uuid.New()),
		ResultTypeDescription: "Afgewezen",
	}
	return cfg
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	cfg := newConfiguration("Bouwvergunning")
	s.Require().NoError(s.store.Create(ctx, cfg))
	s.Require().NoError(s.store.ReplaceBindings(ctx, cfg.CaseTypeVersionID, map[string]string{"ontvangst": "t-1"}))

	got, err := s.store.FindByVersionID(ctx, cfg.CaseTypeVersionID)
	s.Require().NoError(err)
	s.Equal(cfg.HumanTaskDefinitions, got.HumanTaskDefinitions)
	s.Equal(cfg.CompletionReasons, got.CompletionReasons)
	s.Equal(cfg.SenderPolicy, got.SenderPolicy)
	s.Equal(map[string]string{"ontvangst": "t-1"}, got.MailTemplateBindings)

	s.ErrorIs(s.store.Create(ctx, cfg), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestRunInTxRollsBack() {
	ctx := context.Background()
	cfg := newConfiguration("Kapvergunning")
	boom := errors.New("boom")

	err := s.store.RunInTx(ctx, cfg.CaseTypeDescription, func(tx resolver.Store) error {
		s.Require().NoError(tx.Create(ctx, cfg))
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.FindByVersionID(ctx, cfg.CaseTypeVersionID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentCreateSameVersion verifies the unique constraint lets exactly one writer win.
func (s *PostgresStoreSuite) TestConcurrentCreateSameVersion() {
	ctx := context.Background()
	versionID := id.CaseTypeVersionID(uuid.New())
	const writers = 10

	var wg sync.WaitGroup
	var ok, conflicts atomic.Int32
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg := newConfiguration("Race")
			cfg.CaseTypeVersionID = versionID
			err := s.store.RunInTx(ctx, uuid.NewString(), func(tx resolver.Store) error {
				return tx.Create(ctx, cfg)
			})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), ok.Load())
	s.Equal(int32(writers-1), conflicts.Load())
}
