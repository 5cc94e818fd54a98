package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"zac/internal/catalog/metrics"
	"zac/internal/catalog/models"
	id "zac/pkg/domain"
)

type fakeUpstream struct {
	mu      sync.Mutex
	types   map[id.CaseTypeVersionID]models.CaseType
	reads   atomic.Int32
	release chan struct{}
	err     error
}

func newFakeUpstream(types ...models.CaseType) *fakeUpstream {
	f := &fakeUpstream{types: make(map[id.CaseTypeVersionID]models.CaseType)}
	for _, ct := range types {
		f.types[ct.VersionID] = ct
	}
	return f
}

func (f *fakeUpstream) ReadCaseType(_ context.Context, versionID id.CaseTypeVersionID) (models.CaseType, error) {
	f.reads.Add(1)
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.CaseType{}, f.err
	}
	return f.types[versionID], nil
}

func (f *fakeUpstream) ListPublished(context.Context) ([]models.CaseType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.CaseType, 0, len(f.types))
	for _, ct := range f.types {
		if !ct.IsConcept {
			out = append(out, ct)
		}
	}
	return out, nil
}

func caseType(description string, concept bool) models.CaseType {
	return models.CaseType{
		VersionID:   id.CaseTypeVersionID(uuid.New()),
		Description: description,
		IsConcept:   concept,
		ResultTypes: []models.ResultType{{Ref: id.ResultTypeRef(uuid.New()), Description: "Toegekend"}},
	}
}

type CacheSuite struct {
	suite.Suite
	mr       *miniredis.Miniredis
	backend  Backend
	upstream *fakeUpstream
	metrics  *metrics.Metrics
	cache    *Catalog
	subsidy  models.CaseType
	concept  models.CaseType
}

func TestCacheSuite_Redis(t *testing.T) {
	suite.Run(t, &CacheSuite{})
}

func (s *CacheSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	s.backend = NewRedisBackend(redis.NewClient(&redis.Options{Addr: s.mr.Addr()}))
	s.subsidy = caseType("Subsidie", false)
	s.concept = caseType("Vergunning", true)
	s.upstream = newFakeUpstream(s.subsidy, s.concept)
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())

	var err error
	s.cache, err = New(s.upstream, s.backend,
		WithTTL(time.Minute),
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)
}

func (s *CacheSuite) TestReadThrough() {
	ctx := context.Background()

	first, err := s.cache.ReadCaseType(ctx, s.subsidy.VersionID)
	s.Require().NoError(err)
	second, err := s.cache.ReadCaseType(ctx, s.subsidy.VersionID)
	s.Require().NoError(err)

	s.Equal(s.subsidy, first)
	s.Equal(s.subsidy, second)
	s.Equal(int32(1), s.upstream.reads.Load())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Lookups.WithLabelValues("hit")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Lookups.WithLabelValues("miss")))
	s.True(s.mr.Exists(keyFor(s.subsidy.VersionID)))
}

func (s *CacheSuite) TestConceptVersionsAreNotCached() {
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := s.cache.ReadCaseType(ctx, s.concept.VersionID)
		s.Require().NoError(err)
	}
	s.Equal(int32(2), s.upstream.reads.Load())
	s.False(s.mr.Exists(keyFor(s.concept.VersionID)))
}

func (s *CacheSuite) TestEntriesExpire() {
	ctx := context.Background()
	_, err := s.cache.ReadCaseType(ctx, s.subsidy.VersionID)
	s.Require().NoError(err)

	s.mr.FastForward(2 * time.Minute)

	_, err = s.cache.ReadCaseType(ctx, s.subsidy.VersionID)
	s.Require().NoError(err)
	s.Equal(int32(2), s.upstream.reads.Load())
}

func (s *CacheSuite) TestInvalidate() {
	ctx := context.Background()
	_, err := s.cache.ReadCaseType(ctx, s.subsidy.VersionID)
	s.Require().NoError(err)

	s.Require().NoError(s.cache.Invalidate(ctx, s.subsidy.VersionID))
	s.False(s.mr.Exists(keyFor(s.subsidy.VersionID)))

	_, err = s.cache.ReadCaseType(ctx, s.subsidy.VersionID)
	s.Require().NoError(err)
	s.Equal(int32(2), s.upstream.reads.Load())
}

func (s *CacheSuite) TestUpstreamErrorsAreNotCached() {
	ctx := context.Background()
	s.upstream.err = errors.New("catalog down")

	_, err := s.cache.ReadCaseType(ctx, s.subsidy.VersionID)
	s.Error(err)
	s.False(s.mr.Exists(keyFor(s.subsidy.VersionID)))
}

func (s *CacheSuite) TestBackendFailureFallsThrough() {
	s.mr.Close()

	ct, err := s.cache.ReadCaseType(context.Background(), s.subsidy.VersionID)
	s.Require().NoError(err)
	s.Equal(s.subsidy.Description, ct.Description)
	s.GreaterOrEqual(testutil.ToFloat64(s.metrics.BackendErrors), 1.0)
}

func (s *CacheSuite) TestListPublishedWarmsCache() {
	ctx := context.Background()
	list, err := s.cache.ListPublished(ctx)
	s.Require().NoError(err)
	s.Len(list, 1)
	s.True(s.mr.Exists(keyFor(s.subsidy.VersionID)))

	_, err = s.cache.ReadCaseType(ctx, s.subsidy.VersionID)
	s.Require().NoError(err)
	s.Equal(int32(0), s.upstream.reads.Load())
}

func TestConcurrentMissesShareOneRead(t *testing.T) {
	ct := caseType("Subsidie", false)
	upstream := newFakeUpstream(ct)
	upstream.release = make(chan struct{})
	c, err := New(upstream, NewMemoryBackend())
	require.NoError(t, err)

	const callers = 8
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer done.Done()
			started.Done()
			got, err := c.ReadCaseType(context.Background(), ct.VersionID)
			assert.NoError(t, err)
			assert.Equal(t, ct.Description, got.Description)
		}()
	}
	started.Wait()
	require.Eventually(t, func() bool { return upstream.reads.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(upstream.release)
	done.Wait()

	assert.Equal(t, int32(1), upstream.reads.Load())
}

func TestMemoryBackendExpiry(t *testing.T) {
	b := NewMemoryBackend()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(time.Minute)
	_, err = b.Get(ctx, "k")
	assert.ErrorIs(t, err, errMiss)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, NewMemoryBackend())
	assert.Error(t, err)
	_, err = New(newFakeUpstream(), nil)
	assert.Error(t, err)
}
