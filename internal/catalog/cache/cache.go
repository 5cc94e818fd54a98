// Package cache fronts the catalog with a read-through case-type cache.
//
// Published case-type versions are immutable in the catalog, so a cached
// entry only goes away by TTL or by an explicit Invalidate when the catalog
// announces a republication. Concept versions are never cached. Concurrent
// misses for the same version share one upstream call.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"zac/internal/catalog/metrics"
	"zac/internal/catalog/models"
	id "zac/pkg/domain"
)

const (
	defaultTTL = 5 * time.Minute
	keyPrefix  = "zac:catalog:casetype:"
)

// Upstream is the uncached catalog.
type Upstream interface {
	ReadCaseType(ctx context.Context, versionID id.CaseTypeVersionID) (models.CaseType, error)
	ListPublished(ctx context.Context) ([]models.CaseType, error)
}

// Catalog is a caching Upstream.
type Catalog struct {
	upstream Upstream
	backend  Backend
	ttl      time.Duration
	group    singleflight.Group
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Catalog)

func WithTTL(ttl time.Duration) Option {
	return func(c *Catalog) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Catalog) {
		c.metrics = m
	}
}

func New(upstream Upstream, backend Backend, opts ...Option) (*Catalog, error) {
	if upstream == nil {
		return nil, errors.New("upstream catalog is required")
	}
	if backend == nil {
		return nil, errors.New("cache backend is required")
	}
	c := &Catalog{
		upstream: upstream,
		backend:  backend,
		ttl:      defaultTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ReadCaseType returns the cached case type or reads and caches it.
// Backend failures are logged and fall through to the catalog.
func (c *Catalog) ReadCaseType(ctx context.Context, versionID id.CaseTypeVersionID) (models.CaseType, error) {
	key := keyFor(versionID)
	if ct, ok := c.lookup(ctx, key); ok {
		c.metrics.IncrementHit()
		return ct, nil
	}
	c.metrics.IncrementMiss()

	v, err, _ := c.group.Do(key, func() (any, error) {
		ct, err := c.upstream.ReadCaseType(ctx, versionID)
		if err != nil {
			return models.CaseType{}, err
		}
		c.store(ctx, ct)
		return ct, nil
	})
	if err != nil {
		return models.CaseType{}, err
	}
	return cloneCaseType(v.(models.CaseType)), nil
}

// ListPublished always asks the catalog and refreshes the cache with the result.
func (c *Catalog) ListPublished(ctx context.Context) ([]models.CaseType, error) {
	list, err := c.upstream.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	for _, ct := range list {
		c.store(ctx, ct)
	}
	return list, nil
}

// Invalidate drops the cached entry for versionID.
func (c *Catalog) Invalidate(ctx context.Context, versionID id.CaseTypeVersionID) error {
	c.group.Forget(keyFor(versionID))
	if err := c.backend.Delete(ctx, keyFor(versionID)); err != nil {
		c.metrics.IncrementBackendError()
		return err
	}
	c.metrics.IncrementInvalidation()
	return nil
}

func (c *Catalog) lookup(ctx context.Context, key string) (models.CaseType, bool) {
	raw, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, errMiss) {
			c.metrics.IncrementBackendError()
			c.logger.WarnContext(ctx, "catalog cache read failed", "key", key, "error", err)
		}
		return models.CaseType{}, false
	}
	var ct models.CaseType
	if err := json.Unmarshal(raw, &ct); err != nil {
		c.logger.WarnContext(ctx, "discarding undecodable catalog cache entry", "key", key, "error", err)
		_ = c.backend.Delete(ctx, key)
		return models.CaseType{}, false
	}
	return ct, true
}

func (c *Catalog) store(ctx context.Context, ct models.CaseType) {
	if ct.IsConcept {
		return
	}
	raw, err := json.Marshal(ct)
	if err != nil {
		return
	}
	if err := c.backend.Set(ctx, keyFor(ct.VersionID), raw, c.ttl); err != nil {
		c.metrics.IncrementBackendError()
		c.logger.WarnContext(ctx, "catalog cache write failed", "version_id", ct.VersionID.String(), "error", err)
	}
}

func keyFor(versionID id.CaseTypeVersionID) string {
	return keyPrefix + versionID.String()
}

func cloneCaseType(ct models.CaseType) models.CaseType {
	ct.ResultTypes = append([]models.ResultType(nil), ct.ResultTypes...)
	return ct
}
