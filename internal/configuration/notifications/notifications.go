// Package notifications turns catalog version-published notifications into
// configuration migrations. The Kafka consumer and the HTTP webhook share it.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"zac/internal/configuration/models"
	"zac/internal/configuration/resolver"
	"zac/internal/platform/kafka"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/requestcontext"
)

// Migrator applies a published version to the configuration store.
type Migrator interface {
	OnVersionPublished(ctx context.Context, n models.VersionPublished) (resolver.Outcome, error)
}

// Invalidator drops a cached catalog read.
type Invalidator interface {
	Invalidate(ctx context.Context, versionID id.CaseTypeVersionID) error
}

// Ingress handles decoded notifications.
type Ingress struct {
	migrator Migrator
	cache    Invalidator
	logger   *slog.Logger
}

type Option func(*Ingress)

func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingress) {
		i.logger = logger
	}
}

// WithCache makes every notification evict the version from the catalog cache.
func WithCache(cache Invalidator) Option {
	return func(i *Ingress) {
		i.cache = cache
	}
}

func New(migrator Migrator, opts ...Option) (*Ingress, error) {
	if migrator == nil {
		return nil, errors.New("migrator is required")
	}
	i := &Ingress{migrator: migrator, logger: slog.Default()}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Decode parses one notification body. Unknown fields are rejected.
func Decode(data []byte) (models.VersionPublished, error) {
	var n models.VersionPublished
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&n); err != nil {
		return models.VersionPublished{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid notification body")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return models.VersionPublished{}, dErrors.New(dErrors.CodeBadRequest, "notification body must hold a single object")
	}
	if n.VersionID.IsNil() {
		return models.VersionPublished{}, dErrors.New(dErrors.CodeValidation, "version_id is required")
	}
	return n, nil
}

// Handle evicts the cached catalog read and runs the migration.
func (i *Ingress) Handle(ctx context.Context, n models.VersionPublished) (resolver.Outcome, error) {
	if i.cache != nil {
		if err := i.cache.Invalidate(ctx, n.VersionID); err != nil {
			i.logger.WarnContext(ctx, "failed to invalidate cached case type",
				"version_id", n.VersionID,
				"error", err,
			)
		}
	}
	return i.migrator.OnVersionPublished(ctx, n)
}

// Record returns the Kafka handler for the catalog topic. Records that fail
// are logged and skipped by the consumer; the periodic reconcile repairs them.
func (i *Ingress) Record() kafka.Handler {
	return func(ctx context.Context, r *kgo.Record) error {
		if rid := kafka.Header(r, "request_id"); rid != "" {
			ctx = requestcontext.WithRequestID(ctx, rid)
		}
		n, err := Decode(r.Value)
		if err != nil {
			return err
		}
		outcome, err := i.Handle(ctx, n)
		if err != nil {
			return err
		}
		i.logger.DebugContext(ctx, "catalog notification consumed",
			"version_id", n.VersionID,
			"offset", r.Offset,
			"outcome", outcome,
		)
		return nil
	}
}
