// Package resolver keeps case-type configurations in step with the catalog.
//
// When the catalog publishes a new version of a case type, OnVersionPublished
// derives that version's configuration from the latest configuration of the
// same case type (matched by description), remapping completion reasons onto
// the new version's result types. Reads go through Resolve, which migrates
// lazily when a notification was missed.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	catalog "zac/internal/catalog/models"
	"zac/internal/configuration/metrics"
	"zac/internal/configuration/models"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/platform/sentinel"
	"zac/pkg/requestcontext"
)

// Outcome reports which branch a version-published notification took.
type Outcome string

const (
	OutcomeSkippedConcept Outcome = "skipped_concept"
	OutcomeRevalidated    Outcome = "revalidated"
	OutcomePlaceholder    Outcome = "placeholder"
	OutcomeMigrated       Outcome = "migrated"
)

// Resolver resolves and migrates case-type configurations.
type Resolver struct {
	store   TxStore
	catalog Catalog
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// New constructs a Resolver.
func New(store TxStore, cat Catalog, opts ...Option) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("configuration store is required")
	}
	if cat == nil {
		return nil, errors.New("catalog is required")
	}
	r := &Resolver{
		store:   store,
		catalog: cat,
		logger:  slog.Default(),
		tracer:  otel.Tracer("zac/configuration/resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// OnVersionPublished brings the configuration store in line with a newly
// published case-type version. Re-running it with the same input is a no-op.
func (r *Resolver) OnVersionPublished(ctx context.Context, n models.VersionPublished) (Outcome, error) {
	ctx, span := r.tracer.Start(ctx, "configuration.OnVersionPublished", trace.WithAttributes(
		attribute.String("version_id", n.VersionID.String()),
		attribute.String("description", n.Description),
		attribute.Bool("is_concept", n.IsConcept),
	))
	defer span.End()

	if n.VersionID.IsNil() {
		return "", dErrors.New(dErrors.CodeValidation, "version id is required")
	}
	if n.IsConcept {
		r.logger.InfoContext(ctx, "ignoring concept case type version",
			"version_id", n.VersionID,
			"description", n.Description,
		)
		r.metrics.IncrementMigration(string(OutcomeSkippedConcept))
		return OutcomeSkippedConcept, nil
	}
	if n.Description == "" {
		return "", dErrors.New(dErrors.CodeValidation, "case type description is required")
	}

	start := time.Now()
	defer r.metrics.ObserveMigration(start)

	var outcome Outcome
	err := r.store.RunInTx(ctx, n.Description, func(tx Store) error {
		var err error
		outcome, err = r.migrate(ctx, tx, n)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "migration failed")
		return "", r.translateStoreError(err, "failed to migrate configuration")
	}

	span.SetAttributes(attribute.String("outcome", string(outcome)))
	r.metrics.IncrementMigration(string(outcome))
	r.logger.InfoContext(ctx, "case type version processed",
		"version_id", n.VersionID,
		"description", n.Description,
		"outcome", outcome,
	)
	return outcome, nil
}

func (r *Resolver) migrate(ctx context.Context, tx Store, n models.VersionPublished) (Outcome, error) {
	now := requestcontext.Now(ctx)

	existing, err := tx.FindByVersionID(ctx, n.VersionID)
	switch {
	case err == nil:
		if !r.revalidate(ctx, existing, n.ResultTypes) {
			return OutcomeRevalidated, nil
		}
		existing.UpdatedAt = now
		return OutcomeRevalidated, tx.Update(ctx, existing)
	case !errors.Is(err, sentinel.ErrNotFound):
		return "", err
	}

	previous, err := tx.FindLatestByDescription(ctx, n.Description)
	if errors.Is(err, sentinel.ErrNotFound) {
		return OutcomePlaceholder, tx.Create(ctx, models.NewPlaceholder(n.VersionID, n.Description, now))
	}
	if err != nil {
		return "", err
	}

	next := r.derive(ctx, previous, n, now)
	if err := tx.Create(ctx, next); err != nil {
		return "", err
	}
	if err := tx.CopyBindings(ctx, previous.CaseTypeVersionID, next.CaseTypeVersionID); err != nil {
		return "", err
	}
	return OutcomeMigrated, nil
}

// revalidate drops completion reasons whose result type is no longer part of
// the version. It reports whether cfg changed.
func (r *Resolver) revalidate(ctx context.Context, cfg *models.Configuration, resultTypes []catalog.ResultType) bool {
	changed := false
	for reason, cr := range cfg.CompletionReasons {
		rt, ok := resultTypeByRef(resultTypes, cr.ResultTypeRef)
		if !ok {
			r.warnDangling(ctx, cfg.CaseTypeVersionID, reason, cr)
			delete(cfg.CompletionReasons, reason)
			changed = true
			continue
		}
		if rt.Description != cr.ResultTypeDescription {
			cfg.CompletionReasons[reason] = models.CompletionReason{ResultTypeRef: rt.Ref, ResultTypeDescription: rt.Description}
			changed = true
		}
	}
	return changed
}

// derive copies previous into a record for the new version and remaps its
// completion reasons by result type description.
func (r *Resolver) derive(ctx context.Context, previous *models.Configuration, n models.VersionPublished, now time.Time) *models.Configuration {
	next := previous.Clone()
	next.CaseTypeVersionID = n.VersionID
	next.CaseTypeDescription = n.Description
	next.CreatedAt = now
	next.UpdatedAt = now
	next.CompletionReasons = make(map[id.EndingReasonID]models.CompletionReason, len(previous.CompletionReasons))

	for reason, cr := range previous.CompletionReasons {
		rt, ok := resultTypeByDescription(n.ResultTypes, cr.ResultTypeDescription)
		if !ok {
			r.warnDangling(ctx, n.VersionID, reason, cr)
			continue
		}
		next.CompletionReasons[reason] = models.CompletionReason{ResultTypeRef: rt.Ref, ResultTypeDescription: rt.Description}
	}
	return next
}

func (r *Resolver) warnDangling(ctx context.Context, versionID id.CaseTypeVersionID, reason id.EndingReasonID, cr models.CompletionReason) {
	r.logger.WarnContext(ctx, "dropping completion reason with dangling result type",
		"event", "dangling_result_type_reference",
		"version_id", versionID,
		"ending_reason_id", reason,
		"result_type_ref", cr.ResultTypeRef,
		"result_type_description", cr.ResultTypeDescription,
	)
	r.metrics.IncrementDroppedCompletionReason()
}

// Resolve returns the configuration for a case-type version, migrating on
// demand when the version was never processed. Concept versions resolve to an
// unsaved placeholder.
func (r *Resolver) Resolve(ctx context.Context, versionID id.CaseTypeVersionID) (*models.Configuration, error) {
	cfg, err := r.store.FindByVersionID(ctx, versionID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load configuration")
	}

	ct, err := r.catalog.ReadCaseType(ctx, versionID)
	if err != nil {
		return nil, translateCatalogError(err)
	}
	if ct.IsConcept {
		return models.NewPlaceholder(versionID, ct.Description, requestcontext.Now(ctx)), nil
	}

	n := models.FromCaseType(ct)
	n.VersionID = versionID
	if _, err := r.OnVersionPublished(ctx, n); err != nil {
		// A concurrent notification created the row first; read what it wrote.
		if !dErrors.HasCode(err, dErrors.CodeConcurrentModification) {
			return nil, err
		}
	}
	cfg, err = r.store.FindByVersionID(ctx, versionID)
	if err != nil {
		return nil, r.translateStoreError(err, "failed to load configuration")
	}
	return cfg, nil
}

// Get returns the stored configuration without migrating.
func (r *Resolver) Get(ctx context.Context, versionID id.CaseTypeVersionID) (*models.Configuration, error) {
	cfg, err := r.store.FindByVersionID(ctx, versionID)
	if err != nil {
		return nil, r.translateStoreError(err, "failed to load configuration")
	}
	return cfg, nil
}

// Reconcile re-processes every published case type in the catalog. Each
// version is handled independently; failures are joined.
func (r *Resolver) Reconcile(ctx context.Context) (int, error) {
	ctx, span := r.tracer.Start(ctx, "configuration.Reconcile")
	defer span.End()

	published, err := r.catalog.ListPublished(ctx)
	if err != nil {
		r.metrics.IncrementReconcile("error")
		return 0, translateCatalogError(err)
	}

	var errs []error
	processed := 0
	for _, ct := range published {
		if ct.IsConcept {
			continue
		}
		if _, err := r.OnVersionPublished(ctx, models.FromCaseType(ct)); err != nil {
			r.logger.ErrorContext(ctx, "reconcile failed for case type version",
				"version_id", ct.VersionID,
				"error", err,
			)
			errs = append(errs, err)
			continue
		}
		processed++
	}

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		r.metrics.IncrementReconcile("error")
		return processed, err
	}
	r.metrics.IncrementReconcile("ok")
	return processed, nil
}

func (r *Resolver) translateStoreError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConcurrentModification, "configuration was written concurrently; retry")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeConfigurationNotFound, "configuration not found")
	case dErrors.GetCode(err) != "":
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func translateCatalogError(err error) error {
	if dErrors.GetCode(err) != "" {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "case type version not found in catalog")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read case type")
}

func resultTypeByRef(resultTypes []catalog.ResultType, ref id.ResultTypeRef) (catalog.ResultType, bool) {
	for _, rt := range resultTypes {
		if rt.Ref == ref {
			return rt, true
		}
	}
	return catalog.ResultType{}, false
}

func resultTypeByDescription(resultTypes []catalog.ResultType, description string) (catalog.ResultType, bool) {
	if description == "" {
		return catalog.ResultType{}, false
	}
	for _, rt := range resultTypes {
		if rt.Description == description {
			return rt, true
		}
	}
	return catalog.ResultType{}, false
}
