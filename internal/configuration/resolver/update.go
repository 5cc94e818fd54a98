package resolver

import (
	"context"
	"strings"

	"zac/internal/configuration/models"
	dErrors "zac/pkg/domain-errors"
	pstrings "zac/pkg/platform/strings"
	"zac/pkg/requestcontext"
)

// Update replaces the administrator-managed fields of an existing
// configuration. Completion reasons must reference result types of the
// configuration's own version. The record stops being a placeholder.
func (r *Resolver) Update(ctx context.Context, cfg *models.Configuration) (*models.Configuration, error) {
	ctx, span := r.tracer.Start(ctx, "configuration.Update")
	defer span.End()

	if cfg == nil || cfg.CaseTypeVersionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "version id is required")
	}
	next := cfg.Clone()
	if err := normalize(next); err != nil {
		return nil, err
	}

	ct, err := r.catalog.ReadCaseType(ctx, next.CaseTypeVersionID)
	if err != nil {
		return nil, translateCatalogError(err)
	}
	for reason, cr := range next.CompletionReasons {
		rt, ok := resultTypeByRef(ct.ResultTypes, cr.ResultTypeRef)
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeValidation,
				"ending reason %s maps to result type %s which is not part of case type version %s",
				reason, cr.ResultTypeRef, next.CaseTypeVersionID)
		}
		next.CompletionReasons[reason] = models.CompletionReason{ResultTypeRef: rt.Ref, ResultTypeDescription: rt.Description}
	}

	now := requestcontext.Now(ctx)
	var saved *models.Configuration
	err = r.store.RunInTx(ctx, ct.Description, func(tx Store) error {
		current, err := tx.FindByVersionID(ctx, next.CaseTypeVersionID)
		if err != nil {
			return err
		}
		next.CaseTypeDescription = current.CaseTypeDescription
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = now
		next.Placeholder = false
		if err := tx.Update(ctx, next); err != nil {
			return err
		}
		if err := tx.ReplaceBindings(ctx, next.CaseTypeVersionID, next.MailTemplateBindings); err != nil {
			return err
		}
		saved = next
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, r.translateStoreError(err, "failed to update configuration")
	}

	r.logger.InfoContext(ctx, "configuration updated",
		"version_id", saved.CaseTypeVersionID,
		"actor", requestcontext.Actor(ctx),
		"completion_reasons", len(saved.CompletionReasons),
	)
	return saved, nil
}

func normalize(cfg *models.Configuration) error {
	cfg.HumanTaskDefinitions = pstrings.DedupeAndTrim(cfg.HumanTaskDefinitions)
	cfg.UserEventListenerDefinitions = pstrings.DedupeAndTrim(cfg.UserEventListenerDefinitions)
	cfg.DefaultGroup = strings.TrimSpace(cfg.DefaultGroup)
	cfg.DefaultUser = strings.TrimSpace(cfg.DefaultUser)

	cfg.SenderPolicy.Allowed = pstrings.DedupeAndTrimLower(cfg.SenderPolicy.Allowed)
	cfg.SenderPolicy.Default = strings.ToLower(strings.TrimSpace(cfg.SenderPolicy.Default))
	if cfg.SenderPolicy.Default != "" && !pstrings.ContainsFold(cfg.SenderPolicy.Allowed, cfg.SenderPolicy.Default) {
		return dErrors.Newf(dErrors.CodeValidation, "default sender %q is not an allowed sender", cfg.SenderPolicy.Default)
	}

	for kind, tmpl := range cfg.MailTemplateBindings {
		if strings.TrimSpace(kind) == "" || strings.TrimSpace(tmpl) == "" {
			return dErrors.New(dErrors.CodeValidation, "mail template bindings need a kind and a template id")
		}
	}
	for reason, cr := range cfg.CompletionReasons {
		if reason <= 0 {
			return dErrors.Newf(dErrors.CodeValidation, "ending reason id %s is not valid", reason)
		}
		if cr.ResultTypeRef.IsNil() {
			return dErrors.Newf(dErrors.CodeValidation, "ending reason %s has no result type", reason)
		}
	}
	return nil
}
