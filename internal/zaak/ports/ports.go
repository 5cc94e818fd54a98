// Package ports defines the stores and external collaborators the zaak
// service depends on.
package ports

import (
	"context"

	catalog "zac/internal/catalog/models"
	cfgmodels "zac/internal/configuration/models"
	"zac/internal/platform/outbox"
	"zac/internal/zaak/models"
	"zac/internal/zaak/relation"
	id "zac/pkg/domain"
)

// CaseStore persists cases. Update is a conditional write: it fails with
// sentinel.ErrStale when the stored version differs from expectedVersion and
// bumps the version on success. Missing cases yield sentinel.ErrNotFound;
// Create on a taken id or identification yields sentinel.ErrConflict.
type CaseStore interface {
	FindByID(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	FindByIdentification(ctx context.Context, identification string) (*models.Case, error)
	Create(ctx context.Context, c *models.Case) error
	Update(ctx context.Context, c *models.Case, expectedVersion int64) error
}

// Stores are the stores available inside a transaction.
type Stores struct {
	Cases     CaseStore
	Relations relation.Store
	Outbox    outbox.Writer
}

// TxRunner runs fn in one transaction. The ctx passed to fn carries it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// CaseTypeCatalog reads case types.
type CaseTypeCatalog interface {
	ReadCaseType(ctx context.Context, versionID id.CaseTypeVersionID) (catalog.CaseType, error)
}

// ConfigurationResolver returns the configuration for a case-type version.
type ConfigurationResolver interface {
	Resolve(ctx context.Context, versionID id.CaseTypeVersionID) (*cfgmodels.Configuration, error)
}

// PermissionEvaluator decides whether the current actor may change a case.
type PermissionEvaluator interface {
	MayMutate(ctx context.Context, c *models.Case) (bool, error)
}

// OpenTaskProvider lists the open human tasks of a case.
type OpenTaskProvider interface {
	ListOpenTasks(ctx context.Context, caseID id.CaseID) ([]models.Task, error)
}

// DecisionRegistry reports whether a decision is attached to a case.
type DecisionRegistry interface {
	HasAttachedDecision(ctx context.Context, c *models.Case) (bool, error)
}

// Dispatcher hands follow-up instructions to their executors. Each
// instruction is retried on its own; Dispatch only reports failures to hand
// them over.
type Dispatcher interface {
	Dispatch(ctx context.Context, instructions []models.Instruction) error
}
