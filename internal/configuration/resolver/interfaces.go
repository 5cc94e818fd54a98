package resolver

import (
	"context"

	catalog "zac/internal/catalog/models"
	"zac/internal/configuration/models"
	id "zac/pkg/domain"
)

// Store is the configuration repository. Lookups return copies that include
// the record's template bindings. Missing rows yield sentinel.ErrNotFound;
// Create on an existing version id yields sentinel.ErrConflict.
type Store interface {
	FindByVersionID(ctx context.Context, versionID id.CaseTypeVersionID) (*models.Configuration, error)
	FindLatestByDescription(ctx context.Context, description string) (*models.Configuration, error)
	Create(ctx context.Context, cfg *models.Configuration) error
	Update(ctx context.Context, cfg *models.Configuration) error
	CopyBindings(ctx context.Context, from, to id.CaseTypeVersionID) error
	ReplaceBindings(ctx context.Context, versionID id.CaseTypeVersionID, bindings map[string]string) error
}

// TxStore runs fn atomically. Transactions sharing a key are serialized.
type TxStore interface {
	Store
	RunInTx(ctx context.Context, key string, fn func(store Store) error) error
}

// Catalog reads case types from the catalog.
type Catalog interface {
	ReadCaseType(ctx context.Context, versionID id.CaseTypeVersionID) (catalog.CaseType, error)
	ListPublished(ctx context.Context) ([]catalog.CaseType, error)
}
