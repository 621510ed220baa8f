package catalog

import (
	"context"
	"errors"

	"github.com/erp/productsync/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrDuplicateErpID is the cause of a conflict when an ERP product is already mirrored locally
var ErrDuplicateErpID = errors.New("catalog: ERP product already mirrored")

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByErpID finds the local mirror of an ERP product
	FindByErpID(ctx context.Context, erpID string) (*Product, error)

	// FindByErpIDs returns the local mirrors of the given ERP ids keyed by ERP id
	FindByErpIDs(ctx context.Context, erpIDs []string) (map[string]*Product, error)

	// FindAll finds all products matching the filter.
	// Filters["sync_state"] restricts the result to one SyncState,
	// Filters["search"] matches a substring of the name.
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)

	// Count counts products matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates or updates a product.
	// Returns a conflict wrapping ErrDuplicateErpID when the ERP id is already mirrored.
	Save(ctx context.Context, product *Product) error

	// Delete deletes a product; returns a not found error when absent
	Delete(ctx context.Context, id uuid.UUID) error
}
