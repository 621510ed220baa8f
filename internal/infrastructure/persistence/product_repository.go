package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/productsync/internal/domain/catalog"
	"github.com/erp/productsync/internal/domain/shared"
	"github.com/erp/productsync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// erpIDChunkSize bounds the IN list of FindByErpIDs
const erpIDChunkSize = 500

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Product", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByErpID finds the local mirror of an ERP product
func (r *GormProductRepository) FindByErpID(ctx context.Context, erpID string) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "erp_id = ?", erpID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Product with ERP id", erpID)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByErpIDs returns the local mirrors of the given ERP ids keyed by ERP id.
// Unknown ids are absent from the map.
func (r *GormProductRepository) FindByErpIDs(ctx context.Context, erpIDs []string) (map[string]*catalog.Product, error) {
	result := make(map[string]*catalog.Product, len(erpIDs))
	for start := 0; start < len(erpIDs); start += erpIDChunkSize {
		end := min(start+erpIDChunkSize, len(erpIDs))

		var rows []models.ProductModel
		if err := r.db.WithContext(ctx).
			Where("erp_id IN ?", erpIDs[start:end]).
			Find(&rows).Error; err != nil {
			return nil, err
		}
		for i := range rows {
			p := rows[i].ToDomain()
			result[p.ErpIDValue()] = p
		}
	}
	return result, nil
}

// FindAll finds all products matching the filter
func (r *GormProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	filter = filter.Normalize()

	var rows []models.ProductModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProductModel{}), filter)

	orderBy := ValidateSortField(filter.OrderBy, ProductSortFields, "created_at")
	query = query.Order(fmt.Sprintf("%s %s", orderBy, ValidateSortOrder(filter.OrderDir)))
	if orderBy != "created_at" {
		query = query.Order("created_at DESC")
	}

	if err := query.Offset(filter.Offset()).Limit(filter.PageSize).Find(&rows).Error; err != nil {
		return nil, err
	}

	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products, nil
}

// Count counts products matching the filter
func (r *GormProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProductModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	model := models.ProductModelFromDomain(product)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.WrapDomainError(
				shared.CodeConflict,
				fmt.Sprintf("Product with ERP id %s already exists", product.ErpIDValue()),
				catalog.ErrDuplicateErpID,
			)
		}
		return err
	}
	return nil
}

// Delete deletes a product
func (r *GormProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ProductModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Product", id.String())
	}
	return nil
}

func (r *GormProductRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if state, ok := filter.Filters["sync_state"]; ok {
		switch v := state.(type) {
		case catalog.SyncState:
			query = query.Where("sync_state = ?", string(v))
		case string:
			if v != "" {
				query = query.Where("sync_state = ?", strings.ToUpper(v))
			}
		}
	}
	if search, ok := filter.Filters["search"].(string); ok && search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	return query
}

// isDuplicateKey reports a unique constraint violation.
// TranslateError covers both drivers; the message checks cover handles opened without it.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// Ensure GormProductRepository implements catalog.ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
