package catalog

import (
	"time"

	"github.com/erp/productsync/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductInput represents a request to create a new product
type CreateProductInput struct {
	Name        string           `json:"product_name" binding:"required,min=1,max=200"`
	Description string           `json:"description" binding:"max=2000"`
	ProductNo   string           `json:"product_no" binding:"max=50"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Currency    string           `json:"currency" binding:"omitempty,len=3,alpha"`
}

// UpdateProductInput represents a request to update a product.
// A nil Description keeps the current value.
type UpdateProductInput struct {
	Name        string  `json:"product_name" binding:"required,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// ListProductsInput holds the query of a product listing
type ListProductsInput struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SyncState string `form:"sync_state" binding:"omitempty,oneof=LOCAL_ONLY MIRRORED local_only mirrored"`
	Search    string `form:"search" binding:"max=100"`
	OrderBy   string `form:"order_by" binding:"omitempty,oneof=created_at updated_at name product_no unit_price sync_state last_synced_at"`
	OrderDir  string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID            uuid.UUID       `json:"uuid"`
	ErpID         *string         `json:"product_erp_id"`
	Name          string          `json:"product_name"`
	Description   string          `json:"description"`
	ProductNo     string          `json:"product_no"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Currency      string          `json:"currency"`
	SyncState     string          `json:"sync_state"`
	LastSyncedAt  *time.Time      `json:"last_synced_at,omitempty"`
	LastSyncError string          `json:"last_sync_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProductListResponse is one page of products
type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// DeleteProductResponse confirms a deletion
type DeleteProductResponse struct {
	ID      uuid.UUID `json:"uuid"`
	ErpID   *string   `json:"product_erp_id"`
	Deleted bool      `json:"deleted"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		ErpID:         p.ErpID,
		Name:          p.Name,
		Description:   p.Description,
		ProductNo:     p.ProductNo,
		UnitPrice:     p.UnitPrice,
		Currency:      p.Currency,
		SyncState:     p.SyncState.String(),
		LastSyncedAt:  p.LastSyncedAt,
		LastSyncError: p.LastSyncError,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// ToProductResponses converts a slice of domain Products to ProductResponses
func ToProductResponses(products []catalog.Product) []ProductResponse {
	responses := make([]ProductResponse, len(products))
	for i := range products {
		responses[i] = ToProductResponse(&products[i])
	}
	return responses
}
