package integration

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// ERP Errors
// ---------------------------------------------------------------------------

var (
	ErrErpNotConfigured    = errors.New("integration: ERP not configured")
	ErrErpUnavailable      = errors.New("integration: ERP temporarily unavailable")
	ErrErpRequestFailed    = errors.New("integration: ERP request failed")
	ErrErpInvalidResponse  = errors.New("integration: invalid ERP response")
	ErrErpAuthFailed       = errors.New("integration: ERP authentication failed")
	ErrErpRateLimited      = errors.New("integration: ERP rate limited")
	ErrErpProductNotFound  = errors.New("integration: ERP product not found")
	ErrErpProductIDMissing = errors.New("integration: ERP product id missing")
)

// ---------------------------------------------------------------------------
// ERP product types
// ---------------------------------------------------------------------------

// ErpProductPrice is a sales price of an ERP product in one currency
type ErpProductPrice struct {
	UnitPrice decimal.Decimal
	Currency  string
}

// ErpProduct is a product as the ERP stores it
type ErpProduct struct {
	ID                string
	OrganizationID    string
	Name              string
	Description       string
	ProductNo         string
	AccountID         string
	SalesTaxRulesetID string
	IsArchived        bool
	Prices            []ErpProductPrice
}

// PrimaryPrice returns the first price, if any
func (p ErpProduct) PrimaryPrice() (ErpProductPrice, bool) {
	if len(p.Prices) == 0 {
		return ErpProductPrice{}, false
	}
	return p.Prices[0], true
}

// ErpProductDraft is the local data sent to the ERP on create and update.
// Organization, account and tax ruleset are filled in by the adapter from its configuration.
type ErpProductDraft struct {
	Name        string
	Description string
	ProductNo   string
	Prices      []ErpProductPrice
}

// ErpProductPage is one page of an ERP product listing
type ErpProductPage struct {
	Products  []ErpProduct
	Page      int
	PageCount int
	Total     int
}

// HasMore reports whether a subsequent page exists
func (p ErpProductPage) HasMore() bool {
	return p.Page < p.PageCount
}

// ---------------------------------------------------------------------------
// ErpProductCatalog port
// ---------------------------------------------------------------------------

// ErpProductCatalog is the port to the ERP's product endpoints
type ErpProductCatalog interface {
	// Name returns the provider identifier
	Name() string

	// CreateProduct creates a product at the ERP and returns it with its ERP id
	CreateProduct(ctx context.Context, draft ErpProductDraft) (*ErpProduct, error)

	// GetProduct retrieves a product; returns ErrErpProductNotFound when absent
	GetProduct(ctx context.Context, erpID string) (*ErpProduct, error)

	// UpdateProduct overwrites the descriptive fields of an ERP product
	UpdateProduct(ctx context.Context, erpID string, draft ErpProductDraft) (*ErpProduct, error)

	// DeleteProduct deletes a product; returns ErrErpProductNotFound when absent
	DeleteProduct(ctx context.Context, erpID string) error

	// ListProducts returns a 1-based page of the organization's products
	ListProducts(ctx context.Context, page, pageSize int) (*ErpProductPage, error)
}

// ---------------------------------------------------------------------------
// SyncStatus represents the outcome of an import run
// ---------------------------------------------------------------------------

// SyncStatus represents the outcome of an import run
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "SUCCESS"
	SyncStatusPartial SyncStatus = "PARTIAL"
	SyncStatusFailed  SyncStatus = "FAILED"
)

// IsValid returns true if the status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusSuccess, SyncStatusPartial, SyncStatusFailed:
		return true
	}
	return false
}

// String returns the string representation
func (s SyncStatus) String() string {
	return string(s)
}

// SyncFailure represents a failed import item
type SyncFailure struct {
	// ItemID is the ERP id of the failed item
	ItemID string `json:"item_id"`
	// ErrorCode is a short machine readable reason
	ErrorCode string `json:"error_code"`
	// ErrorMessage is the error description
	ErrorMessage string `json:"error_message"`
}

// SyncResult summarizes an import run
type SyncResult struct {
	Status       SyncStatus
	TotalCount   int
	SuccessCount int
	SkippedCount int
	FailedItems  []SyncFailure
	SyncedAt     time.Time
}

// ResolveStatus derives the overall status from the counters
func (r *SyncResult) ResolveStatus() SyncStatus {
	failed := len(r.FailedItems)
	switch {
	case failed == 0:
		r.Status = SyncStatusSuccess
	case r.SuccessCount > 0:
		r.Status = SyncStatusPartial
	default:
		r.Status = SyncStatusFailed
	}
	return r.Status
}
