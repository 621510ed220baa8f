package catalog

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/erp/productsync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// SyncState describes where a product currently lives
type SyncState string

const (
	// SyncStateLocalOnly is a product persisted locally whose ERP creation is in flight
	SyncStateLocalOnly SyncState = "LOCAL_ONLY"
	// SyncStateMirrored is a product present both locally and at the ERP
	SyncStateMirrored SyncState = "MIRRORED"
	// SyncStateDeleted is terminal; deleted products are not persisted
	SyncStateDeleted SyncState = "DELETED"
)

// IsValid checks if the state is a known value
func (s SyncState) IsValid() bool {
	switch s {
	case SyncStateLocalOnly, SyncStateMirrored, SyncStateDeleted:
		return true
	}
	return false
}

// String returns the string representation
func (s SyncState) String() string {
	return string(s)
}

const (
	MaxNameLength        = 200
	MaxDescriptionLength = 2000
	MaxProductNoLength   = 50
	MaxSyncErrorLength   = 1000
	DefaultCurrency      = "DKK"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Product is a local product mirrored to the ERP
type Product struct {
	shared.BaseEntity
	Name          string
	Description   string
	ProductNo     string
	UnitPrice     decimal.Decimal
	Currency      string
	ErpID         *string
	SyncState     SyncState
	LastSyncedAt  *time.Time
	LastSyncError string
}

// ProductOptions holds the optional attributes of a new product
type ProductOptions struct {
	Description string
	ProductNo   string
	UnitPrice   decimal.Decimal
	Currency    string
}

// NewProduct creates a product that is about to be created at the ERP
func NewProduct(name string, opts ProductOptions) (*Product, error) {
	p := &Product{
		BaseEntity: shared.NewBaseEntity(),
		SyncState:  SyncStateLocalOnly,
	}
	if err := p.apply(name, opts); err != nil {
		return nil, err
	}
	return p, nil
}

// NewMirroredProduct creates the local mirror of a product that already exists at the ERP
func NewMirroredProduct(erpID, name string, opts ProductOptions) (*Product, error) {
	erpID = strings.TrimSpace(erpID)
	if erpID == "" {
		return nil, shared.NewValidationError("ERP product id cannot be empty")
	}
	p, err := NewProduct(name, opts)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	p.ErpID = &erpID
	p.SyncState = SyncStateMirrored
	p.LastSyncedAt = &now
	return p, nil
}

func (p *Product) apply(name string, opts ProductOptions) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	description := norm.NFC.String(strings.TrimSpace(opts.Description))
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return shared.NewValidationError("Product description cannot exceed 2000 characters")
	}
	productNo := strings.TrimSpace(opts.ProductNo)
	if utf8.RuneCountInString(productNo) > MaxProductNoLength {
		return shared.NewValidationError("Product number cannot exceed 50 characters")
	}
	if opts.UnitPrice.IsNegative() {
		return shared.NewValidationError("Unit price cannot be negative")
	}
	currency := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if currency == "" && !opts.UnitPrice.IsZero() {
		currency = DefaultCurrency
	}
	if currency != "" && !currencyPattern.MatchString(currency) {
		return shared.NewValidationError("Currency must be a three-letter ISO 4217 code")
	}

	p.Name = name
	p.Description = description
	p.ProductNo = productNo
	p.UnitPrice = opts.UnitPrice
	p.Currency = currency
	return nil
}

// MarkMirrored records a successful remote creation
func (p *Product) MarkMirrored(erpID string) error {
	if p.SyncState != SyncStateLocalOnly {
		return shared.NewDomainError(shared.CodeInvalidState, "Only local products can be mirrored")
	}
	erpID = strings.TrimSpace(erpID)
	if erpID == "" {
		return shared.NewValidationError("ERP product id cannot be empty")
	}
	now := time.Now()
	p.ErpID = &erpID
	p.SyncState = SyncStateMirrored
	p.LastSyncedAt = &now
	p.LastSyncError = ""
	p.UpdatedAt = now
	return nil
}

// MarkDeleted moves the product into its terminal state
func (p *Product) MarkDeleted() error {
	if p.SyncState == SyncStateDeleted {
		return shared.NewDomainError(shared.CodeInvalidState, "Product is already deleted")
	}
	p.SyncState = SyncStateDeleted
	p.Touch()
	return nil
}

// Rename updates the product's descriptive fields
func (p *Product) Rename(name, description string) error {
	if p.SyncState == SyncStateDeleted {
		return shared.NewDomainError(shared.CodeInvalidState, "Deleted products cannot be updated")
	}
	opts := ProductOptions{
		Description: description,
		ProductNo:   p.ProductNo,
		UnitPrice:   p.UnitPrice,
		Currency:    p.Currency,
	}
	if err := p.apply(name, opts); err != nil {
		return err
	}
	p.Touch()
	return nil
}

// RecordSyncSuccess stamps the last successful remote call
func (p *Product) RecordSyncSuccess() {
	now := time.Now()
	p.LastSyncedAt = &now
	p.LastSyncError = ""
	p.UpdatedAt = now
}

// RecordSyncFailure keeps the last remote error for diagnostics
func (p *Product) RecordSyncFailure(err error) {
	if err == nil {
		return
	}
	msg := strings.ToValidUTF8(err.Error(), "\uFFFD")
	if utf8.RuneCountInString(msg) > MaxSyncErrorLength {
		msg = string([]rune(msg)[:MaxSyncErrorLength])
	}
	p.LastSyncError = msg
	p.Touch()
}

// IsMirrored reports whether the product has an ERP counterpart
func (p *Product) IsMirrored() bool {
	return p.SyncState == SyncStateMirrored && p.ErpID != nil
}

// ErpIDValue returns the ERP id or an empty string
func (p *Product) ErpIDValue() string {
	if p.ErpID == nil {
		return ""
	}
	return *p.ErpID
}

// IDString returns the product id as string
func (p *Product) IDString() string {
	return p.ID.String()
}

// ParseProductID parses a product id, returning a validation error on bad input
func ParseProductID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, shared.NewValidationError("Invalid product ID format")
	}
	return id, nil
}

func normalizeName(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return "", shared.NewValidationError("Product name cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", shared.NewValidationError("Product name cannot exceed 200 characters")
	}
	return name, nil
}
