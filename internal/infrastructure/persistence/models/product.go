package models

import (
	"time"

	"github.com/erp/productsync/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product domain entity.
// erp_id is nullable and unique, so at most one local row mirrors an ERP product.
type ProductModel struct {
	BaseModel
	Name          string            `gorm:"type:varchar(200);not null;index"`
	Description   string            `gorm:"type:text"`
	ProductNo     string            `gorm:"type:varchar(50)"`
	UnitPrice     decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Currency      string            `gorm:"type:varchar(3)"`
	ErpID         *string           `gorm:"type:varchar(100);uniqueIndex:idx_products_erp_id"`
	SyncState     catalog.SyncState `gorm:"type:varchar(20);not null;index"`
	LastSyncedAt  *time.Time
	LastSyncError string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:    m.BaseModel.ToDomain(),
		Name:          m.Name,
		Description:   m.Description,
		ProductNo:     m.ProductNo,
		UnitPrice:     m.UnitPrice,
		Currency:      m.Currency,
		ErpID:         m.ErpID,
		SyncState:     m.SyncState,
		LastSyncedAt:  m.LastSyncedAt,
		LastSyncError: m.LastSyncError,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Name = p.Name
	m.Description = p.Description
	m.ProductNo = p.ProductNo
	m.UnitPrice = p.UnitPrice
	m.Currency = p.Currency
	m.ErpID = p.ErpID
	m.SyncState = p.SyncState
	m.LastSyncedAt = p.LastSyncedAt
	m.LastSyncError = p.LastSyncError
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
