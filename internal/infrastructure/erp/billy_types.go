package erp

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// BillyProduct is a product resource of the Billy API
type BillyProduct struct {
	ID                 string              `json:"id,omitempty"`
	OrganizationID     string              `json:"organizationId"`
	Name               string              `json:"name"`
	Description        string              `json:"description,omitempty"`
	AccountID          string              `json:"accountId"`
	ProductNo          string              `json:"productNo,omitempty"`
	SuppliersProductNo string              `json:"suppliersProductNo,omitempty"`
	SalesTaxRulesetID  string              `json:"salesTaxRulesetId"`
	IsArchived         bool                `json:"isArchived,omitempty"`
	Prices             []BillyProductPrice `json:"prices,omitempty"`
}

// BillyProductPrice is an embedded product price
type BillyProductPrice struct {
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	CurrencyID string          `json:"currencyId"`
}

// MarshalJSON writes unitPrice as a JSON number, which is what the API accepts
func (p BillyProductPrice) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		UnitPrice  json.Number `json:"unitPrice"`
		CurrencyID string      `json:"currencyId"`
	}{
		UnitPrice:  json.Number(p.UnitPrice.String()),
		CurrencyID: p.CurrencyID,
	})
}

// BillyProductRequest is the body of create and update calls
type BillyProductRequest struct {
	Product BillyProduct `json:"product"`
}

// BillyPaging describes the page of a list response
type BillyPaging struct {
	Page      int `json:"page"`
	PageCount int `json:"pageCount"`
	PageSize  int `json:"pageSize"`
	Total     int `json:"total"`
}

// BillyMeta is the meta block of every response
type BillyMeta struct {
	StatusCode int          `json:"statusCode,omitempty"`
	Success    bool         `json:"success,omitempty"`
	ErrorCode  string       `json:"errorCode,omitempty"`
	Paging     *BillyPaging `json:"paging,omitempty"`
}

// BillyProductsResponse covers the plural and singular product envelopes
type BillyProductsResponse struct {
	Meta     BillyMeta      `json:"meta"`
	Products []BillyProduct `json:"products,omitempty"`
	Product  *BillyProduct  `json:"product,omitempty"`
}

// First returns the first product carrying an id, preferring the plural envelope
func (r *BillyProductsResponse) First() (*BillyProduct, bool) {
	for i := range r.Products {
		if r.Products[i].ID != "" {
			return &r.Products[i], true
		}
	}
	if r.Product != nil && r.Product.ID != "" {
		return r.Product, true
	}
	return nil, false
}

// BillyErrorResponse is the body of a failed call
type BillyErrorResponse struct {
	ErrorMessage string    `json:"errorMessage"`
	Meta         BillyMeta `json:"meta"`
}
