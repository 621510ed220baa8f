package models

import (
	"testing"

	"github.com/erp/productsync/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductModel_RoundTrip(t *testing.T) {
	product, err := catalog.NewMirroredProduct("erp-42", "Widget", catalog.ProductOptions{
		Description: "A widget",
		ProductNo:   "W-1",
		UnitPrice:   decimal.RequireFromString("12.50"),
	})
	require.NoError(t, err)

	model := ProductModelFromDomain(product)
	assert.Equal(t, "products", model.TableName())
	assert.Equal(t, product.ID, model.ID)
	require.NotNil(t, model.ErpID)
	assert.Equal(t, "erp-42", *model.ErpID)

	back := model.ToDomain()
	assert.Equal(t, product.ID, back.ID)
	assert.Equal(t, "Widget", back.Name)
	assert.Equal(t, "DKK", back.Currency)
	assert.True(t, back.UnitPrice.Equal(product.UnitPrice))
	assert.Equal(t, catalog.SyncStateMirrored, back.SyncState)
	assert.True(t, back.IsMirrored())
}

func TestProductModel_LocalOnlyHasNoErpID(t *testing.T) {
	product, err := catalog.NewProduct("Local", catalog.ProductOptions{})
	require.NoError(t, err)

	model := ProductModelFromDomain(product)
	assert.Nil(t, model.ErpID)
	assert.Equal(t, catalog.SyncStateLocalOnly, model.ToDomain().SyncState)
}
