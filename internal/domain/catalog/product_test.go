package catalog

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/erp/productsync/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	t.Run("creates local product with valid inputs", func(t *testing.T) {
		product, err := NewProduct("  Test Product ", ProductOptions{})
		require.NoError(t, err)
		require.NotNil(t, product)

		assert.NotEmpty(t, product.ID)
		assert.Equal(t, "Test Product", product.Name)
		assert.Equal(t, SyncStateLocalOnly, product.SyncState)
		assert.Nil(t, product.ErpID)
		assert.False(t, product.IsMirrored())
		assert.Empty(t, product.Currency)
		assert.True(t, product.UnitPrice.IsZero())
	})

	t.Run("defaults currency when price is set", func(t *testing.T) {
		product, err := NewProduct("Priced", ProductOptions{UnitPrice: decimal.RequireFromString("49.95")})
		require.NoError(t, err)
		assert.Equal(t, DefaultCurrency, product.Currency)
		assert.True(t, decimal.RequireFromString("49.95").Equal(product.UnitPrice))
	})

	t.Run("normalizes name to NFC", func(t *testing.T) {
		// "e" followed by a combining acute accent
		product, err := NewProduct("Cafe\u0301", ProductOptions{})
		require.NoError(t, err)
		assert.Equal(t, "Caf\u00e9", product.Name)
	})

	t.Run("fails with empty name", func(t *testing.T) {
		_, err := NewProduct("   ", ProductOptions{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		assert.Contains(t, err.Error(), "name cannot be empty")
	})

	t.Run("fails with name too long", func(t *testing.T) {
		_, err := NewProduct(strings.Repeat("a", MaxNameLength+1), ProductOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed 200 characters")
	})

	t.Run("fails with negative price", func(t *testing.T) {
		_, err := NewProduct("Negative", ProductOptions{UnitPrice: decimal.NewFromInt(-1)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be negative")
	})

	t.Run("fails with bad currency", func(t *testing.T) {
		_, err := NewProduct("Bad currency", ProductOptions{Currency: "kroner"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ISO 4217")
	})
}

func TestNewMirroredProduct(t *testing.T) {
	product, err := NewMirroredProduct(" erp-1 ", "Imported", ProductOptions{})
	require.NoError(t, err)
	assert.Equal(t, SyncStateMirrored, product.SyncState)
	assert.Equal(t, "erp-1", product.ErpIDValue())
	assert.NotNil(t, product.LastSyncedAt)
	assert.True(t, product.IsMirrored())

	_, err = NewMirroredProduct("", "Imported", ProductOptions{})
	assert.Error(t, err)
}

func TestProduct_Lifecycle(t *testing.T) {
	product, err := NewProduct("Lifecycle", ProductOptions{})
	require.NoError(t, err)

	t.Run("mirror requires erp id", func(t *testing.T) {
		err := product.MarkMirrored("")
		require.Error(t, err)
		assert.Equal(t, SyncStateLocalOnly, product.SyncState)
	})

	t.Run("local to mirrored", func(t *testing.T) {
		product.RecordSyncFailure(errors.New("timeout"))
		assert.Equal(t, "timeout", product.LastSyncError)

		require.NoError(t, product.MarkMirrored("42"))
		assert.Equal(t, SyncStateMirrored, product.SyncState)
		assert.Equal(t, "42", product.ErpIDValue())
		assert.Empty(t, product.LastSyncError)
	})

	t.Run("cannot mirror twice", func(t *testing.T) {
		err := product.MarkMirrored("43")
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		assert.Equal(t, "42", product.ErpIDValue())
	})

	t.Run("rename keeps price", func(t *testing.T) {
		require.NoError(t, product.Rename("Renamed", "new description"))
		assert.Equal(t, "Renamed", product.Name)
		assert.Equal(t, "new description", product.Description)
	})

	t.Run("mirrored to deleted", func(t *testing.T) {
		require.NoError(t, product.MarkDeleted())
		assert.Equal(t, SyncStateDeleted, product.SyncState)
		assert.Error(t, product.MarkDeleted())
		assert.Error(t, product.Rename("Again", ""))
	})
}

func TestProduct_RecordSyncFailureTruncatesOnRuneBoundary(t *testing.T) {
	product, err := NewProduct("Truncate", ProductOptions{})
	require.NoError(t, err)

	// "ø" is two bytes, so a byte cut at 1000 would split a rune
	product.RecordSyncFailure(errors.New("x" + strings.Repeat("ø", 1200)))

	assert.True(t, utf8.ValidString(product.LastSyncError))
	assert.Equal(t, MaxSyncErrorLength, utf8.RuneCountInString(product.LastSyncError))
	assert.True(t, strings.HasPrefix(product.LastSyncError, "xøø"))

	product.RecordSyncFailure(errors.New("bad \xff byte"))
	assert.True(t, utf8.ValidString(product.LastSyncError))
	assert.Equal(t, "bad \uFFFD byte", product.LastSyncError)
}

func TestParseProductID(t *testing.T) {
	product, err := NewProduct("Parse", ProductOptions{})
	require.NoError(t, err)

	id, err := ParseProductID(product.IDString())
	require.NoError(t, err)
	assert.Equal(t, product.ID, id)

	_, err = ParseProductID("not-a-uuid")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestSyncState_IsValid(t *testing.T) {
	assert.True(t, SyncStateMirrored.IsValid())
	assert.True(t, SyncStateLocalOnly.IsValid())
	assert.False(t, SyncState("ERP_ONLY").IsValid())
}
