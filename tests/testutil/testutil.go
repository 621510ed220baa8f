// Package testutil provides common test utilities for the product sync service.
// It contains a fake Billy API, database helpers and HTTP helpers shared by
// the integration tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/erp/productsync/internal/infrastructure/config"
	"github.com/erp/productsync/internal/infrastructure/erp"
	"github.com/erp/productsync/internal/infrastructure/persistence"
	"github.com/erp/productsync/internal/infrastructure/persistence/models"
)

// NewSQLiteDatabase opens a private in-memory SQLite database with the products table
func NewSQLiteDatabase(t *testing.T) *persistence.Database {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err, "Failed to open SQLite database")
	require.NoError(t, db.DB.AutoMigrate(&models.ProductModel{}), "Failed to create products table")

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// ErpConfig returns ERP settings pointing at the fake Billy API
func (f *FakeBilly) ErpConfig() config.ErpConfig {
	return config.ErpConfig{
		Provider:          config.DefaultErpProvider,
		APIBaseURL:        f.URL(),
		TimeoutSeconds:    5,
		RequestsPerSecond: 1000,
		Burst:             1000,
		PageSize:          10,
		Registry: map[string]config.ErpCredentials{
			"billydk": {
				APIToken:          f.Token,
				OrganizationID:    f.OrgID,
				AccountID:         f.AccountID,
				SalesTaxRulesetID: f.TaxRuleID,
			},
		},
	}
}

// NewBillyAdapter builds a Billy adapter talking to the fake API
func (f *FakeBilly) NewBillyAdapter(t *testing.T, opts ...erp.BillyOption) *erp.BillyAdapter {
	t.Helper()

	cfg, err := erp.NewBillyConfigFromSettings(f.ErpConfig())
	require.NoError(t, err)
	adapter, err := erp.NewBillyAdapter(cfg, opts...)
	require.NoError(t, err)
	return adapter
}

// FakeProduct returns a random Billy product with a DKK price
func FakeProduct(faker *gofakeit.Faker) erp.BillyProduct {
	return erp.BillyProduct{
		Name:        faker.ProductName(),
		Description: faker.ProductDescription(),
		ProductNo:   faker.Regex(`[A-Z]{3}-[0-9]{4}`),
		Prices: []erp.BillyProductPrice{{
			UnitPrice:  decimal.NewFromFloat(faker.Price(1, 500)).Round(2),
			CurrencyID: "DKK",
		}},
	}
}

// NewFaker returns a seeded faker so failures are reproducible
func NewFaker(t *testing.T) *gofakeit.Faker {
	t.Helper()
	seed := uint64(time.Now().UnixNano())
	t.Logf("gofakeit seed: %d", seed)
	return gofakeit.New(seed)
}

// ContextWithTimeout creates a context with a timeout for tests.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
