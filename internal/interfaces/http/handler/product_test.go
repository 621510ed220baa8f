package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	catalogapp "github.com/erp/productsync/internal/application/catalog"
	integrationapp "github.com/erp/productsync/internal/application/integration"
	"github.com/erp/productsync/internal/domain/integration"
	"github.com/erp/productsync/internal/domain/shared"
	"github.com/erp/productsync/internal/interfaces/http/middleware"
)

// MockProductService implements ProductService for testing
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) Create(ctx context.Context, input catalogapp.CreateProductInput) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductResponse), args.Error(1)
}

func (m *MockProductService) Get(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductResponse), args.Error(1)
}

func (m *MockProductService) List(ctx context.Context, input catalogapp.ListProductsInput) (*catalogapp.ProductListResponse, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductListResponse), args.Error(1)
}

func (m *MockProductService) Update(ctx context.Context, id uuid.UUID, input catalogapp.UpdateProductInput) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductResponse), args.Error(1)
}

func (m *MockProductService) Delete(ctx context.Context, id uuid.UUID) (*catalogapp.DeleteProductResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.DeleteProductResponse), args.Error(1)
}

// MockProductImporter implements ProductImporter for testing
type MockProductImporter struct {
	mock.Mock
}

func (m *MockProductImporter) ImportFromErp(ctx context.Context, opts integrationapp.ImportOptions) (*integrationapp.ImportReport, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integrationapp.ImportReport), args.Error(1)
}

type productFixture struct {
	router   *gin.Engine
	products *MockProductService
	importer *MockProductImporter
}

func newProductFixture(t *testing.T) *productFixture {
	t.Helper()
	middleware.SetupValidator()

	f := &productFixture{
		products: new(MockProductService),
		importer: new(MockProductImporter),
	}
	h := NewProductHandler(f.products, f.importer)

	f.router = gin.New()
	f.router.Use(middleware.RequestID())
	admin := f.router.Group("/admin/products")
	admin.POST("", h.Create)
	admin.GET("", h.List)
	admin.POST("/import-from-erp", h.ImportFromErp)
	admin.GET("/:uuid", h.Get)
	admin.PUT("/:uuid", h.Update)
	admin.DELETE("/:uuid", h.Delete)

	t.Cleanup(func() {
		f.products.AssertExpectations(t)
		f.importer.AssertExpectations(t)
	})
	return f
}

func (f *productFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func sampleProduct(erpID *string) *catalogapp.ProductResponse {
	state := "LOCAL_ONLY"
	if erpID != nil {
		state = "MIRRORED"
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &catalogapp.ProductResponse{
		ID:        uuid.MustParse("6f1f7c2e-3a8e-4f34-9a55-0c4e0f6f2b11"),
		ErpID:     erpID,
		Name:      "Widget",
		UnitPrice: decimal.NewFromFloat(12.5),
		Currency:  "DKK",
		SyncState: state,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func strPtr(s string) *string { return &s }

func TestProductHandler_Create(t *testing.T) {
	f := newProductFixture(t)
	price := decimal.NewFromFloat(12.5)
	input := catalogapp.CreateProductInput{Name: "Widget", UnitPrice: &price, Currency: "DKK"}
	f.products.On("Create", mock.Anything, mock.MatchedBy(func(in catalogapp.CreateProductInput) bool {
		return in.Name == input.Name && in.Currency == "DKK" && in.UnitPrice.Equal(price)
	})).Return(sampleProduct(strPtr("erp-1")), nil)

	w := f.do(http.MethodPost, "/admin/products", `{"product_name":"Widget","unit_price":"12.5","currency":"DKK"}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "6f1f7c2e-3a8e-4f34-9a55-0c4e0f6f2b11", body["uuid"])
	assert.Equal(t, "erp-1", body["product_erp_id"])
	assert.Equal(t, "Widget", body["product_name"])
	assert.Equal(t, "MIRRORED", body["sync_state"])
	assert.NotContains(t, body, "success")
}

func TestProductHandler_Create_BadRequests(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"missing name", `{"description":"x"}`, "product_name"},
		{"empty name", `{"product_name":""}`, "product_name"},
		{"bad currency", `{"product_name":"Widget","currency":"KRONE"}`, "currency"},
		{"malformed json", `{"product_name":`, ""},
		{"empty body", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProductFixture(t)

			w := f.do(http.MethodPost, "/admin/products", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			env := decodeError(t, w)
			assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
			assert.NotEmpty(t, env.Error.RequestID)
			if tt.wantField != "" {
				assert.Contains(t, string(env.Error.Details), `"field":"`+tt.wantField+`"`)
			}
			f.products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestProductHandler_Create_RemoteFailure(t *testing.T) {
	f := newProductFixture(t)
	f.products.On("Create", mock.Anything, mock.Anything).
		Return(nil, shared.NewRemoteSyncError("product creation", integration.ErrErpRequestFailed))

	w := f.do(http.MethodPost, "/admin/products", `{"product_name":"Widget"}`)

	require.Equal(t, http.StatusBadGateway, w.Code)
	env := decodeError(t, w)
	assert.Equal(t, "REMOTE_SYNC_FAILED", env.Error.Code)
	assert.Equal(t, "ERP product creation failed", env.Error.Message)
}

func TestProductHandler_Get(t *testing.T) {
	f := newProductFixture(t)
	product := sampleProduct(nil)
	f.products.On("Get", mock.Anything, product.ID).Return(product, nil)

	w := f.do(http.MethodGet, "/admin/products/"+product.ID.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, product.ID.String(), body["uuid"])
	assert.Nil(t, body["product_erp_id"])
	assert.Equal(t, "12.5", body["unit_price"])
}

func TestProductHandler_Get_InvalidUUID(t *testing.T) {
	f := newProductFixture(t)

	w := f.do(http.MethodGet, "/admin/products/not-a-uuid", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeError(t, w)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "Invalid product ID format", env.Error.Message)
}

func TestProductHandler_Get_NotFound(t *testing.T) {
	f := newProductFixture(t)
	id := uuid.New()
	f.products.On("Get", mock.Anything, id).Return(nil, shared.NewNotFoundError("Product", id.String()))

	w := f.do(http.MethodGet, "/admin/products/"+id.String(), nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Error.Code)
}

func TestProductHandler_List(t *testing.T) {
	f := newProductFixture(t)
	f.products.On("List", mock.Anything, catalogapp.ListProductsInput{
		Page:      2,
		PageSize:  10,
		SyncState: "MIRRORED",
	}).Return(&catalogapp.ProductListResponse{
		Products: []catalogapp.ProductResponse{*sampleProduct(strPtr("erp-1"))},
		Total:    11,
		Page:     2,
		PageSize: 10,
	}, nil)

	w := f.do(http.MethodGet, "/admin/products?page=2&page_size=10&sync_state=MIRRORED", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body catalogapp.ProductListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(11), body.Total)
	assert.Len(t, body.Products, 1)
}

func TestProductHandler_List_InvalidQuery(t *testing.T) {
	tests := []string{
		"/admin/products?page=0",
		"/admin/products?page_size=1000",
		"/admin/products?sync_state=DELETED",
		"/admin/products?order_dir=sideways",
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			f := newProductFixture(t)

			w := f.do(http.MethodGet, path, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestProductHandler_Update(t *testing.T) {
	f := newProductFixture(t)
	product := sampleProduct(strPtr("erp-1"))
	f.products.On("Update", mock.Anything, product.ID, catalogapp.UpdateProductInput{
		Name:        "Widget Pro",
		Description: strPtr("Better"),
	}).Return(product, nil)

	w := f.do(http.MethodPut, "/admin/products/"+product.ID.String(),
		`{"product_name":"Widget Pro","description":"Better"}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProductHandler_Update_Errors(t *testing.T) {
	t.Run("invalid uuid", func(t *testing.T) {
		f := newProductFixture(t)
		w := f.do(http.MethodPut, "/admin/products/123", `{"product_name":"x"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing name", func(t *testing.T) {
		f := newProductFixture(t)
		w := f.do(http.MethodPut, "/admin/products/"+uuid.NewString(), `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("lock contention", func(t *testing.T) {
		f := newProductFixture(t)
		id := uuid.New()
		f.products.On("Update", mock.Anything, id, mock.Anything).Return(nil, shared.ErrConflict)

		w := f.do(http.MethodPut, "/admin/products/"+id.String(), `{"product_name":"x"}`)

		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "CONFLICT", decodeError(t, w).Error.Code)
	})
}

func TestProductHandler_Delete(t *testing.T) {
	f := newProductFixture(t)
	id := uuid.New()
	f.products.On("Delete", mock.Anything, id).Return(&catalogapp.DeleteProductResponse{
		ID:      id,
		ErpID:   strPtr("erp-9"),
		Deleted: true,
	}, nil)

	w := f.do(http.MethodDelete, "/admin/products/"+id.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uuid":"`+id.String()+`","product_erp_id":"erp-9","deleted":true}`, w.Body.String())
}

func TestProductHandler_Delete_RemoteFailure(t *testing.T) {
	f := newProductFixture(t)
	id := uuid.New()
	f.products.On("Delete", mock.Anything, id).
		Return(nil, shared.NewRemoteSyncError("product deletion", errors.New("HTTP 500")))

	w := f.do(http.MethodDelete, "/admin/products/"+id.String(), nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestProductHandler_ImportFromErp(t *testing.T) {
	f := newProductFixture(t)
	imported := uuid.New()
	f.importer.On("ImportFromErp", mock.Anything, integrationapp.ImportOptions{ExpectAtLeast: 1}).
		Return(&integrationapp.ImportReport{
			ImportedProducts: []uuid.UUID{imported},
			Skipped:          2,
			Failures:         []integration.SyncFailure{},
			Status:           integration.SyncStatusSuccess,
			Pages:            1,
		}, nil)

	w := f.do(http.MethodPost, "/admin/products/import-from-erp?expect_at_least=1", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []any{imported.String()}, body["imported_products"])
	assert.Equal(t, float64(2), body["skipped"])
	assert.Equal(t, "SUCCESS", body["status"])
}

func TestProductHandler_ImportFromErp_Errors(t *testing.T) {
	t.Run("negative expectation", func(t *testing.T) {
		f := newProductFixture(t)
		w := f.do(http.MethodPost, "/admin/products/import-from-erp?expect_at_least=-1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not a number", func(t *testing.T) {
		f := newProductFixture(t)
		w := f.do(http.MethodPost, "/admin/products/import-from-erp?expect_at_least=lots", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("incomplete", func(t *testing.T) {
		f := newProductFixture(t)
		report := &integrationapp.ImportReport{ImportedProducts: []uuid.UUID{}, Status: integration.SyncStatusSuccess}
		f.importer.On("ImportFromErp", mock.Anything, integrationapp.ImportOptions{ExpectAtLeast: 5}).
			Return(nil, shared.NewDomainError(shared.CodeImportIncomplete, "Imported 0 products, expected at least 5").
				WithDetails(report))

		w := f.do(http.MethodPost, "/admin/products/import-from-erp?expect_at_least=5", nil)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		env := decodeError(t, w)
		assert.Equal(t, "IMPORT_INCOMPLETE", env.Error.Code)
		assert.Contains(t, string(env.Error.Details), `"imported_products":[]`)
	})

	t.Run("all failed", func(t *testing.T) {
		f := newProductFixture(t)
		f.importer.On("ImportFromErp", mock.Anything, integrationapp.ImportOptions{}).
			Return(nil, shared.NewDomainError(shared.CodeImportFailed, "All 3 ERP products failed to import"))

		w := f.do(http.MethodPost, "/admin/products/import-from-erp", nil)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "IMPORT_FAILED", decodeError(t, w).Error.Code)
	})
}
