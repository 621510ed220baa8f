package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	catalogapp "github.com/erp/productsync/internal/application/catalog"
	integrationapp "github.com/erp/productsync/internal/application/integration"
	"github.com/erp/productsync/internal/domain/catalog"
	"github.com/erp/productsync/internal/interfaces/http/dto"
)

// ProductService is the product use case surface the handler needs
type ProductService interface {
	Create(ctx context.Context, input catalogapp.CreateProductInput) (*catalogapp.ProductResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error)
	List(ctx context.Context, input catalogapp.ListProductsInput) (*catalogapp.ProductListResponse, error)
	Update(ctx context.Context, id uuid.UUID, input catalogapp.UpdateProductInput) (*catalogapp.ProductResponse, error)
	Delete(ctx context.Context, id uuid.UUID) (*catalogapp.DeleteProductResponse, error)
}

// ProductImporter runs ERP imports
type ProductImporter interface {
	ImportFromErp(ctx context.Context, opts integrationapp.ImportOptions) (*integrationapp.ImportReport, error)
}

// ProductHandler handles the /admin/products endpoints
type ProductHandler struct {
	BaseHandler
	products ProductService
	importer ProductImporter
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products ProductService, importer ProductImporter) *ProductHandler {
	return &ProductHandler{
		products: products,
		importer: importer,
	}
}

// Create godoc
// @ID           createProduct
// @Summary      Create a product
// @Description  Stores the product locally and mirrors it to the ERP. The local row is rolled back when the ERP call fails.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request body catalog.CreateProductInput true "Product creation request"
// @Success      201 {object} catalog.ProductResponse
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      502 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalogapp.CreateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	product, err := h.products.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, product)
}

// Get godoc
// @ID           getProduct
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        uuid path string true "Product ID" format(uuid)
// @Success      200 {object} catalog.ProductResponse
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products/{uuid} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}

	product, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, product)
}

// List godoc
// @ID           listProducts
// @Summary      List products
// @Tags         products
// @Produce      json
// @Param        page       query int    false "Page number" minimum(1) default(1)
// @Param        page_size  query int    false "Page size" minimum(1) maximum(100) default(20)
// @Param        sync_state query string false "Filter by sync state" Enums(LOCAL_ONLY, MIRRORED)
// @Param        search     query string false "Search in name and product number"
// @Param        order_by   query string false "Sort field" default(created_at)
// @Param        order_dir  query string false "Sort direction" Enums(asc, desc) default(desc)
// @Success      200 {object} catalog.ProductListResponse
// @Failure      400 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	var req catalogapp.ListProductsInput
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	page, err := h.products.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, page)
}

// Update godoc
// @ID           updateProduct
// @Summary      Rename a product
// @Description  Mirrored products are updated in the ERP first; the local row only changes when the ERP accepted the update.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        uuid    path string                     true "Product ID" format(uuid)
// @Param        request body catalog.UpdateProductInput true "Product update request"
// @Success      200 {object} catalog.ProductResponse
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      502 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products/{uuid} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}

	var req catalogapp.UpdateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	product, err := h.products.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, product)
}

// Delete godoc
// @ID           deleteProduct
// @Summary      Delete a product
// @Description  Deletes the ERP mirror first, then the local row. An ERP product that is already gone counts as deleted.
// @Tags         products
// @Produce      json
// @Param        uuid path string true "Product ID" format(uuid)
// @Success      200 {object} catalog.DeleteProductResponse
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      502 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products/{uuid} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}

	result, err := h.products.Delete(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, result)
}

// ImportFromErp godoc
// @ID           importProductsFromErp
// @Summary      Import ERP products
// @Description  Creates local mirrors for every ERP product that has none yet.
// @Tags         products
// @Produce      json
// @Param        expect_at_least query int false "Fail with IMPORT_INCOMPLETE when fewer products are imported" minimum(0)
// @Success      200 {object} integration.ImportReport
// @Failure      400 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Failure      502 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /admin/products/import-from-erp [post]
func (h *ProductHandler) ImportFromErp(c *gin.Context) {
	var query dto.ImportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindingError(c, err)
		return
	}

	report, err := h.importer.ImportFromErp(c.Request.Context(), integrationapp.ImportOptions{
		ExpectAtLeast: query.ExpectAtLeast,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, report)
}

// productID parses the {uuid} path parameter, answering 400 when it is malformed
func (h *ProductHandler) productID(c *gin.Context) (uuid.UUID, bool) {
	id, err := catalog.ParseProductID(c.Param("uuid"))
	if err != nil {
		h.HandleError(c, err)
		return uuid.Nil, false
	}
	return id, true
}
