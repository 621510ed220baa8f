package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/erp/productsync/internal/infrastructure/erp"
)

// BillyOperation names a fake Billy endpoint for failure injection
type BillyOperation string

const (
	BillyCreate BillyOperation = "create"
	BillyGet    BillyOperation = "get"
	BillyUpdate BillyOperation = "update"
	BillyDelete BillyOperation = "delete"
	BillyList   BillyOperation = "list"
)

// FakeBilly is an in-memory Billy products API served by httptest.
// Products live in insertion order so listings page deterministically.
type FakeBilly struct {
	Server *httptest.Server
	Token     string
	OrgID     string
	AccountID string
	TaxRuleID string

	mu       sync.Mutex
	nextID   int
	order    []string
	products map[string]erp.BillyProduct
	failures map[BillyOperation]int
	calls    map[BillyOperation]int
}

// NewFakeBilly starts a fake Billy API that is closed on test cleanup
func NewFakeBilly(t *testing.T) *FakeBilly {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &FakeBilly{
		Token:     "billy-test-token",
		OrgID:     "org-test",
		AccountID: "acc-revenue",
		TaxRuleID: "tax-dk-sales",
		products:  make(map[string]erp.BillyProduct),
		failures:  make(map[BillyOperation]int),
		calls:     make(map[BillyOperation]int),
	}

	engine := gin.New()
	engine.Use(f.authenticate)
	engine.POST("/products", f.create)
	engine.GET("/products", f.list)
	engine.GET("/products/:id", f.get)
	engine.PUT("/products/:id", f.update)
	engine.DELETE("/products/:id", f.delete)

	f.Server = httptest.NewServer(engine)
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the API base URL to configure the adapter with
func (f *FakeBilly) URL() string {
	return f.Server.URL
}

// FailWith makes the given operation answer status until cleared with status 0
func (f *FakeBilly) FailWith(op BillyOperation, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.failures, op)
		return
	}
	f.failures[op] = status
}

// Seed stores a product as if it had been created in Billy directly
func (f *FakeBilly) Seed(p erp.BillyProduct) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store(p)
}

// Product returns a stored product by id
func (f *FakeBilly) Product(id string) (erp.BillyProduct, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	return p, ok
}

// Remove deletes a product as if it had been deleted in Billy directly
func (f *FakeBilly) Remove(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return false
	}
	delete(f.products, id)
	for i, stored := range f.order {
		if stored == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return true
}

// Count returns the number of stored products
func (f *FakeBilly) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.products)
}

// Calls returns how often an operation was invoked, failures included
func (f *FakeBilly) Calls(op BillyOperation) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FakeBilly) store(p erp.BillyProduct) string {
	if p.ID == "" {
		f.nextID++
		p.ID = fmt.Sprintf("billy-%04d", f.nextID)
	}
	if p.OrganizationID == "" {
		p.OrganizationID = f.OrgID
	}
	if _, exists := f.products[p.ID]; !exists {
		f.order = append(f.order, p.ID)
	}
	f.products[p.ID] = p
	return p.ID
}

func (f *FakeBilly) authenticate(c *gin.Context) {
	if c.GetHeader("X-Access-Token") != f.Token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, erp.BillyErrorResponse{
			ErrorMessage: "Invalid access token",
			Meta:         erp.BillyMeta{StatusCode: http.StatusUnauthorized, ErrorCode: "INVALID_TOKEN"},
		})
		return
	}
	c.Next()
}

// begin counts the call and reports whether an injected failure was written
func (f *FakeBilly) begin(c *gin.Context, op BillyOperation) bool {
	f.mu.Lock()
	f.calls[op]++
	status, failing := f.failures[op]
	f.mu.Unlock()

	if failing {
		c.JSON(status, erp.BillyErrorResponse{
			ErrorMessage: "injected failure",
			Meta:         erp.BillyMeta{StatusCode: status, ErrorCode: "INJECTED"},
		})
		return true
	}
	return false
}

func (f *FakeBilly) create(c *gin.Context) {
	if f.begin(c, BillyCreate) {
		return
	}
	var req erp.BillyProductRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Product.Name == "" {
		c.JSON(http.StatusUnprocessableEntity, erp.BillyErrorResponse{ErrorMessage: "name is required"})
		return
	}
	if req.Product.AccountID == "" || req.Product.SalesTaxRulesetID == "" {
		c.JSON(http.StatusUnprocessableEntity, erp.BillyErrorResponse{ErrorMessage: "accountId and salesTaxRulesetId are required"})
		return
	}

	f.mu.Lock()
	req.Product.ID = ""
	id := f.store(req.Product)
	product := f.products[id]
	f.mu.Unlock()

	c.JSON(http.StatusOK, erp.BillyProductsResponse{
		Meta:     erp.BillyMeta{StatusCode: http.StatusOK, Success: true},
		Products: []erp.BillyProduct{product},
	})
}

func (f *FakeBilly) get(c *gin.Context) {
	if f.begin(c, BillyGet) {
		return
	}
	product, ok := f.Product(c.Param("id"))
	if !ok {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, erp.BillyProductsResponse{
		Meta:    erp.BillyMeta{StatusCode: http.StatusOK, Success: true},
		Product: &product,
	})
}

func (f *FakeBilly) update(c *gin.Context) {
	if f.begin(c, BillyUpdate) {
		return
	}
	var req erp.BillyProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, erp.BillyErrorResponse{ErrorMessage: err.Error()})
		return
	}

	f.mu.Lock()
	existing, ok := f.products[c.Param("id")]
	if ok {
		existing.Name = req.Product.Name
		existing.Description = req.Product.Description
		if req.Product.ProductNo != "" {
			existing.ProductNo = req.Product.ProductNo
		}
		if len(req.Product.Prices) > 0 {
			existing.Prices = req.Product.Prices
		}
		f.products[existing.ID] = existing
	}
	f.mu.Unlock()

	if !ok {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, erp.BillyProductsResponse{
		Meta:     erp.BillyMeta{StatusCode: http.StatusOK, Success: true},
		Products: []erp.BillyProduct{existing},
	})
}

func (f *FakeBilly) delete(c *gin.Context) {
	if f.begin(c, BillyDelete) {
		return
	}
	if !f.Remove(c.Param("id")) {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, erp.BillyProductsResponse{Meta: erp.BillyMeta{StatusCode: http.StatusOK, Success: true}})
}

func (f *FakeBilly) list(c *gin.Context) {
	if f.begin(c, BillyList) {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "100"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}

	f.mu.Lock()
	ids := append([]string(nil), f.order...)
	all := make([]erp.BillyProduct, 0, len(ids))
	for _, id := range ids {
		all = append(all, f.products[id])
	}
	f.mu.Unlock()

	total := len(all)
	pageCount := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, erp.BillyProductsResponse{
		Meta: erp.BillyMeta{
			StatusCode: http.StatusOK,
			Success:    true,
			Paging: &erp.BillyPaging{
				Page:      page,
				PageCount: pageCount,
				PageSize:  pageSize,
				Total:     total,
			},
		},
		Products: all[start:end],
	})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, erp.BillyErrorResponse{
		ErrorMessage: "Product not found",
		Meta:         erp.BillyMeta{StatusCode: http.StatusNotFound, ErrorCode: "NOT_FOUND"},
	})
}
