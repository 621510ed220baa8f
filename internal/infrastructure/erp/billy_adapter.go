package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/erp/productsync/internal/domain/integration"
	"github.com/erp/productsync/internal/infrastructure/telemetry"
)

const (
	// maxBillyResponseSize limits the response body size to prevent memory exhaustion
	maxBillyResponseSize = 10 * 1024 * 1024 // 10MB max response

	// embedPrices asks the API to inline product prices instead of side-loading them
	embedPrices = "product.prices:embed"

	accessTokenHeader = "X-Access-Token"
)

// BillyAdapter implements integration.ErpProductCatalog for Billy's Billing
type BillyAdapter struct {
	config     *BillyConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *telemetry.SyncMetrics
	logger     *zap.Logger
}

// BillyOption configures a BillyAdapter
type BillyOption func(*BillyAdapter)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) BillyOption {
	return func(a *BillyAdapter) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// WithSyncMetrics records every API call on the given metrics
func WithSyncMetrics(m *telemetry.SyncMetrics) BillyOption {
	return func(a *BillyAdapter) {
		a.metrics = m
	}
}

// WithLogger sets the adapter logger
func WithLogger(logger *zap.Logger) BillyOption {
	return func(a *BillyAdapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewBillyAdapter creates a new Billy adapter with the given configuration
func NewBillyAdapter(config *BillyConfig, opts ...BillyOption) (*BillyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &BillyAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		metrics: telemetry.NewNoopSyncMetrics(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Name returns the provider identifier
func (a *BillyAdapter) Name() string {
	return a.config.Provider
}

// CreateProduct creates a product in the configured organization
func (a *BillyAdapter) CreateProduct(ctx context.Context, draft integration.ErpProductDraft) (*integration.ErpProduct, error) {
	var resp BillyProductsResponse
	err := a.call(ctx, "create_product", http.MethodPost, "/products", nil, a.toBillyRequest(draft), &resp)
	if err != nil {
		return nil, err
	}

	product, ok := resp.First()
	if !ok {
		return nil, fmt.Errorf("%w: created product has no id", integration.ErrErpInvalidResponse)
	}
	result := toErpProduct(product)
	return &result, nil
}

// GetProduct retrieves a product by its ERP id
func (a *BillyAdapter) GetProduct(ctx context.Context, erpID string) (*integration.ErpProduct, error) {
	if strings.TrimSpace(erpID) == "" {
		return nil, integration.ErrErpProductIDMissing
	}

	query := url.Values{}
	query.Set("include", embedPrices)

	var resp BillyProductsResponse
	if err := a.call(ctx, "get_product", http.MethodGet, productPath(erpID), query, nil, &resp); err != nil {
		return nil, err
	}

	product, ok := resp.First()
	if !ok {
		return nil, fmt.Errorf("%w: product %s missing from response", integration.ErrErpInvalidResponse, erpID)
	}
	result := toErpProduct(product)
	return &result, nil
}

// UpdateProduct overwrites the descriptive fields of a product
func (a *BillyAdapter) UpdateProduct(ctx context.Context, erpID string, draft integration.ErpProductDraft) (*integration.ErpProduct, error) {
	if strings.TrimSpace(erpID) == "" {
		return nil, integration.ErrErpProductIDMissing
	}

	var resp BillyProductsResponse
	err := a.call(ctx, "update_product", http.MethodPut, productPath(erpID), nil, a.toBillyRequest(draft), &resp)
	if err != nil {
		return nil, err
	}

	product, ok := resp.First()
	if !ok {
		// Some deployments answer updates with meta only
		return &integration.ErpProduct{
			ID:             erpID,
			OrganizationID: a.config.OrganizationID,
			Name:           draft.Name,
			Description:    draft.Description,
			ProductNo:      draft.ProductNo,
			Prices:         draft.Prices,
		}, nil
	}
	result := toErpProduct(product)
	return &result, nil
}

// DeleteProduct deletes a product by its ERP id
func (a *BillyAdapter) DeleteProduct(ctx context.Context, erpID string) error {
	if strings.TrimSpace(erpID) == "" {
		return integration.ErrErpProductIDMissing
	}
	return a.call(ctx, "delete_product", http.MethodDelete, productPath(erpID), nil, nil, nil)
}

// ListProducts returns one page of the organization's products
func (a *BillyAdapter) ListProducts(ctx context.Context, page, pageSize int) (*integration.ErpProductPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxBillyPageSize {
		pageSize = a.config.PageSize
	}

	query := url.Values{}
	query.Set("organizationId", a.config.OrganizationID)
	query.Set("include", embedPrices)
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))

	var resp BillyProductsResponse
	if err := a.call(ctx, "list_products", http.MethodGet, "/products", query, nil, &resp); err != nil {
		return nil, err
	}

	result := &integration.ErpProductPage{
		Products: make([]integration.ErpProduct, 0, len(resp.Products)),
		Page:     page,
	}
	for i := range resp.Products {
		result.Products = append(result.Products, toErpProduct(&resp.Products[i]))
	}
	if paging := resp.Meta.Paging; paging != nil {
		if paging.Page > 0 {
			result.Page = paging.Page
		}
		result.PageCount = paging.PageCount
		result.Total = paging.Total
	} else {
		// Without paging metadata the listing is a single page
		result.PageCount = result.Page
		result.Total = len(result.Products)
	}
	return result, nil
}

// call wraps doRequest with a client span, metrics and response decoding
func (a *BillyAdapter) call(ctx context.Context, operation, method, path string, query url.Values, body, out any) error {
	ctx, span := telemetry.StartSpan(ctx, "billy."+operation,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrErpProvider, a.Name()),
		telemetry.WithAttribute("http.request.method", method),
	)
	defer span.End()

	start := time.Now()
	respBody, status, err := a.doRequest(ctx, method, path, query, body)
	if err == nil && out != nil && len(respBody) > 0 {
		if uerr := json.Unmarshal(respBody, out); uerr != nil {
			err = fmt.Errorf("%w: %v", integration.ErrErpInvalidResponse, uerr)
		}
	}

	a.metrics.RecordErpCall(ctx, a.Name(), operation, time.Since(start), err)
	if status > 0 {
		telemetry.SetAttributes(span, telemetry.SpanAttrHTTPStatus, status)
	}
	if err != nil {
		// A missing product is an expected answer, not a span failure
		if !errors.Is(err, integration.ErrErpProductNotFound) {
			telemetry.RecordError(span, err)
		}
		a.logger.Debug("billy request failed",
			zap.String("operation", operation),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Error(err),
		)
		return err
	}
	telemetry.SetOK(span)
	return nil
}

// doRequest performs an HTTP request against the Billy API
func (a *BillyAdapter) doRequest(ctx context.Context, method, path string, query url.Values, body any) ([]byte, int, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", integration.ErrErpUnavailable, err)
	}

	reqURL := a.config.APIBaseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(accessTokenHeader, a.config.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", integration.ErrErpUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBillyResponseSize+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: failed to read response: %v", integration.ErrErpUnavailable, err)
	}
	if len(respBody) > maxBillyResponseSize {
		return nil, resp.StatusCode, fmt.Errorf("%w: response exceeds %d bytes", integration.ErrErpInvalidResponse, maxBillyResponseSize)
	}

	if resp.StatusCode >= 300 {
		return nil, resp.StatusCode, statusError(resp.StatusCode, respBody)
	}
	return respBody, resp.StatusCode, nil
}

// statusError maps a non-2xx answer to an integration error, keeping the API message
func statusError(status int, body []byte) error {
	var sentinel error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		sentinel = integration.ErrErpAuthFailed
	case status == http.StatusNotFound:
		sentinel = integration.ErrErpProductNotFound
	case status == http.StatusTooManyRequests:
		sentinel = integration.ErrErpRateLimited
	default:
		sentinel = integration.ErrErpRequestFailed
	}

	var apiErr BillyErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.ErrorMessage != "" {
		if apiErr.Meta.ErrorCode != "" {
			return fmt.Errorf("%w: HTTP %d: %s (%s)", sentinel, status, apiErr.ErrorMessage, apiErr.Meta.ErrorCode)
		}
		return fmt.Errorf("%w: HTTP %d: %s", sentinel, status, apiErr.ErrorMessage)
	}
	return fmt.Errorf("%w: HTTP %d", sentinel, status)
}

func productPath(erpID string) string {
	return "/products/" + url.PathEscape(erpID)
}

// toBillyRequest fills the organization scoped fields from the configuration
func (a *BillyAdapter) toBillyRequest(draft integration.ErpProductDraft) BillyProductRequest {
	product := BillyProduct{
		OrganizationID:    a.config.OrganizationID,
		Name:              draft.Name,
		Description:       draft.Description,
		ProductNo:         draft.ProductNo,
		AccountID:         a.config.AccountID,
		SalesTaxRulesetID: a.config.SalesTaxRulesetID,
	}
	for _, p := range draft.Prices {
		product.Prices = append(product.Prices, BillyProductPrice{
			UnitPrice:  p.UnitPrice,
			CurrencyID: strings.ToUpper(p.Currency),
		})
	}
	return BillyProductRequest{Product: product}
}

func toErpProduct(p *BillyProduct) integration.ErpProduct {
	result := integration.ErpProduct{
		ID:                p.ID,
		OrganizationID:    p.OrganizationID,
		Name:              p.Name,
		Description:       p.Description,
		ProductNo:         p.ProductNo,
		AccountID:         p.AccountID,
		SalesTaxRulesetID: p.SalesTaxRulesetID,
		IsArchived:        p.IsArchived,
	}
	for _, price := range p.Prices {
		result.Prices = append(result.Prices, integration.ErpProductPrice{
			UnitPrice: price.UnitPrice,
			Currency:  price.CurrencyID,
		})
	}
	return result
}

// Ensure BillyAdapter implements ErpProductCatalog
var _ integration.ErpProductCatalog = (*BillyAdapter)(nil)
