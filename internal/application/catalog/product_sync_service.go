package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/productsync/internal/domain/catalog"
	"github.com/erp/productsync/internal/domain/integration"
	"github.com/erp/productsync/internal/domain/shared"
	"github.com/erp/productsync/internal/infrastructure/logger"
	"github.com/erp/productsync/internal/infrastructure/telemetry"
)

const serviceName = "ProductSyncService"

// ProductSyncService keeps local products and their ERP counterparts in step.
// Every mutation holds the product lock for the whole local and remote sequence.
type ProductSyncService struct {
	productRepo catalog.ProductRepository
	erp         integration.ErpProductCatalog
	locker      shared.Locker
	metrics     *telemetry.SyncMetrics
	logger      *zap.Logger
}

// ProductSyncServiceOption is a functional option for configuring ProductSyncService
type ProductSyncServiceOption func(*ProductSyncService)

// WithLogger sets the fallback logger used outside request scope
func WithLogger(l *zap.Logger) ProductSyncServiceOption {
	return func(s *ProductSyncService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSyncMetrics records operation outcomes on m
func WithSyncMetrics(m *telemetry.SyncMetrics) ProductSyncServiceOption {
	return func(s *ProductSyncService) {
		s.metrics = m
	}
}

// NewProductSyncService creates a new ProductSyncService
func NewProductSyncService(
	productRepo catalog.ProductRepository,
	erp integration.ErpProductCatalog,
	locker shared.Locker,
	opts ...ProductSyncServiceOption,
) *ProductSyncService {
	s := &ProductSyncService{
		productRepo: productRepo,
		erp:         erp,
		locker:      locker,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a product locally, creates it at the ERP and records the ERP id.
// When the ERP call fails, or the ERP id cannot be recorded, the local row is removed again
// and a remote sync error is returned.
func (s *ProductSyncService) Create(ctx context.Context, input CreateProductInput) (*ProductResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "Create")
	defer span.End()

	product, err := catalog.NewProduct(input.Name, catalog.ProductOptions{
		Description: input.Description,
		ProductNo:   input.ProductNo,
		UnitPrice:   priceOrZero(input.UnitPrice),
		Currency:    input.Currency,
	})
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrProductID, product.IDString())

	release, err := s.lock(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.productRepo.Save(ctx, product); err != nil {
		s.metrics.RecordProductOperation(ctx, "create", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	remote, err := s.erp.CreateProduct(ctx, toDraft(product))
	if err == nil && strings.TrimSpace(remote.ID) == "" {
		err = fmt.Errorf("%w: created product has no id", integration.ErrErpInvalidResponse)
	}
	if err != nil {
		syncErr := shared.NewRemoteSyncError("product creation", err)
		s.compensateCreate(ctx, product, err)
		s.metrics.RecordProductOperation(ctx, "create", syncErr)
		telemetry.RecordError(span, syncErr)
		return nil, syncErr
	}

	// The ERP product exists from here on, so a cancelled request must not strand it
	persistCtx := context.WithoutCancel(ctx)
	mirrored := *product
	if err := mirrored.MarkMirrored(remote.ID); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(persistCtx, &mirrored); err != nil {
		resp, err := s.recoverMirroredCreate(persistCtx, product, &mirrored, err)
		s.metrics.RecordProductOperation(ctx, "create", err)
		if err != nil {
			telemetry.RecordError(span, err)
		}
		return resp, err
	}
	product = &mirrored

	telemetry.SetAttributes(span, telemetry.SpanAttrErpID, remote.ID)
	telemetry.SetOK(span)
	s.metrics.RecordProductOperation(ctx, "create", nil)
	s.log(ctx).Info("product created",
		zap.String("product_id", product.IDString()),
		zap.String("erp_id", remote.ID),
		zap.String("erp_provider", s.erp.Name()),
	)

	response := ToProductResponse(product)
	return &response, nil
}

// compensateCreate rolls back the local row of a product whose ERP creation failed.
// If the rollback itself fails the row is kept as LOCAL_ONLY with the ERP error recorded.
func (s *ProductSyncService) compensateCreate(ctx context.Context, product *catalog.Product, cause error) {
	ctx = context.WithoutCancel(ctx)

	err := s.productRepo.Delete(ctx, product.ID)
	s.metrics.RecordCompensation(ctx, err)
	if err == nil || errors.Is(err, shared.ErrNotFound) {
		s.log(ctx).Warn("ERP product creation failed, local product rolled back",
			zap.String("product_id", product.IDString()),
			zap.NamedError("cause", cause),
		)
		return
	}

	product.RecordSyncFailure(cause)
	if saveErr := s.productRepo.Save(ctx, product); saveErr != nil {
		s.log(ctx).Error("failed to record sync failure on product",
			zap.String("product_id", product.IDString()),
			zap.Error(saveErr),
		)
	}
	s.log(ctx).Error("ERP product creation failed and local rollback failed",
		zap.String("product_id", product.IDString()),
		zap.NamedError("cause", cause),
		zap.Error(err),
	)
}

// recoverMirroredCreate handles a failed save of the ERP id after the ERP product was created.
// When an import mirrored the product first, that mirror is returned. Otherwise the ERP product
// is deleted again and the local row rolled back. If that delete fails too the ERP id is kept
// on the local row so the product can still be deleted through this service.
func (s *ProductSyncService) recoverMirroredCreate(
	ctx context.Context,
	product, mirrored *catalog.Product,
	cause error,
) (*ProductResponse, error) {
	erpID := mirrored.ErpIDValue()

	if errors.Is(cause, catalog.ErrDuplicateErpID) {
		// The ERP product belongs to the other row now; only the local row is ours to remove
		if err := s.productRepo.Delete(ctx, product.ID); err != nil && !errors.Is(err, shared.ErrNotFound) {
			s.log(ctx).Error("failed to remove superseded local product",
				zap.String("product_id", product.IDString()),
				zap.Error(err),
			)
		}
		existing, err := s.productRepo.FindByErpID(ctx, erpID)
		if err != nil {
			return nil, shared.NewRemoteSyncError("product creation", cause)
		}
		s.log(ctx).Info("created product was mirrored by an import first",
			zap.String("product_id", existing.IDString()),
			zap.String("erp_id", erpID),
		)
		response := ToProductResponse(existing)
		return &response, nil
	}

	syncErr := shared.NewRemoteSyncError("product creation", cause)
	s.log(ctx).Error("failed to record ERP id of created product",
		zap.String("product_id", product.IDString()),
		zap.String("erp_id", erpID),
		zap.Error(cause),
	)

	err := s.erp.DeleteProduct(ctx, erpID)
	if err == nil || errors.Is(err, integration.ErrErpProductNotFound) {
		s.compensateCreate(ctx, product, cause)
		return nil, syncErr
	}

	mirrored.RecordSyncFailure(cause)
	saveErr := s.productRepo.Save(ctx, mirrored)
	s.metrics.RecordCompensation(ctx, err)
	s.log(ctx).Error("ERP product could not be rolled back",
		zap.String("product_id", product.IDString()),
		zap.String("erp_id", erpID),
		zap.Bool("erp_id_recorded", saveErr == nil),
		zap.Error(err),
	)
	return nil, syncErr
}

// Get retrieves a product by ID
func (s *ProductSyncService) Get(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// List retrieves a page of products
func (s *ProductSyncService) List(ctx context.Context, input ListProductsInput) (*ProductListResponse, error) {
	filter := shared.Filter{
		Page:     input.Page,
		PageSize: input.PageSize,
		OrderBy:  input.OrderBy,
		OrderDir: strings.ToLower(input.OrderDir),
		Filters:  make(map[string]any),
	}.Normalize()
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}

	if input.SyncState != "" {
		state := catalog.SyncState(strings.ToUpper(input.SyncState))
		if state != catalog.SyncStateLocalOnly && state != catalog.SyncStateMirrored {
			return nil, shared.NewValidationError("sync_state must be LOCAL_ONLY or MIRRORED")
		}
		filter.Filters["sync_state"] = state
	}
	if search := strings.TrimSpace(input.Search); search != "" {
		filter.Filters["search"] = search
	}

	total, err := s.productRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	products, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ProductListResponse{
		Products: ToProductResponses(products),
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// Update renames a product, updating the ERP first when the product is mirrored.
// A failed ERP update leaves the local product unchanged.
func (s *ProductSyncService) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "Update",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, id.String()))
	defer span.End()

	release, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	description := product.Description
	if input.Description != nil {
		description = *input.Description
	}

	// Validate on a copy so the loaded product stays untouched until the ERP agrees
	updated := *product
	if err := updated.Rename(input.Name, description); err != nil {
		return nil, err
	}

	if updated.IsMirrored() {
		if _, err := s.erp.UpdateProduct(ctx, updated.ErpIDValue(), toDraft(&updated)); err != nil {
			syncErr := shared.NewRemoteSyncError("product update", err)
			s.log(ctx).Warn("ERP product update failed",
				zap.String("product_id", id.String()),
				zap.String("erp_id", updated.ErpIDValue()),
				zap.Error(err),
			)
			s.metrics.RecordProductOperation(ctx, "update", syncErr)
			telemetry.RecordError(span, syncErr)
			return nil, syncErr
		}
		updated.RecordSyncSuccess()
	}

	if err := s.productRepo.Save(ctx, &updated); err != nil {
		s.metrics.RecordProductOperation(ctx, "update", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	s.metrics.RecordProductOperation(ctx, "update", nil)
	response := ToProductResponse(&updated)
	return &response, nil
}

// Delete removes a product from the ERP and then locally.
// An ERP product that is already gone counts as removed; any other ERP failure keeps the local row.
func (s *ProductSyncService) Delete(ctx context.Context, id uuid.UUID) (*DeleteProductResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "Delete",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, id.String()))
	defer span.End()

	release, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if erpID := product.ErpIDValue(); erpID != "" {
		releaseErp, err := s.acquire(ctx, shared.ErpProductLockKey(erpID),
			fmt.Sprintf("ERP product %s is being imported by another request", erpID))
		if err != nil {
			return nil, err
		}
		defer releaseErp()

		err = s.erp.DeleteProduct(ctx, erpID)
		switch {
		case err == nil:
		case errors.Is(err, integration.ErrErpProductNotFound):
			s.log(ctx).Info("ERP product already removed",
				zap.String("product_id", id.String()),
				zap.String("erp_id", erpID),
			)
		default:
			syncErr := shared.NewRemoteSyncError("product deletion", err)
			s.log(ctx).Warn("ERP product deletion failed",
				zap.String("product_id", id.String()),
				zap.String("erp_id", erpID),
				zap.Error(err),
			)
			s.metrics.RecordProductOperation(ctx, "delete", syncErr)
			telemetry.RecordError(span, syncErr)
			return nil, syncErr
		}
	}

	if err := product.MarkDeleted(); err != nil {
		return nil, err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		s.metrics.RecordProductOperation(ctx, "delete", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	s.metrics.RecordProductOperation(ctx, "delete", nil)
	s.log(ctx).Info("product deleted",
		zap.String("product_id", id.String()),
		zap.String("erp_id", product.ErpIDValue()),
	)

	return &DeleteProductResponse{
		ID:      product.ID,
		ErpID:   product.ErpID,
		Deleted: true,
	}, nil
}

// lock acquires the product lock, mapping contention to a conflict
func (s *ProductSyncService) lock(ctx context.Context, id uuid.UUID) (func(), error) {
	return s.acquire(ctx, shared.ProductLockKey(id.String()),
		fmt.Sprintf("Product %s is being modified by another request", id))
}

func (s *ProductSyncService) acquire(ctx context.Context, key, conflictMsg string) (func(), error) {
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, shared.ErrLockNotAcquired) {
			return nil, shared.WrapDomainError(shared.CodeConflict, conflictMsg, err)
		}
		return nil, err
	}
	return release, nil
}

func (s *ProductSyncService) log(ctx context.Context) *zap.Logger {
	return logger.LOr(ctx, s.logger)
}

// toDraft builds the ERP payload of a product
func toDraft(p *catalog.Product) integration.ErpProductDraft {
	draft := integration.ErpProductDraft{
		Name:        p.Name,
		Description: p.Description,
		ProductNo:   p.ProductNo,
	}
	if p.Currency != "" {
		draft.Prices = []integration.ErpProductPrice{{
			UnitPrice: p.UnitPrice,
			Currency:  p.Currency,
		}}
	}
	return draft
}

func priceOrZero(p *decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return *p
}
