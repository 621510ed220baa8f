package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/productsync/internal/domain/catalog"
	"github.com/erp/productsync/internal/domain/integration"
	"github.com/erp/productsync/internal/domain/shared"
	"github.com/erp/productsync/internal/infrastructure/logger"
	"github.com/erp/productsync/internal/infrastructure/telemetry"
)

// Failure codes of ImportReport.Failures
const (
	FailureInvalidProduct = "INVALID_ERP_PRODUCT"
	FailurePersistence    = "PERSISTENCE_ERROR"
	FailureLocked         = "LOCKED"
	FailureErpLookup      = "ERP_LOOKUP_FAILED"
)

// DefaultImportPageSize is the ERP page size used when ImportOptions leaves it unset
const DefaultImportPageSize = 100

// ImportOptions tunes an import run
type ImportOptions struct {
	// ExpectAtLeast fails the run with IMPORT_INCOMPLETE when fewer products are imported
	ExpectAtLeast int
	// PageSize overrides the ERP listing page size
	PageSize int
}

// ImportReport summarizes an import run
type ImportReport struct {
	ImportedProducts []uuid.UUID              `json:"imported_products"`
	Skipped          int                      `json:"skipped"`
	Failures         []integration.SyncFailure `json:"failures"`
	Status           integration.SyncStatus   `json:"status"`
	Pages            int                      `json:"pages"`
	StartedAt        time.Time                `json:"started_at"`
	FinishedAt       time.Time                `json:"finished_at"`
}

// ImportReconciler creates local mirrors for ERP products that have none yet
type ImportReconciler struct {
	productRepo catalog.ProductRepository
	erp         integration.ErpProductCatalog
	locker      shared.Locker
	metrics     *telemetry.SyncMetrics
	logger      *zap.Logger
	pageSize    int
}

// ImportReconcilerOption is a functional option for configuring ImportReconciler
type ImportReconcilerOption func(*ImportReconciler)

// WithLogger sets the fallback logger used outside request scope
func WithLogger(l *zap.Logger) ImportReconcilerOption {
	return func(r *ImportReconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSyncMetrics records import outcomes on m
func WithSyncMetrics(m *telemetry.SyncMetrics) ImportReconcilerOption {
	return func(r *ImportReconciler) {
		r.metrics = m
	}
}

// WithPageSize sets the default ERP listing page size
func WithPageSize(size int) ImportReconcilerOption {
	return func(r *ImportReconciler) {
		if size > 0 {
			r.pageSize = size
		}
	}
}

// NewImportReconciler creates a new ImportReconciler
func NewImportReconciler(
	productRepo catalog.ProductRepository,
	erp integration.ErpProductCatalog,
	locker shared.Locker,
	opts ...ImportReconcilerOption,
) *ImportReconciler {
	r := &ImportReconciler{
		productRepo: productRepo,
		erp:         erp,
		locker:      locker,
		logger:      zap.NewNop(),
		pageSize:    DefaultImportPageSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ImportFromErp pages through the ERP catalog and mirrors every product not yet known locally.
// Concurrent runs are serialized by the import lock.
func (r *ImportReconciler) ImportFromErp(ctx context.Context, opts ImportOptions) (*ImportReport, error) {
	if opts.ExpectAtLeast < 0 {
		return nil, shared.NewValidationError("expect_at_least cannot be negative")
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = r.pageSize
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "ImportReconciler", "ImportFromErp",
		telemetry.WithAttribute(telemetry.SpanAttrErpProvider, r.erp.Name()))
	defer span.End()

	release, err := r.locker.Acquire(ctx, shared.ImportLockKey)
	if err != nil {
		if errors.Is(err, shared.ErrLockNotAcquired) {
			return nil, shared.WrapDomainError(shared.CodeConflict, "An import from the ERP is already running", err)
		}
		return nil, err
	}
	defer release()

	report := &ImportReport{
		ImportedProducts: []uuid.UUID{},
		Failures:         []integration.SyncFailure{},
		StartedAt:        time.Now(),
	}
	seen := make(map[string]struct{})

	for page := 1; ; page++ {
		result, err := r.erp.ListProducts(ctx, page, pageSize)
		if err != nil {
			syncErr := shared.NewRemoteSyncError("product listing", err)
			r.log(ctx).Warn("ERP product listing failed",
				zap.Int("page", page),
				zap.Error(err),
			)
			telemetry.RecordError(span, syncErr)
			r.metrics.RecordImport(ctx, integration.SyncStatusFailed.String(),
				len(report.ImportedProducts), report.Skipped, len(report.Failures))
			return nil, syncErr
		}
		report.Pages = page

		if err := r.importPage(ctx, result.Products, seen, report); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}

		if len(result.Products) == 0 || !result.HasMore() {
			break
		}
	}

	report.FinishedAt = time.Now()
	summary := integration.SyncResult{
		TotalCount:   len(report.ImportedProducts) + len(report.Failures),
		SuccessCount: len(report.ImportedProducts),
		SkippedCount: report.Skipped,
		FailedItems:  report.Failures,
		SyncedAt:     report.FinishedAt,
	}
	report.Status = summary.ResolveStatus()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrImported, len(report.ImportedProducts),
		telemetry.SpanAttrSkipped, report.Skipped,
		telemetry.SpanAttrFailed, len(report.Failures),
	)
	r.metrics.RecordImport(ctx, report.Status.String(),
		len(report.ImportedProducts), report.Skipped, len(report.Failures))
	r.log(ctx).Info("import from ERP finished",
		zap.String("status", report.Status.String()),
		zap.Int("imported", len(report.ImportedProducts)),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failures)),
		zap.Int("pages", report.Pages),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)

	if report.Status == integration.SyncStatusFailed {
		err := shared.NewDomainError(shared.CodeImportFailed,
			fmt.Sprintf("All %d ERP products failed to import", len(report.Failures))).WithDetails(report)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(report.ImportedProducts) < opts.ExpectAtLeast {
		err := shared.NewDomainError(shared.CodeImportIncomplete,
			fmt.Sprintf("Imported %d products, expected at least %d", len(report.ImportedProducts), opts.ExpectAtLeast)).
			WithDetails(report)
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	return report, nil
}

// importPage mirrors the unknown products of one ERP page.
// Only repository lookups abort the run; per-product problems become failures.
func (r *ImportReconciler) importPage(
	ctx context.Context,
	products []integration.ErpProduct,
	seen map[string]struct{},
	report *ImportReport,
) error {
	candidates := make([]integration.ErpProduct, 0, len(products))
	for _, p := range products {
		id := strings.TrimSpace(p.ID)
		switch {
		case id == "":
			report.Failures = append(report.Failures, integration.SyncFailure{
				ItemID:       p.Name,
				ErrorCode:    FailureInvalidProduct,
				ErrorMessage: "ERP product has no id",
			})
			continue
		case p.IsArchived:
			report.Skipped++
			continue
		}
		if _, dup := seen[id]; dup {
			report.Skipped++
			continue
		}
		seen[id] = struct{}{}
		p.ID = id
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return nil
	}

	ids := make([]string, len(candidates))
	for i := range candidates {
		ids[i] = candidates[i].ID
	}
	existing, err := r.productRepo.FindByErpIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to look up local mirrors: %w", err)
	}

	for _, p := range candidates {
		if _, ok := existing[p.ID]; ok {
			report.Skipped++
			continue
		}
		r.mirror(ctx, p, report)
	}
	return nil
}

// mirror stores one ERP product locally as MIRRORED
func (r *ImportReconciler) mirror(ctx context.Context, p integration.ErpProduct, report *ImportReport) {
	opts := catalog.ProductOptions{
		Description: p.Description,
		ProductNo:   p.ProductNo,
	}
	if price, ok := p.PrimaryPrice(); ok {
		opts.UnitPrice = price.UnitPrice
		opts.Currency = price.Currency
	}

	product, err := catalog.NewMirroredProduct(p.ID, p.Name, opts)
	if err != nil {
		report.Failures = append(report.Failures, failure(p.ID, FailureInvalidProduct, err))
		return
	}

	// Deletes of a mirror hold the same lock while removing the ERP product
	release, err := r.locker.Acquire(ctx, shared.ErpProductLockKey(p.ID))
	if err != nil {
		report.Failures = append(report.Failures, failure(p.ID, FailureLocked, err))
		return
	}
	defer release()

	// The listing may be stale: a delete can have removed the product since
	current, err := r.erp.GetProduct(ctx, p.ID)
	switch {
	case errors.Is(err, integration.ErrErpProductNotFound):
		r.log(ctx).Debug("ERP product removed during import",
			zap.String("erp_id", p.ID),
		)
		report.Skipped++
		return
	case err != nil:
		report.Failures = append(report.Failures, failure(p.ID, FailureErpLookup, err))
		return
	case current.IsArchived:
		report.Skipped++
		return
	}

	if err := r.productRepo.Save(ctx, product); err != nil {
		if errors.Is(err, catalog.ErrDuplicateErpID) {
			// Another request mirrored the product after our lookup
			report.Skipped++
			return
		}
		r.log(ctx).Warn("failed to store imported product",
			zap.String("erp_id", p.ID),
			zap.Error(err),
		)
		report.Failures = append(report.Failures, failure(p.ID, FailurePersistence, err))
		return
	}
	report.ImportedProducts = append(report.ImportedProducts, product.ID)
}

func (r *ImportReconciler) log(ctx context.Context) *zap.Logger {
	return logger.LOr(ctx, r.logger)
}

func failure(erpID, code string, err error) integration.SyncFailure {
	return integration.SyncFailure{
		ItemID:       erpID,
		ErrorCode:    code,
		ErrorMessage: err.Error(),
	}
}
