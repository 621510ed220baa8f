package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ErrMeterNil is returned when a nil meter is passed
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Outcome values of AttrOutcome
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// SyncMetrics records ERP traffic and product synchronization outcomes
type SyncMetrics struct {
	erpRequests     *Counter
	erpDuration     *Histogram
	productsSynced  *Counter
	compensations   *Counter
	importedTotal   *Counter
	importRunsTotal *Counter
}

// NewSyncMetrics creates the sync instruments on meter
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   SyncMetrics
		err error
	)
	if m.erpRequests, err = NewCounter(meter, "productsync_erp_requests_total",
		"Total number of ERP API calls", "{requests}"); err != nil {
		return nil, err
	}
	if m.erpDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "productsync_erp_request_duration_seconds",
		Description: "Duration of ERP API calls",
		Unit:        "s",
		Boundaries:  ErpDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.productsSynced, err = NewCounter(meter, "productsync_product_operations_total",
		"Product create, update and delete operations by outcome", "{operations}"); err != nil {
		return nil, err
	}
	if m.compensations, err = NewCounter(meter, "productsync_compensations_total",
		"Local rollbacks after a failed ERP create", "{rollbacks}"); err != nil {
		return nil, err
	}
	if m.importedTotal, err = NewCounter(meter, "productsync_import_products_total",
		"Products seen by import runs by result", "{products}"); err != nil {
		return nil, err
	}
	if m.importRunsTotal, err = NewCounter(meter, "productsync_import_runs_total",
		"Import runs by status", "{runs}"); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewNoopSyncMetrics returns metrics backed by a no-op meter
func NewNoopSyncMetrics() *SyncMetrics {
	m, _ := NewSyncMetrics(noop.NewMeterProvider().Meter(TracerName))
	return m
}

// RecordErpCall records one ERP call
func (m *SyncMetrics) RecordErpCall(ctx context.Context, provider, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrProvider.String(provider),
		AttrOperation.String(operation),
		AttrOutcome.String(outcome(err)),
	}
	m.erpRequests.Inc(ctx, attrs...)
	m.erpDuration.RecordDuration(ctx, d, attrs...)
}

// RecordProductOperation records a create, update or delete use case outcome
func (m *SyncMetrics) RecordProductOperation(ctx context.Context, operation string, err error) {
	if m == nil {
		return
	}
	m.productsSynced.Inc(ctx, AttrOperation.String(operation), AttrOutcome.String(outcome(err)))
}

// RecordCompensation records a local rollback; err is the rollback error, if any
func (m *SyncMetrics) RecordCompensation(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.compensations.Inc(ctx, AttrOutcome.String(outcome(err)))
}

// RecordImport records the counters of one import run
func (m *SyncMetrics) RecordImport(ctx context.Context, status string, imported, skipped, failed int) {
	if m == nil {
		return
	}
	m.importRunsTotal.Inc(ctx, AttrResult.String(status))
	m.importedTotal.Add(ctx, int64(imported), AttrResult.String("imported"))
	m.importedTotal.Add(ctx, int64(skipped), AttrResult.String("skipped"))
	m.importedTotal.Add(ctx, int64(failed), AttrResult.String("failed"))
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
