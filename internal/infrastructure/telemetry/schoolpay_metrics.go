package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Sync outcomes and run results used as metric labels
const (
	OutcomeInserted = "inserted"
	OutcomeSkipped  = "skipped"

	ResultSuccess          = "success"
	ResultProviderRejected = "provider_rejected"
	ResultProviderError    = "provider_error"
	ResultFailed           = "failed"
)

// SchoolPayMetrics holds the instruments the ingestion pipeline reports.
// A nil *SchoolPayMetrics records nothing.
type SchoolPayMetrics struct {
	syncTransactions    metric.Int64Counter
	syncAutoReconciled  metric.Int64Counter
	syncRuns            metric.Int64Counter
	syncDuration        metric.Float64Histogram
	transactionsByEvent metric.Int64Counter
}

func NewSchoolPayMetrics(meter metric.Meter) (*SchoolPayMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &SchoolPayMetrics{}
	counters := []struct {
		dst        *metric.Int64Counter
		name, desc string
		unit       string
	}{
		{&m.syncTransactions, "schoolpay_sync_transactions_total", "Provider records processed by sync, by outcome", "{transactions}"},
		{&m.syncAutoReconciled, "schoolpay_sync_auto_reconciled_total", "Synced transactions reconciled automatically", "{transactions}"},
		{&m.syncRuns, "schoolpay_sync_runs_total", "Sync runs by result", "{runs}"},
		{&m.transactionsByEvent, "schoolpay_transactions_events_total", "Ledger events by type and ingestion source", "{events}"},
	}
	for _, c := range counters {
		inst, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
		*c.dst = inst
	}

	var err error
	m.syncDuration, err = meter.Float64Histogram("schoolpay_sync_duration_seconds",
		metric.WithDescription("Wall time of a sync run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(SyncDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram schoolpay_sync_duration_seconds: %w", err)
	}
	return m, nil
}

// RecordSyncCounts adds one run's counters
func (m *SchoolPayMetrics) RecordSyncCounts(ctx context.Context, inserted, skipped, autoReconciled int) {
	if m == nil {
		return
	}
	m.syncTransactions.Add(ctx, int64(inserted), withAttrs(AttrOutcome.String(OutcomeInserted)))
	m.syncTransactions.Add(ctx, int64(skipped), withAttrs(AttrOutcome.String(OutcomeSkipped)))
	m.syncAutoReconciled.Add(ctx, int64(autoReconciled))
}

// RecordSyncRun counts a finished run and its duration
func (m *SchoolPayMetrics) RecordSyncRun(ctx context.Context, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.Add(ctx, 1, withAttrs(AttrResult.String(result)))
	m.syncDuration.Record(ctx, elapsed.Seconds(), withAttrs(AttrResult.String(result)))
}

// RecordTransactionEvent counts a ledger event
func (m *SchoolPayMetrics) RecordTransactionEvent(ctx context.Context, eventType, source string) {
	if m == nil {
		return
	}
	m.transactionsByEvent.Add(ctx, 1, withAttrs(AttrEventType.String(eventType), AttrSource.String(source)))
}

func withAttrs(kv ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(kv...)
}
