package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/schoolerp/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string][]metricdata.DataPoint[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string][]metricdata.DataPoint[int64])
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				out[m.Name] = sum.DataPoints
			}
		}
	}
	return out
}

func valueFor(points []metricdata.DataPoint[int64], key attribute.Key, value string) int64 {
	for _, p := range points {
		if v, ok := p.Attributes.Value(key); ok && v.AsString() == value {
			return p.Value
		}
	}
	return 0
}

func TestNewSchoolPayMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewSchoolPayMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.Nil(t, m)
}

func TestSchoolPayMetrics_NoopMeter(t *testing.T) {
	m, err := telemetry.NewSchoolPayMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSyncCounts(ctx, 3, 1, 2)
	m.RecordSyncRun(ctx, telemetry.ResultSuccess, time.Second)
	m.RecordTransactionEvent(ctx, "schoolpay.transaction.recorded", "sync")
}

func TestSchoolPayMetrics_NilReceiver(t *testing.T) {
	var m *telemetry.SchoolPayMetrics
	assert.NotPanics(t, func() {
		m.RecordSyncCounts(context.Background(), 1, 1, 1)
		m.RecordSyncRun(context.Background(), telemetry.ResultFailed, 0)
		m.RecordTransactionEvent(context.Background(), "x", "y")
	})
}

func TestSchoolPayMetrics_Counters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := telemetry.NewSchoolPayMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSyncCounts(ctx, 4, 2, 3)
	m.RecordSyncCounts(ctx, 1, 0, 0)
	m.RecordSyncRun(ctx, telemetry.ResultSuccess, 2*time.Second)
	m.RecordSyncRun(ctx, telemetry.ResultProviderRejected, time.Second)
	m.RecordTransactionEvent(ctx, "schoolpay.transaction.reconciled", "webhook")

	sums := collectSums(t, reader)
	assert.Equal(t, int64(5), valueFor(sums["schoolpay_sync_transactions_total"], telemetry.AttrOutcome, telemetry.OutcomeInserted))
	assert.Equal(t, int64(2), valueFor(sums["schoolpay_sync_transactions_total"], telemetry.AttrOutcome, telemetry.OutcomeSkipped))
	require.Len(t, sums["schoolpay_sync_auto_reconciled_total"], 1)
	assert.Equal(t, int64(3), sums["schoolpay_sync_auto_reconciled_total"][0].Value)
	assert.Equal(t, int64(1), valueFor(sums["schoolpay_sync_runs_total"], telemetry.AttrResult, telemetry.ResultProviderRejected))
	assert.Equal(t, int64(1), valueFor(sums["schoolpay_transactions_events_total"], telemetry.AttrEventType, "schoolpay.transaction.reconciled"))
}
