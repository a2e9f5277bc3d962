package schoolpay

import (
	"context"

	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/schoolerp/backend/internal/infrastructure/telemetry"
)

// MetricsEventHandler counts SchoolPay ledger events by type and source.
type MetricsEventHandler struct {
	metrics *telemetry.SchoolPayMetrics
}

// NewMetricsEventHandler creates a new MetricsEventHandler
func NewMetricsEventHandler(metrics *telemetry.SchoolPayMetrics) *MetricsEventHandler {
	return &MetricsEventHandler{metrics: metrics}
}

// EventTypes implements shared.EventHandler
func (h *MetricsEventHandler) EventTypes() []string {
	return []string{
		domain.EventTypeTransactionRecorded,
		domain.EventTypeTransactionReconciled,
		domain.EventTypeTransactionNeedsAttention,
	}
}

// Handle implements shared.EventHandler
func (h *MetricsEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var source domain.Source
	switch e := event.(type) {
	case *domain.TransactionRecordedEvent:
		source = e.Source
	case *domain.TransactionReconciledEvent:
		source = e.Source
	case *domain.TransactionNeedsAttentionEvent:
		source = e.Source
	default:
		return nil
	}
	h.metrics.RecordTransactionEvent(ctx, event.EventType(), string(source))
	return nil
}

var _ shared.EventHandler = (*MetricsEventHandler)(nil)
