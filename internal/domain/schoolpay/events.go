package schoolpay

import (
	"github.com/google/uuid"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeTransactionRecorded       = "schoolpay.transaction.recorded"
	EventTypeTransactionReconciled     = "schoolpay.transaction.reconciled"
	EventTypeTransactionNeedsAttention = "schoolpay.transaction.needs_attention"
)

// TransactionRecordedEvent is raised when a receipt is ledgered for the first time
type TransactionRecordedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string               `json:"receipt_number"`
	Amount        decimal.Decimal      `json:"amount"`
	Status        ReconciliationStatus `json:"status"`
	Source        Source               `json:"source"`
}

// NewTransactionRecordedEvent creates a TransactionRecordedEvent
func NewTransactionRecordedEvent(t *Transaction) *TransactionRecordedEvent {
	return &TransactionRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionRecorded, AggregateTypeTransaction, t.ID, t.TenantID),
		ReceiptNumber:   t.ReceiptNumber,
		Amount:          t.Amount,
		Status:          t.Status,
		Source:          t.Source,
	}
}

// TransactionReconciledEvent is raised when a payment has been applied to a student fee
type TransactionReconciledEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string          `json:"receipt_number"`
	StudentID     uuid.UUID       `json:"student_id"`
	FeePaymentID  uuid.UUID       `json:"fee_payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	Source        Source          `json:"source"`
}

// NewTransactionReconciledEvent creates a TransactionReconciledEvent
func NewTransactionReconciledEvent(t *Transaction) *TransactionReconciledEvent {
	e := &TransactionReconciledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionReconciled, AggregateTypeTransaction, t.ID, t.TenantID),
		ReceiptNumber:   t.ReceiptNumber,
		Amount:          t.Amount,
		Source:          t.Source,
	}
	if t.MatchedStudentID != nil {
		e.StudentID = *t.MatchedStudentID
	}
	if t.LinkedFeePaymentID != nil {
		e.FeePaymentID = *t.LinkedFeePaymentID
	}
	return e
}

// TransactionNeedsAttentionEvent is raised when a transaction cannot be reconciled automatically
type TransactionNeedsAttentionEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string `json:"receipt_number"`
	Notes         string `json:"notes"`
	Source        Source `json:"source"`
}

// NewTransactionNeedsAttentionEvent creates a TransactionNeedsAttentionEvent
func NewTransactionNeedsAttentionEvent(t *Transaction) *TransactionNeedsAttentionEvent {
	return &TransactionNeedsAttentionEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionNeedsAttention, AggregateTypeTransaction, t.ID, t.TenantID),
		ReceiptNumber:   t.ReceiptNumber,
		Notes:           t.Notes,
		Source:          t.Source,
	}
}
