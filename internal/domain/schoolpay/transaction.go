package schoolpay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ReconciliationStatus is where a ledgered transaction sits in the
// match and reconcile lifecycle.
type ReconciliationStatus string

const (
	StatusUnmatched      ReconciliationStatus = "unmatched"
	StatusMatched        ReconciliationStatus = "matched"
	StatusReconciled     ReconciliationStatus = "reconciled"
	StatusNeedsAttention ReconciliationStatus = "needs_attention"
)

// IsValid returns true if the status is recognised
func (s ReconciliationStatus) IsValid() bool {
	switch s {
	case StatusUnmatched, StatusMatched, StatusReconciled, StatusNeedsAttention:
		return true
	}
	return false
}

// String returns the string representation
func (s ReconciliationStatus) String() string {
	return string(s)
}

// Source records which ingestion path first saw a transaction.
type Source string

const (
	SourceWebhook Source = "webhook"
	SourceSync    Source = "sync"
)

// AggregateTypeTransaction is the aggregate type used in events
const AggregateTypeTransaction = "SchoolPayTransaction"

// Transaction is one ledgered provider payment. The pair
// (TenantID, ReceiptNumber) is unique.
type Transaction struct {
	shared.TenantEntity
	ReceiptNumber               string
	Amount                      decimal.Decimal
	StudentName                 string
	StudentPaymentCode          string
	StudentRegistrationNumber   string
	StudentClass                string
	PaymentChannel              string
	SettlementBank              string
	ProviderTransactionID       string
	PaymentTimestamp            *time.Time
	Kind                        TransactionKind
	SupplementaryFeeDescription string
	RawPayload                  json.RawMessage
	Source                      Source
	MatchedStudentID            *uuid.UUID
	Status                      ReconciliationStatus
	LinkedFeePaymentID          *uuid.UUID
	ReconciledAt                *time.Time
	Notes                       string
}

// NewTransaction builds an unmatched ledger row for a tenant from a tagged provider record.
func NewTransaction(tenantID uuid.UUID, rec TaggedRecord, source Source, loc *time.Location) (*Transaction, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if rec.Record.ReceiptNumber == "" {
		return nil, ErrInvalidPayload
	}
	raw := rec.Raw
	if len(raw) == 0 {
		b, err := json.Marshal(rec.Record)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	kind := rec.Kind
	if !kind.IsValid() {
		kind = KindSchoolFees
	}

	return &Transaction{
		TenantEntity:                shared.NewTenantEntity(tenantID),
		ReceiptNumber:               rec.Record.ReceiptNumber,
		Amount:                      rec.Record.Amount,
		StudentName:                 rec.Record.StudentName,
		StudentPaymentCode:          rec.Record.StudentPaymentCode,
		StudentRegistrationNumber:   rec.Record.StudentRegistrationNumber,
		StudentClass:                rec.Record.StudentClass,
		PaymentChannel:              rec.Record.SourcePaymentChannel,
		SettlementBank:              rec.Record.SettlementBankCode,
		ProviderTransactionID:       rec.Record.SourceChannelTransactionID,
		PaymentTimestamp:            ParsePaymentTime(rec.Record.PaymentDateAndTime, loc),
		Kind:                        kind,
		SupplementaryFeeDescription: rec.Record.SupplementaryFeeDescription,
		RawPayload:                  raw,
		Source:                      source,
		Status:                      StatusUnmatched,
	}, nil
}

// AttachMatch links the transaction to a student and moves it to matched.
func (t *Transaction) AttachMatch(studentID uuid.UUID) error {
	if t.Status != StatusUnmatched {
		return ErrInvalidTransition
	}
	id := studentID
	t.MatchedStudentID = &id
	t.Status = StatusMatched
	t.Touch()
	return nil
}

// IsReconcilable reports whether the reconciliation engine may act on this transaction.
func (t *Transaction) IsReconcilable() bool {
	return t.Status == StatusMatched && t.MatchedStudentID != nil && t.Amount.IsPositive()
}

// MarkReconciled links the created fee payment and records the time.
func (t *Transaction) MarkReconciled(feePaymentID uuid.UUID, at time.Time) error {
	if t.Status != StatusMatched {
		return ErrInvalidTransition
	}
	id := feePaymentID
	t.LinkedFeePaymentID = &id
	t.ReconciledAt = &at
	t.Status = StatusReconciled
	t.Touch()
	t.AddDomainEvent(NewTransactionReconciledEvent(t))
	return nil
}

// MarkNeedsAttention flags the transaction for manual follow-up.
func (t *Transaction) MarkNeedsAttention(note string) error {
	if t.Status != StatusUnmatched && t.Status != StatusMatched {
		return ErrInvalidTransition
	}
	t.Status = StatusNeedsAttention
	t.Notes = note
	t.Touch()
	t.AddDomainEvent(NewTransactionNeedsAttentionEvent(t))
	return nil
}

// RecordInserted raises the event for a row that was newly written to the ledger
func (t *Transaction) RecordInserted() {
	t.AddDomainEvent(NewTransactionRecordedEvent(t))
}

// TransactionFilter narrows a ledger listing.
type TransactionFilter struct {
	shared.Filter
	Status ReconciliationStatus
}

// TransactionRepository is the external transaction ledger.
type TransactionRepository interface {
	// Upsert writes the row keyed on (tenant, receipt). When the row already
	// exists only its raw payload is refreshed. Returns true on first insert.
	// On a redelivery (false, nil) implementations must overwrite *txn with
	// the stored row, so callers see its ID, status and link fields.
	Upsert(ctx context.Context, txn *Transaction) (bool, error)

	// InsertIfAbsent checks for the receipt and inserts only when missing.
	// A duplicate key raised by a concurrent writer counts as not inserted.
	InsertIfAbsent(ctx context.Context, txn *Transaction) (bool, error)

	// FindByID returns shared.ErrNotFound if the row is absent for the tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Transaction, error)

	// UpdateStatus persists the status, notes and link fields
	UpdateStatus(ctx context.Context, txn *Transaction) error

	// List returns one page of the tenant's ledger, most recent payment first
	List(ctx context.Context, tenantID uuid.UUID, filter TransactionFilter) ([]Transaction, int64, error)
}
