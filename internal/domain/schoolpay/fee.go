package schoolpay

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FeeStatus is derived from a fee's balance and amount paid.
type FeeStatus string

const (
	FeeStatusPending FeeStatus = "pending"
	FeeStatusPartial FeeStatus = "partial"
	FeeStatusPaid    FeeStatus = "paid"
)

// PaymentMethodSchoolPay marks fee payments created from SchoolPay transactions
const PaymentMethodSchoolPay = "schoolpay"

// ReceiptPrefix distinguishes SchoolPay receipts from internally issued ones
const ReceiptPrefix = "SP-"

// DeriveFeeStatus returns paid when nothing is owed, partial when something
// has been paid, and pending otherwise.
func DeriveFeeStatus(balance, amountPaid decimal.Decimal) FeeStatus {
	switch {
	case balance.LessThanOrEqual(decimal.Zero):
		return FeeStatusPaid
	case amountPaid.GreaterThan(decimal.Zero):
		return FeeStatusPartial
	default:
		return FeeStatusPending
	}
}

// StudentFee is a student's fee balance record.
type StudentFee struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	StudentID   uuid.UUID
	TotalAmount decimal.Decimal
	AmountPaid  decimal.Decimal
	Balance     decimal.Decimal
	Status      FeeStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FeeUpdate is a compare-and-swap write against a StudentFee row:
// it only applies while the stored amount paid still equals ExpectedAmountPaid.
type FeeUpdate struct {
	FeeID              uuid.UUID
	TenantID           uuid.UUID
	ExpectedAmountPaid decimal.Decimal
	AmountPaid         decimal.Decimal
	Balance            decimal.Decimal
	Status             FeeStatus
}

// ApplyPayment computes the fee's state after receiving amount.
// The fee itself is not modified.
func (f *StudentFee) ApplyPayment(amount decimal.Decimal) FeeUpdate {
	paid := f.AmountPaid.Add(amount)
	balance := decimal.Max(decimal.Zero, f.TotalAmount.Sub(paid))
	return FeeUpdate{
		FeeID:              f.ID,
		TenantID:           f.TenantID,
		ExpectedAmountPaid: f.AmountPaid,
		AmountPaid:         paid,
		Balance:            balance,
		Status:             DeriveFeeStatus(balance, paid),
	}
}

// FeePayment is the internal payment record created by a successful reconciliation.
type FeePayment struct {
	shared.BaseEntity
	TenantID        uuid.UUID
	StudentID       uuid.UUID
	StudentFeeID    uuid.UUID
	Amount          decimal.Decimal
	PaymentMethod   string
	ReferenceNumber string
	ReceiptNumber   string
	Notes           string
	PaidAt          time.Time
}

// ReceiptNumberFor derives the internal receipt number from a SchoolPay receipt.
func ReceiptNumberFor(externalReceipt string) string {
	return ReceiptPrefix + externalReceipt
}

// NewFeePayment builds the payment that applies txn to fee.
func NewFeePayment(txn *Transaction, fee *StudentFee, notes string) (*FeePayment, error) {
	if txn.MatchedStudentID == nil {
		return nil, shared.NewDomainError("NO_MATCHED_STUDENT", "Transaction has no matched student")
	}
	if !txn.Amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	reference := txn.ProviderTransactionID
	if reference == "" {
		reference = txn.ReceiptNumber
	}
	paidAt := time.Now()
	if txn.PaymentTimestamp != nil {
		paidAt = *txn.PaymentTimestamp
	}
	return &FeePayment{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        txn.TenantID,
		StudentID:       *txn.MatchedStudentID,
		StudentFeeID:    fee.ID,
		Amount:          txn.Amount,
		PaymentMethod:   PaymentMethodSchoolPay,
		ReferenceNumber: reference,
		ReceiptNumber:   ReceiptNumberFor(txn.ReceiptNumber),
		Notes:           notes,
		PaidAt:          paidAt,
	}, nil
}

// FeeRepository reads student fee records.
type FeeRepository interface {
	// FindLatestForStudent returns the student's most recently created fee,
	// or shared.ErrNotFound when the student has none
	FindLatestForStudent(ctx context.Context, tenantID, studentID uuid.UUID) (*StudentFee, error)
	// FindByID returns shared.ErrNotFound if the fee is absent for the tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*StudentFee, error)
}

// ReconciliationCommit is everything a successful reconciliation writes.
type ReconciliationCommit struct {
	Payment     *FeePayment
	Fee         FeeUpdate
	Transaction *Transaction
}

// ReconciliationStore applies a ReconciliationCommit atomically. It returns
// ErrFeeConcurrentUpdate, with nothing written, when the fee CAS misses.
type ReconciliationStore interface {
	Commit(ctx context.Context, commit ReconciliationCommit) error
}
