package schoolpay

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestDeriveFeeStatus(t *testing.T) {
	tests := []struct {
		name    string
		balance decimal.Decimal
		paid    decimal.Decimal
		want    FeeStatus
	}{
		{"nothing paid", d(200000), d(0), FeeStatusPending},
		{"partly paid", d(150000), d(50000), FeeStatusPartial},
		{"fully paid", d(0), d(200000), FeeStatusPaid},
		{"zero fee", d(0), d(0), FeeStatusPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveFeeStatus(tt.balance, tt.paid))
		})
	}
}

func TestStudentFee_ApplyPayment(t *testing.T) {
	tests := []struct {
		name        string
		total, paid int64
		amount      int64
		wantPaid    int64
		wantBalance int64
		wantStatus  FeeStatus
	}{
		{"first instalment", 200000, 0, 50000, 50000, 150000, FeeStatusPartial},
		{"clears the balance", 200000, 150000, 50000, 200000, 0, FeeStatusPaid},
		{"overpayment clamps balance at zero", 200000, 150000, 80000, 230000, 0, FeeStatusPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee := &StudentFee{ID: uuid.New(), TenantID: uuid.New(), TotalAmount: d(tt.total), AmountPaid: d(tt.paid)}
			upd := fee.ApplyPayment(d(tt.amount))

			assert.True(t, upd.ExpectedAmountPaid.Equal(d(tt.paid)))
			assert.True(t, upd.AmountPaid.Equal(d(tt.wantPaid)), "paid=%s", upd.AmountPaid)
			assert.True(t, upd.Balance.Equal(d(tt.wantBalance)), "balance=%s", upd.Balance)
			assert.Equal(t, tt.wantStatus, upd.Status)
			assert.Equal(t, fee.ID, upd.FeeID)
			assert.True(t, fee.AmountPaid.Equal(d(tt.paid)), "fee must not be mutated")
		})
	}
}

func TestNewFeePayment(t *testing.T) {
	tenantID := uuid.New()
	studentID := uuid.New()
	fee := &StudentFee{ID: uuid.New(), TenantID: tenantID, StudentID: studentID}

	t.Run("derives receipt and method", func(t *testing.T) {
		txn := newTestTransaction(t, tenantID, "R100", 50000)
		require.NoError(t, txn.AttachMatch(studentID))
		txn.ProviderTransactionID = "MTN-778"

		p, err := NewFeePayment(txn, fee, "note")
		require.NoError(t, err)
		assert.Equal(t, "SP-R100", p.ReceiptNumber)
		assert.Equal(t, PaymentMethodSchoolPay, p.PaymentMethod)
		assert.Equal(t, "MTN-778", p.ReferenceNumber)
		assert.Equal(t, fee.ID, p.StudentFeeID)
		assert.Equal(t, studentID, p.StudentID)
		assert.True(t, p.Amount.Equal(d(50000)))
	})

	t.Run("falls back to the receipt as reference", func(t *testing.T) {
		txn := newTestTransaction(t, tenantID, "R101", 1000)
		require.NoError(t, txn.AttachMatch(studentID))
		at := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
		txn.PaymentTimestamp = &at

		p, err := NewFeePayment(txn, fee, "")
		require.NoError(t, err)
		assert.Equal(t, "R101", p.ReferenceNumber)
		assert.Equal(t, at, p.PaidAt)
	})

	t.Run("requires a matched student", func(t *testing.T) {
		txn := newTestTransaction(t, tenantID, "R102", 1000)
		_, err := NewFeePayment(txn, fee, "")
		assert.Error(t, err)
	})

	t.Run("requires a positive amount", func(t *testing.T) {
		txn := newTestTransaction(t, tenantID, "R103", 0)
		require.NoError(t, txn.AttachMatch(studentID))
		_, err := NewFeePayment(txn, fee, "")
		assert.Error(t, err)
	})
}
