package schoolpay

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentRecord_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantReceipt string
		wantAmount  decimal.Decimal
		unreadable  bool
	}{
		{"numeric amount", `{"schoolpayReceiptNumber":"R1","amount":150000}`, "R1", decimal.NewFromInt(150000), false},
		{"string amount", `{"schoolpayReceiptNumber":"R1","amount":"20000.50"}`, "R1", decimal.RequireFromString("20000.50"), false},
		{"grouped amount", `{"schoolpayReceiptNumber":"R1","amount":"50,000"}`, "R1", decimal.NewFromInt(50000), false},
		{"currency prefix", `{"schoolpayReceiptNumber":"R1","amount":"UGX 1,250,000"}`, "R1", decimal.NewFromInt(1250000), false},
		{"numeric receipt", `{"schoolpayReceiptNumber":12345,"amount":"1000"}`, "12345", decimal.NewFromInt(1000), false},
		{"empty amount", `{"schoolpayReceiptNumber":"R1","amount":""}`, "R1", decimal.Zero, true},
		{"missing amount", `{"schoolpayReceiptNumber":"R1"}`, "R1", decimal.Zero, true},
		{"garbage amount", `{"schoolpayReceiptNumber":"R1","amount":"n/a"}`, "R1", decimal.Zero, true},
		{"object amount", `{"schoolpayReceiptNumber":"R1","amount":{"v":1}}`, "R1", decimal.Zero, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec PaymentRecord
			require.NoError(t, json.Unmarshal([]byte(tt.body), &rec))
			assert.Equal(t, tt.wantReceipt, rec.ReceiptNumber)
			assert.True(t, tt.wantAmount.Equal(rec.Amount), "amount %s", rec.Amount)
			assert.Equal(t, tt.unreadable, rec.AmountUnreadable)
		})
	}
}

func TestPaymentRecord_UnmarshalJSON_IdentifiersAsNumbers(t *testing.T) {
	var rec PaymentRecord
	require.NoError(t, json.Unmarshal([]byte(`{
		"schoolpayReceiptNumber": 29876543,
		"amount": 5000,
		"studentPaymentCode": 1002003004,
		"studentRegistrationNumber": null,
		"sourceChannelTransactionId": 77
	}`), &rec))

	assert.Equal(t, "29876543", rec.ReceiptNumber)
	assert.Equal(t, "1002003004", rec.StudentPaymentCode)
	assert.Empty(t, rec.StudentRegistrationNumber)
	assert.Equal(t, "77", rec.SourceChannelTransactionID)
}

func TestPaymentRecord_UnmarshalJSON_RejectsNonObjects(t *testing.T) {
	for _, body := range []string{`"SP-1"`, `[1,2]`, `null`} {
		var rec PaymentRecord
		assert.Error(t, json.Unmarshal([]byte(body), &rec), body)
	}
}

func TestNewTransaction_KeepsUnreadableAmountAtZero(t *testing.T) {
	var rec PaymentRecord
	require.NoError(t, json.Unmarshal([]byte(`{"schoolpayReceiptNumber":"R9","amount":""}`), &rec))

	txn, err := NewTransaction(uuid.New(), TaggedRecord{Kind: KindSchoolFees, Record: rec}, SourceWebhook, nil)
	require.NoError(t, err)
	assert.True(t, txn.Amount.IsZero())
	assert.False(t, txn.IsReconcilable())
}
