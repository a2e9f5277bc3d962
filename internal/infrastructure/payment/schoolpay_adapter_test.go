package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const syncResponseBody = `{
  "returnCode": 0,
  "returnMessage": "SUCCESS",
  "transactions": [
    {"schoolpayReceiptNumber": " 29876543 ", "amount": 150000, "studentName": "Nakato Sarah",
     "studentPaymentCode": "1002003004", "studentRegistrationNumber": "ADM/2024/001",
     "sourcePaymentChannel": "MTN Mobile Money", "sourceChannelTransactionId": "MM123",
     "paymentDateAndTime": "2025-01-10 14:22:05"}
  ],
  "supplementaryFeePayments": [
    {"schoolpayReceiptNumber": "29876544", "amount": "20000.50", "studentPaymentCode": "1002003004",
     "supplementaryFeeDescription": "Uniform"}
  ]
}`

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *SchoolPayAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter, err := NewSchoolPayAdapter(&SchoolPayConfig{BaseURL: server.URL + "/paymentapi/", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return adapter
}

var testCreds = schoolpay.Credentials{SchoolCode: "SC001", APISecret: "s3cret"}

func TestSchoolPayConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  SchoolPayConfig
		wantErr error
		wantURL string
	}{
		{name: "defaults", config: SchoolPayConfig{}, wantURL: DefaultSchoolPayBaseURL},
		{name: "trims trailing slash", config: SchoolPayConfig{BaseURL: "http://localhost:9000/api/"}, wantURL: "http://localhost:9000/api"},
		{name: "rejects relative URL", config: SchoolPayConfig{BaseURL: "schoolpay/api"}, wantErr: ErrSchoolPayInvalidBaseURL},
		{name: "rejects negative timeout", config: SchoolPayConfig{Timeout: -time.Second}, wantErr: ErrSchoolPayInvalidTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, tt.config.BaseURL)
			assert.Equal(t, 30*time.Second, tt.config.Timeout)
		})
	}
}

func TestSchoolPayAdapter_FetchSingleDate(t *testing.T) {
	var gotPath string
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(syncResponseBody))
	})

	window, err := schoolpay.NewSyncWindow("2025-01-10", "", "")
	require.NoError(t, err)

	batch, err := adapter.FetchTransactions(context.Background(), testCreds, window)
	require.NoError(t, err)

	wantHash := schoolpay.SyncRequestHash("SC001", "2025-01-10", "s3cret")
	assert.Equal(t, "/paymentapi/AndroidRS/SyncSchoolTransactions/SC001/2025-01-10/"+wantHash, gotPath)

	require.Len(t, batch.Records, 2)
	assert.Equal(t, schoolpay.KindSchoolFees, batch.Records[0].Kind)
	assert.Equal(t, "29876543", batch.Records[0].Record.ReceiptNumber)
	assert.True(t, decimal.NewFromInt(150000).Equal(batch.Records[0].Record.Amount))
	assert.Contains(t, string(batch.Records[0].Raw), "MTN Mobile Money")

	assert.Equal(t, schoolpay.KindOtherFees, batch.Records[1].Kind)
	assert.Equal(t, "Uniform", batch.Records[1].Record.SupplementaryFeeDescription)
	assert.True(t, decimal.RequireFromString("20000.50").Equal(batch.Records[1].Record.Amount))
	assert.JSONEq(t, syncResponseBody, string(batch.Body))
}

func TestSchoolPayAdapter_FetchRangeUsesFromDateInHash(t *testing.T) {
	var gotPath string
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"returnCode":0,"returnMessage":"OK","transactions":[],"supplementaryFeePayments":null}`))
	})

	window, err := schoolpay.NewSyncWindow("", "2025-01-01", "2025-01-31")
	require.NoError(t, err)

	batch, err := adapter.FetchTransactions(context.Background(), testCreds, window)
	require.NoError(t, err)
	assert.Empty(t, batch.Records)

	wantHash := schoolpay.SyncRequestHash("SC001", "2025-01-01", "s3cret")
	assert.Equal(t, "/paymentapi/AndroidRS/SchoolRangeTransactions/SC001/2025-01-01/2025-01-31/"+wantHash, gotPath)
}

func TestSchoolPayAdapter_ProviderRejection(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"returnCode":1,"returnMessage":"Invalid hash","transactions":[{"schoolpayReceiptNumber":"X"}]}`))
	})

	window, _ := schoolpay.NewSyncWindow("2025-01-10", "", "")
	batch, err := adapter.FetchTransactions(context.Background(), testCreds, window)

	assert.Nil(t, batch)
	assert.ErrorIs(t, err, schoolpay.ErrProviderRejected)
	var providerErr *schoolpay.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, 1, providerErr.ReturnCode)
	assert.Equal(t, "Invalid hash", providerErr.Message)
}

func TestSchoolPayAdapter_Failures(t *testing.T) {
	window, _ := schoolpay.NewSyncWindow("2025-01-10", "", "")

	t.Run("http error status", func(t *testing.T) {
		adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := adapter.FetchTransactions(context.Background(), testCreds, window)
		assert.ErrorIs(t, err, schoolpay.ErrProviderUnavailable)
	})

	t.Run("malformed body", func(t *testing.T) {
		adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>maintenance</html>`))
		})
		_, err := adapter.FetchTransactions(context.Background(), testCreds, window)
		assert.ErrorIs(t, err, schoolpay.ErrProviderInvalidResponse)
	})

	t.Run("unreachable host", func(t *testing.T) {
		adapter, err := NewSchoolPayAdapter(&SchoolPayConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
		require.NoError(t, err)
		_, err = adapter.FetchTransactions(context.Background(), testCreds, window)
		assert.ErrorIs(t, err, schoolpay.ErrProviderUnavailable)
	})

	t.Run("cancelled context", func(t *testing.T) {
		adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"returnCode":0}`))
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := adapter.FetchTransactions(ctx, testCreds, window)
		assert.ErrorIs(t, err, schoolpay.ErrProviderUnavailable)
	})
}

func TestSchoolPayAdapter_OddRecordsDoNotFailTheBatch(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
		  "returnCode": 0,
		  "transactions": [
		    {"schoolpayReceiptNumber": "R-EMPTY", "amount": ""},
		    {"schoolpayReceiptNumber": "R-GROUPED", "amount": "50,000"},
		    {"schoolpayReceiptNumber": 12345, "amount": 1000},
		    "not-a-record"
		  ],
		  "supplementaryFeePayments": []
		}`))
	})

	window, err := schoolpay.NewSyncWindow("2025-01-10", "", "")
	require.NoError(t, err)

	batch, err := adapter.FetchTransactions(context.Background(), testCreds, window)
	require.NoError(t, err)
	require.Len(t, batch.Records, 4)

	assert.Equal(t, "R-EMPTY", batch.Records[0].Record.ReceiptNumber)
	assert.True(t, batch.Records[0].Record.AmountUnreadable)
	assert.True(t, batch.Records[0].Record.Amount.IsZero())

	assert.True(t, decimal.NewFromInt(50000).Equal(batch.Records[1].Record.Amount))
	assert.Equal(t, "12345", batch.Records[2].Record.ReceiptNumber)

	assert.Empty(t, batch.Records[3].Record.ReceiptNumber)
	assert.Equal(t, `"not-a-record"`, string(batch.Records[3].Raw))
}
