package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appschoolpay "github.com/schoolerp/backend/internal/application/schoolpay"
	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	shareddomain "github.com/schoolerp/backend/internal/domain/shared"
	"github.com/schoolerp/backend/internal/infrastructure/cache"
	"github.com/schoolerp/backend/internal/infrastructure/event"
	"github.com/schoolerp/backend/internal/infrastructure/payment"
	"github.com/schoolerp/backend/internal/infrastructure/persistence"
	"github.com/schoolerp/backend/internal/infrastructure/storage"
	"github.com/schoolerp/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// schoolPayStack is the full pipeline wired to a real database and a fake provider
type schoolPayStack struct {
	DB           *TestDB
	Settings     *appschoolpay.SettingsService
	Webhook      *appschoolpay.WebhookService
	Sync         *appschoolpay.SyncService
	Transactions *appschoolpay.TransactionService
	Reconciled   *testutil.MockEventHandler
}

func newSchoolPayStack(t *testing.T, providerURL string) *schoolPayStack {
	t.Helper()

	tdb := NewSharedTestDB(t)
	tdb.CleanTables()
	db := tdb.DB
	log := zap.NewNop()

	bus := event.NewInMemoryEventBus(log)
	reconciled := testutil.NewMockEventHandler(domain.EventTypeTransactionReconciled)
	bus.Subscribe(reconciled)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	provider, err := payment.NewSchoolPayAdapter(&payment.SchoolPayConfig{BaseURL: providerURL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	settingsRepo := persistence.NewGormSchoolPaySettingsRepository(db)
	txnRepo := persistence.NewGormSchoolPayTransactionRepository(db)
	studentRepo := persistence.NewGormStudentRepository(db)

	reconciler := appschoolpay.NewReconciler(appschoolpay.ReconcilerConfig{
		Fees:           persistence.NewGormStudentFeeRepository(db),
		Transactions:   txnRepo,
		Store:          persistence.NewGormReconciliationStore(db),
		EventPublisher: bus,
		Logger:         log,
	})

	return &schoolPayStack{
		DB:       tdb,
		Settings: appschoolpay.NewSettingsService(settingsRepo, log),
		Webhook: appschoolpay.NewWebhookService(appschoolpay.WebhookServiceConfig{
			Settings:       settingsRepo,
			Transactions:   txnRepo,
			Students:       studentRepo,
			Reconciler:     reconciler,
			EventPublisher: bus,
			Location:       time.UTC,
			Logger:         log,
		}),
		Sync: appschoolpay.NewSyncService(appschoolpay.SyncServiceConfig{
			Settings:       settingsRepo,
			Transactions:   txnRepo,
			Students:       studentRepo,
			Provider:       provider,
			Reconciler:     reconciler,
			Lock:           cache.NewInMemoryLock(),
			Archive:        storage.NewNoopArchive(),
			EventPublisher: bus,
			Location:       time.UTC,
			Logger:         log,
		}),
		Transactions: appschoolpay.NewTransactionService(appschoolpay.TransactionServiceConfig{
			Transactions: txnRepo,
			Settings:     settingsRepo,
			Reconciler:   reconciler,
			Logger:       log,
		}),
		Reconciled: reconciled,
	}
}

func paymentJSON(receipt, amount, paymentCode string) string {
	return fmt.Sprintf(`{
		"schoolpayReceiptNumber": %q,
		"amount": %q,
		"studentName": "Jane Student",
		"studentPaymentCode": %q,
		"studentRegistrationNumber": "",
		"studentClass": "P5",
		"sourcePaymentChannel": "MTN Mobile Money",
		"settlementBankCode": "SBU",
		"sourceChannelTransactionId": "CH-%s",
		"paymentDateAndTime": "2024-03-01 09:15:00"
	}`, receipt, amount, paymentCode, receipt)
}

func webhookRequest(t *testing.T, raw string) appschoolpay.WebhookRequest {
	t.Helper()
	var rec domain.PaymentRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return appschoolpay.WebhookRequest{
		Type:       string(domain.KindSchoolFees),
		Payment:    rec,
		RawPayment: json.RawMessage(raw),
	}
}

func TestSchoolPay_WebhookToReconciliation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	stack := newSchoolPayStack(t, "http://127.0.0.1:1")
	ctx := context.Background()
	tenantID := testutil.NewTestUUID("webhook-tenant")

	_, err := stack.Settings.Configure(ctx, appschoolpay.ConfigureInput{
		TenantID: tenantID, SchoolCode: "SC01", APISecret: "secret-1234",
		WebhookEnabled: true, AutoReconcile: true,
	})
	require.NoError(t, err)

	studentID := stack.DB.CreateTestStudent(tenantID, "Jane Student", "ADM-001", "PC-1001")
	feeID := stack.DB.CreateTestFee(tenantID, studentID, decimal.NewFromInt(500000))

	t.Run("first delivery reconciles against the latest fee", func(t *testing.T) {
		result, err := stack.Webhook.Process(ctx, webhookRequest(t, paymentJSON("RCPT-1", "150000", "PC-1001")))
		require.NoError(t, err)
		assert.Equal(t, appschoolpay.DispositionRecorded, result.Disposition)
		assert.Equal(t, tenantID, result.TenantID)
		assert.Equal(t, appschoolpay.OutcomeReconciled, result.Outcome)

		paid, balance, status := stack.DB.FeeState(feeID)
		assert.True(t, paid.Equal(decimal.NewFromInt(150000)), "paid %s", paid)
		assert.True(t, balance.Equal(decimal.NewFromInt(350000)), "balance %s", balance)
		assert.Equal(t, "partial", status)
		assert.Equal(t, int64(1), stack.DB.CountRows("fee_payments", "student_fee_id = ?", feeID))
		assert.True(t, testutil.WaitForEventCount(t, stack.Reconciled, 1, time.Second))
	})

	t.Run("redelivery changes nothing", func(t *testing.T) {
		result, err := stack.Webhook.Process(ctx, webhookRequest(t, paymentJSON("RCPT-1", "150000", "PC-1001")))
		require.NoError(t, err)
		assert.Equal(t, appschoolpay.DispositionRedelivered, result.Disposition)

		paid, _, _ := stack.DB.FeeState(feeID)
		assert.True(t, paid.Equal(decimal.NewFromInt(150000)))
		assert.Equal(t, int64(1), stack.DB.CountRows("schoolpay_transactions", "tenant_id = ?", tenantID))
		assert.Equal(t, int64(1), stack.DB.CountRows("fee_payments", "tenant_id = ?", tenantID))
	})

	t.Run("unknown student is acknowledged without a row", func(t *testing.T) {
		result, err := stack.Webhook.Process(ctx, webhookRequest(t, paymentJSON("RCPT-X", "1000", "NOBODY")))
		require.NoError(t, err)
		assert.Equal(t, appschoolpay.DispositionUnattributed, result.Disposition)
		assert.Equal(t, int64(0), stack.DB.CountRows("schoolpay_transactions", "external_receipt_number = ?", "RCPT-X"))
	})

	t.Run("listing shows the reconciled row", func(t *testing.T) {
		filter := domain.TransactionFilter{Filter: shareddomain.DefaultFilter(), Status: domain.StatusReconciled}
		page, err := stack.Transactions.List(ctx, tenantID, filter)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "RCPT-1", page.Items[0].ReceiptNumber)
		assert.NotNil(t, page.Items[0].LinkedFeePaymentID)
	})
}

func TestSchoolPay_SyncSkipsKnownReceipts(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	var requests int
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.True(t, strings.Contains(r.URL.Path, "/AndroidRS/SyncSchoolTransactions/SC02/2024-03-01/"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"returnCode":0,"returnMessage":"OK","transactions":[%s,%s],"supplementaryFeePayments":[]}`,
			paymentJSON("SYNC-1", "20000", "PC-2001"), paymentJSON("SYNC-2", "30000", "PC-2001"))
	}))
	defer provider.Close()

	stack := newSchoolPayStack(t, provider.URL)
	ctx := context.Background()
	tenantID := testutil.NewTestUUID("sync-tenant")

	_, err := stack.Settings.Configure(ctx, appschoolpay.ConfigureInput{
		TenantID: tenantID, SchoolCode: "SC02", APISecret: "secret-5678",
		WebhookEnabled: true, AutoReconcile: false,
	})
	require.NoError(t, err)
	studentID := stack.DB.CreateTestStudent(tenantID, "Jane Student", "ADM-002", "PC-2001")
	feeID := stack.DB.CreateTestFee(tenantID, studentID, decimal.NewFromInt(100000))

	first, err := stack.Sync.Sync(ctx, appschoolpay.SyncRequest{TenantID: tenantID, Date: "2024-03-01"})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Total)
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 0, first.Skipped)
	assert.Equal(t, 0, first.AutoReconciled, "auto-reconcile is off")

	second, err := stack.Sync.Sync(ctx, appschoolpay.SyncRequest{TenantID: tenantID, Date: "2024-03-01"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Total)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 2, requests)

	assert.Equal(t, int64(2), stack.DB.CountRows("schoolpay_transactions",
		"tenant_id = ? AND reconciliation_status = ?", tenantID, domain.StatusMatched))

	settings, err := stack.Settings.Get(ctx, tenantID)
	require.NoError(t, err)
	assert.NotNil(t, settings.LastSyncAt)

	// Manual reconciliation of a matched row books the payment
	page, err := stack.Transactions.List(ctx, tenantID, domain.TransactionFilter{Filter: shareddomain.DefaultFilter()})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	txn, outcome, err := stack.Transactions.Reconcile(ctx, tenantID, page.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, appschoolpay.OutcomeReconciled, outcome)
	assert.Equal(t, domain.StatusReconciled, txn.Status)

	paid, _, _ := stack.DB.FeeState(feeID)
	assert.True(t, paid.Equal(page.Items[0].Amount), "paid %s", paid)
}
