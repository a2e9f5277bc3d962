package schoolpay

import (
	"context"
	"testing"

	"github.com/google/uuid"
	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTransactionService() (*TransactionService, *MockTransactionRepository, *MockFeeRepository, *MockReconciliationStore) {
	txns := new(MockTransactionRepository)
	fees := new(MockFeeRepository)
	store := new(MockReconciliationStore)
	svc := NewTransactionService(TransactionServiceConfig{
		Transactions: txns,
		Reconciler:   NewReconciler(ReconcilerConfig{Fees: fees, Transactions: txns, Store: store}),
	})
	return svc, txns, fees, store
}

func TestTransactionService_List(t *testing.T) {
	svc, txns, _, _ := newTransactionService()
	tenantID := uuid.New()

	txns.On("List", mock.Anything, tenantID, mock.MatchedBy(func(f domain.TransactionFilter) bool {
		return f.Page == 1 && f.PageSize == 20 && f.Status == domain.StatusMatched
	})).Return([]domain.Transaction{{ReceiptNumber: "R1"}}, int64(21), nil)

	page, err := svc.List(context.Background(), tenantID, domain.TransactionFilter{Status: domain.StatusMatched})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(21), page.Total)
	assert.Equal(t, 2, page.TotalPages)
}

func TestTransactionService_ListRejectsUnknownStatus(t *testing.T) {
	svc, txns, _, _ := newTransactionService()

	_, err := svc.List(context.Background(), uuid.New(), domain.TransactionFilter{Status: "bogus"})
	require.Error(t, err)
	txns.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransactionService_ReconcileRequiresMatched(t *testing.T) {
	svc, txns, _, _ := newTransactionService()
	tenantID := uuid.New()
	txn := newMatchedTransaction(tenantID, uuid.New(), "R1", 1000)
	require.NoError(t, txn.MarkNeedsAttention("check"))

	txns.On("FindByID", mock.Anything, tenantID, txn.ID).Return(txn, nil)

	_, _, err := svc.Reconcile(context.Background(), tenantID, txn.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransactionService_ReconcileIgnoresAutoReconcileToggle(t *testing.T) {
	svc, txns, fees, store := newTransactionService()
	tenantID, studentID := uuid.New(), uuid.New()
	txn := newMatchedTransaction(tenantID, studentID, "R1", 1000)

	txns.On("FindByID", mock.Anything, tenantID, txn.ID).Return(txn, nil)
	fees.On("FindLatestForStudent", mock.Anything, tenantID, studentID).Return(newFee(tenantID, studentID, 5000, 0), nil)
	store.On("Commit", mock.Anything, mock.Anything).Return(nil)

	got, outcome, err := svc.Reconcile(context.Background(), tenantID, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReconciled, outcome)
	assert.Equal(t, domain.StatusReconciled, got.Status)
}

func TestTransactionService_ReconcileNotFound(t *testing.T) {
	svc, txns, _, _ := newTransactionService()
	tenantID, id := uuid.New(), uuid.New()
	txns.On("FindByID", mock.Anything, tenantID, id).Return(nil, shared.ErrNotFound)

	_, _, err := svc.Reconcile(context.Background(), tenantID, id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
