package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appschoolpay "github.com/schoolerp/backend/internal/application/schoolpay"
	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/schoolerp/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func transactionRouter(h *SchoolPayTransactionHandler, tenantID uuid.UUID) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		setJWTContext(c, tenantID, uuid.New())
		c.Next()
	})
	router.GET("/transactions", h.List)
	router.GET("/transactions/:id", h.Get)
	router.POST("/transactions/:id/reconcile", h.Reconcile)
	return router
}

func sampleTransaction(tenantID uuid.UUID, status domain.ReconciliationStatus) domain.Transaction {
	studentID := uuid.New()
	paidAt := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	txn := domain.Transaction{
		TenantEntity:     shared.NewTenantEntity(tenantID),
		ReceiptNumber:    "SP-1001",
		Amount:           decimal.RequireFromString("150000.50"),
		StudentName:      "Jane Doe",
		PaymentTimestamp: &paidAt,
		Kind:             domain.KindSchoolFees,
		Source:           domain.SourceWebhook,
		MatchedStudentID: &studentID,
		Status:           status,
	}
	return txn
}

func TestSchoolPayTransactionHandler_List(t *testing.T) {
	require.NoError(t, setupTestValidator())
	tenantID := uuid.New()
	queries := new(MockTransactionQueries)
	txn := sampleTransaction(tenantID, domain.StatusMatched)

	queries.On("List", mock.Anything, tenantID, domain.TransactionFilter{
		Filter: shared.Filter{Page: 2, PageSize: 10, OrderBy: "amount", OrderDir: "asc"},
		Status: domain.StatusMatched,
	}).Return(&shared.Paginated[domain.Transaction]{
		Items:      []domain.Transaction{txn},
		Total:      11,
		Page:       2,
		PageSize:   10,
		TotalPages: 2,
	}, nil)

	w := httptest.NewRecorder()
	transactionRouter(NewSchoolPayTransactionHandler(queries), tenantID).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transactions?page=2&page_size=10&status=matched&order_by=amount&order_dir=asc", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool                      `json:"success"`
		Data    []dto.TransactionResponse `json:"data"`
		Meta    dto.Meta                  `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "SP-1001", resp.Data[0].ReceiptNumber)
	assert.True(t, resp.Data[0].Amount.Equal(decimal.RequireFromString("150000.50")))
	assert.Equal(t, "matched", resp.Data[0].Status)
	assert.Equal(t, "SCHOOL_FEES", resp.Data[0].Kind)
	require.NotNil(t, resp.Data[0].MatchedStudentID)
	assert.Nil(t, resp.Data[0].LinkedFeePaymentID)
	assert.Equal(t, int64(11), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	queries.AssertExpectations(t)
}

func TestSchoolPayTransactionHandler_ListDefaults(t *testing.T) {
	require.NoError(t, setupTestValidator())
	tenantID := uuid.New()
	queries := new(MockTransactionQueries)
	queries.On("List", mock.Anything, tenantID, domain.TransactionFilter{
		Filter: shared.Filter{Page: 1, PageSize: 20, OrderBy: "created_at", OrderDir: "desc"},
	}).Return(&shared.Paginated[domain.Transaction]{Page: 1, PageSize: 20}, nil)

	w := httptest.NewRecorder()
	transactionRouter(NewSchoolPayTransactionHandler(queries), tenantID).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transactions", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
	queries.AssertExpectations(t)
}

func TestSchoolPayTransactionHandler_ListRejectsUnknownStatus(t *testing.T) {
	require.NoError(t, setupTestValidator())
	queries := new(MockTransactionQueries)

	w := httptest.NewRecorder()
	transactionRouter(NewSchoolPayTransactionHandler(queries), uuid.New()).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transactions?status=paid", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrCodeValidation)
	queries.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestSchoolPayTransactionHandler_Get(t *testing.T) {
	tenantID := uuid.New()
	txn := sampleTransaction(tenantID, domain.StatusReconciled)
	queries := new(MockTransactionQueries)
	queries.On("Get", mock.Anything, tenantID, txn.ID).Return(&txn, nil)
	missing := uuid.New()
	queries.On("Get", mock.Anything, tenantID, missing).Return(nil, shared.ErrNotFound)

	router := transactionRouter(NewSchoolPayTransactionHandler(queries), tenantID)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transactions/"+txn.ID.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), txn.ID.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transactions/"+missing.String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transactions/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchoolPayTransactionHandler_Reconcile(t *testing.T) {
	tenantID := uuid.New()
	txn := sampleTransaction(tenantID, domain.StatusReconciled)
	feeID := uuid.New()
	txn.LinkedFeePaymentID = &feeID
	queries := new(MockTransactionQueries)
	queries.On("Reconcile", mock.Anything, tenantID, txn.ID).Return(&txn, appschoolpay.OutcomeReconciled, nil)

	w := httptest.NewRecorder()
	transactionRouter(NewSchoolPayTransactionHandler(queries), tenantID).
		ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/transactions/"+txn.ID.String()+"/reconcile", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data dto.ReconcileResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "reconciled", resp.Data.Outcome)
	require.NotNil(t, resp.Data.Transaction.LinkedFeePaymentID)
	assert.Equal(t, feeID.String(), *resp.Data.Transaction.LinkedFeePaymentID)
}

func TestSchoolPayTransactionHandler_ReconcileErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{
			"not matched",
			shared.WrapDomainError("INVALID_STATE", "Transaction is unmatched, only matched transactions can be reconciled", domain.ErrInvalidTransition),
			http.StatusUnprocessableEntity,
			dto.ErrCodeInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenantID := uuid.New()
			id := uuid.New()
			queries := new(MockTransactionQueries)
			queries.On("Reconcile", mock.Anything, tenantID, id).Return(nil, appschoolpay.OutcomeSkipped, tt.err)

			w := httptest.NewRecorder()
			transactionRouter(NewSchoolPayTransactionHandler(queries), tenantID).
				ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/transactions/"+id.String()+"/reconcile", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}
