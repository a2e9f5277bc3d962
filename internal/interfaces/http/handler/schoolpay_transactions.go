package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appschoolpay "github.com/schoolerp/backend/internal/application/schoolpay"
	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/schoolerp/backend/internal/interfaces/http/dto"
)

// TransactionQueries reads and reconciles ledger rows
type TransactionQueries interface {
	List(ctx context.Context, tenantID uuid.UUID, filter domain.TransactionFilter) (*shared.Paginated[domain.Transaction], error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Transaction, error)
	Reconcile(ctx context.Context, tenantID, id uuid.UUID) (*domain.Transaction, appschoolpay.Outcome, error)
}

// SchoolPayTransactionHandler exposes the tenant's SchoolPay ledger
type SchoolPayTransactionHandler struct {
	BaseHandler
	queries TransactionQueries
}

// NewSchoolPayTransactionHandler creates a new SchoolPayTransactionHandler
func NewSchoolPayTransactionHandler(queries TransactionQueries) *SchoolPayTransactionHandler {
	return &SchoolPayTransactionHandler{queries: queries}
}

// List godoc
// @ID           listSchoolPayTransactions
// @Summary      List SchoolPay transactions
// @Description  Returns the caller's ledger, newest first, optionally filtered by reconciliation status
// @Tags         schoolpay
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        status query string false "Reconciliation status" Enums(unmatched, matched, reconciled, needs_attention)
// @Param        order_by query string false "Sort field" Enums(created_at, payment_timestamp, amount, external_receipt_number, reconciliation_status) default(created_at)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc) default(desc)
// @Success      200 {object} APIResponse[[]dto.TransactionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /schoolpay/transactions [get]
func (h *SchoolPayTransactionHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing tenant ID")
		return
	}

	req := dto.TransactionListRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	filter := domain.TransactionFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			OrderBy:  req.OrderBy,
			OrderDir: req.OrderDir,
		},
		Status: domain.ReconciliationStatus(req.Status),
	}
	page, err := h.queries.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toTransactionResponse(&page.Items[i]))
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// Get godoc
// @ID           getSchoolPayTransaction
// @Summary      Get a SchoolPay transaction
// @Tags         schoolpay
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} APIResponse[dto.TransactionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /schoolpay/transactions/{id} [get]
func (h *SchoolPayTransactionHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing tenant ID")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	txn, err := h.queries.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTransactionResponse(txn))
}

// Reconcile godoc
// @ID           reconcileSchoolPayTransaction
// @Summary      Reconcile a matched transaction
// @Description  Applies a matched transaction to its student's fee record
// @Tags         schoolpay
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} APIResponse[dto.ReconcileResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /schoolpay/transactions/{id}/reconcile [post]
func (h *SchoolPayTransactionHandler) Reconcile(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing tenant ID")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	txn, outcome, err := h.queries.Reconcile(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ReconcileResponse{
		Outcome:     string(outcome),
		Transaction: toTransactionResponse(txn),
	})
}

func toTransactionResponse(t *domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:                          t.ID.String(),
		ReceiptNumber:               t.ReceiptNumber,
		Amount:                      t.Amount,
		StudentName:                 t.StudentName,
		StudentPaymentCode:          t.StudentPaymentCode,
		StudentRegistrationNumber:   t.StudentRegistrationNumber,
		StudentClass:                t.StudentClass,
		PaymentChannel:              t.PaymentChannel,
		SettlementBank:              t.SettlementBank,
		ProviderTransactionID:       t.ProviderTransactionID,
		PaymentTimestamp:            t.PaymentTimestamp,
		Kind:                        t.Kind.String(),
		SupplementaryFeeDescription: t.SupplementaryFeeDescription,
		Source:                      string(t.Source),
		Status:                      t.Status.String(),
		MatchedStudentID:            uuidString(t.MatchedStudentID),
		LinkedFeePaymentID:          uuidString(t.LinkedFeePaymentID),
		ReconciledAt:                t.ReconciledAt,
		Notes:                       t.Notes,
		TimestampResponse: dto.TimestampResponse{
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		},
	}
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
