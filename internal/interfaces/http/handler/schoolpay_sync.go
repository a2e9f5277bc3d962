package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	appschoolpay "github.com/schoolerp/backend/internal/application/schoolpay"
	"github.com/schoolerp/backend/internal/infrastructure/scheduler"
	"github.com/schoolerp/backend/internal/interfaces/http/dto"
)

// defaultSyncHistoryLimit applies when the caller sends no limit
const defaultSyncHistoryLimit = 20

// SyncRunner pulls a tenant's transactions from the provider
type SyncRunner interface {
	Sync(ctx context.Context, req appschoolpay.SyncRequest) (*appschoolpay.SyncResult, error)
}

// SyncHistorySource keeps recent scheduled sync attempts
type SyncHistorySource interface {
	GetJobHistoryByTenant(tenantID uuid.UUID, limit int) []scheduler.SyncJob
}

// SchoolPaySyncHandler triggers on-demand pulls for the caller's school
// and reports the daily sync attempts
type SchoolPaySyncHandler struct {
	BaseHandler
	runner  SyncRunner
	history SyncHistorySource
}

// NewSchoolPaySyncHandler creates a new SchoolPaySyncHandler
func NewSchoolPaySyncHandler(runner SyncRunner) *SchoolPaySyncHandler {
	return &SchoolPaySyncHandler{runner: runner}
}

// SetHistory attaches the scheduler history. Without it the history
// endpoint reports the schedule as disabled.
func (h *SchoolPaySyncHandler) SetHistory(history SyncHistorySource) {
	h.history = history
}

// Sync godoc
// @ID           syncSchoolPayTransactions
// @Summary      Sync SchoolPay transactions
// @Description  Fetches one day (date) or an inclusive range (fromDate and toDate) from SchoolPay and ledgers every new receipt
// @Tags         schoolpay
// @Accept       json
// @Produce      json
// @Param        request body dto.SyncRequest true "Sync window"
// @Success      200 {object} dto.SyncResponse
// @Failure      400 {object} dto.SchoolPayErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      409 {object} dto.SchoolPayErrorResponse
// @Failure      502 {object} dto.SchoolPayErrorResponse
// @Failure      500 {object} dto.SchoolPayErrorResponse
// @Security     BearerAuth
// @Router       /schoolpay/sync [post]
func (h *SchoolPaySyncHandler) Sync(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing tenant ID")
		return
	}

	// An empty body is a request without dates and fails window validation below.
	var req dto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			h.SchoolPayError(c, http.StatusBadRequest, MsgInvalidSyncDate)
			return
		}
		h.SchoolPayError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.runner.Sync(c.Request.Context(), appschoolpay.SyncRequest{
		TenantID: tenantID,
		Date:     req.Date,
		FromDate: req.FromDate,
		ToDate:   req.ToDate,
	})
	if err != nil {
		h.HandleSchoolPayError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SyncResponse{
		Success:        true,
		Total:          result.Total,
		Inserted:       result.Inserted,
		Skipped:        result.Skipped,
		AutoReconciled: result.AutoReconciled,
		Message:        result.Message,
	})
}

// History godoc
// @ID           listSchoolPaySyncHistory
// @Summary      List scheduled sync attempts
// @Description  Returns the school's most recent daily sync attempts kept by this server, newest first
// @Tags         schoolpay
// @Produce      json
// @Param        limit query int false "Maximum attempts" minimum(1) maximum(100) default(20)
// @Success      200 {object} APIResponse[dto.SyncHistoryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /schoolpay/sync/history [get]
func (h *SchoolPaySyncHandler) History(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing tenant ID")
		return
	}

	var req dto.SyncHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultSyncHistoryLimit
	}

	resp := dto.SyncHistoryResponse{Attempts: []dto.SyncAttemptResponse{}}
	if h.history != nil {
		resp.ScheduleEnabled = true
		for _, job := range h.history.GetJobHistoryByTenant(tenantID, req.Limit) {
			resp.Attempts = append(resp.Attempts, toSyncAttemptResponse(job))
		}
	}
	h.Success(c, resp)
}

func toSyncAttemptResponse(job scheduler.SyncJob) dto.SyncAttemptResponse {
	resp := dto.SyncAttemptResponse{
		ID:             job.ID.String(),
		Date:           job.Date,
		Status:         string(job.Status),
		Error:          job.Error,
		Permanent:      job.Permanent,
		RetryCount:     job.RetryCount,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
		NextRetryAt:    job.NextRetryAt,
		Total:          job.Total,
		Inserted:       job.Inserted,
		Skipped:        job.Skipped,
		AutoReconciled: job.AutoReconciled,
		ArchiveKey:     job.ArchiveKey,
	}
	if job.SyncID != uuid.Nil {
		id := job.SyncID.String()
		resp.SyncID = &id
	}
	return resp
}
