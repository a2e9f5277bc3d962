package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	appschoolpay "github.com/schoolerp/backend/internal/application/schoolpay"
	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/infrastructure/logger"
	"github.com/schoolerp/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	msgInvalidPayload   = "Invalid payload"
	msgInvalidSignature = "Invalid signature"
	msgWebhookFailed    = "Failed to process payment"
)

// WebhookProcessor ingests one pushed payment
type WebhookProcessor interface {
	Process(ctx context.Context, req appschoolpay.WebhookRequest) (*appschoolpay.WebhookResult, error)
}

// SchoolPayWebhookHandler receives payment notifications from SchoolPay.
// The endpoint is unauthenticated: tenants are resolved from the payment itself.
type SchoolPayWebhookHandler struct {
	BaseHandler
	processor WebhookProcessor
	logger    *zap.Logger
}

// NewSchoolPayWebhookHandler creates a new SchoolPayWebhookHandler
func NewSchoolPayWebhookHandler(processor WebhookProcessor, log *zap.Logger) *SchoolPayWebhookHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SchoolPayWebhookHandler{processor: processor, logger: log}
}

// Receive godoc
// @ID           receiveSchoolPayWebhook
// @Summary      Receive a SchoolPay payment notification
// @Description  Ledgers a pushed payment. Anything other than a malformed body is acknowledged with 200 so SchoolPay stops retrying.
// @Tags         schoolpay
// @Accept       json
// @Produce      json
// @Param        request body dto.WebhookPayload true "Payment notification"
// @Success      200 {object} dto.WebhookResponse
// @Failure      400 {object} dto.WebhookResponse
// @Router       /schoolpay/webhook [post]
func (h *SchoolPayWebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.WebhookResponse{Error: msgInvalidPayload})
		return
	}

	var payload dto.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || isEmptyJSON(payload.Payment) {
		c.JSON(http.StatusBadRequest, dto.WebhookResponse{Error: msgInvalidPayload})
		return
	}

	var payment domain.PaymentRecord
	if err := json.Unmarshal(payload.Payment, &payment); err != nil {
		c.JSON(http.StatusBadRequest, dto.WebhookResponse{Error: msgInvalidPayload})
		return
	}

	log := logger.Ctx(c.Request.Context(), h.logger)
	result, err := h.processor.Process(c.Request.Context(), appschoolpay.WebhookRequest{
		Signature:  payload.Signature,
		Type:       payload.Type,
		Payment:    payment,
		RawPayment: payload.Payment,
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, dto.WebhookResponse{Error: msgInvalidPayload})
		return
	case errors.Is(err, appschoolpay.ErrInvalidSignature):
		log.Warn("SchoolPay webhook signature rejected",
			zap.String("receipt_number", payment.ReceiptNumber))
		c.JSON(http.StatusOK, dto.WebhookResponse{Error: msgInvalidSignature})
		return
	default:
		_ = c.Error(err)
		log.Error("SchoolPay webhook processing failed",
			zap.String("receipt_number", payment.ReceiptNumber),
			zap.Error(err))
		c.JSON(http.StatusOK, dto.WebhookResponse{Error: msgWebhookFailed})
		return
	}

	log.Debug("SchoolPay webhook handled",
		zap.String("receipt_number", payment.ReceiptNumber),
		zap.String("disposition", string(result.Disposition)))
	c.JSON(http.StatusOK, dto.WebhookResponse{Success: true})
}

func isEmptyJSON(raw json.RawMessage) bool {
	s := string(raw)
	return len(raw) == 0 || s == "null" || s == "{}"
}
