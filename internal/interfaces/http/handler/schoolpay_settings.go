package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appschoolpay "github.com/schoolerp/backend/internal/application/schoolpay"
	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/interfaces/http/dto"
)

// SettingsManager reads and replaces a tenant's SchoolPay settings
type SettingsManager interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*domain.Settings, error)
	Configure(ctx context.Context, in appschoolpay.ConfigureInput) (*domain.Settings, error)
}

// SchoolPaySettingsHandler manages the caller's SchoolPay credentials
type SchoolPaySettingsHandler struct {
	BaseHandler
	settings SettingsManager
}

// NewSchoolPaySettingsHandler creates a new SchoolPaySettingsHandler
func NewSchoolPaySettingsHandler(settings SettingsManager) *SchoolPaySettingsHandler {
	return &SchoolPaySettingsHandler{settings: settings}
}

// Get godoc
// @ID           getSchoolPaySettings
// @Summary      Get SchoolPay settings
// @Description  Returns the caller's settings with the API secret masked. Schools that never saved settings get the defaults.
// @Tags         schoolpay
// @Produce      json
// @Success      200 {object} APIResponse[dto.SettingsResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /schoolpay/settings [get]
func (h *SchoolPaySettingsHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing tenant ID")
		return
	}

	settings, err := h.settings.Get(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSettingsResponse(settings))
}

// Update godoc
// @ID           updateSchoolPaySettings
// @Summary      Configure SchoolPay
// @Description  Saves the school code and API secret. Toggles left out of the request are switched on.
// @Tags         schoolpay
// @Accept       json
// @Produce      json
// @Param        request body dto.UpdateSettingsRequest true "SchoolPay credentials"
// @Success      200 {object} APIResponse[dto.SettingsResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /schoolpay/settings [put]
func (h *SchoolPaySettingsHandler) Update(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid or missing tenant ID")
		return
	}

	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	settings, err := h.settings.Configure(c.Request.Context(), appschoolpay.ConfigureInput{
		TenantID:       tenantID,
		SchoolCode:     req.SchoolCode,
		APISecret:      req.APISecret,
		WebhookEnabled: boolOrTrue(req.WebhookEnabled),
		AutoReconcile:  boolOrTrue(req.AutoReconcile),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSettingsResponse(settings))
}

func toSettingsResponse(s *domain.Settings) dto.SettingsResponse {
	return dto.SettingsResponse{
		TenantID:       s.TenantID.String(),
		SchoolCode:     s.SchoolCode,
		APISecret:      s.MaskedSecret(),
		WebhookEnabled: s.WebhookEnabled,
		AutoReconcile:  s.AutoReconcile,
		LastSyncAt:     s.LastSyncAt,
		Configured:     s.IsConfigured(),
	}
}

func boolOrTrue(b *bool) bool {
	return b == nil || *b
}
