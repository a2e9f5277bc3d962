package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/schoolerp/backend/internal/interfaces/http/dto"
	"github.com/schoolerp/backend/internal/interfaces/http/middleware"
)

// Messages returned verbatim to SchoolPay clients
const (
	MsgSyncDatesRequired   = "Provide either date or fromDate and toDate"
	MsgInvalidSyncDate     = "Invalid date, expected YYYY-MM-DD"
	MsgNotConfigured       = "SchoolPay not configured. Add your school code and API secret in settings."
	MsgSyncInProgress      = "A SchoolPay sync is already running for this school"
	MsgProviderUnavailable = "Could not reach SchoolPay"
	MsgProviderInvalid     = "SchoolPay returned an unreadable response"
	MsgProviderRejected    = "SchoolPay rejected the request"
	MsgInternal            = "An unexpected error occurred"
)

var errMissingTenant = errors.New("tenant ID not found in context")

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDContextKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// getTenantID reads the tenant from the validated JWT claims
func getTenantID(c *gin.Context) (uuid.UUID, error) {
	tenantIDStr := middleware.GetJWTTenantID(c)
	if tenantIDStr == "" {
		return uuid.Nil, errMissingTenant
	}
	return uuid.Parse(tenantIDStr)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 response describing the rejected fields
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError converts domain errors to enveloped HTTP responses.
// Unknown errors become a 500 without leaking their text.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, domainErr.Message, getRequestID(c)))
		return
	}
	h.InternalError(c, MsgInternal)
}

// HandleSchoolPayError answers the SchoolPay endpoints with their flat
// {success:false, error} body.
func (h *BaseHandler) HandleSchoolPayError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	status, message := schoolPayErrorStatus(err)
	h.SchoolPayError(c, status, message)
}

// SchoolPayError writes the flat SchoolPay error body
func (h *BaseHandler) SchoolPayError(c *gin.Context, status int, message string) {
	c.JSON(status, dto.SchoolPayErrorResponse{Success: false, Error: message})
}

// schoolPayErrorStatus maps ingestion errors to a status and client message.
// Provider rejections surface the provider's own message.
func schoolPayErrorStatus(err error) (int, string) {
	var providerErr *domain.ProviderError
	switch {
	case errors.Is(err, domain.ErrSyncDatesRequired):
		return http.StatusBadRequest, MsgSyncDatesRequired
	case errors.Is(err, domain.ErrInvalidSyncDate):
		return http.StatusBadRequest, MsgInvalidSyncDate
	case errors.Is(err, domain.ErrNotConfigured):
		return http.StatusBadRequest, MsgNotConfigured
	case errors.Is(err, domain.ErrInvalidPayload):
		return http.StatusBadRequest, "Invalid payload"
	case errors.Is(err, domain.ErrSyncInProgress):
		return http.StatusConflict, MsgSyncInProgress
	case errors.As(err, &providerErr):
		if providerErr.Message == "" {
			return http.StatusBadGateway, MsgProviderRejected
		}
		return http.StatusBadGateway, providerErr.Message
	case errors.Is(err, domain.ErrProviderRejected):
		return http.StatusBadGateway, MsgProviderRejected
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusBadGateway, MsgProviderUnavailable
	case errors.Is(err, domain.ErrProviderInvalidResponse):
		return http.StatusBadGateway, MsgProviderInvalid
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}
