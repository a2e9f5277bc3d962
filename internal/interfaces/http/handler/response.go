package handler

import "github.com/schoolerp/backend/internal/interfaces/http/dto"

// APIResponse documents the envelope of the authenticated SchoolPay ledger
// and settings endpoints. Meta is present on paginated listings only.
// @Description Ledger/settings envelope with typed data
type APIResponse[T any] struct {
	Success bool           `json:"success" example:"true"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse documents a failed ledger/settings call, e.g. INVALID_STATE
// when reconciling a row that is not matched. The webhook and sync endpoints
// answer with their own flat bodies instead.
// @Description Ledger/settings error envelope
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}
