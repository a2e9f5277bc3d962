// Package schoolpay models the SchoolPay mobile-money fee collection feed:
// per-school credentials, the external transaction ledger, student matching,
// and the rules for applying a received payment to a student's fee balance.
package schoolpay

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Ingestion errors
// ---------------------------------------------------------------------------

var (
	// ErrInvalidPayload is returned when a webhook body lacks a receipt number
	ErrInvalidPayload = errors.New("schoolpay: invalid payload")

	// ErrNotConfigured is returned when a tenant has no school code or API secret
	ErrNotConfigured = errors.New("schoolpay: not configured")

	// ErrSyncDatesRequired is returned when neither date nor fromDate/toDate is given
	ErrSyncDatesRequired = errors.New("schoolpay: date or fromDate and toDate required")

	// ErrInvalidSyncDate is returned when a sync date is not YYYY-MM-DD or the range is inverted
	ErrInvalidSyncDate = errors.New("schoolpay: invalid sync date")

	// ErrSyncInProgress is returned when another sync already holds the tenant lock
	ErrSyncInProgress = errors.New("schoolpay: sync already in progress")

	// ErrInvalidTransition is returned for a reconciliation status change the lifecycle forbids
	ErrInvalidTransition = errors.New("schoolpay: invalid status transition")
)

// ---------------------------------------------------------------------------
// Provider errors
// ---------------------------------------------------------------------------

var (
	// ErrProviderUnavailable is returned when the SchoolPay API cannot be reached
	ErrProviderUnavailable = errors.New("schoolpay: provider unavailable")

	// ErrProviderRejected is returned when the provider answers with a non-zero return code
	ErrProviderRejected = errors.New("schoolpay: provider rejected request")

	// ErrProviderInvalidResponse is returned when the provider response cannot be decoded
	ErrProviderInvalidResponse = errors.New("schoolpay: invalid provider response")
)

// ---------------------------------------------------------------------------
// Reconciliation errors
// ---------------------------------------------------------------------------

var (
	// ErrFeeConcurrentUpdate is returned when a fee's amount paid changed between read and write
	ErrFeeConcurrentUpdate = errors.New("schoolpay: student fee modified concurrently")
)

// ProviderError carries the provider's own return code and message.
// It matches ErrProviderRejected under errors.Is.
type ProviderError struct {
	ReturnCode int
	Message    string
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return fmt.Sprintf("schoolpay: provider returned code %d: %s", e.ReturnCode, e.Message)
}

// Unwrap lets errors.Is(err, ErrProviderRejected) succeed
func (e *ProviderError) Unwrap() error {
	return ErrProviderRejected
}
