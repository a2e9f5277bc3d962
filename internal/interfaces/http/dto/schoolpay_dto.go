package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// WebhookPayload is the body SchoolPay posts to the webhook endpoint.
// Payment is kept raw so the ledger can store it verbatim.
type WebhookPayload struct {
	Signature string          `json:"signature"`
	Type      string          `json:"type"`
	Payment   json.RawMessage `json:"payment"`
}

// WebhookResponse is always sent with status 200 unless the payload was malformed
type WebhookResponse struct {
	Success bool   `json:"success,omitempty" example:"true"`
	Error   string `json:"error,omitempty"`
}

// SyncRequest asks for a single day or an inclusive date range
type SyncRequest struct {
	Date     string `json:"date" binding:"omitempty,yyyymmdd" example:"2024-03-01"`
	FromDate string `json:"fromDate" binding:"omitempty,yyyymmdd" example:"2024-03-01"`
	ToDate   string `json:"toDate" binding:"omitempty,yyyymmdd" example:"2024-03-07"`
}

// SyncResponse reports the counters of a finished sync
type SyncResponse struct {
	Success        bool   `json:"success" example:"true"`
	Total          int    `json:"total" example:"12"`
	Inserted       int    `json:"inserted" example:"9"`
	Skipped        int    `json:"skipped" example:"3"`
	AutoReconciled int    `json:"autoReconciled" example:"7"`
	Message        string `json:"message" example:"Synced 12 SchoolPay transactions: 9 new, 3 already recorded, 7 auto-reconciled"`
}

// SchoolPayErrorResponse is the flat error body of the SchoolPay endpoints
type SchoolPayErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"A SchoolPay sync is already running for this school"`
}

// TransactionListRequest filters the ledger listing
type TransactionListRequest struct {
	ListRequest
	Status string `form:"status" binding:"omitempty,oneof=unmatched matched reconciled needs_attention"`
}

// TransactionResponse is one ledger row
type TransactionResponse struct {
	ID                          string          `json:"id"`
	ReceiptNumber               string          `json:"receipt_number"`
	Amount                      decimal.Decimal `json:"amount"`
	StudentName                 string          `json:"student_name"`
	StudentPaymentCode          string          `json:"student_payment_code,omitempty"`
	StudentRegistrationNumber   string          `json:"student_registration_number,omitempty"`
	StudentClass                string          `json:"student_class,omitempty"`
	PaymentChannel              string          `json:"payment_channel,omitempty"`
	SettlementBank              string          `json:"settlement_bank,omitempty"`
	ProviderTransactionID       string          `json:"provider_transaction_id,omitempty"`
	PaymentTimestamp            *time.Time      `json:"payment_timestamp,omitempty"`
	Kind                        string          `json:"kind"`
	SupplementaryFeeDescription string          `json:"supplementary_fee_description,omitempty"`
	Source                      string          `json:"source"`
	Status                      string          `json:"status"`
	MatchedStudentID            *string         `json:"matched_student_id,omitempty"`
	LinkedFeePaymentID          *string         `json:"linked_fee_payment_id,omitempty"`
	ReconciledAt                *time.Time      `json:"reconciled_at,omitempty"`
	Notes                       string          `json:"notes,omitempty"`
	TimestampResponse
}

// ReconcileResponse is the outcome of a manual reconciliation
type ReconcileResponse struct {
	Outcome     string              `json:"outcome" example:"reconciled"`
	Transaction TransactionResponse `json:"transaction"`
}

// SettingsResponse shows a tenant's settings with the secret masked
type SettingsResponse struct {
	TenantID       string     `json:"tenant_id"`
	SchoolCode     string     `json:"school_code"`
	APISecret      string     `json:"api_secret" example:"********1234"`
	WebhookEnabled bool       `json:"webhook_enabled"`
	AutoReconcile  bool       `json:"auto_reconcile"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	Configured     bool       `json:"configured"`
}

// UpdateSettingsRequest replaces a tenant's credentials. Omitted toggles default to on.
type UpdateSettingsRequest struct {
	SchoolCode     string `json:"school_code" binding:"required,max=50"`
	APISecret      string `json:"api_secret" binding:"required,max=255"`
	WebhookEnabled *bool  `json:"webhook_enabled"`
	AutoReconcile  *bool  `json:"auto_reconcile"`
}

// HealthResponse reports process and database health
type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database" example:"ok"`
}

// SyncHistoryRequest limits the sync history listing
type SyncHistoryRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100" example:"20"`
}

// SyncAttemptResponse is one scheduled sync attempt
type SyncAttemptResponse struct {
	ID             string     `json:"id"`
	Date           string     `json:"date" example:"2024-03-01"`
	Status         string     `json:"status" example:"SUCCESS"`
	Error          string     `json:"error,omitempty"`
	Permanent      bool       `json:"permanent,omitempty"`
	RetryCount     int        `json:"retry_count"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	NextRetryAt    *time.Time `json:"next_retry_at,omitempty"`
	SyncID         *string    `json:"sync_id,omitempty"`
	Total          int        `json:"total"`
	Inserted       int        `json:"inserted"`
	Skipped        int        `json:"skipped"`
	AutoReconciled int        `json:"auto_reconciled"`
	ArchiveKey     string     `json:"archive_key,omitempty"`
}

// SyncHistoryResponse lists the school's recent scheduled sync attempts,
// newest first. ScheduleEnabled is false when this server does not run the
// daily sync, and Attempts is then empty.
type SyncHistoryResponse struct {
	ScheduleEnabled bool                  `json:"schedule_enabled"`
	Attempts        []SyncAttemptResponse `json:"attempts"`
}
