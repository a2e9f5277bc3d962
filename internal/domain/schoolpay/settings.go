package schoolpay

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolerp/backend/internal/domain/shared"
)

// Settings holds one tenant's SchoolPay credentials and ingestion toggles.
type Settings struct {
	shared.BaseEntity
	TenantID       uuid.UUID
	SchoolCode     string
	APISecret      string
	WebhookEnabled bool
	AutoReconcile  bool
	LastSyncAt     *time.Time
}

// NewSettings creates settings for a tenant with both toggles on.
func NewSettings(tenantID uuid.UUID, schoolCode, apiSecret string) (*Settings, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	s := &Settings{
		BaseEntity:     shared.NewBaseEntity(),
		TenantID:       tenantID,
		SchoolCode:     strings.TrimSpace(schoolCode),
		APISecret:      strings.TrimSpace(apiSecret),
		WebhookEnabled: true,
		AutoReconcile:  true,
	}
	if !s.IsConfigured() {
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "School code and API secret are required")
	}
	return s, nil
}

// DefaultSettings is what a tenant without a settings row gets:
// webhooks accepted, auto-reconcile on, no credentials.
func DefaultSettings(tenantID uuid.UUID) *Settings {
	return &Settings{
		TenantID:       tenantID,
		WebhookEnabled: true,
		AutoReconcile:  true,
	}
}

// IsConfigured reports whether the tenant can sign provider requests.
func (s *Settings) IsConfigured() bool {
	return s != nil && s.SchoolCode != "" && s.APISecret != ""
}

// Credentials returns the values used to sign provider requests
func (s *Settings) Credentials() Credentials {
	return Credentials{SchoolCode: s.SchoolCode, APISecret: s.APISecret}
}

// MaskedSecret returns the secret with all but its last 4 characters hidden.
func (s *Settings) MaskedSecret() string {
	if len(s.APISecret) <= 4 {
		return strings.Repeat("*", len(s.APISecret))
	}
	return strings.Repeat("*", len(s.APISecret)-4) + s.APISecret[len(s.APISecret)-4:]
}

// Credentials are the school code and API secret used to sign provider calls.
type Credentials struct {
	SchoolCode string
	APISecret  string
}

// SettingsRepository persists per-tenant SchoolPay settings.
type SettingsRepository interface {
	// FindByTenant returns shared.ErrNotFound when the tenant has no settings row
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*Settings, error)
	// Save creates or replaces the tenant's settings
	Save(ctx context.Context, settings *Settings) error
	// MarkSynced records the time of the last successful sync
	MarkSynced(ctx context.Context, tenantID uuid.UUID, at time.Time) error
}
