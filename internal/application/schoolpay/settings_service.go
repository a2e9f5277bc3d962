package schoolpay

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ConfigureInput replaces a tenant's SchoolPay credentials and toggles.
type ConfigureInput struct {
	TenantID       uuid.UUID
	SchoolCode     string
	APISecret      string
	WebhookEnabled bool
	AutoReconcile  bool
}

// SettingsService reads and writes the per-tenant credential store.
type SettingsService struct {
	settings domain.SettingsRepository
	logger   *zap.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(settings domain.SettingsRepository, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{settings: settings, logger: logger}
}

// Get returns the tenant's settings, or the defaults when none were saved
func (s *SettingsService) Get(ctx context.Context, tenantID uuid.UUID) (*domain.Settings, error) {
	settings, err := s.settings.FindByTenant(ctx, tenantID)
	if errors.Is(err, shared.ErrNotFound) {
		return domain.DefaultSettings(tenantID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// Configure saves the tenant's credentials, keeping lastSyncAt when a row exists
func (s *SettingsService) Configure(ctx context.Context, in ConfigureInput) (*domain.Settings, error) {
	settings, err := domain.NewSettings(in.TenantID, in.SchoolCode, in.APISecret)
	if err != nil {
		return nil, err
	}
	settings.WebhookEnabled = in.WebhookEnabled
	settings.AutoReconcile = in.AutoReconcile

	existing, err := s.settings.FindByTenant(ctx, in.TenantID)
	switch {
	case err == nil:
		settings.ID = existing.ID
		settings.CreatedAt = existing.CreatedAt
		settings.LastSyncAt = existing.LastSyncAt
	case !errors.Is(err, shared.ErrNotFound):
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if err := s.settings.Save(ctx, settings); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	s.logger.Info("SchoolPay settings saved",
		zap.String("tenant_id", in.TenantID.String()),
		zap.String("school_code", settings.SchoolCode),
		zap.Bool("webhook_enabled", settings.WebhookEnabled),
		zap.Bool("auto_reconcile", settings.AutoReconcile),
	)
	return settings, nil
}
