package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/schoolerp/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSchoolPaySettingsRepository implements schoolpay.SettingsRepository using GORM
type GormSchoolPaySettingsRepository struct {
	db *gorm.DB
}

// NewGormSchoolPaySettingsRepository creates a new GormSchoolPaySettingsRepository
func NewGormSchoolPaySettingsRepository(db *gorm.DB) *GormSchoolPaySettingsRepository {
	return &GormSchoolPaySettingsRepository{db: db}
}

// FindByTenant loads the tenant's settings row
func (r *GormSchoolPaySettingsRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*schoolpay.Settings, error) {
	var model models.SchoolPaySettingsModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save upserts on tenant_id. LastSyncAt is owned by MarkSynced and is not overwritten here.
func (r *GormSchoolPaySettingsRepository) Save(ctx context.Context, settings *schoolpay.Settings) error {
	model := models.SchoolPaySettingsModelFromDomain(settings)
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"school_code", "api_secret", "webhook_enabled", "auto_reconcile", "updated_at",
		}),
	}).Create(model).Error
}

// MarkSynced sets last_sync_at for the tenant
func (r *GormSchoolPaySettingsRepository) MarkSynced(ctx context.Context, tenantID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.SchoolPaySettingsModel{}).
		Scopes(tenantScope(tenantID)).
		Updates(map[string]any{
			"last_sync_at": at,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListConfiguredTenantIDs returns every tenant with a school code and API
// secret on file, in a stable order.
func (r *GormSchoolPaySettingsRepository) ListConfiguredTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.SchoolPaySettingsModel{}).
		Where("school_code <> '' AND api_secret <> ''").
		Order("tenant_id").
		Pluck("tenant_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

var _ schoolpay.SettingsRepository = (*GormSchoolPaySettingsRepository)(nil)
