package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolerp/backend/internal/domain/shared"
)

// BaseModel holds the key and timestamp columns every SchoolPay table has
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

// tenantEntity rebuilds a school-owned entity. Pending domain events are not
// persisted, so the result never carries any.
func (m *BaseModel) tenantEntity(tenantID uuid.UUID) shared.TenantEntity {
	return shared.TenantEntity{BaseEntity: m.entity(), TenantID: tenantID}
}

func (m *BaseModel) setEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// TenantModel is used by the school registry tables (students, fees) that
// this service only reads and patches. The ledger and settings tables
// declare tenant_id themselves so it can lead their unique indexes.
type TenantModel struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
}
