package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/schoolerp/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStudentFeeRepository implements schoolpay.FeeRepository using GORM
type GormStudentFeeRepository struct {
	db *gorm.DB
}

// NewGormStudentFeeRepository creates a new GormStudentFeeRepository
func NewGormStudentFeeRepository(db *gorm.DB) *GormStudentFeeRepository {
	return &GormStudentFeeRepository{db: db}
}

// FindLatestForStudent returns the most recently created fee for the student
func (r *GormStudentFeeRepository) FindLatestForStudent(ctx context.Context, tenantID, studentID uuid.UUID) (*schoolpay.StudentFee, error) {
	var model models.StudentFeeModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Order("id DESC").
		Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds a fee by ID within a tenant
func (r *GormStudentFeeRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*schoolpay.StudentFee, error) {
	var model models.StudentFeeModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("id = ?", id).
		Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var _ schoolpay.FeeRepository = (*GormStudentFeeRepository)(nil)
