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

// GormStudentRepository implements schoolpay.StudentRepository using GORM
type GormStudentRepository struct {
	db *gorm.DB
}

// NewGormStudentRepository creates a new GormStudentRepository
func NewGormStudentRepository(db *gorm.DB) *GormStudentRepository {
	return &GormStudentRepository{db: db}
}

// FindActiveByPaymentCode finds an active student by SchoolPay payment code
func (r *GormStudentRepository) FindActiveByPaymentCode(ctx context.Context, tenantID uuid.UUID, paymentCode string) (*schoolpay.Student, error) {
	return r.findActive(ctx, tenantID, "schoolpay_payment_code", paymentCode)
}

// FindActiveByAdmissionNumber finds an active student by admission number
func (r *GormStudentRepository) FindActiveByAdmissionNumber(ctx context.Context, tenantID uuid.UUID, admissionNumber string) (*schoolpay.Student, error) {
	return r.findActive(ctx, tenantID, "admission_number", admissionNumber)
}

// findActive searches every tenant when tenantID is uuid.Nil; ties go to the
// earliest-created student.
func (r *GormStudentRepository) findActive(ctx context.Context, tenantID uuid.UUID, column, value string) (*schoolpay.Student, error) {
	if value == "" {
		return nil, shared.ErrNotFound
	}
	query := r.db.WithContext(ctx).
		Where(column+" = ? AND is_active = ?", value, true)
	if tenantID != uuid.Nil {
		query = query.Scopes(tenantScope(tenantID))
	}

	var model models.StudentModel
	if err := query.
		Order("created_at ASC").
		Order("id ASC").
		Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var _ schoolpay.StudentRepository = (*GormStudentRepository)(nil)
