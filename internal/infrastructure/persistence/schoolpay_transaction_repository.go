package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/schoolerp/backend/internal/infrastructure/persistence/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSchoolPayTransactionRepository implements schoolpay.TransactionRepository using GORM
type GormSchoolPayTransactionRepository struct {
	db *gorm.DB
}

// NewGormSchoolPayTransactionRepository creates a new GormSchoolPayTransactionRepository
func NewGormSchoolPayTransactionRepository(db *gorm.DB) *GormSchoolPayTransactionRepository {
	return &GormSchoolPayTransactionRepository{db: db}
}

// Upsert inserts the transaction, or refreshes raw_payload on the existing
// (tenant_id, external_receipt_number) row. On conflict txn is replaced with
// the stored row so callers see its real ID and status.
func (r *GormSchoolPayTransactionRepository) Upsert(ctx context.Context, txn *schoolpay.Transaction) (bool, error) {
	model := models.SchoolPayTransactionModelFromDomain(txn)
	db := r.db.WithContext(ctx)

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "external_receipt_number"}},
		DoNothing: true,
	}).Create(model)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	if err := db.Model(&models.SchoolPayTransactionModel{}).
		Scopes(tenantScope(txn.TenantID)).
		Where("external_receipt_number = ?", txn.ReceiptNumber).
		Updates(map[string]any{
			"raw_payload": datatypes.JSON(txn.RawPayload),
			"updated_at":  time.Now().UTC(),
		}).Error; err != nil {
		return false, err
	}

	existing, err := r.findByReceipt(ctx, txn.TenantID, txn.ReceiptNumber)
	if err != nil {
		return false, err
	}
	*txn = *existing
	return false, nil
}

// InsertIfAbsent is the sync path: existence check, then insert
func (r *GormSchoolPayTransactionRepository) InsertIfAbsent(ctx context.Context, txn *schoolpay.Transaction) (bool, error) {
	db := r.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.SchoolPayTransactionModel{}).
		Scopes(tenantScope(txn.TenantID)).
		Where("external_receipt_number = ?", txn.ReceiptNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if err := db.Create(models.SchoolPayTransactionModelFromDomain(txn)).Error; err != nil {
		// A webhook for the same receipt won the race
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FindByID finds a transaction by ID within a tenant
func (r *GormSchoolPayTransactionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*schoolpay.Transaction, error) {
	var model models.SchoolPayTransactionModel
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

func (r *GormSchoolPayTransactionRepository) findByReceipt(ctx context.Context, tenantID uuid.UUID, receipt string) (*schoolpay.Transaction, error) {
	var model models.SchoolPayTransactionModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("external_receipt_number = ?", receipt).
		Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdateStatus writes the reconciliation columns. The raw payload and
// provider fields are never touched here.
func (r *GormSchoolPayTransactionRepository) UpdateStatus(ctx context.Context, txn *schoolpay.Transaction) error {
	return updateTransactionStatus(r.db.WithContext(ctx), txn)
}

func updateTransactionStatus(db *gorm.DB, txn *schoolpay.Transaction) error {
	result := db.Model(&models.SchoolPayTransactionModel{}).
		Scopes(tenantScope(txn.TenantID)).
		Where("id = ?", txn.ID).
		Updates(map[string]any{
			"matched_student_id":    txn.MatchedStudentID,
			"reconciliation_status": string(txn.Status),
			"linked_fee_payment_id": txn.LinkedFeePaymentID,
			"reconciled_at":         txn.ReconciledAt,
			"reconciliation_notes":  txn.Notes,
			"updated_at":            txn.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List returns one page of the tenant's ledger
func (r *GormSchoolPayTransactionRepository) List(ctx context.Context, tenantID uuid.UUID, filter schoolpay.TransactionFilter) ([]schoolpay.Transaction, int64, error) {
	filter.Normalize()

	query := r.db.WithContext(ctx).
		Model(&models.SchoolPayTransactionModel{}).
		Scopes(tenantScope(tenantID))
	if filter.Status != "" {
		query = query.Where("reconciliation_status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.SchoolPayTransactionModel
	if err := query.
		Clauses(LedgerOrder(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]schoolpay.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, total, nil
}

var _ schoolpay.TransactionRepository = (*GormSchoolPayTransactionRepository)(nil)
