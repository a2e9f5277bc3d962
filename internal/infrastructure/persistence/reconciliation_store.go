package persistence

import (
	"context"
	"time"

	"github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/schoolerp/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReconciliationStore implements schoolpay.ReconciliationStore. The fee
// update, the fee payment insert and the ledger status change share one
// database transaction.
type GormReconciliationStore struct {
	db *gorm.DB
}

// NewGormReconciliationStore creates a new GormReconciliationStore
func NewGormReconciliationStore(db *gorm.DB) *GormReconciliationStore {
	return &GormReconciliationStore{db: db}
}

// Commit applies the reconciliation. The fee row is only updated while
// amount_paid still holds the value the caller read.
func (s *GormReconciliationStore) Commit(ctx context.Context, c schoolpay.ReconciliationCommit) error {
	if c.Payment == nil || c.Transaction == nil {
		return shared.NewDomainError("INVALID_COMMIT", "Reconciliation commit is missing its payment or transaction")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.StudentFeeModel{}).
			Scopes(tenantScope(c.Fee.TenantID)).
			Where("id = ? AND amount_paid = ?", c.Fee.FeeID, c.Fee.ExpectedAmountPaid).
			Updates(map[string]any{
				"amount_paid": c.Fee.AmountPaid,
				"balance":     c.Fee.Balance,
				"status":      string(c.Fee.Status),
				"updated_at":  time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return schoolpay.ErrFeeConcurrentUpdate
		}

		if err := tx.Create(models.FeePaymentModelFromDomain(c.Payment)).Error; err != nil {
			return err
		}

		// Guard on the prior status so a second reconciler cannot relink the row
		txn := c.Transaction
		result = tx.Model(&models.SchoolPayTransactionModel{}).
			Scopes(tenantScope(txn.TenantID)).
			Where("id = ? AND reconciliation_status = ?", txn.ID, string(schoolpay.StatusMatched)).
			Updates(map[string]any{
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
			return schoolpay.ErrInvalidTransition
		}
		return nil
	})
}

var _ schoolpay.ReconciliationStore = (*GormReconciliationStore)(nil)
