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

// TransactionService serves the tenant's view of the ledger and the manual
// reconciliation retry.
type TransactionService struct {
	transactions domain.TransactionRepository
	settings     domain.SettingsRepository
	reconciler   *Reconciler
	logger       *zap.Logger
}

// TransactionServiceConfig holds the dependencies of a TransactionService
type TransactionServiceConfig struct {
	Transactions domain.TransactionRepository
	Settings     domain.SettingsRepository
	Reconciler   *Reconciler
	Logger       *zap.Logger
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(cfg TransactionServiceConfig) *TransactionService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &TransactionService{
		transactions: cfg.Transactions,
		settings:     cfg.Settings,
		reconciler:   cfg.Reconciler,
		logger:       log,
	}
}

// List returns one page of the tenant's ledger
func (s *TransactionService) List(ctx context.Context, tenantID uuid.UUID, filter domain.TransactionFilter) (*shared.Paginated[domain.Transaction], error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown reconciliation status %q", filter.Status))
	}
	filter.Normalize()

	items, total, err := s.transactions.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Get returns one ledger row
func (s *TransactionService) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Transaction, error) {
	return s.transactions.FindByID(ctx, tenantID, id)
}

// Reconcile retries reconciliation for a matched transaction, whatever the
// tenant's auto-reconcile setting. Rows in any other status are rejected
// with shared.ErrInvalidState.
func (s *TransactionService) Reconcile(ctx context.Context, tenantID, id uuid.UUID) (*domain.Transaction, Outcome, error) {
	txn, err := s.transactions.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, OutcomeSkipped, err
	}
	if txn.Status != domain.StatusMatched {
		return txn, OutcomeSkipped, shared.WrapDomainError("INVALID_STATE",
			fmt.Sprintf("Transaction is %s, only matched transactions can be reconciled", txn.Status),
			domain.ErrInvalidTransition)
	}

	outcome, err := s.reconciler.ReconcileNow(ctx, txn)
	if err != nil {
		s.logger.Error("Manual SchoolPay reconciliation failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("receipt_number", txn.ReceiptNumber),
			zap.Error(err),
		)
		if errors.Is(err, domain.ErrInvalidTransition) {
			return txn, outcome, shared.WrapDomainError("INVALID_STATE", "Transaction was reconciled concurrently", err)
		}
		return txn, outcome, err
	}
	return txn, outcome, nil
}
