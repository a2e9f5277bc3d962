// Package schoolpay holds the SchoolPay ingestion use cases: the webhook
// receiver, the provider sync job, and the fee reconciliation engine they share.
package schoolpay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/schoolerp/backend/internal/domain/shared/valueobject"
	"github.com/schoolerp/backend/internal/infrastructure/logger"
	"github.com/schoolerp/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Outcome is the result of one reconciliation attempt.
type Outcome string

const (
	OutcomeSkipped        Outcome = "skipped"
	OutcomeReconciled     Outcome = "reconciled"
	OutcomeNeedsAttention Outcome = "needs_attention"
)

// DefaultMaxAttempts bounds the fee compare-and-swap retries
const DefaultMaxAttempts = 3

// NoteNoFeeRecord is stored on transactions whose student has no fee record
const NoteNoFeeRecord = "No fee record found for student"

// Reconciler applies matched transactions to student fee balances.
type Reconciler struct {
	fees         domain.FeeRepository
	transactions domain.TransactionRepository
	store        domain.ReconciliationStore
	events       shared.EventPublisher
	maxAttempts  int
	now          func() time.Time
	logger       *zap.Logger
}

// ReconcilerConfig holds the dependencies of a Reconciler
type ReconcilerConfig struct {
	Fees           domain.FeeRepository
	Transactions   domain.TransactionRepository
	Store          domain.ReconciliationStore
	EventPublisher shared.EventPublisher
	MaxAttempts    int
	Logger         *zap.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	return &Reconciler{
		fees:         cfg.Fees,
		transactions: cfg.Transactions,
		store:        cfg.Store,
		events:       cfg.EventPublisher,
		maxAttempts:  attempts,
		now:          time.Now,
		logger:       log,
	}
}

// Reconcile applies txn to the matched student's latest fee when the tenant
// has auto-reconcile on. Transactions that are not matched, or carry no
// positive amount, are skipped. On error the transaction is left matched.
func (r *Reconciler) Reconcile(ctx context.Context, settings *domain.Settings, txn *domain.Transaction) (Outcome, error) {
	if settings == nil || !settings.AutoReconcile {
		return OutcomeSkipped, nil
	}
	return r.ReconcileNow(ctx, txn)
}

// ReconcileNow runs reconciliation regardless of the tenant's auto-reconcile
// toggle. It backs the manual retry operation.
func (r *Reconciler) ReconcileNow(ctx context.Context, txn *domain.Transaction) (outcome Outcome, err error) {
	if txn == nil || !txn.IsReconcilable() {
		return OutcomeSkipped, nil
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "Reconciler", "Reconcile",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, txn.TenantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrReceiptNumber, txn.ReceiptNumber),
	)
	defer func() {
		telemetry.SetAttributes(span, telemetry.SpanAttrOutcome, string(outcome))
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.SetOK(span)
		}
		span.End()
	}()

	log := logger.Ctx(ctx, r.logger).With(
		zap.String("tenant_id", txn.TenantID.String()),
		zap.String("receipt_number", txn.ReceiptNumber),
	)

	fee, err := r.fees.FindLatestForStudent(ctx, txn.TenantID, *txn.MatchedStudentID)
	if errors.Is(err, shared.ErrNotFound) {
		return r.flagNoFee(ctx, log, txn)
	}
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("load student fee: %w", err)
	}

	notes := PaymentNotes(txn)
	for attempt := 1; ; attempt++ {
		telemetry.SetAttributes(span, telemetry.SpanAttrAttempt, attempt)

		commit, err := r.buildCommit(txn, fee, notes)
		if err != nil {
			return OutcomeSkipped, err
		}

		err = r.store.Commit(ctx, commit)
		if err == nil {
			*txn = *commit.Transaction
			log.Info("SchoolPay transaction reconciled",
				zap.String("fee_payment_id", commit.Payment.ID.String()),
				zap.String("fee_status", string(commit.Fee.Status)),
				zap.String("balance", commit.Fee.Balance.String()),
				zap.Int("attempt", attempt),
			)
			r.publish(ctx, log, txn)
			return OutcomeReconciled, nil
		}
		if !errors.Is(err, domain.ErrFeeConcurrentUpdate) || attempt >= r.maxAttempts {
			return OutcomeSkipped, fmt.Errorf("commit reconciliation: %w", err)
		}

		log.Debug("Student fee changed underneath reconciliation, retrying",
			zap.Int("attempt", attempt),
			zap.String("fee_id", fee.ID.String()),
		)
		fee, err = r.fees.FindByID(ctx, txn.TenantID, fee.ID)
		if err != nil {
			return OutcomeSkipped, fmt.Errorf("reload student fee: %w", err)
		}
	}
}

// buildCommit works on a copy of txn so a failed commit leaves the caller's
// transaction untouched.
func (r *Reconciler) buildCommit(txn *domain.Transaction, fee *domain.StudentFee, notes string) (domain.ReconciliationCommit, error) {
	payment, err := domain.NewFeePayment(txn, fee, notes)
	if err != nil {
		return domain.ReconciliationCommit{}, err
	}
	updated := *txn
	updated.ClearDomainEvents()
	if err := updated.MarkReconciled(payment.ID, r.now()); err != nil {
		return domain.ReconciliationCommit{}, err
	}
	return domain.ReconciliationCommit{
		Payment:     payment,
		Fee:         fee.ApplyPayment(txn.Amount),
		Transaction: &updated,
	}, nil
}

func (r *Reconciler) flagNoFee(ctx context.Context, log *zap.Logger, txn *domain.Transaction) (Outcome, error) {
	if err := txn.MarkNeedsAttention(NoteNoFeeRecord); err != nil {
		return OutcomeSkipped, err
	}
	if err := r.transactions.UpdateStatus(ctx, txn); err != nil {
		return OutcomeSkipped, fmt.Errorf("flag transaction: %w", err)
	}
	log.Warn("SchoolPay transaction needs attention", zap.String("notes", txn.Notes))
	r.publish(ctx, log, txn)
	return OutcomeNeedsAttention, nil
}

func (r *Reconciler) publish(ctx context.Context, log *zap.Logger, txn *domain.Transaction) {
	publishEvents(ctx, r.events, log, txn)
}

// PaymentNotes describes a SchoolPay payment for the fee payment record,
// e.g. "SchoolPay SCHOOL_FEES payment of UGX 50,000 via MTN Mobile Money".
func PaymentNotes(txn *domain.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SchoolPay %s payment of %s", txn.Kind, valueobject.NewMoney(txn.Amount, valueobject.UGX))
	if txn.SupplementaryFeeDescription != "" {
		fmt.Fprintf(&b, " for %s", txn.SupplementaryFeeDescription)
	}
	if txn.PaymentChannel != "" {
		fmt.Fprintf(&b, " via %s", txn.PaymentChannel)
	}
	return b.String()
}

// publishEvents hands txn's pending events to the publisher. Publish failures
// are logged because the ledger write has already committed.
func publishEvents(ctx context.Context, events shared.EventPublisher, log *zap.Logger, txn *domain.Transaction) {
	pending := txn.GetDomainEvents()
	txn.ClearDomainEvents()
	if events == nil || len(pending) == 0 {
		return
	}
	if err := events.Publish(ctx, pending...); err != nil {
		log.Error("Failed to publish SchoolPay events", zap.Error(err))
	}
}
