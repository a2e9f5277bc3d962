package schoolpay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/schoolerp/backend/internal/infrastructure/logger"
	"github.com/schoolerp/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultSyncLockTTL bounds how long a crashed sync can block the next one
const DefaultSyncLockTTL = 10 * time.Minute

// ResponseArchive keeps the raw provider response of each successful sync.
type ResponseArchive interface {
	// Archive stores body and returns the location it was written to
	Archive(ctx context.Context, tenantID, syncID uuid.UUID, at time.Time, body []byte) (string, error)
}

// SyncRequest asks for one tenant's transactions on a date or date range.
type SyncRequest struct {
	TenantID uuid.UUID
	Date     string
	FromDate string
	ToDate   string
}

// SyncResult reports the counters of a completed sync.
// Inserted + Skipped always equals Total.
type SyncResult struct {
	SyncID         uuid.UUID
	Window         domain.SyncWindow
	Total          int
	Inserted       int
	Skipped        int
	AutoReconciled int
	ArchiveKey     string
	Message        string
}

// SyncService pulls a tenant's transactions from the SchoolPay API and
// ledgers the ones not seen before.
type SyncService struct {
	settings     domain.SettingsRepository
	transactions domain.TransactionRepository
	matcher      *domain.StudentMatcher
	provider     domain.Provider
	reconciler   *Reconciler
	lock         shared.DistributedLock
	archive      ResponseArchive
	metrics      *telemetry.SchoolPayMetrics
	events       shared.EventPublisher
	lockTTL      time.Duration
	location     *time.Location
	now          func() time.Time
	logger       *zap.Logger
}

// SyncServiceConfig holds the dependencies of a SyncService
type SyncServiceConfig struct {
	Settings       domain.SettingsRepository
	Transactions   domain.TransactionRepository
	Students       domain.StudentRepository
	Provider       domain.Provider
	Reconciler     *Reconciler
	Lock           shared.DistributedLock
	Archive        ResponseArchive
	Metrics        *telemetry.SchoolPayMetrics
	EventPublisher shared.EventPublisher
	LockTTL        time.Duration
	// Location is the timezone of the provider's payment timestamps
	Location *time.Location
	Logger   *zap.Logger
}

// NewSyncService creates a new SyncService
func NewSyncService(cfg SyncServiceConfig) *SyncService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = DefaultSyncLockTTL
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &SyncService{
		settings:     cfg.Settings,
		transactions: cfg.Transactions,
		matcher:      domain.NewStudentMatcher(cfg.Students),
		provider:     cfg.Provider,
		reconciler:   cfg.Reconciler,
		lock:         cfg.Lock,
		archive:      cfg.Archive,
		metrics:      cfg.Metrics,
		events:       cfg.EventPublisher,
		lockTTL:      ttl,
		location:     loc,
		now:          time.Now,
		logger:       log,
	}
}

// SyncLockKey is the per-tenant lock name
func SyncLockKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("schoolpay:sync:%s", tenantID)
}

// Sync fetches and ledgers the tenant's transactions for the requested window.
// A provider rejection fails the whole sync with nothing written, and
// lastSyncAt moves only when every record was processed.
func (s *SyncService) Sync(ctx context.Context, req SyncRequest) (result *SyncResult, err error) {
	window, err := domain.NewSyncWindow(req.Date, req.FromDate, req.ToDate)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.FindByTenant(ctx, req.TenantID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !settings.IsConfigured() {
		return nil, domain.ErrNotConfigured
	}

	log := logger.Ctx(ctx, s.logger).With(
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("sync_window", window.String()),
	)

	release, err := s.acquire(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := telemetry.StartServiceSpan(ctx, "SyncService", "Sync",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, req.TenantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrSyncWindow, window.String()),
	)
	started := s.now()
	defer func() {
		s.metrics.RecordSyncRun(ctx, syncRunResult(err), s.now().Sub(started))
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.SetOK(span)
		}
		span.End()
	}()

	batch, err := s.provider.FetchTransactions(ctx, settings.Credentials(), window)
	if err != nil {
		log.Warn("SchoolPay sync fetch failed", zap.Error(err))
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrRecordCount, len(batch.Records))

	result = &SyncResult{
		SyncID: uuid.New(),
		Window: window,
		Total:  len(batch.Records),
	}
	for _, rec := range batch.Records {
		inserted, reconciled, err := s.ingest(ctx, log, settings, rec)
		if err != nil {
			return nil, err
		}
		if !inserted {
			result.Skipped++
			continue
		}
		result.Inserted++
		if reconciled {
			result.AutoReconciled++
		}
	}

	syncedAt := s.now()
	if err := s.settings.MarkSynced(ctx, req.TenantID, syncedAt); err != nil {
		return nil, fmt.Errorf("mark synced: %w", err)
	}

	s.metrics.RecordSyncCounts(ctx, result.Inserted, result.Skipped, result.AutoReconciled)
	result.ArchiveKey = s.archiveResponse(ctx, log, req.TenantID, result.SyncID, syncedAt, batch.Body)
	result.Message = SyncMessage(result)

	log.Info("SchoolPay sync completed",
		zap.String("sync_id", result.SyncID.String()),
		zap.Int("total", result.Total),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
		zap.Int("auto_reconciled", result.AutoReconciled),
	)
	return result, nil
}

// ingest ledgers one record. Reconciliation failures are logged and do not
// fail the batch.
func (s *SyncService) ingest(ctx context.Context, log *zap.Logger, settings *domain.Settings, rec domain.TaggedRecord) (inserted, reconciled bool, err error) {
	rec.Record.Normalize()
	if rec.Record.ReceiptNumber == "" {
		log.Warn("SchoolPay record without receipt number skipped", zap.String("kind", rec.Kind.String()))
		return false, false, nil
	}
	log = log.With(zap.String("receipt_number", rec.Record.ReceiptNumber))

	match, err := s.matcher.Match(ctx, settings.TenantID, rec.Record.MatchKeys())
	if err != nil {
		return false, false, fmt.Errorf("match student: %w", err)
	}

	txn, err := domain.NewTransaction(settings.TenantID, rec, domain.SourceSync, s.location)
	if err != nil {
		return false, false, err
	}
	if match != nil {
		if err := txn.AttachMatch(match.Student.ID); err != nil {
			return false, false, err
		}
		log = log.With(zap.String("match_rule", string(match.Rule)))
	}
	if rec.Record.AmountUnreadable {
		log.Warn("SchoolPay record amount unreadable, flagging transaction")
		if err := txn.MarkNeedsAttention(domain.NoteUnreadableAmount); err != nil {
			return false, false, err
		}
	}

	inserted, err = s.transactions.InsertIfAbsent(ctx, txn)
	if err != nil {
		return false, false, fmt.Errorf("record transaction: %w", err)
	}
	if !inserted {
		log.Debug("SchoolPay transaction already recorded")
		return false, false, nil
	}

	txn.RecordInserted()
	publishEvents(ctx, s.events, log, txn)
	log.Debug("SchoolPay transaction recorded", zap.String("status", string(txn.Status)))

	if match == nil {
		return true, false, nil
	}
	outcome, err := s.reconciler.Reconcile(ctx, settings, txn)
	if err != nil {
		log.Error("SchoolPay auto-reconciliation failed", zap.Error(err))
		return true, false, nil
	}
	return true, outcome == OutcomeReconciled, nil
}

func (s *SyncService) acquire(ctx context.Context, tenantID uuid.UUID) (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}
	key := SyncLockKey(tenantID)
	token, ok, err := s.lock.Acquire(ctx, key, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrSyncInProgress
	}
	return func() {
		// The request context may already be cancelled
		if err := s.lock.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger.Warn("Failed to release sync lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (s *SyncService) archiveResponse(ctx context.Context, log *zap.Logger, tenantID, syncID uuid.UUID, at time.Time, body []byte) string {
	if s.archive == nil || len(body) == 0 {
		return ""
	}
	key, err := s.archive.Archive(ctx, tenantID, syncID, at, body)
	if err != nil {
		log.Warn("Failed to archive SchoolPay sync response", zap.Error(err))
		return ""
	}
	return key
}

// SyncMessage is the human-readable summary returned to the caller
func SyncMessage(r *SyncResult) string {
	return fmt.Sprintf("Synced %d SchoolPay transactions: %d new, %d already recorded, %d auto-reconciled",
		r.Total, r.Inserted, r.Skipped, r.AutoReconciled)
}

func syncRunResult(err error) string {
	switch {
	case err == nil:
		return telemetry.ResultSuccess
	case errors.Is(err, domain.ErrProviderRejected):
		return telemetry.ResultProviderRejected
	case errors.Is(err, domain.ErrProviderUnavailable), errors.Is(err, domain.ErrProviderInvalidResponse):
		return telemetry.ResultProviderError
	default:
		return telemetry.ResultFailed
	}
}
