package scheduler

import (
	"context"
	"errors"

	appschoolpay "github.com/schoolerp/backend/internal/application/schoolpay"
	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	"go.uber.org/zap"
)

// Syncer is the sync entry point shared with the HTTP handler and the CLI
type Syncer interface {
	Sync(ctx context.Context, req appschoolpay.SyncRequest) (*appschoolpay.SyncResult, error)
}

// SchoolPaySyncExecutor runs scheduled jobs through the SchoolPay sync service
type SchoolPaySyncExecutor struct {
	syncer Syncer
	logger *zap.Logger
}

// NewSchoolPaySyncExecutor creates a new executor
func NewSchoolPaySyncExecutor(syncer Syncer, logger *zap.Logger) *SchoolPaySyncExecutor {
	return &SchoolPaySyncExecutor{syncer: syncer, logger: logger}
}

// Execute syncs the job's date and copies the counters onto the job.
// Failures that a retry cannot fix are returned wrapped with Permanent.
func (e *SchoolPaySyncExecutor) Execute(ctx context.Context, job *SyncJob) error {
	result, err := e.syncer.Sync(ctx, appschoolpay.SyncRequest{
		TenantID: job.TenantID,
		Date:     job.Date,
	})
	if err != nil {
		if isPermanentSyncError(err) {
			return Permanent(err)
		}
		return err
	}

	e.logger.Debug("Scheduled SchoolPay sync finished",
		zap.String("job_id", job.ID.String()),
		zap.String("sync_id", result.SyncID.String()),
		zap.String("message", result.Message),
	)
	job.SyncID = result.SyncID
	job.Total = result.Total
	job.Inserted = result.Inserted
	job.Skipped = result.Skipped
	job.AutoReconciled = result.AutoReconciled
	job.ArchiveKey = result.ArchiveKey
	return nil
}

// isPermanentSyncError reports errors caused by tenant setup or an
// overlapping run rather than a transient outage
func isPermanentSyncError(err error) bool {
	return errors.Is(err, domain.ErrNotConfigured) ||
		errors.Is(err, domain.ErrSyncDatesRequired) ||
		errors.Is(err, domain.ErrInvalidSyncDate) ||
		errors.Is(err, domain.ErrSyncInProgress) ||
		errors.Is(err, domain.ErrProviderRejected)
}
