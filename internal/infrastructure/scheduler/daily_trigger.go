package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantProvider lists the tenants that have SchoolPay credentials
type TenantProvider interface {
	ListConfiguredTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// DailyTriggerConfig holds configuration for the daily sync trigger
type DailyTriggerConfig struct {
	// Hour and Minute are the wall-clock time of the daily run (24h format)
	Hour   int
	Minute int

	// Location is the provider's timezone; both the trigger time and the
	// synced date are evaluated in it
	Location *time.Location

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// DefaultDailyTriggerConfig returns default trigger configuration
func DefaultDailyTriggerConfig() DailyTriggerConfig {
	return DailyTriggerConfig{
		Hour:          2, // 2am
		Minute:        0,
		Location:      time.UTC,
		CheckInterval: time.Minute,
	}
}

// DailySyncTrigger queues a sync of the previous provider day for every
// configured tenant once a day
type DailySyncTrigger struct {
	config         DailyTriggerConfig
	scheduler      *SyncScheduler
	tenantProvider TenantProvider
	logger         *zap.Logger
	now            func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewDailySyncTrigger creates a new daily sync trigger
func NewDailySyncTrigger(
	config DailyTriggerConfig,
	scheduler *SyncScheduler,
	tenantProvider TenantProvider,
	logger *zap.Logger,
) *DailySyncTrigger {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	return &DailySyncTrigger{
		config:         config,
		scheduler:      scheduler,
		tenantProvider: tenantProvider,
		logger:         logger,
		now:            time.Now,
	}
}

// Start starts the trigger loop
func (c *DailySyncTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("SchoolPay daily sync trigger started",
		zap.Int("hour", c.config.Hour),
		zap.Int("minute", c.config.Minute),
		zap.String("location", c.config.Location.String()),
	)
	return nil
}

// Stop stops the trigger loop
func (c *DailySyncTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("SchoolPay daily sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *DailySyncTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger queues the daily run if the configured minute has come
// and it has not run yet for the current provider date. It returns true
// when jobs were queued.
func (c *DailySyncTrigger) checkAndTrigger(ctx context.Context) bool {
	now := c.now().In(c.config.Location)
	currentDate := now.Format(time.DateOnly)

	c.mu.Lock()
	if c.lastRunDate == currentDate {
		c.mu.Unlock()
		return false
	}
	if now.Hour() != c.config.Hour || now.Minute() != c.config.Minute {
		c.mu.Unlock()
		return false
	}
	c.lastRunDate = currentDate
	c.mu.Unlock()

	yesterday := now.AddDate(0, 0, -1).Format(time.DateOnly)
	c.logger.Info("Triggering daily SchoolPay sync", zap.String("date", yesterday))
	if _, err := c.TriggerDate(ctx, yesterday); err != nil {
		c.logger.Error("Failed to list tenants for daily SchoolPay sync", zap.Error(err))
	}
	return true
}

// TriggerDate queues a sync of date for every configured tenant and returns
// the number of jobs queued. Tenants whose job cannot be queued are logged
// and skipped.
func (c *DailySyncTrigger) TriggerDate(ctx context.Context, date string) (int, error) {
	tenantIDs, err := c.tenantProvider.ListConfiguredTenantIDs(ctx)
	if err != nil {
		return 0, err
	}

	c.logger.Info("Scheduling SchoolPay sync for tenants",
		zap.String("date", date),
		zap.Int("tenant_count", len(tenantIDs)),
	)

	queued := 0
	for _, tenantID := range tenantIDs {
		if err := c.scheduler.ScheduleSync(tenantID, date); err != nil {
			c.logger.Error("Failed to schedule SchoolPay sync for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.String("date", date),
				zap.Error(err),
			)
			continue
		}
		queued++
	}
	return queued, nil
}
