// Package bootstrap assembles the SchoolPay pipeline from configuration.
// The HTTP server and the operator CLI share it so both run the same services.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	appschoolpay "github.com/schoolerp/backend/internal/application/schoolpay"
	"github.com/schoolerp/backend/internal/infrastructure/cache"
	"github.com/schoolerp/backend/internal/infrastructure/config"
	"github.com/schoolerp/backend/internal/infrastructure/event"
	"github.com/schoolerp/backend/internal/infrastructure/logger"
	"github.com/schoolerp/backend/internal/infrastructure/payment"
	"github.com/schoolerp/backend/internal/infrastructure/persistence"
	"github.com/schoolerp/backend/internal/infrastructure/scheduler"
	"github.com/schoolerp/backend/internal/infrastructure/storage"
	"github.com/schoolerp/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Version is reported in telemetry resources
var Version = "1.0.0"

// App holds the wired services and the resources they depend on
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *persistence.Database

	Webhook      *appschoolpay.WebhookService
	Sync         *appschoolpay.SyncService
	Transactions *appschoolpay.TransactionService
	Settings     *appschoolpay.SettingsService

	tracer    *telemetry.TracerProvider
	meter     *telemetry.MeterProvider
	logs      *telemetry.LoggerProvider
	bus       *event.InMemoryEventBus
	tenants   scheduler.TenantProvider
	scheduler *scheduler.SyncScheduler
	trigger   *scheduler.DailySyncTrigger
}

// New connects the database, telemetry, lock and archive and builds the services.
// Call Close when done.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: log}

	var err error
	if app.tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log); err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	if app.logs, err = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log); err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("init log export: %w", err)
	}
	// everything built below logs to the collector as well
	log = app.logs.Bridge(log, log.Level())
	app.Logger = log

	if app.meter, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log); err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("init meter: %w", err)
	}
	metrics, err := telemetry.NewSchoolPayMetrics(app.meter.Meter("schoolpay"))
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	if app.DB, err = persistence.NewDatabaseWithLogger(&cfg.Database, gormLog); err != nil {
		app.Close(ctx)
		return nil, err
	}
	tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}, log)
	if err := tracing.RegisterOtelGorm(app.DB.DB); err != nil {
		log.Warn("Database tracing unavailable", zap.Error(err))
	}

	app.bus = event.NewInMemoryEventBus(log)
	metricsHandler := appschoolpay.NewMetricsEventHandler(metrics)
	app.bus.Subscribe(metricsHandler, metricsHandler.EventTypes()...)
	if err := app.bus.Start(ctx); err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("start event bus: %w", err)
	}

	lock, err := cache.NewLockFactory(cfg.Redis, cache.WithLogger(log)).CreateLock()
	if err != nil {
		app.Close(ctx)
		return nil, err
	}

	archive, err := newArchive(ctx, cfg, log)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}

	provider, err := payment.NewSchoolPayAdapter(&payment.SchoolPayConfig{
		BaseURL: cfg.SchoolPay.BaseURL,
		Timeout: cfg.SchoolPay.Timeout,
	})
	if err != nil {
		app.Close(ctx)
		return nil, err
	}

	db := app.DB.DB
	settingsRepo := persistence.NewGormSchoolPaySettingsRepository(db)
	txnRepo := persistence.NewGormSchoolPayTransactionRepository(db)
	studentRepo := persistence.NewGormStudentRepository(db)
	feeRepo := persistence.NewGormStudentFeeRepository(db)
	loc := cfg.SchoolPay.Location()

	reconciler := appschoolpay.NewReconciler(appschoolpay.ReconcilerConfig{
		Fees:           feeRepo,
		Transactions:   txnRepo,
		Store:          persistence.NewGormReconciliationStore(db),
		EventPublisher: app.bus,
		MaxAttempts:    cfg.SchoolPay.Reconcile.MaxAttempts,
		Logger:         log,
	})
	app.Webhook = appschoolpay.NewWebhookService(appschoolpay.WebhookServiceConfig{
		Settings:         settingsRepo,
		Transactions:     txnRepo,
		Students:         studentRepo,
		Reconciler:       reconciler,
		EventPublisher:   app.bus,
		EnforceSignature: cfg.SchoolPay.Webhook.EnforceSignature,
		Location:         loc,
		Logger:           log,
	})
	app.Sync = appschoolpay.NewSyncService(appschoolpay.SyncServiceConfig{
		Settings:       settingsRepo,
		Transactions:   txnRepo,
		Students:       studentRepo,
		Provider:       provider,
		Reconciler:     reconciler,
		Lock:           lock,
		Archive:        archive,
		Metrics:        metrics,
		EventPublisher: app.bus,
		LockTTL:        cfg.SchoolPay.Sync.LockTTL,
		Location:       loc,
		Logger:         log,
	})
	app.Transactions = appschoolpay.NewTransactionService(appschoolpay.TransactionServiceConfig{
		Transactions: txnRepo,
		Settings:     settingsRepo,
		Reconciler:   reconciler,
		Logger:       log,
	})
	app.Settings = appschoolpay.NewSettingsService(settingsRepo, log)
	app.tenants = settingsRepo

	return app, nil
}

// StartScheduler starts the daily background sync when it is enabled.
// Only the long-running server calls it.
func (a *App) StartScheduler(ctx context.Context) error {
	sched := a.Config.SchoolPay.Schedule
	if !sched.Enabled {
		a.Logger.Info("Scheduled SchoolPay sync disabled")
		return nil
	}

	s, err := scheduler.NewSyncScheduler(scheduler.SyncSchedulerConfig{
		MaxConcurrentJobs: sched.Workers,
		JobTimeout:        sched.JobTimeout,
		RetryAttempts:     sched.Retries,
		RetryDelay:        sched.RetryDelay,
	}, scheduler.NewSchoolPaySyncExecutor(a.Sync, a.Logger), a.Logger)
	if err != nil {
		return fmt.Errorf("init sync scheduler: %w", err)
	}
	if err := s.Start(ctx); err != nil {
		return err
	}
	a.scheduler = s

	a.trigger = scheduler.NewDailySyncTrigger(scheduler.DailyTriggerConfig{
		Hour:     sched.Hour,
		Minute:   sched.Minute,
		Location: a.Config.SchoolPay.Location(),
	}, s, a.tenants, a.Logger)
	return a.trigger.Start(ctx)
}

// Scheduler returns the running sync scheduler, or nil when the daily sync
// is disabled or StartScheduler has not been called.
func (a *App) Scheduler() *scheduler.SyncScheduler {
	return a.scheduler
}

func newArchive(ctx context.Context, cfg *config.Config, log *zap.Logger) (appschoolpay.ResponseArchive, error) {
	if !cfg.Archive.Enabled {
		log.Info("Sync response archive disabled")
		return storage.NewNoopArchive(), nil
	}
	archive, err := storage.NewS3Archive(&cfg.Archive, storage.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("init archive: %w", err)
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		log.Warn("Archive bucket check failed, archiving may fail", zap.Error(err))
	}
	log.Info("Sync response archive enabled", zap.String("bucket", archive.GetBucket()))
	return archive, nil
}

// Close stops the scheduler and the event bus, closes the database and
// flushes telemetry
func (a *App) Close(ctx context.Context) {
	var errs []error
	if a.trigger != nil {
		errs = append(errs, a.trigger.Stop(ctx))
	}
	if a.scheduler != nil {
		errs = append(errs, a.scheduler.Stop(ctx))
	}
	if a.bus != nil {
		errs = append(errs, a.bus.Stop(ctx))
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.meter != nil {
		errs = append(errs, a.meter.Shutdown(ctx))
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		a.Logger.Error("Error during shutdown", zap.Error(err))
	}
	if a.logs != nil {
		_ = a.logs.Shutdown(ctx)
	}
}
