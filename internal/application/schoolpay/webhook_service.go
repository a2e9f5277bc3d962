package schoolpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/schoolerp/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ErrInvalidSignature is returned when signature enforcement is on and the
// webhook signature does not match the tenant's secret
var ErrInvalidSignature = errors.New("schoolpay: invalid webhook signature")

// WebhookRequest is a decoded webhook delivery. RawPayment is the verbatim
// payment object, stored on the ledger row.
type WebhookRequest struct {
	Signature  string
	Type       string
	Payment    domain.PaymentRecord
	RawPayment json.RawMessage
}

// WebhookDisposition says what happened to a delivery that was acknowledged.
type WebhookDisposition string

const (
	DispositionUnattributed WebhookDisposition = "unattributed"
	DispositionDisabled     WebhookDisposition = "webhook_disabled"
	DispositionRecorded     WebhookDisposition = "recorded"
	DispositionRedelivered  WebhookDisposition = "redelivered"
)

// WebhookResult describes a processed delivery
type WebhookResult struct {
	Disposition   WebhookDisposition
	TenantID      uuid.UUID
	TransactionID uuid.UUID
	Outcome       Outcome
}

// WebhookService ingests payment notifications pushed by SchoolPay. The
// endpoint is shared by all schools, so the owning tenant is discovered by
// matching the student first.
type WebhookService struct {
	settings          domain.SettingsRepository
	transactions      domain.TransactionRepository
	matcher           *domain.StudentMatcher
	reconciler        *Reconciler
	events            shared.EventPublisher
	enforceSignatures bool
	location          *time.Location
	logger            *zap.Logger
}

// WebhookServiceConfig holds the dependencies of a WebhookService
type WebhookServiceConfig struct {
	Settings       domain.SettingsRepository
	Transactions   domain.TransactionRepository
	Students       domain.StudentRepository
	Reconciler     *Reconciler
	EventPublisher shared.EventPublisher
	// EnforceSignature rejects deliveries whose signature does not verify.
	// When false a mismatch is only logged.
	EnforceSignature bool
	// Location is the timezone of the provider's payment timestamps
	Location *time.Location
	Logger   *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &WebhookService{
		settings:          cfg.Settings,
		transactions:      cfg.Transactions,
		matcher:           domain.NewStudentMatcher(cfg.Students),
		reconciler:        cfg.Reconciler,
		events:            cfg.EventPublisher,
		enforceSignatures: cfg.EnforceSignature,
		location:          loc,
		logger:            log,
	}
}

// Process handles one webhook delivery. ErrInvalidPayload means the delivery
// should be rejected. Every other outcome, errors included, is acknowledged
// to the provider by the caller.
func (s *WebhookService) Process(ctx context.Context, req WebhookRequest) (*WebhookResult, error) {
	record := req.Payment
	record.Normalize()
	if record.ReceiptNumber == "" {
		return nil, domain.ErrInvalidPayload
	}

	log := logger.Ctx(ctx, s.logger).With(zap.String("receipt_number", record.ReceiptNumber))

	match, err := s.matcher.MatchAnyTenant(ctx, record.MatchKeys())
	if err != nil {
		return nil, fmt.Errorf("match student: %w", err)
	}
	if match == nil {
		log.Warn("SchoolPay webhook could not be attributed to a school",
			zap.Bool("attribution_failed", true),
			zap.String("student_payment_code", record.StudentPaymentCode),
			zap.String("student_registration_number", record.StudentRegistrationNumber),
			zap.String("amount", record.Amount.String()),
		)
		return &WebhookResult{Disposition: DispositionUnattributed}, nil
	}

	tenantID := match.Student.TenantID
	log = log.With(
		zap.String("tenant_id", tenantID.String()),
		zap.String("match_rule", string(match.Rule)),
	)

	settings, err := s.loadSettings(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !settings.WebhookEnabled {
		log.Info("SchoolPay webhook ignored, webhooks disabled for school")
		return &WebhookResult{Disposition: DispositionDisabled, TenantID: tenantID}, nil
	}

	if !domain.VerifyWebhookSignature(settings.APISecret, record.ReceiptNumber, req.Signature) {
		if s.enforceSignatures {
			log.Warn("SchoolPay webhook rejected, signature mismatch")
			return nil, ErrInvalidSignature
		}
		log.Warn("SchoolPay webhook signature did not verify, processing anyway",
			zap.Bool("secret_configured", settings.APISecret != ""),
		)
	}

	tagged := domain.TaggedRecord{
		Kind:   domain.ParseTransactionKind(req.Type),
		Record: record,
		Raw:    req.RawPayment,
	}
	txn, err := domain.NewTransaction(tenantID, tagged, domain.SourceWebhook, s.location)
	if err != nil {
		return nil, err
	}
	if err := txn.AttachMatch(match.Student.ID); err != nil {
		return nil, err
	}
	if record.AmountUnreadable {
		log.Warn("SchoolPay webhook amount unreadable, flagging transaction")
		if err := txn.MarkNeedsAttention(domain.NoteUnreadableAmount); err != nil {
			return nil, err
		}
	}

	inserted, err := s.transactions.Upsert(ctx, txn)
	if err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	result := &WebhookResult{
		Disposition:   DispositionRedelivered,
		TenantID:      tenantID,
		TransactionID: txn.ID,
		Outcome:       OutcomeSkipped,
	}
	if !inserted {
		log.Info("SchoolPay webhook redelivered, payload refreshed", zap.String("status", string(txn.Status)))
		return result, nil
	}

	result.Disposition = DispositionRecorded
	txn.RecordInserted()
	publishEvents(ctx, s.events, log, txn)
	log.Info("SchoolPay webhook recorded", zap.String("status", string(txn.Status)))

	outcome, err := s.reconciler.Reconcile(ctx, settings, txn)
	if err != nil {
		log.Error("SchoolPay auto-reconciliation failed", zap.Error(err))
		return result, nil
	}
	result.Outcome = outcome
	return result, nil
}

// loadSettings falls back to the defaults for schools that never saved settings
func (s *WebhookService) loadSettings(ctx context.Context, tenantID uuid.UUID) (*domain.Settings, error) {
	settings, err := s.settings.FindByTenant(ctx, tenantID)
	if errors.Is(err, shared.ErrNotFound) {
		return domain.DefaultSettings(tenantID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}
