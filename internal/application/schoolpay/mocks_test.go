package schoolpay

import (
	"context"
	"time"

	"github.com/google/uuid"
	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Repository mocks
// =============================================================================

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*domain.Settings, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settings), args.Error(1)
}

func (m *MockSettingsRepository) Save(ctx context.Context, settings *domain.Settings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *MockSettingsRepository) MarkSynced(ctx context.Context, tenantID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, tenantID, at)
	return args.Error(0)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Upsert(ctx context.Context, txn *domain.Transaction) (bool, error) {
	args := m.Called(ctx, txn)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) InsertIfAbsent(ctx context.Context, txn *domain.Transaction) (bool, error) {
	args := m.Called(ctx, txn)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, txn *domain.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) List(ctx context.Context, tenantID uuid.UUID, filter domain.TransactionFilter) ([]domain.Transaction, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Transaction), args.Get(1).(int64), args.Error(2)
}

type MockStudentRepository struct {
	mock.Mock
}

func (m *MockStudentRepository) FindActiveByPaymentCode(ctx context.Context, tenantID uuid.UUID, code string) (*domain.Student, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Student), args.Error(1)
}

func (m *MockStudentRepository) FindActiveByAdmissionNumber(ctx context.Context, tenantID uuid.UUID, number string) (*domain.Student, error) {
	args := m.Called(ctx, tenantID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Student), args.Error(1)
}

type MockFeeRepository struct {
	mock.Mock
}

func (m *MockFeeRepository) FindLatestForStudent(ctx context.Context, tenantID, studentID uuid.UUID) (*domain.StudentFee, error) {
	args := m.Called(ctx, tenantID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StudentFee), args.Error(1)
}

func (m *MockFeeRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.StudentFee, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StudentFee), args.Error(1)
}

type MockReconciliationStore struct {
	mock.Mock
}

func (m *MockReconciliationStore) Commit(ctx context.Context, commit domain.ReconciliationCommit) error {
	args := m.Called(ctx, commit)
	return args.Error(0)
}

// =============================================================================
// Collaborator mocks
// =============================================================================

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) FetchTransactions(ctx context.Context, creds domain.Credentials, window domain.SyncWindow) (*domain.ProviderBatch, error) {
	args := m.Called(ctx, creds, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProviderBatch), args.Error(1)
}

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Archive(ctx context.Context, tenantID, syncID uuid.UUID, at time.Time, body []byte) (string, error) {
	args := m.Called(ctx, tenantID, syncID, at, body)
	return args.String(0), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// recordingPublisher keeps every published event type, for assertions on order
type recordingPublisher struct {
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	for _, e := range events {
		p.types = append(p.types, e.EventType())
	}
	return nil
}

// =============================================================================
// Fixtures
// =============================================================================

func newMatchedTransaction(tenantID, studentID uuid.UUID, receipt string, amount int64) *domain.Transaction {
	txn, err := domain.NewTransaction(tenantID, domain.TaggedRecord{
		Kind: domain.KindSchoolFees,
		Record: domain.PaymentRecord{
			ReceiptNumber:        receipt,
			Amount:               decimal.NewFromInt(amount),
			SourcePaymentChannel: "MTN Mobile Money",
		},
	}, domain.SourceSync, time.UTC)
	if err != nil {
		panic(err)
	}
	if err := txn.AttachMatch(studentID); err != nil {
		panic(err)
	}
	return txn
}

func newFee(tenantID, studentID uuid.UUID, total, paid int64) *domain.StudentFee {
	return &domain.StudentFee{
		ID:          uuid.New(),
		TenantID:    tenantID,
		StudentID:   studentID,
		TotalAmount: decimal.NewFromInt(total),
		AmountPaid:  decimal.NewFromInt(paid),
		Balance:     decimal.NewFromInt(total - paid),
		Status:      domain.DeriveFeeStatus(decimal.NewFromInt(total-paid), decimal.NewFromInt(paid)),
	}
}

func configuredSettings(tenantID uuid.UUID) *domain.Settings {
	s, err := domain.NewSettings(tenantID, "SCH001", "secret-key")
	if err != nil {
		panic(err)
	}
	return s
}
