package handler

import (
	"context"

	"github.com/google/uuid"
	appschoolpay "github.com/schoolerp/backend/internal/application/schoolpay"
	domain "github.com/schoolerp/backend/internal/domain/schoolpay"
	"github.com/schoolerp/backend/internal/domain/shared"
	"github.com/schoolerp/backend/internal/infrastructure/scheduler"
	"github.com/stretchr/testify/mock"
)

type MockWebhookProcessor struct {
	mock.Mock
}

func (m *MockWebhookProcessor) Process(ctx context.Context, req appschoolpay.WebhookRequest) (*appschoolpay.WebhookResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appschoolpay.WebhookResult), args.Error(1)
}

type MockSyncRunner struct {
	mock.Mock
}

func (m *MockSyncRunner) Sync(ctx context.Context, req appschoolpay.SyncRequest) (*appschoolpay.SyncResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appschoolpay.SyncResult), args.Error(1)
}

type MockTransactionQueries struct {
	mock.Mock
}

func (m *MockTransactionQueries) List(ctx context.Context, tenantID uuid.UUID, filter domain.TransactionFilter) (*shared.Paginated[domain.Transaction], error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[domain.Transaction]), args.Error(1)
}

func (m *MockTransactionQueries) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionQueries) Reconcile(ctx context.Context, tenantID, id uuid.UUID) (*domain.Transaction, appschoolpay.Outcome, error) {
	args := m.Called(ctx, tenantID, id)
	var txn *domain.Transaction
	if args.Get(0) != nil {
		txn = args.Get(0).(*domain.Transaction)
	}
	return txn, args.Get(1).(appschoolpay.Outcome), args.Error(2)
}

type MockSettingsManager struct {
	mock.Mock
}

func (m *MockSettingsManager) Get(ctx context.Context, tenantID uuid.UUID) (*domain.Settings, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settings), args.Error(1)
}

func (m *MockSettingsManager) Configure(ctx context.Context, in appschoolpay.ConfigureInput) (*domain.Settings, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settings), args.Error(1)
}

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockSyncHistory struct {
	mock.Mock
}

func (m *MockSyncHistory) GetJobHistoryByTenant(tenantID uuid.UUID, limit int) []scheduler.SyncJob {
	args := m.Called(tenantID, limit)
	return args.Get(0).([]scheduler.SyncJob)
}
