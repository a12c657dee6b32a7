package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/repositories"
)

// Mocks shared across the service tests

type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) UpsertCategoryDefault(ctx context.Context, planID string, category entities.CoverageCategory, percentage float64, expectedVersion int64) (*entities.CategoryDefaultRule, error) {
	args := m.Called(ctx, planID, category, percentage, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CategoryDefaultRule), args.Error(1)
}

func (m *MockRuleRepository) GetCategoryDefault(ctx context.Context, planID string, category entities.CoverageCategory) (*entities.CategoryDefaultRule, error) {
	args := m.Called(ctx, planID, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CategoryDefaultRule), args.Error(1)
}

func (m *MockRuleRepository) UpsertException(ctx context.Context, planID string, category entities.CoverageCategory, itemCode string, fields repositories.ExceptionFields, expectedVersion *int64) (*entities.CoverageException, error) {
	args := m.Called(ctx, planID, category, itemCode, fields, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CoverageException), args.Error(1)
}

func (m *MockRuleRepository) FindActiveException(ctx context.Context, planID string, category entities.CoverageCategory, itemCode string, asOf time.Time) (*entities.CoverageException, error) {
	args := m.Called(ctx, planID, category, itemCode, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CoverageException), args.Error(1)
}

func (m *MockRuleRepository) ListExceptions(ctx context.Context, planID string, category entities.CoverageCategory) ([]*entities.CoverageException, error) {
	args := m.Called(ctx, planID, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CoverageException), args.Error(1)
}

func (m *MockRuleRepository) CountMappedVsTotal(ctx context.Context, category entities.CoverageCategory) (int, int, error) {
	args := m.Called(ctx, category)
	return args.Int(0), args.Int(1), args.Error(2)
}

type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) GetByID(ctx context.Context, id string) (*entities.InsurancePlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.InsurancePlan), args.Error(1)
}

func (m *MockPlanRepository) List(ctx context.Context, filter repositories.PlanFilter) ([]*entities.InsurancePlan, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.InsurancePlan), args.Error(1)
}

func (m *MockPlanRepository) Update(ctx context.Context, plan *entities.InsurancePlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockPlanRepository) Deactivate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPlanRepository) GetProvider(ctx context.Context, id string) (*entities.InsuranceProvider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.InsuranceProvider), args.Error(1)
}

func (m *MockPlanRepository) ListProviders(ctx context.Context) ([]*entities.InsuranceProvider, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.InsuranceProvider), args.Error(1)
}

type MockClaimRepository struct {
	mock.Mock
}

func (m *MockClaimRepository) Create(ctx context.Context, claim *entities.Claim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

func (m *MockClaimRepository) GetByID(ctx context.Context, id string) (*entities.Claim, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Claim), args.Error(1)
}

func (m *MockClaimRepository) List(ctx context.Context, filter repositories.ClaimFilter) ([]*entities.Claim, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Claim), args.Error(1)
}

func (m *MockClaimRepository) TransitionStatus(ctx context.Context, claim *entities.Claim, fromStatus entities.ClaimStatus) error {
	args := m.Called(ctx, claim, fromStatus)
	return args.Error(0)
}

func (m *MockClaimRepository) CountInWindow(ctx context.Context, from, to time.Time, providerID string, statuses []entities.ClaimStatus) (int, error) {
	args := m.Called(ctx, from, to, providerID, statuses)
	return args.Int(0), args.Error(1)
}

func (m *MockClaimRepository) SumPaidInWindow(ctx context.Context, from, to time.Time) (float64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(float64), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *entities.CashPayment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) SumCashInWindow(ctx context.Context, from, to time.Time) (float64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(float64), args.Error(1)
}

type MockCacheProvider struct {
	mock.Mock
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	args := m.Called(ctx, key, value, expirationSeconds)
	return args.Error(0)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheProvider) DeletePattern(ctx context.Context, pattern string) error {
	args := m.Called(ctx, pattern)
	return args.Error(0)
}

func (m *MockCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.ChangeEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ChangeEvent, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(chan *entities.ChangeEvent), args.Error(1)
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	args := m.Called(ctx, channel)
	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()
	return args.Error(0)
}
