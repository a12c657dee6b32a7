package handlers_test

import (
	"context"
	"time"

	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/Hospitalinsurancedesign/backend/pkg/errors"
)

// Function-field stubs for the repository interfaces. Unset fields return
// zero values so each test only wires what it exercises.

type stubRuleRepo struct {
	upsertDefault func(planID string, category entities.CoverageCategory, percentage float64, expectedVersion int64) (*entities.CategoryDefaultRule, error)
	getDefault    func(planID string, category entities.CoverageCategory) (*entities.CategoryDefaultRule, error)
	upsertExc     func(planID string, category entities.CoverageCategory, itemCode string, fields repositories.ExceptionFields, expectedVersion *int64) (*entities.CoverageException, error)
	findActive    func(planID string, category entities.CoverageCategory, itemCode string) (*entities.CoverageException, error)
}

func (s *stubRuleRepo) UpsertCategoryDefault(ctx context.Context, planID string, category entities.CoverageCategory, percentage float64, expectedVersion int64) (*entities.CategoryDefaultRule, error) {
	if s.upsertDefault != nil {
		return s.upsertDefault(planID, category, percentage, expectedVersion)
	}
	return &entities.CategoryDefaultRule{ID: "rule-1", DefaultPercentage: percentage, Version: expectedVersion + 1}, nil
}

func (s *stubRuleRepo) GetCategoryDefault(ctx context.Context, planID string, category entities.CoverageCategory) (*entities.CategoryDefaultRule, error) {
	if s.getDefault != nil {
		return s.getDefault(planID, category)
	}
	return nil, nil
}

func (s *stubRuleRepo) UpsertException(ctx context.Context, planID string, category entities.CoverageCategory, itemCode string, fields repositories.ExceptionFields, expectedVersion *int64) (*entities.CoverageException, error) {
	if s.upsertExc != nil {
		return s.upsertExc(planID, category, itemCode, fields, expectedVersion)
	}
	return &entities.CoverageException{ID: "exc-1", ItemCode: itemCode, Version: 1}, nil
}

func (s *stubRuleRepo) FindActiveException(ctx context.Context, planID string, category entities.CoverageCategory, itemCode string, asOf time.Time) (*entities.CoverageException, error) {
	if s.findActive != nil {
		return s.findActive(planID, category, itemCode)
	}
	return nil, nil
}

func (s *stubRuleRepo) ListExceptions(ctx context.Context, planID string, category entities.CoverageCategory) ([]*entities.CoverageException, error) {
	return nil, nil
}

func (s *stubRuleRepo) CountMappedVsTotal(ctx context.Context, category entities.CoverageCategory) (int, int, error) {
	return 0, 0, nil
}

type stubPlanRepo struct {
	plan       *entities.InsurancePlan
	getErr     error
	deactivate func(id string) error
}

func (s *stubPlanRepo) GetByID(ctx context.Context, id string) (*entities.InsurancePlan, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.plan != nil {
		return s.plan, nil
	}
	return nil, apperrors.NewNotFoundError("insurance plan not found")
}

func (s *stubPlanRepo) List(ctx context.Context, filter repositories.PlanFilter) ([]*entities.InsurancePlan, error) {
	if s.plan != nil {
		return []*entities.InsurancePlan{s.plan}, nil
	}
	return nil, nil
}

func (s *stubPlanRepo) Update(ctx context.Context, plan *entities.InsurancePlan) error {
	return nil
}

func (s *stubPlanRepo) Deactivate(ctx context.Context, id string) error {
	if s.deactivate != nil {
		return s.deactivate(id)
	}
	return nil
}

func (s *stubPlanRepo) GetProvider(ctx context.Context, id string) (*entities.InsuranceProvider, error) {
	return nil, apperrors.NewNotFoundError("insurance provider not found")
}

func (s *stubPlanRepo) ListProviders(ctx context.Context) ([]*entities.InsuranceProvider, error) {
	return []*entities.InsuranceProvider{{ID: "provider-1", Name: "NHIS"}}, nil
}

type stubClaimRepo struct {
	claim      *entities.Claim
	created    []*entities.Claim
	transition func(claim *entities.Claim, from entities.ClaimStatus) error
}

func (s *stubClaimRepo) Create(ctx context.Context, claim *entities.Claim) error {
	s.created = append(s.created, claim)
	return nil
}

func (s *stubClaimRepo) GetByID(ctx context.Context, id string) (*entities.Claim, error) {
	if s.claim != nil {
		return s.claim, nil
	}
	return nil, apperrors.NewNotFoundError("claim not found")
}

func (s *stubClaimRepo) List(ctx context.Context, filter repositories.ClaimFilter) ([]*entities.Claim, error) {
	if s.claim != nil {
		return []*entities.Claim{s.claim}, nil
	}
	return nil, nil
}

func (s *stubClaimRepo) TransitionStatus(ctx context.Context, claim *entities.Claim, fromStatus entities.ClaimStatus) error {
	if s.transition != nil {
		return s.transition(claim, fromStatus)
	}
	return nil
}

func (s *stubClaimRepo) CountInWindow(ctx context.Context, from, to time.Time, providerID string, statuses []entities.ClaimStatus) (int, error) {
	return 0, nil
}

func (s *stubClaimRepo) SumPaidInWindow(ctx context.Context, from, to time.Time) (float64, error) {
	return 0, nil
}

type stubPaymentRepo struct{}

func (s *stubPaymentRepo) Create(ctx context.Context, payment *entities.CashPayment) error {
	return nil
}

func (s *stubPaymentRepo) SumCashInWindow(ctx context.Context, from, to time.Time) (float64, error) {
	return 0, nil
}
