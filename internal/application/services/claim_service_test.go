package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/application/services"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/Hospitalinsurancedesign/backend/pkg/errors"
)

func floatPtr(v float64) *float64 { return &v }

func newClaimService(claimRepo *MockClaimRepository, ruleRepo *MockRuleRepository, planRepo *MockPlanRepository, eventBus *MockEventBus) *services.ClaimService {
	coverage := services.NewCoverageService(ruleRepo, planRepo, nil, nil, 3600)
	if eventBus == nil {
		return services.NewClaimService(claimRepo, coverage, nil, nil)
	}
	return services.NewClaimService(claimRepo, coverage, nil, eventBus)
}

func TestClaimService_Create(t *testing.T) {
	t.Run("prices line items from resolved coverage", func(t *testing.T) {
		claimRepo := new(MockClaimRepository)
		ruleRepo := new(MockRuleRepository)
		planRepo := new(MockPlanRepository)
		service := newClaimService(claimRepo, ruleRepo, planRepo, nil)

		planRepo.On("GetByID", mock.Anything, "plan-1").Return(testPlan(false), nil)
		ruleRepo.On("FindActiveException", mock.Anything, "plan-1", entities.CategoryDrug, "D123", mock.Anything).Return(nil, nil)
		ruleRepo.On("GetCategoryDefault", mock.Anything, "plan-1", entities.CategoryDrug).Return(&entities.CategoryDefaultRule{
			ID: "rule-1", DefaultPercentage: 80, Version: 1,
		}, nil)
		claimRepo.On("Create", mock.Anything, mock.MatchedBy(func(c *entities.Claim) bool {
			return c.Status == entities.ClaimStatusPendingVetting &&
				c.ClaimedAmount == 160.0 &&
				len(c.LineItems) == 1 &&
				c.LineItems[0].CoveredAmount == 160.0 &&
				c.LineItems[0].CoverageSource == entities.SourceCategoryDefault
		})).Return(nil)

		claim, err := service.Create(context.Background(), services.CreateClaimInput{
			PatientRef:          "patient-1",
			EncounterRef:        "enc-1",
			InsuranceProviderID: "provider-1",
			InsurancePlanID:     "plan-1",
			CreatedBy:           "biller-1",
			LineItems: []services.ClaimLineInput{
				{Category: entities.CategoryDrug, ItemCode: "D123", BilledAmount: 200},
			},
		})

		assert.NoError(t, err)
		assert.Equal(t, entities.ClaimStatusPendingVetting, claim.Status)
		assert.NotEmpty(t, claim.ID)
		claimRepo.AssertExpectations(t)
	})

	t.Run("holds the claim when a line is pending configuration", func(t *testing.T) {
		claimRepo := new(MockClaimRepository)
		ruleRepo := new(MockRuleRepository)
		planRepo := new(MockPlanRepository)
		service := newClaimService(claimRepo, ruleRepo, planRepo, nil)

		planRepo.On("GetByID", mock.Anything, "plan-1").Return(testPlan(true), nil)
		ruleRepo.On("FindActiveException", mock.Anything, "plan-1", entities.CategoryLab, "L999", mock.Anything).Return(nil, nil)
		ruleRepo.On("GetCategoryDefault", mock.Anything, "plan-1", entities.CategoryLab).Return(nil, nil)

		_, err := service.Create(context.Background(), services.CreateClaimInput{
			PatientRef:      "patient-1",
			InsurancePlanID: "plan-1",
			LineItems: []services.ClaimLineInput{
				{Category: entities.CategoryLab, ItemCode: "L999", BilledAmount: 50},
			},
		})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePendingConfiguration))
		claimRepo.AssertNotCalled(t, "Create")
	})

	t.Run("requires at least one line item", func(t *testing.T) {
		service := newClaimService(new(MockClaimRepository), new(MockRuleRepository), new(MockPlanRepository), nil)

		_, err := service.Create(context.Background(), services.CreateClaimInput{
			PatientRef:      "patient-1",
			InsurancePlanID: "plan-1",
		})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})
}

func TestClaimService_Transition(t *testing.T) {
	vettingOfficer := entities.Actor{ID: "officer-1", Name: "Ama", Role: entities.RoleVettingOfficer}
	insurerDesk := entities.Actor{ID: "desk-1", Name: "Kojo", Role: entities.RoleInsurerResponse}
	finance := entities.Actor{ID: "fin-1", Name: "Esi", Role: entities.RoleFinance}

	storedClaim := func(status entities.ClaimStatus) *entities.Claim {
		return &entities.Claim{
			ID:             "claim-1",
			Status:         status,
			ClaimedAmount:  500,
			ApprovedAmount: 0,
		}
	}

	t.Run("vetting officer vets a pending claim", func(t *testing.T) {
		claimRepo := new(MockClaimRepository)
		service := newClaimService(claimRepo, new(MockRuleRepository), new(MockPlanRepository), nil)

		claimRepo.On("GetByID", mock.Anything, "claim-1").Return(storedClaim(entities.ClaimStatusPendingVetting), nil)
		claimRepo.On("TransitionStatus", mock.Anything, mock.MatchedBy(func(c *entities.Claim) bool {
			return c.Status == entities.ClaimStatusVetted && c.VettedAt != nil && c.VettedBy == "officer-1"
		}), entities.ClaimStatusPendingVetting).Return(nil)

		claim, err := service.Transition(context.Background(), "claim-1",
			entities.ClaimStatusPendingVetting, entities.ClaimStatusVetted, vettingOfficer, services.TransitionPayload{})

		assert.NoError(t, err)
		assert.Equal(t, entities.ClaimStatusVetted, claim.Status)
		claimRepo.AssertExpectations(t)
	})

	t.Run("rejects actor without the required role", func(t *testing.T) {
		claimRepo := new(MockClaimRepository)
		service := newClaimService(claimRepo, new(MockRuleRepository), new(MockPlanRepository), nil)

		claimRepo.On("GetByID", mock.Anything, "claim-1").Return(storedClaim(entities.ClaimStatusPendingVetting), nil)

		_, err := service.Transition(context.Background(), "claim-1",
			entities.ClaimStatusPendingVetting, entities.ClaimStatusVetted, finance, services.TransitionPayload{})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
		claimRepo.AssertNotCalled(t, "TransitionStatus")
	})

	t.Run("undefined transition is a caller error", func(t *testing.T) {
		claimRepo := new(MockClaimRepository)
		service := newClaimService(claimRepo, new(MockRuleRepository), new(MockPlanRepository), nil)

		claimRepo.On("GetByID", mock.Anything, "claim-1").Return(storedClaim(entities.ClaimStatusPendingVetting), nil)

		_, err := service.Transition(context.Background(), "claim-1",
			entities.ClaimStatusPendingVetting, entities.ClaimStatusApproved, insurerDesk, services.TransitionPayload{
				ApprovedAmount: floatPtr(400),
			})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidTransition))
	})

	t.Run("stale from state conflicts", func(t *testing.T) {
		claimRepo := new(MockClaimRepository)
		service := newClaimService(claimRepo, new(MockRuleRepository), new(MockPlanRepository), nil)

		claimRepo.On("GetByID", mock.Anything, "claim-1").Return(storedClaim(entities.ClaimStatusVetted), nil)

		_, err := service.Transition(context.Background(), "claim-1",
			entities.ClaimStatusPendingVetting, entities.ClaimStatusVetted, vettingOfficer, services.TransitionPayload{})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStateConflict))
	})

	t.Run("rejection requires a reason", func(t *testing.T) {
		claimRepo := new(MockClaimRepository)
		service := newClaimService(claimRepo, new(MockRuleRepository), new(MockPlanRepository), nil)

		claimRepo.On("GetByID", mock.Anything, "claim-1").Return(storedClaim(entities.ClaimStatusSubmitted), nil)

		_, err := service.Transition(context.Background(), "claim-1",
			entities.ClaimStatusSubmitted, entities.ClaimStatusRejected, insurerDesk, services.TransitionPayload{
				RejectionReason: "   ",
			})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("approved amount may not exceed claimed", func(t *testing.T) {
		claimRepo := new(MockClaimRepository)
		service := newClaimService(claimRepo, new(MockRuleRepository), new(MockPlanRepository), nil)

		claimRepo.On("GetByID", mock.Anything, "claim-1").Return(storedClaim(entities.ClaimStatusSubmitted), nil)

		_, err := service.Transition(context.Background(), "claim-1",
			entities.ClaimStatusSubmitted, entities.ClaimStatusApproved, insurerDesk, services.TransitionPayload{
				ApprovedAmount: floatPtr(600),
			})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("paid requires full settlement of the approved amount", func(t *testing.T) {
		claimRepo := new(MockClaimRepository)
		service := newClaimService(claimRepo, new(MockRuleRepository), new(MockPlanRepository), nil)

		claim := storedClaim(entities.ClaimStatusApproved)
		claim.ApprovedAmount = 400
		claimRepo.On("GetByID", mock.Anything, "claim-1").Return(claim, nil)

		_, err := service.Transition(context.Background(), "claim-1",
			entities.ClaimStatusApproved, entities.ClaimStatusPaid, finance, services.TransitionPayload{
				PaidAmount: floatPtr(300),
			})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("partial payment leaves an outstanding balance", func(t *testing.T) {
		claimRepo := new(MockClaimRepository)
		service := newClaimService(claimRepo, new(MockRuleRepository), new(MockPlanRepository), nil)

		claim := storedClaim(entities.ClaimStatusApproved)
		claim.ApprovedAmount = 400
		claimRepo.On("GetByID", mock.Anything, "claim-1").Return(claim, nil)
		claimRepo.On("TransitionStatus", mock.Anything, mock.MatchedBy(func(c *entities.Claim) bool {
			return c.Status == entities.ClaimStatusPartial && c.PaidAmount == 300 && c.PaidBy == "fin-1"
		}), entities.ClaimStatusApproved).Return(nil)

		updated, err := service.Transition(context.Background(), "claim-1",
			entities.ClaimStatusApproved, entities.ClaimStatusPartial, finance, services.TransitionPayload{
				PaidAmount: floatPtr(300),
			})

		assert.NoError(t, err)
		assert.Equal(t, 100.0, updated.OutstandingAmount())
		assert.True(t, updated.IsOutstanding())
	})

	t.Run("repeat partial settlement must record more than already paid", func(t *testing.T) {
		claimRepo := new(MockClaimRepository)
		service := newClaimService(claimRepo, new(MockRuleRepository), new(MockPlanRepository), nil)

		claim := storedClaim(entities.ClaimStatusPartial)
		claim.ApprovedAmount = 400
		claim.PaidAmount = 300
		claimRepo.On("GetByID", mock.Anything, "claim-1").Return(claim, nil)

		_, err := service.Transition(context.Background(), "claim-1",
			entities.ClaimStatusPartial, entities.ClaimStatusPartial, finance, services.TransitionPayload{
				PaidAmount: floatPtr(300),
			})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		claimRepo.AssertNotCalled(t, "TransitionStatus")
	})

	t.Run("partial claim settles fully to paid", func(t *testing.T) {
		claimRepo := new(MockClaimRepository)
		service := newClaimService(claimRepo, new(MockRuleRepository), new(MockPlanRepository), nil)

		claim := storedClaim(entities.ClaimStatusPartial)
		claim.ApprovedAmount = 400
		claim.PaidAmount = 300
		paidAt := time.Now().Add(-24 * time.Hour)
		claim.PaidAt = &paidAt
		claimRepo.On("GetByID", mock.Anything, "claim-1").Return(claim, nil)
		claimRepo.On("TransitionStatus", mock.Anything, mock.MatchedBy(func(c *entities.Claim) bool {
			return c.Status == entities.ClaimStatusPaid && c.PaidAmount == 400
		}), entities.ClaimStatusPartial).Return(nil)

		updated, err := service.Transition(context.Background(), "claim-1",
			entities.ClaimStatusPartial, entities.ClaimStatusPaid, finance, services.TransitionPayload{
				PaidAmount: floatPtr(400),
			})

		assert.NoError(t, err)
		assert.False(t, updated.IsOutstanding())
		assert.True(t, updated.Status.IsTerminal())
	})

	t.Run("concurrent transition loses the compare-and-set", func(t *testing.T) {
		claimRepo := new(MockClaimRepository)
		service := newClaimService(claimRepo, new(MockRuleRepository), new(MockPlanRepository), nil)

		claimRepo.On("GetByID", mock.Anything, "claim-1").Return(storedClaim(entities.ClaimStatusPendingVetting), nil)
		claimRepo.On("TransitionStatus", mock.Anything, mock.Anything, entities.ClaimStatusPendingVetting).
			Return(apperrors.NewStateConflictError("claim already moved"))

		_, err := service.Transition(context.Background(), "claim-1",
			entities.ClaimStatusPendingVetting, entities.ClaimStatusVetted, vettingOfficer, services.TransitionPayload{})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStateConflict))
	})
}
