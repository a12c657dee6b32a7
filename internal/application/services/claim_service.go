package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/providers"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/Hospitalinsurancedesign/backend/pkg/errors"
)

// allowedTransitions defines the claim state machine. A requested transition
// absent from this map is a caller logic error, not a retryable conflict.
var allowedTransitions = map[entities.ClaimStatus][]entities.ClaimStatus{
	entities.ClaimStatusPendingVetting: {entities.ClaimStatusVetted},
	entities.ClaimStatusVetted:         {entities.ClaimStatusSubmitted},
	entities.ClaimStatusSubmitted:      {entities.ClaimStatusApproved, entities.ClaimStatusRejected},
	entities.ClaimStatusApproved:       {entities.ClaimStatusPaid, entities.ClaimStatusPartial},
	entities.ClaimStatusPartial:        {entities.ClaimStatusPaid, entities.ClaimStatusPartial},
}

// transitionRoles maps each target state to the actor role allowed to enter it
var transitionRoles = map[entities.ClaimStatus]entities.ActorRole{
	entities.ClaimStatusVetted:    entities.RoleVettingOfficer,
	entities.ClaimStatusSubmitted: entities.RoleBillingStaff,
	entities.ClaimStatusApproved:  entities.RoleInsurerResponse,
	entities.ClaimStatusRejected:  entities.RoleInsurerResponse,
	entities.ClaimStatusPaid:      entities.RoleFinance,
	entities.ClaimStatusPartial:   entities.RoleFinance,
}

// ClaimLineInput is one billed item on a claim being created
type ClaimLineInput struct {
	Category     entities.CoverageCategory `json:"category"`
	ItemCode     string                    `json:"item_code"`
	Description  string                    `json:"description"`
	BilledAmount float64                   `json:"billed_amount"`
}

// CreateClaimInput carries everything needed to open a claim
type CreateClaimInput struct {
	PatientRef          string           `json:"patient_ref"`
	EncounterRef        string           `json:"encounter_ref"`
	InsuranceProviderID string           `json:"insurance_provider_id"`
	InsurancePlanID     string           `json:"insurance_plan_id"`
	CreatedBy           string           `json:"created_by"`
	LineItems           []ClaimLineInput `json:"line_items"`
}

// TransitionPayload carries the transition-specific fields. Amounts are
// cumulative totals, not increments.
type TransitionPayload struct {
	ApprovedAmount  *float64 `json:"approved_amount,omitempty"`
	PaidAmount      *float64 `json:"paid_amount,omitempty"`
	RejectionReason string   `json:"rejection_reason,omitempty"`
}

// ClaimService owns the claim lifecycle: creation with resolved line-item
// coverage, and the guarded state machine from vetting through payment.
type ClaimService struct {
	claimRepo repositories.ClaimRepository
	coverage  *CoverageService
	cache     providers.CacheProvider
	eventBus  providers.EventBus
}

// NewClaimService creates a new claim service
func NewClaimService(
	claimRepo repositories.ClaimRepository,
	coverage *CoverageService,
	cache providers.CacheProvider,
	eventBus providers.EventBus,
) *ClaimService {
	return &ClaimService{
		claimRepo: claimRepo,
		coverage:  coverage,
		cache:     cache,
		eventBus:  eventBus,
	}
}

// Create opens a claim in pending_vetting with line items priced from
// resolved coverage. A line whose item has no rule under an
// explicit-approval plan holds the whole claim with PendingConfiguration.
func (s *ClaimService) Create(ctx context.Context, input CreateClaimInput) (*entities.Claim, error) {
	if input.PatientRef == "" {
		return nil, apperrors.NewValidationError("patient_ref", "patient reference is required")
	}
	if input.InsurancePlanID == "" {
		return nil, apperrors.NewValidationError("insurance_plan_id", "insurance plan is required")
	}
	if len(input.LineItems) == 0 {
		return nil, apperrors.NewValidationError("line_items", "at least one line item is required")
	}

	now := time.Now()
	claim := &entities.Claim{
		ID:                  uuid.NewString(),
		PatientRef:          input.PatientRef,
		EncounterRef:        input.EncounterRef,
		InsuranceProviderID: input.InsuranceProviderID,
		InsurancePlanID:     input.InsurancePlanID,
		Status:              entities.ClaimStatusPendingVetting,
		CreatedBy:           input.CreatedBy,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	for i, line := range input.LineItems {
		if line.BilledAmount < 0 {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("line_items[%d].billed_amount", i), "billed amount must not be negative")
		}
		decision, err := s.coverage.Resolve(ctx, input.InsurancePlanID, line.Category, line.ItemCode, now)
		if err != nil {
			return nil, err
		}
		covered, _ := decision.Apply(line.BilledAmount)
		claim.LineItems = append(claim.LineItems, &entities.ClaimLineItem{
			ID:             uuid.NewString(),
			ClaimID:        claim.ID,
			Category:       line.Category,
			ItemCode:       line.ItemCode,
			Description:    line.Description,
			BilledAmount:   line.BilledAmount,
			CoveredAmount:  covered,
			CoverageSource: decision.Source,
			CreatedAt:      now,
		})
		claim.ClaimedAmount += covered
	}

	if err := s.claimRepo.Create(ctx, claim); err != nil {
		return nil, err
	}

	s.publishClaimEvent(ctx, entities.ChangeEventClaimCreated, claim.ID)
	return claim, nil
}

// GetByID retrieves a claim with its line items
func (s *ClaimService) GetByID(ctx context.Context, id string) (*entities.Claim, error) {
	return s.claimRepo.GetByID(ctx, id)
}

// List retrieves claims matching the filter
func (s *ClaimService) List(ctx context.Context, filter repositories.ClaimFilter) ([]*entities.Claim, error) {
	return s.claimRepo.List(ctx, filter)
}

// Transition moves a claim from one state to another on behalf of an actor.
// The stored state must still equal from when the write lands; concurrent
// movers lose with StateConflict and must re-read.
func (s *ClaimService) Transition(ctx context.Context, claimID string, from, to entities.ClaimStatus, actor entities.Actor, payload TransitionPayload) (*entities.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}

	if claim.Status != from {
		return nil, apperrors.NewStateConflictError(
			fmt.Sprintf("claim %s is %s, not %s", claimID, claim.Status, from))
	}
	if !transitionDefined(from, to) {
		return nil, apperrors.NewInvalidTransitionError(
			fmt.Sprintf("no transition from %s to %s", from, to))
	}
	if required := transitionRoles[to]; actor.Role != required {
		return nil, apperrors.NewUnauthorizedError(
			fmt.Sprintf("transition to %s requires role %s, actor %s has %s", to, required, actor.ID, actor.Role))
	}
	if err := s.applyTransition(claim, to, actor, payload); err != nil {
		return nil, err
	}

	if err := s.claimRepo.TransitionStatus(ctx, claim, from); err != nil {
		return nil, err
	}

	s.publishClaimEvent(ctx, entities.ChangeEventClaimTransitioned, claim.ID)
	return claim, nil
}

// applyTransition validates the payload guards for the target state and
// stamps the claim in memory. The claim is left untouched on any error.
func (s *ClaimService) applyTransition(claim *entities.Claim, to entities.ClaimStatus, actor entities.Actor, payload TransitionPayload) error {
	now := time.Now()

	switch to {
	case entities.ClaimStatusVetted:
		claim.VettedAt = &now
		claim.VettedBy = actor.ID

	case entities.ClaimStatusSubmitted:
		claim.SubmittedAt = &now
		claim.SubmittedBy = actor.ID

	case entities.ClaimStatusApproved:
		if payload.ApprovedAmount == nil {
			return apperrors.NewValidationError("approved_amount", "approved amount is required")
		}
		if *payload.ApprovedAmount < 0 {
			return apperrors.NewValidationError("approved_amount", "approved amount must not be negative")
		}
		if *payload.ApprovedAmount > claim.ClaimedAmount {
			return apperrors.NewValidationError("approved_amount",
				fmt.Sprintf("approved amount %.2f exceeds claimed amount %.2f", *payload.ApprovedAmount, claim.ClaimedAmount))
		}
		claim.ApprovedAmount = *payload.ApprovedAmount
		claim.ApprovedAt = &now
		claim.RespondedBy = actor.ID

	case entities.ClaimStatusRejected:
		if strings.TrimSpace(payload.RejectionReason) == "" {
			return apperrors.NewValidationError("rejection_reason", "rejection reason is required")
		}
		claim.RejectionReason = payload.RejectionReason
		claim.RejectedAt = &now
		claim.RespondedBy = actor.ID

	case entities.ClaimStatusPaid, entities.ClaimStatusPartial:
		if payload.PaidAmount == nil {
			return apperrors.NewValidationError("paid_amount", "paid amount is required")
		}
		paid := *payload.PaidAmount
		if paid < 0 {
			return apperrors.NewValidationError("paid_amount", "paid amount must not be negative")
		}
		if paid > claim.ApprovedAmount {
			return apperrors.NewValidationError("paid_amount",
				fmt.Sprintf("paid amount %.2f exceeds approved amount %.2f", paid, claim.ApprovedAmount))
		}
		if to == entities.ClaimStatusPaid && paid != claim.ApprovedAmount {
			return apperrors.NewValidationError("paid_amount",
				fmt.Sprintf("paid requires full settlement: %.2f of approved %.2f", paid, claim.ApprovedAmount))
		}
		if to == entities.ClaimStatusPartial && paid >= claim.ApprovedAmount {
			return apperrors.NewValidationError("paid_amount",
				"partial requires an outstanding balance; use paid for full settlement")
		}
		if to == entities.ClaimStatusPartial && paid <= claim.PaidAmount {
			return apperrors.NewValidationError("paid_amount",
				fmt.Sprintf("paid amount %.2f must exceed the %.2f already recorded", paid, claim.PaidAmount))
		}
		if paid < claim.PaidAmount {
			return apperrors.NewValidationError("paid_amount",
				fmt.Sprintf("paid amount %.2f is below the %.2f already recorded", paid, claim.PaidAmount))
		}
		claim.PaidAmount = paid
		claim.PaidAt = &now
		claim.PaidBy = actor.ID

	default:
		return apperrors.NewInvalidTransitionError(fmt.Sprintf("unknown target state %s", to))
	}

	claim.Status = to
	claim.UpdatedAt = now
	return nil
}

func transitionDefined(from, to entities.ClaimStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *ClaimService) publishClaimEvent(ctx context.Context, eventType entities.ChangeEventType, claimID string) {
	if s.eventBus == nil {
		return
	}
	event := entities.NewClaimChangeEvent(eventType, claimID)
	if err := s.eventBus.Publish(ctx, providers.EventChannelClaimUpdates, event); err != nil {
		log.Printf("Warning: Failed to publish claim event %s: %v", event.ID, err)
	}
}
