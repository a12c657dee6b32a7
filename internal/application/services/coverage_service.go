package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/providers"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/Hospitalinsurancedesign/backend/pkg/errors"
)

// CoverageService resolves the effective coverage for a billed item and owns
// the write paths for category defaults and coverage exceptions. Resolution
// precedence: active exception, then category default, then unconfigured.
type CoverageService struct {
	ruleRepo repositories.RuleRepository
	planRepo repositories.PlanRepository
	cache    providers.CacheProvider
	eventBus providers.EventBus
	cacheTTL int
}

// NewCoverageService creates a new coverage service. cacheTTLSeconds bounds
// how long a resolved decision may be served without rereading the rule store.
func NewCoverageService(
	ruleRepo repositories.RuleRepository,
	planRepo repositories.PlanRepository,
	cache providers.CacheProvider,
	eventBus providers.EventBus,
	cacheTTLSeconds int,
) *CoverageService {
	return &CoverageService{
		ruleRepo: ruleRepo,
		planRepo: planRepo,
		cache:    cache,
		eventBus: eventBus,
		cacheTTL: cacheTTLSeconds,
	}
}

// coverageCacheKey is the memoization key for one resolved decision. Decisions
// vary only by calendar date, not time of day.
func coverageCacheKey(planID string, category entities.CoverageCategory, itemCode string, asOf time.Time) string {
	return fmt.Sprintf("coverage:%s:%s:%s:%s", planID, category, itemCode, asOf.Format("2006-01-02"))
}

// coverageCachePattern matches every cached decision for a (plan, category)
func coverageCachePattern(planID string, category entities.CoverageCategory) string {
	return fmt.Sprintf("coverage:%s:%s:*", planID, category)
}

// Resolve determines the coverage in effect for (plan, category, item) on
// asOf. It never mutates the rule store; the same inputs against the same
// stored rules always produce the same decision.
func (s *CoverageService) Resolve(ctx context.Context, planID string, category entities.CoverageCategory, itemCode string, asOf time.Time) (*entities.CoverageDecision, error) {
	if !category.IsValid() {
		return nil, apperrors.NewValidationError("category", fmt.Sprintf("unknown coverage category: %s", category))
	}
	if itemCode == "" {
		return nil, apperrors.NewValidationError("item_code", "item code is required")
	}

	// Resolution has calendar-day granularity; truncating here keeps the
	// cache key and the rule-store lookup on the same date
	asOf = entities.StartOfDay(asOf)

	cacheKey := coverageCacheKey(planID, category, itemCode, asOf)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var cached entities.CoverageDecision
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	decision, err := s.resolveUncached(ctx, plan, category, itemCode, asOf)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(decision); err == nil {
			if err := s.cache.Set(ctx, cacheKey, data, s.cacheTTL); err != nil {
				log.Printf("Warning: Failed to cache coverage decision %s: %v", cacheKey, err)
			}
		}
	}

	return decision, nil
}

func (s *CoverageService) resolveUncached(ctx context.Context, plan *entities.InsurancePlan, category entities.CoverageCategory, itemCode string, asOf time.Time) (*entities.CoverageDecision, error) {
	exception, err := s.ruleRepo.FindActiveException(ctx, plan.ID, category, itemCode, asOf)
	if err != nil {
		return nil, err
	}
	if exception != nil {
		// An excluded item is never partially covered, whatever its
		// coverage_value says
		if !exception.IsCovered || exception.CoverageType == entities.CoverageTypeNotCovered {
			return &entities.CoverageDecision{
				CoveragePercentage: 0,
				PatientShare:       100,
				Source:             entities.SourceException,
				FullyExcluded:      true,
				RuleID:             exception.ID,
			}, nil
		}
		return &entities.CoverageDecision{
			CoveragePercentage: exception.CoverageValue,
			PatientShare:       exception.PatientCopayPercentage,
			Source:             entities.SourceException,
			RuleID:             exception.ID,
		}, nil
	}

	rule, err := s.ruleRepo.GetCategoryDefault(ctx, plan.ID, category)
	if err != nil {
		return nil, err
	}
	if rule != nil {
		return &entities.CoverageDecision{
			CoveragePercentage: rule.DefaultPercentage,
			PatientShare:       100 - rule.DefaultPercentage,
			Source:             entities.SourceCategoryDefault,
			RuleID:             rule.ID,
		}, nil
	}

	if plan.RequireExplicitApprovalForNewItems {
		return nil, apperrors.NewPendingConfigurationError(
			fmt.Sprintf("no coverage rule for item %s in category %s; plan %s requires explicit approval before billing", itemCode, category, plan.ID),
		).WithField("item_code")
	}

	return &entities.CoverageDecision{
		CoveragePercentage: 0,
		PatientShare:       100,
		Source:             entities.SourceUnconfigured,
	}, nil
}

// SetCategoryDefault creates or updates the plan-wide default percentage for
// a category. expectedVersion is 0 on create and must match the stored
// version on update.
func (s *CoverageService) SetCategoryDefault(ctx context.Context, planID string, category entities.CoverageCategory, percentage float64, expectedVersion int64) (*entities.CategoryDefaultRule, error) {
	if !category.IsValid() {
		return nil, apperrors.NewValidationError("category", fmt.Sprintf("unknown coverage category: %s", category))
	}
	if err := validatePercentage("percentage", percentage); err != nil {
		return nil, err
	}
	if _, err := s.planRepo.GetByID(ctx, planID); err != nil {
		return nil, err
	}

	rule, err := s.ruleRepo.UpsertCategoryDefault(ctx, planID, category, percentage, expectedVersion)
	if err != nil {
		return nil, err
	}

	s.invalidateCoverage(ctx, planID, category)
	s.publishRuleEvent(ctx, entities.ChangeEventCategoryDefaultUpdated, planID, category, "")

	return rule, nil
}

// UpsertException creates an item-specific coverage override, or replaces an
// existing one when expectedVersion is non-nil.
func (s *CoverageService) UpsertException(ctx context.Context, planID string, category entities.CoverageCategory, itemCode string, fields repositories.ExceptionFields, expectedVersion *int64) (*entities.CoverageException, error) {
	if !category.IsValid() {
		return nil, apperrors.NewValidationError("category", fmt.Sprintf("unknown coverage category: %s", category))
	}
	if itemCode == "" {
		return nil, apperrors.NewValidationError("item_code", "item code is required")
	}
	if err := validateExceptionFields(fields); err != nil {
		return nil, err
	}
	if _, err := s.planRepo.GetByID(ctx, planID); err != nil {
		return nil, err
	}

	exception, err := s.ruleRepo.UpsertException(ctx, planID, category, itemCode, fields, expectedVersion)
	if err != nil {
		return nil, err
	}

	s.invalidateCoverage(ctx, planID, category)
	s.publishRuleEvent(ctx, entities.ChangeEventExceptionUpserted, planID, category, itemCode)

	return exception, nil
}

// ListExceptions retrieves all exceptions configured for a (plan, category)
func (s *CoverageService) ListExceptions(ctx context.Context, planID string, category entities.CoverageCategory) ([]*entities.CoverageException, error) {
	if !category.IsValid() {
		return nil, apperrors.NewValidationError("category", fmt.Sprintf("unknown coverage category: %s", category))
	}
	return s.ruleRepo.ListExceptions(ctx, planID, category)
}

// ApplyToAmount splits a billed amount into insurer and patient portions
// under the given decision
func (s *CoverageService) ApplyToAmount(decision *entities.CoverageDecision, billedAmount float64) (covered, patient float64) {
	return decision.Apply(billedAmount)
}

// invalidateCoverage drops cached decisions for a (plan, category) before the
// write returns, so no stale decision survives the edit
func (s *CoverageService) invalidateCoverage(ctx context.Context, planID string, category entities.CoverageCategory) {
	if s.cache == nil {
		return
	}
	pattern := coverageCachePattern(planID, category)
	if err := s.cache.DeletePattern(ctx, pattern); err != nil {
		log.Printf("Warning: Failed to invalidate coverage cache %s: %v", pattern, err)
	}
}

func (s *CoverageService) publishRuleEvent(ctx context.Context, eventType entities.ChangeEventType, planID string, category entities.CoverageCategory, itemCode string) {
	if s.eventBus == nil {
		return
	}
	event := entities.NewRuleChangeEvent(eventType, planID, category, itemCode)
	if err := s.eventBus.Publish(ctx, providers.EventChannelRuleUpdates, event); err != nil {
		log.Printf("Warning: Failed to publish rule event %s: %v", event.ID, err)
	}
}

func validateExceptionFields(fields repositories.ExceptionFields) error {
	if !fields.CoverageType.IsValid() {
		return apperrors.NewValidationError("coverage_type", fmt.Sprintf("unknown coverage type: %s", fields.CoverageType))
	}
	if fields.CoverageType == entities.CoverageTypePercentage {
		if err := validatePercentage("coverage_value", fields.CoverageValue); err != nil {
			return err
		}
	} else if fields.CoverageValue < 0 {
		return apperrors.NewValidationError("coverage_value", "coverage value must not be negative")
	}
	if err := validatePercentage("patient_copay_percentage", fields.PatientCopayPercentage); err != nil {
		return err
	}
	if fields.EffectiveFrom != nil && fields.EffectiveTo != nil && fields.EffectiveFrom.After(*fields.EffectiveTo) {
		return apperrors.NewValidationError("effective_to", "effective_to must not precede effective_from")
	}
	return nil
}

// validatePercentage enforces the [0,100] range at two-decimal precision
func validatePercentage(field string, v float64) error {
	if v < 0 || v > 100 {
		return apperrors.NewValidationError(field, fmt.Sprintf("%s out of range [0,100]: %.2f", field, v))
	}
	if math.Abs(v*100-math.Round(v*100)) > 1e-9 {
		return apperrors.NewValidationError(field, fmt.Sprintf("%s must have at most two decimal places", field))
	}
	return nil
}
