package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/providers"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/Hospitalinsurancedesign/backend/pkg/errors"
)

// ImportRow is one exception row submitted in a bulk import batch
type ImportRow struct {
	ItemCode               string                `json:"item_code"`
	ItemDescription        string                `json:"item_description"`
	CoverageType           entities.CoverageType `json:"coverage_type"`
	CoverageValue          float64               `json:"coverage_value"`
	PatientCopayPercentage float64               `json:"patient_copay_percentage"`
	IsCovered              bool                  `json:"is_covered"`
	Notes                  string                `json:"notes"`
	EffectiveFrom          *time.Time            `json:"effective_from"`
	EffectiveTo            *time.Time            `json:"effective_to"`
}

// AcceptedRow records one committed import row
type AcceptedRow struct {
	Index       int    `json:"index"`
	ItemCode    string `json:"item_code"`
	ExceptionID string `json:"exception_id"`
	Created     bool   `json:"created"`
}

// RejectedRow records one import row that failed validation or conflicted
type RejectedRow struct {
	Index    int    `json:"index"`
	ItemCode string `json:"item_code"`
	Reason   string `json:"reason"`
}

// BatchResult is the per-row outcome of an import batch. Every submitted row
// appears in exactly one of Accepted or Rejected.
type BatchResult struct {
	Accepted []AcceptedRow `json:"accepted"`
	Rejected []RejectedRow `json:"rejected"`
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
}

// ImportService applies batches of coverage exception rows with row-partial
// semantics: each row validates and commits independently, and a failing row
// never rolls back rows already applied.
type ImportService struct {
	ruleRepo repositories.RuleRepository
	planRepo repositories.PlanRepository
	cache    providers.CacheProvider
	eventBus providers.EventBus
}

// NewImportService creates a new bulk import service
func NewImportService(
	ruleRepo repositories.RuleRepository,
	planRepo repositories.PlanRepository,
	cache providers.CacheProvider,
	eventBus providers.EventBus,
) *ImportService {
	return &ImportService{
		ruleRepo: ruleRepo,
		planRepo: planRepo,
		cache:    cache,
		eventBus: eventBus,
	}
}

// ImportBatch validates and applies rows for a (plan, category). Rows whose
// item_code repeats within the batch are rejected after the first occurrence.
// Existing exceptions for an item are replaced; new items are created.
func (s *ImportService) ImportBatch(ctx context.Context, planID string, category entities.CoverageCategory, rows []ImportRow) (*BatchResult, error) {
	if !category.IsValid() {
		return nil, apperrors.NewValidationError("category", fmt.Sprintf("unknown coverage category: %s", category))
	}
	if _, err := s.planRepo.GetByID(ctx, planID); err != nil {
		return nil, err
	}

	result := &BatchResult{
		Accepted: make([]AcceptedRow, 0, len(rows)),
		Rejected: make([]RejectedRow, 0),
	}
	seen := make(map[string]int, len(rows))

	for i, row := range rows {
		if firstIndex, dup := seen[row.ItemCode]; dup && row.ItemCode != "" {
			result.Rejected = append(result.Rejected, RejectedRow{
				Index:    i,
				ItemCode: row.ItemCode,
				Reason:   fmt.Sprintf("duplicate item_code in batch (first occurrence at row %d)", firstIndex),
			})
			continue
		}
		if row.ItemCode != "" {
			seen[row.ItemCode] = i
		}

		if err := s.applyRow(ctx, planID, category, i, row, result); err != nil {
			result.Rejected = append(result.Rejected, RejectedRow{
				Index:    i,
				ItemCode: row.ItemCode,
				Reason:   err.Error(),
			})
		}
	}

	if len(result.Accepted) > 0 {
		s.invalidate(ctx, planID, category)
		s.publishImported(ctx, planID, category)
	}

	return result, nil
}

// applyRow validates one row and commits it, appending to result.Accepted on
// success. It returns the rejection reason otherwise.
func (s *ImportService) applyRow(ctx context.Context, planID string, category entities.CoverageCategory, index int, row ImportRow, result *BatchResult) error {
	if row.ItemCode == "" {
		return apperrors.NewValidationError("item_code", "item code is required")
	}

	fields := repositories.ExceptionFields{
		ItemDescription:        row.ItemDescription,
		CoverageType:           row.CoverageType,
		CoverageValue:          row.CoverageValue,
		PatientCopayPercentage: row.PatientCopayPercentage,
		IsCovered:              row.IsCovered,
		Notes:                  row.Notes,
		EffectiveFrom:          row.EffectiveFrom,
		EffectiveTo:            row.EffectiveTo,
	}
	if err := validateExceptionFields(fields); err != nil {
		return err
	}

	// Replace the exception currently in effect for this item, create
	// otherwise
	var expectedVersion *int64
	existing, err := s.ruleRepo.FindActiveException(ctx, planID, category, row.ItemCode, time.Now())
	if err != nil {
		return err
	}
	if existing != nil {
		expectedVersion = &existing.Version
	}

	exception, err := s.ruleRepo.UpsertException(ctx, planID, category, row.ItemCode, fields, expectedVersion)
	if err != nil {
		return err
	}

	result.Accepted = append(result.Accepted, AcceptedRow{
		Index:       index,
		ItemCode:    row.ItemCode,
		ExceptionID: exception.ID,
		Created:     existing == nil,
	})
	if existing == nil {
		result.Created++
	} else {
		result.Updated++
	}
	return nil
}

func (s *ImportService) invalidate(ctx context.Context, planID string, category entities.CoverageCategory) {
	if s.cache == nil {
		return
	}
	pattern := coverageCachePattern(planID, category)
	if err := s.cache.DeletePattern(ctx, pattern); err != nil {
		log.Printf("Warning: Failed to invalidate coverage cache %s: %v", pattern, err)
	}
}

func (s *ImportService) publishImported(ctx context.Context, planID string, category entities.CoverageCategory) {
	if s.eventBus == nil {
		return
	}
	event := entities.NewRuleChangeEvent(entities.ChangeEventExceptionsImported, planID, category, "")
	if err := s.eventBus.Publish(ctx, providers.EventChannelRuleUpdates, event); err != nil {
		log.Printf("Warning: Failed to publish import event %s: %v", event.ID, err)
	}
}
