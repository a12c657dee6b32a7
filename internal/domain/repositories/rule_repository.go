package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
)

// ExceptionFields carries the settable fields of a coverage exception.
// Validation of ranges and date ordering happens before the adapter is
// reached; the adapter enforces the overlap invariant.
type ExceptionFields struct {
	ItemDescription        string
	CoverageType           entities.CoverageType
	CoverageValue          float64
	PatientCopayPercentage float64
	IsCovered              bool
	Notes                  string
	EffectiveFrom          *time.Time
	EffectiveTo            *time.Time
}

// RuleRepository is the durable store for category default rules and
// item-specific coverage exceptions.
type RuleRepository interface {
	// UpsertCategoryDefault creates or updates the single default rule for a
	// (plan, category). expectedVersion must match the stored version; pass 0
	// when creating. Returns StateConflict on a version mismatch.
	UpsertCategoryDefault(ctx context.Context, planID string, category entities.CoverageCategory, percentage float64, expectedVersion int64) (*entities.CategoryDefaultRule, error)

	// GetCategoryDefault retrieves the default rule for a (plan, category),
	// or nil when none is set
	GetCategoryDefault(ctx context.Context, planID string, category entities.CoverageCategory) (*entities.CategoryDefaultRule, error)

	// UpsertException creates a new exception, or replaces an existing one
	// when expectedVersion is non-nil. A create that overlaps an active
	// exception for the same (plan, category, item_code) returns
	// ConflictError; a replace with a stale version returns StateConflict.
	UpsertException(ctx context.Context, planID string, category entities.CoverageCategory, itemCode string, fields ExceptionFields, expectedVersion *int64) (*entities.CoverageException, error)

	// FindActiveException retrieves the exception in effect for
	// (plan, category, item_code) on asOf, or nil when none applies
	FindActiveException(ctx context.Context, planID string, category entities.CoverageCategory, itemCode string, asOf time.Time) (*entities.CoverageException, error)

	// ListExceptions retrieves all exceptions for a (plan, category)
	ListExceptions(ctx context.Context, planID string, category entities.CoverageCategory) ([]*entities.CoverageException, error)

	// CountMappedVsTotal counts catalog items in a category with and without
	// a tariff mapping
	CountMappedVsTotal(ctx context.Context, category entities.CoverageCategory) (mapped int, total int, err error)
}
