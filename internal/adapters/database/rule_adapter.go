package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/Hospitalinsurancedesign/backend/pkg/errors"
)

// RuleAdapter implements RuleRepository on PostgreSQL
type RuleAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewRuleAdapter creates a new rule adapter
func NewRuleAdapter(client *postgres.Client) repositories.RuleRepository {
	return &RuleAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// UpsertCategoryDefault creates or updates the single default rule for a
// (plan, category) under optimistic concurrency
func (a *RuleAdapter) UpsertCategoryDefault(ctx context.Context, planID string, category entities.CoverageCategory, percentage float64, expectedVersion int64) (*entities.CategoryDefaultRule, error) {
	existing, err := a.GetCategoryDefault(ctx, planID, category)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	if existing == nil {
		if expectedVersion != 0 {
			return nil, apperrors.NewStateConflictError(
				fmt.Sprintf("no stored default for plan %s category %s, expected version %d", planID, category, expectedVersion))
		}

		rule := &entities.CategoryDefaultRule{
			ID:                uuid.NewString(),
			InsurancePlanID:   planID,
			Category:          category,
			DefaultPercentage: percentage,
			Version:           1,
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		query, args, err := a.db.Insert("category_default_rules").Rows(goqu.Record{
			"id":                 rule.ID,
			"insurance_plan_id":  rule.InsurancePlanID,
			"category":           string(rule.Category),
			"default_percentage": rule.DefaultPercentage,
			"version":            rule.Version,
			"created_at":         rule.CreatedAt,
			"updated_at":         rule.UpdatedAt,
		}).ToSQL()
		if err != nil {
			return nil, apperrors.NewInternalError("failed to build insert query", err)
		}

		if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
			if isIntegrityConflict(err) {
				return nil, apperrors.NewConflictError(
					fmt.Sprintf("default for plan %s category %s was created concurrently", planID, category))
			}
			return nil, apperrors.NewInternalError("failed to create category default", err)
		}

		return rule, nil
	}

	// Compare-and-set on the stored version
	query, args, err := a.db.Update("category_default_rules").
		Set(goqu.Record{
			"default_percentage": percentage,
			"version":            expectedVersion + 1,
			"updated_at":         now,
		}).
		Where(goqu.Ex{
			"insurance_plan_id": planID,
			"category":          string(category),
			"version":           expectedVersion,
		}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to update category default", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return nil, apperrors.NewStateConflictError(
			fmt.Sprintf("default for plan %s category %s was modified concurrently, expected version %d", planID, category, expectedVersion))
	}

	existing.DefaultPercentage = percentage
	existing.Version = expectedVersion + 1
	existing.UpdatedAt = now

	return existing, nil
}

// GetCategoryDefault retrieves the default rule for a (plan, category), or
// nil when none is set
func (a *RuleAdapter) GetCategoryDefault(ctx context.Context, planID string, category entities.CoverageCategory) (*entities.CategoryDefaultRule, error) {
	query, args, err := a.db.Select(
		"id", "insurance_plan_id", "category", "default_percentage",
		"version", "created_at", "updated_at",
	).From("category_default_rules").
		Where(goqu.Ex{
			"insurance_plan_id": planID,
			"category":          string(category),
		}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rule := &entities.CategoryDefaultRule{}

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&rule.ID,
		&rule.InsurancePlanID,
		&rule.Category,
		&rule.DefaultPercentage,
		&rule.Version,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get category default", err)
	}

	return rule, nil
}

// UpsertException creates a new exception or replaces an existing one
func (a *RuleAdapter) UpsertException(ctx context.Context, planID string, category entities.CoverageCategory, itemCode string, fields repositories.ExceptionFields, expectedVersion *int64) (*entities.CoverageException, error) {
	now := time.Now()

	if expectedVersion == nil {
		overlap, err := a.findOverlapping(ctx, planID, category, itemCode, fields.EffectiveFrom, fields.EffectiveTo)
		if err != nil {
			return nil, err
		}
		if overlap != nil {
			return nil, apperrors.NewConflictError(
				fmt.Sprintf("an active exception for item %s already covers an overlapping date range", itemCode))
		}

		exception := &entities.CoverageException{
			ID:                     uuid.NewString(),
			InsurancePlanID:        planID,
			Category:               category,
			ItemCode:               itemCode,
			ItemDescription:        fields.ItemDescription,
			CoverageType:           fields.CoverageType,
			CoverageValue:          fields.CoverageValue,
			PatientCopayPercentage: fields.PatientCopayPercentage,
			IsCovered:              fields.IsCovered,
			Notes:                  fields.Notes,
			EffectiveFrom:          fields.EffectiveFrom,
			EffectiveTo:            fields.EffectiveTo,
			IsActive:               true,
			Version:                1,
			CreatedAt:              now,
			UpdatedAt:              now,
		}

		query, args, err := a.db.Insert("coverage_exceptions").Rows(exceptionRecord(exception)).ToSQL()
		if err != nil {
			return nil, apperrors.NewInternalError("failed to build insert query", err)
		}

		if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
			if isIntegrityConflict(err) {
				return nil, apperrors.NewConflictError(
					fmt.Sprintf("an active exception for item %s already covers an overlapping date range", itemCode))
			}
			return nil, apperrors.NewInternalError("failed to create coverage exception", err)
		}

		return exception, nil
	}

	// Explicit replace of the stored exception for this key, guarded by the
	// caller's version
	query, args, err := a.db.Update("coverage_exceptions").
		Set(goqu.Record{
			"item_description":         sql.NullString{String: fields.ItemDescription, Valid: fields.ItemDescription != ""},
			"coverage_type":            string(fields.CoverageType),
			"coverage_value":           fields.CoverageValue,
			"patient_copay_percentage": fields.PatientCopayPercentage,
			"is_covered":               fields.IsCovered,
			"notes":                    sql.NullString{String: fields.Notes, Valid: fields.Notes != ""},
			"effective_from":           nullTime(fields.EffectiveFrom),
			"effective_to":             nullTime(fields.EffectiveTo),
			"version":                  *expectedVersion + 1,
			"updated_at":               now,
		}).
		Where(goqu.Ex{
			"insurance_plan_id": planID,
			"category":          string(category),
			"item_code":         itemCode,
			"is_active":         true,
			"version":           *expectedVersion,
		}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to update coverage exception", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return nil, apperrors.NewStateConflictError(
			fmt.Sprintf("exception for item %s was modified concurrently, expected version %d", itemCode, *expectedVersion))
	}

	return a.findByKey(ctx, planID, category, itemCode)
}

// FindActiveException retrieves the exception in effect on asOf, or nil.
// Effective bounds are compared at day granularity, so an exception stays in
// effect through the whole of its effective_to day.
func (a *RuleAdapter) FindActiveException(ctx context.Context, planID string, category entities.CoverageCategory, itemCode string, asOf time.Time) (*entities.CoverageException, error) {
	day := entities.StartOfDay(asOf)
	ds := a.exceptionSelect().
		Where(goqu.Ex{
			"insurance_plan_id": planID,
			"category":          string(category),
			"item_code":         itemCode,
			"is_active":         true,
		}).
		Where(goqu.Or(
			goqu.I("effective_from").IsNull(),
			goqu.L("date_trunc('day', effective_from)").Lte(day),
		)).
		Where(goqu.Or(
			goqu.I("effective_to").IsNull(),
			goqu.L("date_trunc('day', effective_to)").Gte(day),
		)).
		Order(goqu.I("effective_from").Desc().NullsLast()).
		Limit(1)

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	exception, err := a.scanOne(ctx, query, args)
	if err != nil {
		return nil, err
	}

	return exception, nil
}

// ListExceptions retrieves all exceptions for a (plan, category)
func (a *RuleAdapter) ListExceptions(ctx context.Context, planID string, category entities.CoverageCategory) ([]*entities.CoverageException, error) {
	query, args, err := a.exceptionSelect().
		Where(goqu.Ex{
			"insurance_plan_id": planID,
			"category":          string(category),
		}).
		Order(goqu.I("item_code").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list coverage exceptions", err)
	}
	defer rows.Close()

	var exceptions []*entities.CoverageException
	for rows.Next() {
		exception, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		exceptions = append(exceptions, exception)
	}

	return exceptions, nil
}

// CountMappedVsTotal counts catalog items in a category with and without a
// tariff mapping
func (a *RuleAdapter) CountMappedVsTotal(ctx context.Context, category entities.CoverageCategory) (int, int, error) {
	totalQuery, totalArgs, err := a.db.Select(goqu.COUNT("*")).
		From("item_catalog").
		Where(goqu.Ex{"category": string(category)}).
		ToSQL()
	if err != nil {
		return 0, 0, apperrors.NewInternalError("failed to build total query", err)
	}

	var total int
	if err := a.client.DB().QueryRowContext(ctx, totalQuery, totalArgs...).Scan(&total); err != nil {
		return 0, 0, apperrors.NewInternalError("failed to count catalog items", err)
	}

	mappedQuery, mappedArgs, err := a.db.Select(goqu.COUNT("*")).
		From(goqu.T("item_catalog").As("ic")).
		Join(
			goqu.T("tariff_mappings").As("tm"),
			goqu.On(
				goqu.I("ic.item_code").Eq(goqu.I("tm.item_code")),
				goqu.I("ic.category").Eq(goqu.I("tm.category")),
			),
		).
		Where(goqu.Ex{"ic.category": string(category)}).
		ToSQL()
	if err != nil {
		return 0, 0, apperrors.NewInternalError("failed to build mapped query", err)
	}

	var mapped int
	if err := a.client.DB().QueryRowContext(ctx, mappedQuery, mappedArgs...).Scan(&mapped); err != nil {
		return 0, 0, apperrors.NewInternalError("failed to count mapped items", err)
	}

	return mapped, total, nil
}

// findOverlapping looks for an active exception for the same key whose
// effective window overlaps [from, to]
func (a *RuleAdapter) findOverlapping(ctx context.Context, planID string, category entities.CoverageCategory, itemCode string, from, to *time.Time) (*entities.CoverageException, error) {
	ds := a.exceptionSelect().
		Where(goqu.Ex{
			"insurance_plan_id": planID,
			"category":          string(category),
			"item_code":         itemCode,
			"is_active":         true,
		})

	if from != nil {
		ds = ds.Where(goqu.Or(
			goqu.I("effective_to").IsNull(),
			goqu.L("date_trunc('day', effective_to)").Gte(entities.StartOfDay(*from)),
		))
	}
	if to != nil {
		ds = ds.Where(goqu.Or(
			goqu.I("effective_from").IsNull(),
			goqu.L("date_trunc('day', effective_from)").Lte(entities.StartOfDay(*to)),
		))
	}

	query, args, err := ds.Limit(1).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build overlap query", err)
	}

	return a.scanOne(ctx, query, args)
}

func (a *RuleAdapter) findByKey(ctx context.Context, planID string, category entities.CoverageCategory, itemCode string) (*entities.CoverageException, error) {
	query, args, err := a.exceptionSelect().
		Where(goqu.Ex{
			"insurance_plan_id": planID,
			"category":          string(category),
			"item_code":         itemCode,
			"is_active":         true,
		}).
		Order(goqu.I("updated_at").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.scanOne(ctx, query, args)
}

func (a *RuleAdapter) exceptionSelect() *goqu.SelectDataset {
	return a.db.Select(
		"id", "insurance_plan_id", "category", "item_code", "item_description",
		"coverage_type", "coverage_value", "patient_copay_percentage",
		"is_covered", "notes", "effective_from", "effective_to",
		"is_active", "version", "created_at", "updated_at",
	).From("coverage_exceptions")
}

func (a *RuleAdapter) scanOne(ctx context.Context, query string, args []interface{}) (*entities.CoverageException, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query coverage exception", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}

	return scanException(rows)
}

func scanException(rows *sql.Rows) (*entities.CoverageException, error) {
	exception := &entities.CoverageException{}
	var description, notes sql.NullString
	var effectiveFrom, effectiveTo sql.NullTime

	err := rows.Scan(
		&exception.ID,
		&exception.InsurancePlanID,
		&exception.Category,
		&exception.ItemCode,
		&description,
		&exception.CoverageType,
		&exception.CoverageValue,
		&exception.PatientCopayPercentage,
		&exception.IsCovered,
		&notes,
		&effectiveFrom,
		&effectiveTo,
		&exception.IsActive,
		&exception.Version,
		&exception.CreatedAt,
		&exception.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to scan coverage exception", err)
	}

	exception.ItemDescription = description.String
	exception.Notes = notes.String
	if effectiveFrom.Valid {
		exception.EffectiveFrom = &effectiveFrom.Time
	}
	if effectiveTo.Valid {
		exception.EffectiveTo = &effectiveTo.Time
	}

	return exception, nil
}

func exceptionRecord(e *entities.CoverageException) goqu.Record {
	return goqu.Record{
		"id":                       e.ID,
		"insurance_plan_id":        e.InsurancePlanID,
		"category":                 string(e.Category),
		"item_code":                e.ItemCode,
		"item_description":         sql.NullString{String: e.ItemDescription, Valid: e.ItemDescription != ""},
		"coverage_type":            string(e.CoverageType),
		"coverage_value":           e.CoverageValue,
		"patient_copay_percentage": e.PatientCopayPercentage,
		"is_covered":               e.IsCovered,
		"notes":                    sql.NullString{String: e.Notes, Valid: e.Notes != ""},
		"effective_from":           nullTime(e.EffectiveFrom),
		"effective_to":             nullTime(e.EffectiveTo),
		"is_active":                e.IsActive,
		"version":                  e.Version,
		"created_at":               e.CreatedAt,
		"updated_at":               e.UpdatedAt,
	}
}

// isIntegrityConflict reports whether err is a unique (23505) or exclusion
// (23P01) violation raised when a concurrent writer landed first
func isIntegrityConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" || pqErr.Code == "23P01"
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
