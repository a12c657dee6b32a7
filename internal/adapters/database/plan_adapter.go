package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/Hospitalinsurancedesign/backend/pkg/errors"
)

// PlanAdapter implements PlanRepository on PostgreSQL
type PlanAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPlanAdapter creates a new plan adapter
func NewPlanAdapter(client *postgres.Client) repositories.PlanRepository {
	return &PlanAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a plan by ID
func (a *PlanAdapter) GetByID(ctx context.Context, id string) (*entities.InsurancePlan, error) {
	query, args, err := a.planSelect().Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get plan", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("insurance plan %s not found", id))
	}

	return scanPlan(rows)
}

// List retrieves plans matching the filter
func (a *PlanAdapter) List(ctx context.Context, filter repositories.PlanFilter) ([]*entities.InsurancePlan, error) {
	ds := a.planSelect()

	if filter.ProviderID != "" {
		ds = ds.Where(goqu.Ex{"insurance_provider_id": filter.ProviderID})
	}
	if filter.IsActive != nil {
		ds = ds.Where(goqu.Ex{"is_active": *filter.IsActive})
	}

	ds = ds.Order(goqu.I("name").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list plans", err)
	}
	defer rows.Close()

	var plans []*entities.InsurancePlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	return plans, nil
}

// Update updates a plan's editable fields
func (a *PlanAdapter) Update(ctx context.Context, plan *entities.InsurancePlan) error {
	plan.UpdatedAt = time.Now()

	query, args, err := a.db.Update("insurance_plans").
		Set(goqu.Record{
			"name":                     plan.Name,
			"plan_type":                plan.PlanType,
			"coverage_type":            plan.CoverageType,
			"annual_limit":             nullFloat(plan.AnnualLimit),
			"visit_limit":              nullInt(plan.VisitLimit),
			"default_copay_percentage": nullFloat(plan.DefaultCopayPercentage),
			"requires_referral":        plan.RequiresReferral,
			"require_explicit_approval_for_new_items": plan.RequireExplicitApprovalForNewItems,
			"is_active":      plan.IsActive,
			"effective_from": nullTime(plan.EffectiveFrom),
			"effective_to":   nullTime(plan.EffectiveTo),
			"updated_at":     plan.UpdatedAt,
		}).
		Where(goqu.Ex{"id": plan.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update plan", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("insurance plan %s not found", plan.ID))
	}

	return nil
}

// Deactivate soft-deletes a plan
func (a *PlanAdapter) Deactivate(ctx context.Context, id string) error {
	query, args, err := a.db.Update("insurance_plans").
		Set(goqu.Record{
			"is_active":  false,
			"updated_at": time.Now(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build deactivate query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to deactivate plan", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("insurance plan %s not found", id))
	}

	return nil
}

// GetProvider retrieves an insurance provider by ID
func (a *PlanAdapter) GetProvider(ctx context.Context, id string) (*entities.InsuranceProvider, error) {
	query, args, err := a.db.Select(
		"id", "name", "code", "is_active", "created_at", "updated_at",
	).From("insurance_providers").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	provider := &entities.InsuranceProvider{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&provider.ID,
		&provider.Name,
		&provider.Code,
		&provider.IsActive,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("insurance provider %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get insurance provider", err)
	}

	return provider, nil
}

// ListProviders retrieves all insurance providers
func (a *PlanAdapter) ListProviders(ctx context.Context) ([]*entities.InsuranceProvider, error) {
	query, args, err := a.db.Select(
		"id", "name", "code", "is_active", "created_at", "updated_at",
	).From("insurance_providers").
		Order(goqu.I("name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list insurance providers", err)
	}
	defer rows.Close()

	var providers []*entities.InsuranceProvider
	for rows.Next() {
		provider := &entities.InsuranceProvider{}
		err := rows.Scan(
			&provider.ID,
			&provider.Name,
			&provider.Code,
			&provider.IsActive,
			&provider.CreatedAt,
			&provider.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan insurance provider", err)
		}
		providers = append(providers, provider)
	}

	return providers, nil
}

func (a *PlanAdapter) planSelect() *goqu.SelectDataset {
	return a.db.Select(
		"id", "insurance_provider_id", "name", "plan_type", "coverage_type",
		"annual_limit", "visit_limit", "default_copay_percentage",
		"requires_referral", "require_explicit_approval_for_new_items",
		"is_active", "effective_from", "effective_to",
		"created_at", "updated_at",
	).From("insurance_plans")
}

func scanPlan(rows *sql.Rows) (*entities.InsurancePlan, error) {
	plan := &entities.InsurancePlan{}
	var annualLimit, defaultCopay sql.NullFloat64
	var visitLimit sql.NullInt64
	var effectiveFrom, effectiveTo sql.NullTime

	err := rows.Scan(
		&plan.ID,
		&plan.InsuranceProviderID,
		&plan.Name,
		&plan.PlanType,
		&plan.CoverageType,
		&annualLimit,
		&visitLimit,
		&defaultCopay,
		&plan.RequiresReferral,
		&plan.RequireExplicitApprovalForNewItems,
		&plan.IsActive,
		&effectiveFrom,
		&effectiveTo,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to scan plan", err)
	}

	if annualLimit.Valid {
		plan.AnnualLimit = &annualLimit.Float64
	}
	if visitLimit.Valid {
		limit := int(visitLimit.Int64)
		plan.VisitLimit = &limit
	}
	if defaultCopay.Valid {
		plan.DefaultCopayPercentage = &defaultCopay.Float64
	}
	if effectiveFrom.Valid {
		plan.EffectiveFrom = &effectiveFrom.Time
	}
	if effectiveTo.Valid {
		plan.EffectiveTo = &effectiveTo.Time
	}

	return plan, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
