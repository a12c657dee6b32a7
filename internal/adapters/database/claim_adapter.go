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

// ClaimAdapter implements ClaimRepository on PostgreSQL
type ClaimAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewClaimAdapter creates a new claim adapter
func NewClaimAdapter(client *postgres.Client) repositories.ClaimRepository {
	return &ClaimAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create persists a new claim together with its line items in one transaction
func (a *ClaimAdapter) Create(ctx context.Context, claim *entities.Claim) error {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	claimQuery, claimArgs, err := a.db.Insert("insurance_claims").Rows(claimRecord(claim)).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build claim insert", err)
	}

	if _, err := tx.ExecContext(ctx, claimQuery, claimArgs...); err != nil {
		return apperrors.NewInternalError("failed to create claim", err)
	}

	for _, item := range claim.LineItems {
		itemQuery, itemArgs, err := a.db.Insert("claim_line_items").Rows(goqu.Record{
			"id":              item.ID,
			"claim_id":        item.ClaimID,
			"category":        string(item.Category),
			"item_code":       item.ItemCode,
			"description":     sql.NullString{String: item.Description, Valid: item.Description != ""},
			"billed_amount":   item.BilledAmount,
			"covered_amount":  item.CoveredAmount,
			"coverage_source": string(item.CoverageSource),
			"created_at":      item.CreatedAt,
		}).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build line item insert", err)
		}

		if _, err := tx.ExecContext(ctx, itemQuery, itemArgs...); err != nil {
			return apperrors.NewInternalError("failed to create claim line item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit claim", err)
	}

	return nil
}

// GetByID retrieves a claim with its line items
func (a *ClaimAdapter) GetByID(ctx context.Context, id string) (*entities.Claim, error) {
	query, args, err := a.claimSelect().Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get claim", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("claim %s not found", id))
	}

	claim, err := scanClaim(rows)
	if err != nil {
		return nil, err
	}

	items, err := a.lineItems(ctx, id)
	if err != nil {
		return nil, err
	}
	claim.LineItems = items

	return claim, nil
}

// List retrieves claims matching the filter, without line items
func (a *ClaimAdapter) List(ctx context.Context, filter repositories.ClaimFilter) ([]*entities.Claim, error) {
	ds := a.claimSelect()

	if filter.DateFrom != nil {
		ds = ds.Where(goqu.I("created_at").Gte(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		ds = ds.Where(goqu.I("created_at").Lt(*filter.DateTo))
	}
	if filter.ProviderID != "" {
		ds = ds.Where(goqu.Ex{"insurance_provider_id": filter.ProviderID})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		ds = ds.Where(goqu.I("status").In(statuses))
	}

	ds = ds.Order(goqu.I("created_at").Desc())

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
		return nil, apperrors.NewInternalError("failed to list claims", err)
	}
	defer rows.Close()

	var claims []*entities.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}

	return claims, nil
}

// TransitionStatus persists the claim's new state, guarded by a
// compare-and-set on the expected current status
func (a *ClaimAdapter) TransitionStatus(ctx context.Context, claim *entities.Claim, fromStatus entities.ClaimStatus) error {
	query, args, err := a.db.Update("insurance_claims").
		Set(goqu.Record{
			"status":           string(claim.Status),
			"approved_amount":  claim.ApprovedAmount,
			"paid_amount":      claim.PaidAmount,
			"rejection_reason": sql.NullString{String: claim.RejectionReason, Valid: claim.RejectionReason != ""},
			"vetted_at":        nullTime(claim.VettedAt),
			"submitted_at":     nullTime(claim.SubmittedAt),
			"approved_at":      nullTime(claim.ApprovedAt),
			"rejected_at":      nullTime(claim.RejectedAt),
			"paid_at":          nullTime(claim.PaidAt),
			"vetted_by":        sql.NullString{String: claim.VettedBy, Valid: claim.VettedBy != ""},
			"submitted_by":     sql.NullString{String: claim.SubmittedBy, Valid: claim.SubmittedBy != ""},
			"responded_by":     sql.NullString{String: claim.RespondedBy, Valid: claim.RespondedBy != ""},
			"paid_by":          sql.NullString{String: claim.PaidBy, Valid: claim.PaidBy != ""},
			"updated_at":       claim.UpdatedAt,
		}).
		Where(goqu.Ex{
			"id":     claim.ID,
			"status": string(fromStatus),
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build transition query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to transition claim", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewStateConflictError(
			fmt.Sprintf("claim %s is no longer in status %s", claim.ID, fromStatus))
	}

	return nil
}

// CountInWindow counts claims created in [from, to) for the optional
// provider and statuses
func (a *ClaimAdapter) CountInWindow(ctx context.Context, from, to time.Time, providerID string, statuses []entities.ClaimStatus) (int, error) {
	ds := a.db.Select(goqu.COUNT("*")).
		From("insurance_claims").
		Where(goqu.I("created_at").Gte(from)).
		Where(goqu.I("created_at").Lt(to))

	if providerID != "" {
		ds = ds.Where(goqu.Ex{"insurance_provider_id": providerID})
	}
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, s := range statuses {
			values[i] = string(s)
		}
		ds = ds.Where(goqu.I("status").In(values))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count claims", err)
	}

	return count, nil
}

// SumPaidInWindow sums paid_amount over claims settled in [from, to)
func (a *ClaimAdapter) SumPaidInWindow(ctx context.Context, from, to time.Time) (float64, error) {
	query, args, err := a.db.Select(goqu.COALESCE(goqu.SUM("paid_amount"), 0)).
		From("insurance_claims").
		Where(goqu.I("status").In([]string{
			string(entities.ClaimStatusPaid),
			string(entities.ClaimStatusPartial),
		})).
		Where(goqu.I("paid_at").Gte(from)).
		Where(goqu.I("paid_at").Lt(to)).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build sum query", err)
	}

	var sum float64
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return 0, apperrors.NewInternalError("failed to sum paid claims", err)
	}

	return sum, nil
}

func (a *ClaimAdapter) lineItems(ctx context.Context, claimID string) ([]*entities.ClaimLineItem, error) {
	query, args, err := a.db.Select(
		"id", "claim_id", "category", "item_code", "description",
		"billed_amount", "covered_amount", "coverage_source", "created_at",
	).From("claim_line_items").
		Where(goqu.Ex{"claim_id": claimID}).
		Order(goqu.I("created_at").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build line item query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list line items", err)
	}
	defer rows.Close()

	var items []*entities.ClaimLineItem
	for rows.Next() {
		item := &entities.ClaimLineItem{}
		var description sql.NullString

		err := rows.Scan(
			&item.ID,
			&item.ClaimID,
			&item.Category,
			&item.ItemCode,
			&description,
			&item.BilledAmount,
			&item.CoveredAmount,
			&item.CoverageSource,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan line item", err)
		}

		item.Description = description.String
		items = append(items, item)
	}

	return items, nil
}

func (a *ClaimAdapter) claimSelect() *goqu.SelectDataset {
	return a.db.Select(
		"id", "patient_ref", "encounter_ref", "insurance_provider_id",
		"insurance_plan_id", "status", "claimed_amount", "approved_amount",
		"paid_amount", "rejection_reason",
		"created_at", "vetted_at", "submitted_at", "approved_at",
		"rejected_at", "paid_at",
		"created_by", "vetted_by", "submitted_by", "responded_by", "paid_by",
		"updated_at",
	).From("insurance_claims")
}

func scanClaim(rows *sql.Rows) (*entities.Claim, error) {
	claim := &entities.Claim{}
	var rejectionReason sql.NullString
	var vettedAt, submittedAt, approvedAt, rejectedAt, paidAt sql.NullTime
	var vettedBy, submittedBy, respondedBy, paidBy sql.NullString

	err := rows.Scan(
		&claim.ID,
		&claim.PatientRef,
		&claim.EncounterRef,
		&claim.InsuranceProviderID,
		&claim.InsurancePlanID,
		&claim.Status,
		&claim.ClaimedAmount,
		&claim.ApprovedAmount,
		&claim.PaidAmount,
		&rejectionReason,
		&claim.CreatedAt,
		&vettedAt,
		&submittedAt,
		&approvedAt,
		&rejectedAt,
		&paidAt,
		&claim.CreatedBy,
		&vettedBy,
		&submittedBy,
		&respondedBy,
		&paidBy,
		&claim.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to scan claim", err)
	}

	claim.RejectionReason = rejectionReason.String
	claim.VettedBy = vettedBy.String
	claim.SubmittedBy = submittedBy.String
	claim.RespondedBy = respondedBy.String
	claim.PaidBy = paidBy.String

	if vettedAt.Valid {
		claim.VettedAt = &vettedAt.Time
	}
	if submittedAt.Valid {
		claim.SubmittedAt = &submittedAt.Time
	}
	if approvedAt.Valid {
		claim.ApprovedAt = &approvedAt.Time
	}
	if rejectedAt.Valid {
		claim.RejectedAt = &rejectedAt.Time
	}
	if paidAt.Valid {
		claim.PaidAt = &paidAt.Time
	}

	return claim, nil
}

func claimRecord(c *entities.Claim) goqu.Record {
	return goqu.Record{
		"id":                    c.ID,
		"patient_ref":           c.PatientRef,
		"encounter_ref":         c.EncounterRef,
		"insurance_provider_id": c.InsuranceProviderID,
		"insurance_plan_id":     c.InsurancePlanID,
		"status":                string(c.Status),
		"claimed_amount":        c.ClaimedAmount,
		"approved_amount":       c.ApprovedAmount,
		"paid_amount":           c.PaidAmount,
		"rejection_reason":      sql.NullString{String: c.RejectionReason, Valid: c.RejectionReason != ""},
		"created_at":            c.CreatedAt,
		"vetted_at":             nullTime(c.VettedAt),
		"submitted_at":          nullTime(c.SubmittedAt),
		"approved_at":           nullTime(c.ApprovedAt),
		"rejected_at":           nullTime(c.RejectedAt),
		"paid_at":               nullTime(c.PaidAt),
		"created_by":            c.CreatedBy,
		"vetted_by":             sql.NullString{String: c.VettedBy, Valid: c.VettedBy != ""},
		"submitted_by":          sql.NullString{String: c.SubmittedBy, Valid: c.SubmittedBy != ""},
		"responded_by":          sql.NullString{String: c.RespondedBy, Valid: c.RespondedBy != ""},
		"paid_by":               sql.NullString{String: c.PaidBy, Valid: c.PaidBy != ""},
		"updated_at":            c.UpdatedAt,
	}
}
