package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/adapters/database"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/Hospitalinsurancedesign/backend/pkg/errors"
)

func newClaimAdapter(t *testing.T) (repositories.ClaimRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return database.NewClaimAdapter(postgres.NewClientFromDB(db)), mock
}

func claimRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "patient_ref", "encounter_ref", "insurance_provider_id",
		"insurance_plan_id", "status", "claimed_amount", "approved_amount",
		"paid_amount", "rejection_reason",
		"created_at", "vetted_at", "submitted_at", "approved_at",
		"rejected_at", "paid_at",
		"created_by", "vetted_by", "submitted_by", "responded_by", "paid_by",
		"updated_at",
	})
}

func lineItemRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "claim_id", "category", "item_code", "description",
		"billed_amount", "covered_amount", "coverage_source", "created_at",
	})
}

func pendingClaim(now time.Time) *entities.Claim {
	return &entities.Claim{
		ID:                  "claim-1",
		PatientRef:          "patient-1",
		EncounterRef:        "encounter-1",
		InsuranceProviderID: "provider-1",
		InsurancePlanID:     "plan-1",
		Status:              entities.ClaimStatusPendingVetting,
		ClaimedAmount:       160,
		CreatedBy:           "clerk-1",
		CreatedAt:           now,
		UpdatedAt:           now,
		LineItems: []*entities.ClaimLineItem{
			{
				ID:             "line-1",
				ClaimID:        "claim-1",
				Category:       entities.CategoryDrug,
				ItemCode:       "D123",
				BilledAmount:   200,
				CoveredAmount:  160,
				CoverageSource: entities.SourceCategoryDefault,
				CreatedAt:      now,
			},
			{
				ID:             "line-2",
				ClaimID:        "claim-1",
				Category:       entities.CategoryLab,
				ItemCode:       "L456",
				BilledAmount:   50,
				CoveredAmount:  0,
				CoverageSource: entities.SourceUnconfigured,
				CreatedAt:      now,
			},
		},
	}
}

func TestClaimAdapter_Create(t *testing.T) {
	t.Run("persists the claim and its line items in one transaction", func(t *testing.T) {
		adapter, mock := newClaimAdapter(t)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "insurance_claims"`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO "claim_line_items"`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO "claim_line_items"`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := adapter.Create(context.Background(), pendingClaim(time.Now()))

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when a line item insert fails", func(t *testing.T) {
		adapter, mock := newClaimAdapter(t)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "insurance_claims"`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO "claim_line_items"`).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := adapter.Create(context.Background(), pendingClaim(time.Now()))

		assert.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClaimAdapter_GetByID(t *testing.T) {
	t.Run("returns the claim with its line items", func(t *testing.T) {
		adapter, mock := newClaimAdapter(t)

		now := time.Now()
		mock.ExpectQuery(`SELECT .+ FROM "insurance_claims"`).
			WillReturnRows(claimRows().
				AddRow("claim-1", "patient-1", "encounter-1", "provider-1",
					"plan-1", "pending_vetting", 160.0, 0.0, 0.0, nil,
					now, nil, nil, nil, nil, nil,
					"clerk-1", nil, nil, nil, nil, now))
		mock.ExpectQuery(`SELECT .+ FROM "claim_line_items"`).
			WillReturnRows(lineItemRows().
				AddRow("line-1", "claim-1", "drug", "D123", nil,
					200.0, 160.0, "category_default", now))

		claim, err := adapter.GetByID(context.Background(), "claim-1")

		assert.NoError(t, err)
		require.NotNil(t, claim)
		assert.Equal(t, entities.ClaimStatusPendingVetting, claim.Status)
		assert.Equal(t, 160.0, claim.ClaimedAmount)
		require.Len(t, claim.LineItems, 1)
		assert.Equal(t, "D123", claim.LineItems[0].ItemCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for an unknown id", func(t *testing.T) {
		adapter, mock := newClaimAdapter(t)

		mock.ExpectQuery(`SELECT .+ FROM "insurance_claims"`).
			WillReturnRows(claimRows())

		claim, err := adapter.GetByID(context.Background(), "missing")

		assert.Nil(t, claim)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClaimAdapter_List(t *testing.T) {
	adapter, mock := newClaimAdapter(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM "insurance_claims"`).
		WillReturnRows(claimRows().
			AddRow("claim-1", "patient-1", "encounter-1", "provider-1",
				"plan-1", "approved", 500.0, 450.0, 0.0, nil,
				now, now, now, now, nil, nil,
				"clerk-1", "officer-1", "biller-1", "insurer-1", nil, now).
			AddRow("claim-2", "patient-2", "encounter-2", "provider-1",
				"plan-1", "rejected", 300.0, 0.0, 0.0, "missing referral",
				now, now, now, nil, now, nil,
				"clerk-1", "officer-1", "biller-1", "insurer-1", nil, now))

	from := now.AddDate(0, -1, 0)
	claims, err := adapter.List(context.Background(), repositories.ClaimFilter{
		DateFrom:   &from,
		ProviderID: "provider-1",
		Statuses:   []entities.ClaimStatus{entities.ClaimStatusApproved, entities.ClaimStatusRejected},
	})

	assert.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, 450.0, claims[0].ApprovedAmount)
	assert.Equal(t, "missing referral", claims[1].RejectionReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimAdapter_TransitionStatus(t *testing.T) {
	t.Run("updates the claim when the stored status matches", func(t *testing.T) {
		adapter, mock := newClaimAdapter(t)

		mock.ExpectExec(`UPDATE "insurance_claims"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		now := time.Now()
		claim := pendingClaim(now)
		claim.Status = entities.ClaimStatusVetted
		claim.VettedAt = &now
		claim.VettedBy = "officer-1"

		err := adapter.TransitionStatus(context.Background(), claim, entities.ClaimStatusPendingVetting)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a state conflict when the claim moved on", func(t *testing.T) {
		adapter, mock := newClaimAdapter(t)

		mock.ExpectExec(`UPDATE "insurance_claims"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		claim := pendingClaim(time.Now())
		claim.Status = entities.ClaimStatusVetted

		err := adapter.TransitionStatus(context.Background(), claim, entities.ClaimStatusPendingVetting)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStateConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClaimAdapter_SumPaidInWindow(t *testing.T) {
	adapter, mock := newClaimAdapter(t)

	mock.ExpectQuery(`SELECT COALESCE`).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(12500.50))

	now := time.Now()
	sum, err := adapter.SumPaidInWindow(context.Background(), now.AddDate(0, -6, 0), now)

	assert.NoError(t, err)
	assert.Equal(t, 12500.50, sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}
