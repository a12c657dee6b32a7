package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/adapters/database"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	ruleRepo := database.NewRuleAdapter(pgClient)
	claimRepo := database.NewClaimAdapter(pgClient)
	paymentRepo := database.NewPaymentAdapter(pgClient)

	ctx := context.Background()
	db := pgClient.DB()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := db.ExecContext(ctx, `
			TRUNCATE TABLE
				claim_line_items,
				insurance_claims,
				cash_payments,
				coverage_exceptions,
				category_default_rules,
				tariff_mappings,
				item_catalog,
				insurance_plans,
				insurance_providers
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	// 1. Seed insurance providers and plans
	providerID := uuid.New().String()
	if _, err := db.ExecContext(ctx,
		"INSERT INTO insurance_providers (id, name, code) VALUES ($1, 'National Health Insurance Scheme', 'NHIS')",
		providerID); err != nil {
		log.Printf("Failed to create provider: %v", err)
	}

	planID := uuid.New().String()
	if _, err := db.ExecContext(ctx,
		`INSERT INTO insurance_plans
			(id, insurance_provider_id, name, plan_type, coverage_type, require_explicit_approval_for_new_items)
		VALUES ($1, $2, 'NHIS Standard', 'public', 'comprehensive', false)`,
		planID, providerID); err != nil {
		log.Printf("Failed to create plan: %v", err)
	}

	// 2. Seed category defaults
	defaults := map[entities.CoverageCategory]float64{
		entities.CategoryConsultation: 100,
		entities.CategoryDrug:         80,
		entities.CategoryLab:          70,
		entities.CategoryProcedure:    60,
		entities.CategoryWard:         50,
		entities.CategoryNursing:      90,
	}
	for category, percentage := range defaults {
		if _, err := ruleRepo.UpsertCategoryDefault(ctx, planID, category, percentage, 0); err != nil {
			log.Printf("Failed to create default for %s: %v", category, err)
		}
	}

	// 3. Seed item-level exceptions
	if _, err := ruleRepo.UpsertException(ctx, planID, entities.CategoryDrug, "D-ART80", repositories.ExceptionFields{
		ItemDescription:        "Artemether 80mg",
		CoverageType:           entities.CoverageTypePercentage,
		CoverageValue:          95,
		PatientCopayPercentage: 5,
		IsCovered:              true,
	}, nil); err != nil {
		log.Printf("Failed to create exception D-ART80: %v", err)
	}

	if _, err := ruleRepo.UpsertException(ctx, planID, entities.CategoryDrug, "D-COSM1", repositories.ExceptionFields{
		ItemDescription: "Cosmetic supplement",
		CoverageType:    entities.CoverageTypeNotCovered,
		IsCovered:       false,
		Notes:           "excluded from the public tariff",
	}, nil); err != nil {
		log.Printf("Failed to create exception D-COSM1: %v", err)
	}

	// 4. Seed the item catalog and tariff mappings
	catalog := []struct {
		code     string
		category string
		mapped   bool
	}{
		{"D-ART80", "drug", true},
		{"D-COSM1", "drug", false},
		{"L-FBC01", "lab", true},
		{"C-GOPD1", "consultation", true},
	}
	for _, item := range catalog {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO item_catalog (item_code, category) VALUES ($1, $2)",
			item.code, item.category); err != nil {
			log.Printf("Failed to create catalog item %s: %v", item.code, err)
		}
		if item.mapped {
			if _, err := db.ExecContext(ctx,
				"INSERT INTO tariff_mappings (item_code, category, tariff_code) VALUES ($1, $2, 'T-'||$1)",
				item.code, item.category); err != nil {
				log.Printf("Failed to create tariff mapping %s: %v", item.code, err)
			}
		}
	}

	// 5. Seed a claim in each of a few lifecycle states
	now := time.Now()
	vettedAt := now.Add(-48 * time.Hour)
	submittedAt := now.Add(-36 * time.Hour)
	approvedAt := now.Add(-24 * time.Hour)

	claims := []*entities.Claim{
		{
			ID:                  uuid.New().String(),
			PatientRef:          "patient-001",
			EncounterRef:        "encounter-001",
			InsuranceProviderID: providerID,
			InsurancePlanID:     planID,
			Status:              entities.ClaimStatusPendingVetting,
			ClaimedAmount:       190,
			CreatedBy:           "clerk-1",
			CreatedAt:           now.Add(-2 * time.Hour),
			UpdatedAt:           now.Add(-2 * time.Hour),
		},
		{
			ID:                  uuid.New().String(),
			PatientRef:          "patient-002",
			EncounterRef:        "encounter-002",
			InsuranceProviderID: providerID,
			InsurancePlanID:     planID,
			Status:              entities.ClaimStatusApproved,
			ClaimedAmount:       500,
			ApprovedAmount:      450,
			CreatedBy:           "clerk-1",
			VettedBy:            "officer-1",
			SubmittedBy:         "biller-1",
			RespondedBy:         "insurer-1",
			CreatedAt:           now.Add(-72 * time.Hour),
			VettedAt:            &vettedAt,
			SubmittedAt:         &submittedAt,
			ApprovedAt:          &approvedAt,
			UpdatedAt:           approvedAt,
		},
	}

	for _, claim := range claims {
		claim.LineItems = []*entities.ClaimLineItem{{
			ID:             uuid.New().String(),
			ClaimID:        claim.ID,
			Category:       entities.CategoryDrug,
			ItemCode:       "D-ART80",
			BilledAmount:   claim.ClaimedAmount,
			CoveredAmount:  claim.ClaimedAmount,
			CoverageSource: entities.SourceException,
			CreatedAt:      claim.CreatedAt,
		}}
		if err := claimRepo.Create(ctx, claim); err != nil {
			log.Printf("Failed to create claim for %s: %v", claim.PatientRef, err)
		}
	}

	// 6. Seed cash payments for the revenue mix report
	for i, amount := range []float64{120.50, 85, 240} {
		payment := &entities.CashPayment{
			ID:         uuid.New().String(),
			PatientRef: "patient-cash",
			Amount:     amount,
			PaidAt:     now.Add(-time.Duration(i*24) * time.Hour),
			CreatedAt:  now,
		}
		if err := paymentRepo.Create(ctx, payment); err != nil {
			log.Printf("Failed to create cash payment: %v", err)
		}
	}

	log.Println("Seeding complete")
}
