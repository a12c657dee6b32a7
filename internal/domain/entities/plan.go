package entities

import (
	"time"
)

// CoverageCategory is the closed set of service categories coverage rules
// apply to.
type CoverageCategory string

const (
	CategoryConsultation CoverageCategory = "consultation"
	CategoryDrug         CoverageCategory = "drug"
	CategoryLab          CoverageCategory = "lab"
	CategoryProcedure    CoverageCategory = "procedure"
	CategoryWard         CoverageCategory = "ward"
	CategoryNursing      CoverageCategory = "nursing"
)

// AllCategories returns every valid coverage category
func AllCategories() []CoverageCategory {
	return []CoverageCategory{
		CategoryConsultation,
		CategoryDrug,
		CategoryLab,
		CategoryProcedure,
		CategoryWard,
		CategoryNursing,
	}
}

// IsValid reports whether c is one of the known categories
func (c CoverageCategory) IsValid() bool {
	switch c {
	case CategoryConsultation, CategoryDrug, CategoryLab,
		CategoryProcedure, CategoryWard, CategoryNursing:
		return true
	}
	return false
}

// InsurancePlan represents an insurance plan offered by a provider. Plans are
// never deleted, only deactivated.
type InsurancePlan struct {
	ID                                 string     `json:"id" db:"id"`
	InsuranceProviderID                string     `json:"insurance_provider_id" db:"insurance_provider_id"`
	Name                               string     `json:"name" db:"name"`
	PlanType                           string     `json:"plan_type" db:"plan_type"`
	CoverageType                       string     `json:"coverage_type" db:"coverage_type"`
	AnnualLimit                        *float64   `json:"annual_limit" db:"annual_limit"`
	VisitLimit                         *int       `json:"visit_limit" db:"visit_limit"`
	DefaultCopayPercentage             *float64   `json:"default_copay_percentage" db:"default_copay_percentage"`
	RequiresReferral                   bool       `json:"requires_referral" db:"requires_referral"`
	RequireExplicitApprovalForNewItems bool       `json:"require_explicit_approval_for_new_items" db:"require_explicit_approval_for_new_items"`
	IsActive                           bool       `json:"is_active" db:"is_active"`
	EffectiveFrom                      *time.Time `json:"effective_from" db:"effective_from"`
	EffectiveTo                        *time.Time `json:"effective_to" db:"effective_to"`
	CreatedAt                          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt                          time.Time  `json:"updated_at" db:"updated_at"`
}

// InsuranceProvider represents an insurance company the hospital bills
type InsuranceProvider struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Code      string    `json:"code" db:"code"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
