package entities

import (
	"math"
	"time"
)

// CoverageType describes how an exception expresses its coverage
type CoverageType string

const (
	CoverageTypePercentage  CoverageType = "percentage"
	CoverageTypeFixedAmount CoverageType = "fixed_amount"
	CoverageTypeNotCovered  CoverageType = "not_covered"
)

// IsValid reports whether t is a known coverage type
func (t CoverageType) IsValid() bool {
	switch t {
	case CoverageTypePercentage, CoverageTypeFixedAmount, CoverageTypeNotCovered:
		return true
	}
	return false
}

// CategoryDefaultRule is the plan-wide coverage percentage for a category.
// At most one rule exists per (plan, category); Version supports optimistic
// concurrency on edits.
type CategoryDefaultRule struct {
	ID                string           `json:"id" db:"id"`
	InsurancePlanID   string           `json:"insurance_plan_id" db:"insurance_plan_id"`
	Category          CoverageCategory `json:"category" db:"category"`
	DefaultPercentage float64          `json:"default_percentage" db:"default_percentage"`
	Version           int64            `json:"version" db:"version"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}

// CoverageException is an item-specific override of coverage for a given
// plan/category/item. No two active exceptions for the same key may have
// overlapping effective windows.
type CoverageException struct {
	ID                     string           `json:"id" db:"id"`
	InsurancePlanID        string           `json:"insurance_plan_id" db:"insurance_plan_id"`
	Category               CoverageCategory `json:"category" db:"category"`
	ItemCode               string           `json:"item_code" db:"item_code"`
	ItemDescription        string           `json:"item_description" db:"item_description"`
	CoverageType           CoverageType     `json:"coverage_type" db:"coverage_type"`
	CoverageValue          float64          `json:"coverage_value" db:"coverage_value"`
	PatientCopayPercentage float64          `json:"patient_copay_percentage" db:"patient_copay_percentage"`
	IsCovered              bool             `json:"is_covered" db:"is_covered"`
	Notes                  string           `json:"notes" db:"notes"`
	EffectiveFrom          *time.Time       `json:"effective_from" db:"effective_from"`
	EffectiveTo            *time.Time       `json:"effective_to" db:"effective_to"`
	IsActive               bool             `json:"is_active" db:"is_active"`
	Version                int64            `json:"version" db:"version"`
	CreatedAt              time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at" db:"updated_at"`
}

// StartOfDay truncates t to midnight UTC. Effective windows and resolution
// dates carry calendar-day granularity, whatever time of day is stored.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ActiveOn reports whether the exception is in effect on the given date.
// effective_from counts from the start of its day and effective_to through
// the end of its day; an open bound always matches.
func (e *CoverageException) ActiveOn(date time.Time) bool {
	if !e.IsActive {
		return false
	}
	day := StartOfDay(date)
	if e.EffectiveFrom != nil && StartOfDay(*e.EffectiveFrom).After(day) {
		return false
	}
	if e.EffectiveTo != nil && StartOfDay(*e.EffectiveTo).Before(day) {
		return false
	}
	return true
}

// OverlapsWindow reports whether the exception's effective window overlaps
// [from, to] at day granularity; nil bounds are open-ended.
func (e *CoverageException) OverlapsWindow(from, to *time.Time) bool {
	if e.EffectiveTo != nil && from != nil && StartOfDay(*e.EffectiveTo).Before(StartOfDay(*from)) {
		return false
	}
	if e.EffectiveFrom != nil && to != nil && StartOfDay(*e.EffectiveFrom).After(StartOfDay(*to)) {
		return false
	}
	return true
}

// CoverageSource identifies which rule level produced a decision
type CoverageSource string

const (
	SourceException       CoverageSource = "exception"
	SourceCategoryDefault CoverageSource = "category_default"
	SourceUnconfigured    CoverageSource = "unconfigured"
)

// CoverageDecision is the result of resolving coverage for one item
type CoverageDecision struct {
	CoveragePercentage float64        `json:"coverage_percentage"`
	PatientShare       float64        `json:"patient_share"`
	Source             CoverageSource `json:"source"`
	FullyExcluded      bool           `json:"fully_excluded"`
	RuleID             string         `json:"rule_id,omitempty"`
}

// Apply splits a billed amount into the insurer-covered and patient portions,
// rounded to two decimal places.
func (d CoverageDecision) Apply(billedAmount float64) (covered, patient float64) {
	covered = roundMoney(billedAmount * d.CoveragePercentage / 100)
	patient = roundMoney(billedAmount - covered)
	return covered, patient
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
