package entities

import (
	"time"
)

// ClaimStatus is the state of a claim in its approval and payment lifecycle
type ClaimStatus string

const (
	ClaimStatusPendingVetting ClaimStatus = "pending_vetting"
	ClaimStatusVetted         ClaimStatus = "vetted"
	ClaimStatusSubmitted      ClaimStatus = "submitted"
	ClaimStatusApproved       ClaimStatus = "approved"
	ClaimStatusRejected       ClaimStatus = "rejected"
	ClaimStatusPaid           ClaimStatus = "paid"
	ClaimStatusPartial        ClaimStatus = "partial"
)

// IsTerminal reports whether no further transitions are defined for s
func (s ClaimStatus) IsTerminal() bool {
	return s == ClaimStatusRejected || s == ClaimStatusPaid
}

// ActorRole is the staff role required to perform a claim transition
type ActorRole string

const (
	RoleVettingOfficer  ActorRole = "vetting_officer"
	RoleBillingStaff    ActorRole = "billing_staff"
	RoleInsurerResponse ActorRole = "insurer_response"
	RoleFinance         ActorRole = "finance"
)

// Actor is the user performing a claim transition
type Actor struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Role ActorRole `json:"role"`
}

// Claim is a bill submitted to an insurer for a patient encounter. Claims are
// an immutable audit trail: they are never deleted and mutate only through
// guarded status transitions.
type Claim struct {
	ID                  string      `json:"id" db:"id"`
	PatientRef          string      `json:"patient_ref" db:"patient_ref"`
	EncounterRef        string      `json:"encounter_ref" db:"encounter_ref"`
	InsuranceProviderID string      `json:"insurance_provider_id" db:"insurance_provider_id"`
	InsurancePlanID     string      `json:"insurance_plan_id" db:"insurance_plan_id"`
	Status              ClaimStatus `json:"status" db:"status"`
	ClaimedAmount       float64     `json:"claimed_amount" db:"claimed_amount"`
	ApprovedAmount      float64     `json:"approved_amount" db:"approved_amount"`
	PaidAmount          float64     `json:"paid_amount" db:"paid_amount"`
	RejectionReason     string      `json:"rejection_reason" db:"rejection_reason"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	VettedAt    *time.Time `json:"vetted_at" db:"vetted_at"`
	SubmittedAt *time.Time `json:"submitted_at" db:"submitted_at"`
	ApprovedAt  *time.Time `json:"approved_at" db:"approved_at"`
	RejectedAt  *time.Time `json:"rejected_at" db:"rejected_at"`
	PaidAt      *time.Time `json:"paid_at" db:"paid_at"`

	CreatedBy   string `json:"created_by" db:"created_by"`
	VettedBy    string `json:"vetted_by" db:"vetted_by"`
	SubmittedBy string `json:"submitted_by" db:"submitted_by"`
	RespondedBy string `json:"responded_by" db:"responded_by"`
	PaidBy      string `json:"paid_by" db:"paid_by"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	LineItems []*ClaimLineItem `json:"line_items,omitempty" db:"-"`
}

// OutstandingAmount is the approved balance not yet settled by the insurer
func (c *Claim) OutstandingAmount() float64 {
	return c.ApprovedAmount - c.PaidAmount
}

// IsOutstanding reports whether the claim has an unsettled approved balance
func (c *Claim) IsOutstanding() bool {
	return (c.Status == ClaimStatusApproved || c.Status == ClaimStatusPartial) &&
		c.OutstandingAmount() > 0
}

// ClaimLineItem is one billed item on a claim, priced from a coverage
// decision at creation time.
type ClaimLineItem struct {
	ID             string           `json:"id" db:"id"`
	ClaimID        string           `json:"claim_id" db:"claim_id"`
	Category       CoverageCategory `json:"category" db:"category"`
	ItemCode       string           `json:"item_code" db:"item_code"`
	Description    string           `json:"description" db:"description"`
	BilledAmount   float64          `json:"billed_amount" db:"billed_amount"`
	CoveredAmount  float64          `json:"covered_amount" db:"covered_amount"`
	CoverageSource CoverageSource   `json:"coverage_source" db:"coverage_source"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}

// CashPayment is a settled non-insurance charge; these back the cash side of
// the revenue split report.
type CashPayment struct {
	ID         string    `json:"id" db:"id"`
	PatientRef string    `json:"patient_ref" db:"patient_ref"`
	Amount     float64   `json:"amount" db:"amount"`
	PaidAt     time.Time `json:"paid_at" db:"paid_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
