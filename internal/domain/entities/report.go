package entities

// Report payloads are derived read-only views; they have no lifecycle of
// their own and are recomputed from claim and rule state at query time.

// AgingBucketKeys are the outstanding-claim age groupings, in display order
var AgingBucketKeys = []string{"0-30", "31-60", "61-90", "90+"}

// StatusBreakdown is the count and claimed amount for one claim status
type StatusBreakdown struct {
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

// ProviderClaimTotals aggregates claim amounts for one insurance provider
type ProviderClaimTotals struct {
	ProviderID    string  `json:"provider_id"`
	ProviderName  string  `json:"provider_name"`
	ClaimCount    int     `json:"claim_count"`
	TotalClaimed  float64 `json:"total_claimed"`
	TotalApproved float64 `json:"total_approved"`
	TotalPaid     float64 `json:"total_paid"`
}

// ClaimsSummary is the aggregate view of claims in a window
type ClaimsSummary struct {
	TotalClaims         int                             `json:"total_claims"`
	TotalClaimedAmount  float64                         `json:"total_claimed_amount"`
	TotalApprovedAmount float64                         `json:"total_approved_amount"`
	TotalPaidAmount     float64                         `json:"total_paid_amount"`
	OutstandingAmount   float64                         `json:"outstanding_amount"`
	StatusBreakdown     map[ClaimStatus]StatusBreakdown `json:"status_breakdown"`
	ByProvider          []ProviderClaimTotals           `json:"by_provider"`
}

// AgingBucket is the count and outstanding amount in one age range
type AgingBucket struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// ProviderAging summarizes outstanding claims for one provider
type ProviderAging struct {
	ProviderID      string  `json:"provider_id"`
	ProviderName    string  `json:"provider_name"`
	Count           int     `json:"count"`
	Amount          float64 `json:"amount"`
	OldestClaimDays int     `json:"oldest_claim_days"`
}

// OutstandingAging groups unpaid approved claims by days since approval
type OutstandingAging struct {
	TotalOutstanding float64                `json:"total_outstanding"`
	TotalClaims      int                    `json:"total_claims"`
	Aging            map[string]AgingBucket `json:"aging_analysis"`
	ByProvider       []ProviderAging        `json:"by_provider"`
}

// RejectionReasonCount aggregates rejected claims under a normalized reason
type RejectionReasonCount struct {
	Reason      string  `json:"reason"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

// ProviderRejection aggregates rejected claims for one provider
type ProviderRejection struct {
	ProviderID   string  `json:"provider_id"`
	ProviderName string  `json:"provider_name"`
	Count        int     `json:"count"`
	TotalAmount  float64 `json:"total_amount"`
}

// MonthlyRejectionPoint is one month of the rejection trend
type MonthlyRejectionPoint struct {
	Month         string  `json:"month"`
	Rejected      int     `json:"rejected"`
	Total         int     `json:"total"`
	RejectionRate float64 `json:"rejection_rate"`
}

// RejectionAnalysis is the aggregate view of rejected claims
type RejectionAnalysis struct {
	TotalRejected        int                     `json:"total_rejected"`
	TotalRejectedAmount  float64                 `json:"total_rejected_amount"`
	RejectionReasons     []RejectionReasonCount  `json:"rejection_reasons"`
	RejectionsByProvider []ProviderRejection     `json:"rejections_by_provider"`
	MonthlyTrend         []MonthlyRejectionPoint `json:"monthly_trend"`
}

// MonthlyRevenuePoint is one month of the revenue trend
type MonthlyRevenuePoint struct {
	Month     string  `json:"month"`
	Insurance float64 `json:"insurance"`
	Cash      float64 `json:"cash"`
	Total     float64 `json:"total"`
}

// RevenueAnalysis splits settled revenue between insurance and cash
type RevenueAnalysis struct {
	InsuranceRevenue    float64               `json:"insurance_revenue"`
	CashRevenue         float64               `json:"cash_revenue"`
	TotalRevenue        float64               `json:"total_revenue"`
	InsurancePercentage float64               `json:"insurance_percentage"`
	CashPercentage      float64               `json:"cash_percentage"`
	MonthlyTrend        []MonthlyRevenuePoint `json:"monthly_trend"`
}

// CategoryTariffCoverage counts catalog items with and without a tariff
// mapping in one category
type CategoryTariffCoverage struct {
	Category   CoverageCategory `json:"category"`
	Total      int              `json:"total"`
	Mapped     int              `json:"mapped"`
	Unmapped   int              `json:"unmapped"`
	Percentage float64          `json:"percentage"`
}

// TariffCoverageSummary is the per-category mapping coverage plus an overall
// rollup
type TariffCoverageSummary struct {
	Categories []CategoryTariffCoverage `json:"categories"`
	Overall    CategoryTariffCoverage   `json:"overall"`
}

// OfficerPerformance summarizes one vetting officer's throughput
type OfficerPerformance struct {
	OfficerID             string  `json:"officer_id"`
	OfficerName           string  `json:"officer_name"`
	ClaimsVetted          int     `json:"claims_vetted"`
	AvgTurnaroundHours    float64 `json:"avg_turnaround_hours"`
	ApprovedForSubmission int     `json:"approved_for_submission"`
	RejectedAtVetting     int     `json:"rejected_at_vetting"`
}

// VettingPerformance is the aggregate view of vetting turnaround
type VettingPerformance struct {
	TotalClaimsVetted  int                  `json:"total_claims_vetted"`
	AvgTurnaroundHours float64              `json:"avg_turnaround_hours"`
	Officers           []OfficerPerformance `json:"officers_performance"`
}
