package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/providers"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/repositories"
)

// ReportFilter is the uniform filter accepted by every report. Nil dates are
// open-ended; an empty provider means all providers.
type ReportFilter struct {
	DateFrom   *time.Time
	DateTo     *time.Time
	ProviderID string
}

// ReportingService computes the derived read-only views over claim history
// and rule-store mapping counts. Results are memoized for a short TTL keyed
// on the filter; a report may be stale by at most that window.
type ReportingService struct {
	claimRepo   repositories.ClaimRepository
	planRepo    repositories.PlanRepository
	paymentRepo repositories.PaymentRepository
	ruleRepo    repositories.RuleRepository
	cache       providers.CacheProvider
	cacheTTL    int
}

// NewReportingService creates a new reporting service
func NewReportingService(
	claimRepo repositories.ClaimRepository,
	planRepo repositories.PlanRepository,
	paymentRepo repositories.PaymentRepository,
	ruleRepo repositories.RuleRepository,
	cache providers.CacheProvider,
	cacheTTLSeconds int,
) *ReportingService {
	return &ReportingService{
		claimRepo:   claimRepo,
		planRepo:    planRepo,
		paymentRepo: paymentRepo,
		ruleRepo:    ruleRepo,
		cache:       cache,
		cacheTTL:    cacheTTLSeconds,
	}
}

func reportCacheKey(name string, filter ReportFilter) string {
	from, to := "-", "-"
	if filter.DateFrom != nil {
		from = filter.DateFrom.Format("2006-01-02")
	}
	if filter.DateTo != nil {
		to = filter.DateTo.Format("2006-01-02")
	}
	provider := filter.ProviderID
	if provider == "" {
		provider = "-"
	}
	return fmt.Sprintf("report:%s:%s:%s:%s", name, from, to, provider)
}

// getCached loads a memoized report into out, reporting whether it was found
func (s *ReportingService) getCached(ctx context.Context, key string, out interface{}) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (s *ReportingService) setCached(ctx context.Context, key string, report interface{}) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		log.Printf("Warning: Failed to cache report %s: %v", key, err)
	}
}

// providerNames maps provider IDs to display names for report rows
func (s *ReportingService) providerNames(ctx context.Context) (map[string]string, error) {
	providerList, err := s.planRepo.ListProviders(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(providerList))
	for _, p := range providerList {
		names[p.ID] = p.Name
	}
	return names, nil
}

// ClaimsSummary aggregates claims in the filter window by status and provider
func (s *ReportingService) ClaimsSummary(ctx context.Context, filter ReportFilter) (*entities.ClaimsSummary, error) {
	key := reportCacheKey("claims-summary", filter)
	var cached entities.ClaimsSummary
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	claims, err := s.claimRepo.List(ctx, repositories.ClaimFilter{
		DateFrom:   filter.DateFrom,
		DateTo:     filter.DateTo,
		ProviderID: filter.ProviderID,
	})
	if err != nil {
		return nil, err
	}
	names, err := s.providerNames(ctx)
	if err != nil {
		return nil, err
	}

	summary := &entities.ClaimsSummary{
		StatusBreakdown: make(map[entities.ClaimStatus]entities.StatusBreakdown),
	}
	byProvider := make(map[string]*entities.ProviderClaimTotals)

	for _, claim := range claims {
		summary.TotalClaims++
		summary.TotalClaimedAmount += claim.ClaimedAmount
		summary.TotalApprovedAmount += claim.ApprovedAmount
		summary.TotalPaidAmount += claim.PaidAmount
		if claim.IsOutstanding() {
			summary.OutstandingAmount += claim.OutstandingAmount()
		}

		breakdown := summary.StatusBreakdown[claim.Status]
		breakdown.Count++
		breakdown.TotalAmount += claim.ClaimedAmount
		summary.StatusBreakdown[claim.Status] = breakdown

		totals, ok := byProvider[claim.InsuranceProviderID]
		if !ok {
			totals = &entities.ProviderClaimTotals{
				ProviderID:   claim.InsuranceProviderID,
				ProviderName: names[claim.InsuranceProviderID],
			}
			byProvider[claim.InsuranceProviderID] = totals
		}
		totals.ClaimCount++
		totals.TotalClaimed += claim.ClaimedAmount
		totals.TotalApproved += claim.ApprovedAmount
		totals.TotalPaid += claim.PaidAmount
	}

	for _, totals := range byProvider {
		summary.ByProvider = append(summary.ByProvider, *totals)
	}
	sort.Slice(summary.ByProvider, func(i, j int) bool {
		return summary.ByProvider[i].TotalClaimed > summary.ByProvider[j].TotalClaimed
	})

	s.setCached(ctx, key, summary)
	return summary, nil
}

// OutstandingAging buckets unpaid approved claims by days since approval.
// Buckets partition the outstanding set: every outstanding claim lands in
// exactly one.
func (s *ReportingService) OutstandingAging(ctx context.Context, filter ReportFilter) (*entities.OutstandingAging, error) {
	key := reportCacheKey("outstanding-aging", filter)
	var cached entities.OutstandingAging
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	claims, err := s.claimRepo.List(ctx, repositories.ClaimFilter{
		ProviderID: filter.ProviderID,
		Statuses:   []entities.ClaimStatus{entities.ClaimStatusApproved, entities.ClaimStatusPartial},
	})
	if err != nil {
		return nil, err
	}
	names, err := s.providerNames(ctx)
	if err != nil {
		return nil, err
	}

	report := &entities.OutstandingAging{
		Aging: make(map[string]entities.AgingBucket, len(entities.AgingBucketKeys)),
	}
	for _, bucketKey := range entities.AgingBucketKeys {
		report.Aging[bucketKey] = entities.AgingBucket{}
	}
	byProvider := make(map[string]*entities.ProviderAging)
	now := time.Now()

	for _, claim := range claims {
		if !claim.IsOutstanding() || claim.ApprovedAt == nil {
			continue
		}
		outstanding := claim.OutstandingAmount()
		ageDays := int(now.Sub(*claim.ApprovedAt).Hours() / 24)

		report.TotalClaims++
		report.TotalOutstanding += outstanding

		bucketKey := agingBucketFor(ageDays)
		bucket := report.Aging[bucketKey]
		bucket.Count++
		bucket.Amount += outstanding
		report.Aging[bucketKey] = bucket

		aging, ok := byProvider[claim.InsuranceProviderID]
		if !ok {
			aging = &entities.ProviderAging{
				ProviderID:   claim.InsuranceProviderID,
				ProviderName: names[claim.InsuranceProviderID],
			}
			byProvider[claim.InsuranceProviderID] = aging
		}
		aging.Count++
		aging.Amount += outstanding
		if ageDays > aging.OldestClaimDays {
			aging.OldestClaimDays = ageDays
		}
	}

	for _, aging := range byProvider {
		report.ByProvider = append(report.ByProvider, *aging)
	}
	sort.Slice(report.ByProvider, func(i, j int) bool {
		return report.ByProvider[i].Amount > report.ByProvider[j].Amount
	})

	s.setCached(ctx, key, report)
	return report, nil
}

func agingBucketFor(ageDays int) string {
	switch {
	case ageDays <= 30:
		return "0-30"
	case ageDays <= 60:
		return "31-60"
	case ageDays <= 90:
		return "61-90"
	default:
		return "90+"
	}
}

// RejectionAnalysis groups rejected claims by normalized reason and provider,
// with a six-month rejection-rate trend
func (s *ReportingService) RejectionAnalysis(ctx context.Context, filter ReportFilter) (*entities.RejectionAnalysis, error) {
	key := reportCacheKey("rejection-analysis", filter)
	var cached entities.RejectionAnalysis
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	claims, err := s.claimRepo.List(ctx, repositories.ClaimFilter{
		DateFrom:   filter.DateFrom,
		DateTo:     filter.DateTo,
		ProviderID: filter.ProviderID,
		Statuses:   []entities.ClaimStatus{entities.ClaimStatusRejected},
	})
	if err != nil {
		return nil, err
	}
	names, err := s.providerNames(ctx)
	if err != nil {
		return nil, err
	}

	report := &entities.RejectionAnalysis{}
	byReason := make(map[string]*entities.RejectionReasonCount)
	byProvider := make(map[string]*entities.ProviderRejection)

	for _, claim := range claims {
		report.TotalRejected++
		report.TotalRejectedAmount += claim.ClaimedAmount

		reason := normalizeReason(claim.RejectionReason)
		reasonCount, ok := byReason[reason]
		if !ok {
			reasonCount = &entities.RejectionReasonCount{Reason: reason}
			byReason[reason] = reasonCount
		}
		reasonCount.Count++
		reasonCount.TotalAmount += claim.ClaimedAmount

		rejection, ok := byProvider[claim.InsuranceProviderID]
		if !ok {
			rejection = &entities.ProviderRejection{
				ProviderID:   claim.InsuranceProviderID,
				ProviderName: names[claim.InsuranceProviderID],
			}
			byProvider[claim.InsuranceProviderID] = rejection
		}
		rejection.Count++
		rejection.TotalAmount += claim.ClaimedAmount
	}

	for _, reasonCount := range byReason {
		report.RejectionReasons = append(report.RejectionReasons, *reasonCount)
	}
	sort.Slice(report.RejectionReasons, func(i, j int) bool {
		if report.RejectionReasons[i].Count != report.RejectionReasons[j].Count {
			return report.RejectionReasons[i].Count > report.RejectionReasons[j].Count
		}
		return report.RejectionReasons[i].Reason < report.RejectionReasons[j].Reason
	})
	for _, rejection := range byProvider {
		report.RejectionsByProvider = append(report.RejectionsByProvider, *rejection)
	}
	sort.Slice(report.RejectionsByProvider, func(i, j int) bool {
		return report.RejectionsByProvider[i].Count > report.RejectionsByProvider[j].Count
	})

	trend, err := s.rejectionTrend(ctx, filter.ProviderID)
	if err != nil {
		return nil, err
	}
	report.MonthlyTrend = trend

	s.setCached(ctx, key, report)
	return report, nil
}

// normalizeReason folds reason text so case and whitespace variants group
// together
func normalizeReason(reason string) string {
	return strings.ToLower(strings.TrimSpace(reason))
}

// rejectionTrend computes the rejection rate per month over the last six
// calendar months, newest last
func (s *ReportingService) rejectionTrend(ctx context.Context, providerID string) ([]entities.MonthlyRejectionPoint, error) {
	now := time.Now()
	points := make([]entities.MonthlyRejectionPoint, 0, 6)

	for offset := 5; offset >= 0; offset-- {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -offset, 0)
		monthEnd := monthStart.AddDate(0, 1, 0)

		total, err := s.claimRepo.CountInWindow(ctx, monthStart, monthEnd, providerID, nil)
		if err != nil {
			return nil, err
		}
		rejected, err := s.claimRepo.CountInWindow(ctx, monthStart, monthEnd, providerID,
			[]entities.ClaimStatus{entities.ClaimStatusRejected})
		if err != nil {
			return nil, err
		}

		point := entities.MonthlyRejectionPoint{
			Month:    monthStart.Format("2006-01"),
			Rejected: rejected,
			Total:    total,
		}
		if total > 0 {
			point.RejectionRate = round2(float64(rejected) / float64(total) * 100)
		}
		points = append(points, point)
	}
	return points, nil
}

// RevenueAnalysis splits settled revenue between insurance payouts and cash
// payments over the filter window, with a six-month trend
func (s *ReportingService) RevenueAnalysis(ctx context.Context, filter ReportFilter) (*entities.RevenueAnalysis, error) {
	key := reportCacheKey("revenue-analysis", filter)
	var cached entities.RevenueAnalysis
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	from, to := settlementWindow(filter)
	insurance, err := s.claimRepo.SumPaidInWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}
	cash, err := s.paymentRepo.SumCashInWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}

	report := &entities.RevenueAnalysis{
		InsuranceRevenue: insurance,
		CashRevenue:      cash,
		TotalRevenue:     insurance + cash,
	}
	if report.TotalRevenue > 0 {
		report.InsurancePercentage = round2(insurance / report.TotalRevenue * 100)
		report.CashPercentage = round2(cash / report.TotalRevenue * 100)
	}

	now := time.Now()
	for offset := 5; offset >= 0; offset-- {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -offset, 0)
		monthEnd := monthStart.AddDate(0, 1, 0)

		monthInsurance, err := s.claimRepo.SumPaidInWindow(ctx, monthStart, monthEnd)
		if err != nil {
			return nil, err
		}
		monthCash, err := s.paymentRepo.SumCashInWindow(ctx, monthStart, monthEnd)
		if err != nil {
			return nil, err
		}
		report.MonthlyTrend = append(report.MonthlyTrend, entities.MonthlyRevenuePoint{
			Month:     monthStart.Format("2006-01"),
			Insurance: monthInsurance,
			Cash:      monthCash,
			Total:     monthInsurance + monthCash,
		})
	}

	s.setCached(ctx, key, report)
	return report, nil
}

// settlementWindow resolves the filter dates for settlement sums. Open bounds
// default to the last six calendar months, matching the trend horizon.
func settlementWindow(filter ReportFilter) (time.Time, time.Time) {
	now := time.Now()
	to := now
	if filter.DateTo != nil {
		to = *filter.DateTo
	}
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -5, 0)
	if filter.DateFrom != nil {
		from = *filter.DateFrom
	}
	return from, to
}

// TariffCoverage reports the share of catalog items with a tariff mapping,
// per category and overall
func (s *ReportingService) TariffCoverage(ctx context.Context) (*entities.TariffCoverageSummary, error) {
	key := reportCacheKey("tariff-coverage", ReportFilter{})
	var cached entities.TariffCoverageSummary
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	report := &entities.TariffCoverageSummary{}
	for _, category := range entities.AllCategories() {
		mapped, total, err := s.ruleRepo.CountMappedVsTotal(ctx, category)
		if err != nil {
			return nil, err
		}
		row := entities.CategoryTariffCoverage{
			Category: category,
			Total:    total,
			Mapped:   mapped,
			Unmapped: total - mapped,
		}
		if total > 0 {
			row.Percentage = round2(float64(mapped) / float64(total) * 100)
		}
		report.Categories = append(report.Categories, row)

		report.Overall.Total += total
		report.Overall.Mapped += mapped
		report.Overall.Unmapped += total - mapped
	}
	if report.Overall.Total > 0 {
		report.Overall.Percentage = round2(float64(report.Overall.Mapped) / float64(report.Overall.Total) * 100)
	}

	s.setCached(ctx, key, report)
	return report, nil
}

// VettingPerformance summarizes vetting turnaround per officer for claims
// created in the filter window
func (s *ReportingService) VettingPerformance(ctx context.Context, filter ReportFilter) (*entities.VettingPerformance, error) {
	key := reportCacheKey("vetting-performance", filter)
	var cached entities.VettingPerformance
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	claims, err := s.claimRepo.List(ctx, repositories.ClaimFilter{
		DateFrom:   filter.DateFrom,
		DateTo:     filter.DateTo,
		ProviderID: filter.ProviderID,
	})
	if err != nil {
		return nil, err
	}

	report := &entities.VettingPerformance{}
	byOfficer := make(map[string]*entities.OfficerPerformance)
	totalHours := 0.0
	officerHours := make(map[string]float64)

	for _, claim := range claims {
		if claim.VettedAt == nil {
			continue
		}
		turnaround := claim.VettedAt.Sub(claim.CreatedAt).Hours()

		report.TotalClaimsVetted++
		totalHours += turnaround

		officer, ok := byOfficer[claim.VettedBy]
		if !ok {
			officer = &entities.OfficerPerformance{
				OfficerID:   claim.VettedBy,
				OfficerName: claim.VettedBy,
			}
			byOfficer[claim.VettedBy] = officer
		}
		officer.ClaimsVetted++
		officerHours[claim.VettedBy] += turnaround
		if claim.SubmittedAt != nil {
			officer.ApprovedForSubmission++
		}
		if claim.Status == entities.ClaimStatusRejected {
			officer.RejectedAtVetting++
		}
	}

	if report.TotalClaimsVetted > 0 {
		report.AvgTurnaroundHours = round2(totalHours / float64(report.TotalClaimsVetted))
	}
	for id, officer := range byOfficer {
		if officer.ClaimsVetted > 0 {
			officer.AvgTurnaroundHours = round2(officerHours[id] / float64(officer.ClaimsVetted))
		}
		report.Officers = append(report.Officers, *officer)
	}
	sort.Slice(report.Officers, func(i, j int) bool {
		return report.Officers[i].ClaimsVetted > report.Officers[j].ClaimsVetted
	})

	s.setCached(ctx, key, report)
	return report, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
