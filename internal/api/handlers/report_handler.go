package handlers

import (
	"net/http"

	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/application/services"
)

// ReportHandler handles the read-only report endpoints
type ReportHandler struct {
	reportingService *services.ReportingService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportingService *services.ReportingService) *ReportHandler {
	return &ReportHandler{reportingService: reportingService}
}

// parseReportFilter reads the uniform date_from/date_to/provider_id query
// parameters
func parseReportFilter(r *http.Request) (services.ReportFilter, bool, string) {
	filter := services.ReportFilter{
		ProviderID: r.URL.Query().Get("provider_id"),
	}

	var err error
	if filter.DateFrom, err = parseDateParam(r, "date_from"); err != nil {
		return filter, false, "date_from must be YYYY-MM-DD"
	}
	if filter.DateTo, err = parseDateParam(r, "date_to"); err != nil {
		return filter, false, "date_to must be YYYY-MM-DD"
	}
	return filter, true, ""
}

// GetClaimsSummary handles GET /api/reports/claims-summary
func (h *ReportHandler) GetClaimsSummary(w http.ResponseWriter, r *http.Request) {
	filter, ok, msg := parseReportFilter(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}

	report, err := h.reportingService.ClaimsSummary(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// GetOutstandingAging handles GET /api/reports/outstanding-aging
func (h *ReportHandler) GetOutstandingAging(w http.ResponseWriter, r *http.Request) {
	filter, ok, msg := parseReportFilter(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}

	report, err := h.reportingService.OutstandingAging(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// GetRejectionAnalysis handles GET /api/reports/rejection-analysis
func (h *ReportHandler) GetRejectionAnalysis(w http.ResponseWriter, r *http.Request) {
	filter, ok, msg := parseReportFilter(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}

	report, err := h.reportingService.RejectionAnalysis(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// GetRevenueAnalysis handles GET /api/reports/revenue-analysis
func (h *ReportHandler) GetRevenueAnalysis(w http.ResponseWriter, r *http.Request) {
	filter, ok, msg := parseReportFilter(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}

	report, err := h.reportingService.RevenueAnalysis(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// GetTariffCoverage handles GET /api/reports/tariff-coverage
func (h *ReportHandler) GetTariffCoverage(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportingService.TariffCoverage(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// GetVettingPerformance handles GET /api/reports/vetting-performance
func (h *ReportHandler) GetVettingPerformance(w http.ResponseWriter, r *http.Request) {
	filter, ok, msg := parseReportFilter(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}

	report, err := h.reportingService.VettingPerformance(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}
