package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/application/services"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/Hospitalinsurancedesign/backend/pkg/errors"
)

// CoverageHandler handles coverage resolution and rule management requests
type CoverageHandler struct {
	coverageService *services.CoverageService
	importService   *services.ImportService
}

// NewCoverageHandler creates a new coverage handler
func NewCoverageHandler(coverageService *services.CoverageService, importService *services.ImportService) *CoverageHandler {
	return &CoverageHandler{
		coverageService: coverageService,
		importService:   importService,
	}
}

type resolveCoverageRequest struct {
	PlanID   string `json:"plan_id"`
	Category string `json:"category"`
	ItemCode string `json:"item_code"`
	AsOfDate string `json:"as_of_date,omitempty"`
}

// ResolveCoverage handles POST /api/coverage/resolve
func (h *CoverageHandler) ResolveCoverage(w http.ResponseWriter, r *http.Request) {
	var req resolveCoverageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PlanID == "" {
		respondWithError(w, http.StatusBadRequest, "plan_id is required")
		return
	}

	asOf := time.Now()
	if req.AsOfDate != "" {
		parsed, err := time.Parse("2006-01-02", req.AsOfDate)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "as_of_date must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	decision, err := h.coverageService.Resolve(r.Context(), req.PlanID, entities.CoverageCategory(req.Category), req.ItemCode, asOf)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, decision)
}

type setCategoryDefaultRequest struct {
	Percentage      float64 `json:"percentage"`
	ExpectedVersion int64   `json:"expected_version"`
}

// SetCategoryDefault handles PUT /api/plans/{plan_id}/categories/{category}/default
func (h *CoverageHandler) SetCategoryDefault(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("plan_id")
	category := entities.CoverageCategory(r.PathValue("category"))

	var req setCategoryDefaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := h.coverageService.SetCategoryDefault(r.Context(), planID, category, req.Percentage, req.ExpectedVersion)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"id":          rule.ID,
		"new_version": rule.Version,
	})
}

type upsertExceptionRequest struct {
	ItemCode               string     `json:"item_code"`
	ItemDescription        string     `json:"item_description"`
	CoverageType           string     `json:"coverage_type"`
	CoverageValue          float64    `json:"coverage_value"`
	PatientCopayPercentage float64    `json:"patient_copay_percentage"`
	IsCovered              bool       `json:"is_covered"`
	Notes                  string     `json:"notes"`
	EffectiveFrom          *time.Time `json:"effective_from"`
	EffectiveTo            *time.Time `json:"effective_to"`
	ExpectedVersion        *int64     `json:"expected_version,omitempty"`
}

// UpsertException handles POST /api/plans/{plan_id}/categories/{category}/exceptions
func (h *CoverageHandler) UpsertException(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("plan_id")
	category := entities.CoverageCategory(r.PathValue("category"))

	var req upsertExceptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := repositories.ExceptionFields{
		ItemDescription:        req.ItemDescription,
		CoverageType:           entities.CoverageType(req.CoverageType),
		CoverageValue:          req.CoverageValue,
		PatientCopayPercentage: req.PatientCopayPercentage,
		IsCovered:              req.IsCovered,
		Notes:                  req.Notes,
		EffectiveFrom:          req.EffectiveFrom,
		EffectiveTo:            req.EffectiveTo,
	}

	exception, err := h.coverageService.UpsertException(r.Context(), planID, category, req.ItemCode, fields, req.ExpectedVersion)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	status := http.StatusCreated
	if req.ExpectedVersion != nil {
		status = http.StatusOK
	}
	respondWithJSON(w, status, exception)
}

// ListExceptions handles GET /api/plans/{plan_id}/categories/{category}/exceptions
func (h *CoverageHandler) ListExceptions(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("plan_id")
	category := entities.CoverageCategory(r.PathValue("category"))

	exceptions, err := h.coverageService.ListExceptions(r.Context(), planID, category)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"exceptions": exceptions,
		"count":      len(exceptions),
	})
}

type importExceptionsRequest struct {
	Rows []services.ImportRow `json:"rows"`
}

// ImportExceptions handles POST /api/plans/{plan_id}/categories/{category}/exceptions/import
func (h *CoverageHandler) ImportExceptions(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("plan_id")
	category := entities.CoverageCategory(r.PathValue("category"))

	var req importExceptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.importService.ImportBatch(r.Context(), planID, category, req.Rows)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// Helper functions

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps the error taxonomy onto HTTP statuses. Unknown
// errors surface as 500 without leaking internals.
func respondWithAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Type {
	case apperrors.ErrorTypeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrorTypeValidation:
		status = http.StatusBadRequest
	case apperrors.ErrorTypeConflict, apperrors.ErrorTypeStateConflict:
		status = http.StatusConflict
	case apperrors.ErrorTypeInvalidTransition, apperrors.ErrorTypePendingConfiguration:
		status = http.StatusUnprocessableEntity
	case apperrors.ErrorTypeUnauthorized:
		status = http.StatusForbidden
	case apperrors.ErrorTypeInternal:
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	body := map[string]string{
		"error": appErr.Message,
		"type":  string(appErr.Type),
	}
	if appErr.Field != "" {
		body["field"] = appErr.Field
	}
	respondWithJSON(w, status, body)
}
