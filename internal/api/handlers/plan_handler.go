package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/repositories"
)

// PlanHandler handles insurance plan and provider administration requests
type PlanHandler struct {
	planRepo repositories.PlanRepository
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(planRepo repositories.PlanRepository) *PlanHandler {
	return &PlanHandler{planRepo: planRepo}
}

// ListPlans handles GET /api/plans
func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	filter := repositories.PlanFilter{
		ProviderID: r.URL.Query().Get("provider_id"),
		Limit:      100,
	}
	if active := r.URL.Query().Get("active"); active != "" {
		isActive := active == "true"
		filter.IsActive = &isActive
	}

	plans, err := h.planRepo.List(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"plans": plans,
		"count": len(plans),
	})
}

// GetPlan handles GET /api/plans/{plan_id}
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("plan_id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "plan ID is required")
		return
	}

	plan, err := h.planRepo.GetByID(r.Context(), id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, plan)
}

// UpdatePlan handles PATCH /api/plans/{plan_id}
func (h *PlanHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("plan_id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "plan ID is required")
		return
	}

	plan, err := h.planRepo.GetByID(r.Context(), id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	// Decode onto the stored plan so omitted fields keep their values
	if err := json.NewDecoder(r.Body).Decode(plan); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	plan.ID = id

	if err := h.planRepo.Update(r.Context(), plan); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, plan)
}

// DeactivatePlan handles DELETE /api/plans/{plan_id}. Plans are soft-deleted
// only.
func (h *PlanHandler) DeactivatePlan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("plan_id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "plan ID is required")
		return
	}

	if err := h.planRepo.Deactivate(r.Context(), id); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// ListProviders handles GET /api/insurance-providers
func (h *PlanHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.planRepo.ListProviders(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"providers": providers,
		"count":     len(providers),
	})
}
