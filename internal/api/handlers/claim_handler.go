package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/application/services"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/repositories"
)

// ClaimHandler handles claim lifecycle requests
type ClaimHandler struct {
	claimService *services.ClaimService
}

// NewClaimHandler creates a new claim handler
func NewClaimHandler(claimService *services.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimService: claimService}
}

// CreateClaim handles POST /api/claims
func (h *ClaimHandler) CreateClaim(w http.ResponseWriter, r *http.Request) {
	var input services.CreateClaimInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claim, err := h.claimService.Create(r.Context(), input)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, claim)
}

// GetClaim handles GET /api/claims/{id}
func (h *ClaimHandler) GetClaim(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "claim ID is required")
		return
	}

	claim, err := h.claimService.GetByID(r.Context(), id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, claim)
}

// ListClaims handles GET /api/claims
func (h *ClaimHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ClaimFilter{
		ProviderID: r.URL.Query().Get("provider_id"),
		Limit:      100,
	}

	var parseErr error
	if filter.DateFrom, parseErr = parseDateParam(r, "date_from"); parseErr != nil {
		respondWithError(w, http.StatusBadRequest, "date_from must be YYYY-MM-DD")
		return
	}
	if filter.DateTo, parseErr = parseDateParam(r, "date_to"); parseErr != nil {
		respondWithError(w, http.StatusBadRequest, "date_to must be YYYY-MM-DD")
		return
	}
	if statuses := r.URL.Query().Get("status"); statuses != "" {
		for _, status := range strings.Split(statuses, ",") {
			filter.Statuses = append(filter.Statuses, entities.ClaimStatus(status))
		}
	}

	claims, err := h.claimService.List(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"claims": claims,
		"count":  len(claims),
	})
}

type transitionClaimRequest struct {
	FromStatus      string                     `json:"from_status"`
	ToStatus        string                     `json:"to_status"`
	Actor           entities.Actor             `json:"actor"`
	Payload         services.TransitionPayload `json:"payload"`
	ApprovedAmount  *float64                   `json:"approved_amount,omitempty"`
	PaidAmount      *float64                   `json:"paid_amount,omitempty"`
	RejectionReason string                     `json:"rejection_reason,omitempty"`
}

// TransitionClaim handles POST /api/claims/{id}/transition
func (h *ClaimHandler) TransitionClaim(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "claim ID is required")
		return
	}

	var req transitionClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Actor.ID == "" {
		respondWithError(w, http.StatusBadRequest, "actor is required")
		return
	}

	// Top-level amount fields are accepted as a convenience for callers not
	// nesting them under payload
	payload := req.Payload
	if payload.ApprovedAmount == nil {
		payload.ApprovedAmount = req.ApprovedAmount
	}
	if payload.PaidAmount == nil {
		payload.PaidAmount = req.PaidAmount
	}
	if payload.RejectionReason == "" {
		payload.RejectionReason = req.RejectionReason
	}

	claim, err := h.claimService.Transition(r.Context(), id,
		entities.ClaimStatus(req.FromStatus), entities.ClaimStatus(req.ToStatus), req.Actor, payload)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"id":        claim.ID,
		"new_state": claim.Status,
		"claim":     claim,
	})
}

func parseDateParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
