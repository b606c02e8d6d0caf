package api

import (
	"net/http"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// PlanHandler serves AI-generated time plans.
type PlanHandler struct {
	planService service.PlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// RequestPlan handles POST /plans. Generation runs in the background; the
// response carries the pending plan.
func (h *PlanHandler) RequestPlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	plan, err := h.planService.RequestPlan(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to request time plan")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, newPlanResponse(plan))
}

// GetLatestPlan handles GET /plans/latest.
func (h *PlanHandler) GetLatestPlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	plan, err := h.planService.GetLatestPlan(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve time plan")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newPlanResponse(plan))
}
