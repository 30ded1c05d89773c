package admin

import (
	"net/http"

	"github.com/celerhost/panel/internal/domain"
	"github.com/celerhost/panel/internal/handler"
)

// PlanAdminHandler handles the plan catalog administration.
type PlanAdminHandler struct {
	plans planService
}

// NewPlanAdminHandler creates a new PlanAdminHandler.
func NewPlanAdminHandler(plans planService) *PlanAdminHandler {
	return &PlanAdminHandler{plans: plans}
}

// ListPlans handles GET /admin/plans, inactive plans included.
func (h *PlanAdminHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.ListAll(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, plans)
}

// CreatePlan handles POST /admin/plans.
func (h *PlanAdminHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var input domain.PlanInput
	if !handler.DecodeOrFail(w, r, &input) {
		return
	}

	plan, err := h.plans.Create(r.Context(), input)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusCreated, plan)
}

// UpdatePlan handles PUT /admin/plans/{id}.
func (h *PlanAdminHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := handler.PlanIDParam(w, r)
	if !ok {
		return
	}
	var input domain.PlanInput
	if !handler.DecodeOrFail(w, r, &input) {
		return
	}

	plan, err := h.plans.Update(r.Context(), id, input)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, plan)
}

// DeletePlan handles DELETE /admin/plans/{id}. Plans are deactivated, not
// removed, since servers keep referencing them.
func (h *PlanAdminHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := handler.PlanIDParam(w, r)
	if !ok {
		return
	}

	if err := h.plans.Deactivate(r.Context(), id); err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]string{"message": "plan deactivated"})
}
