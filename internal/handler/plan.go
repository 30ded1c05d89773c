package handler

import (
	"net/http"
	"strconv"

	"github.com/celerhost/panel/internal/domain"
	"github.com/go-chi/chi/v5"
)

// PlanHandler serves the public plan catalog.
type PlanHandler struct {
	plans planService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(plans planService) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// List handles GET /plans.
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.ListActive(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, plans)
}

// Get handles GET /plans/{id}.
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := PlanIDParam(w, r)
	if !ok {
		return
	}
	plan, err := h.plans.Get(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, plan)
}

// PlanIDParam parses the {id} URL parameter of plan routes.
func PlanIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		RespondError(w, domain.ErrNotFound("plan", raw))
		return 0, false
	}
	return id, true
}
