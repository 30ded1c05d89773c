package handler

import (
	"net/http"

	"github.com/celerhost/panel/internal/service"
)

// TicketHandler handles support ticket endpoints.
type TicketHandler struct {
	tickets ticketService
}

// NewTicketHandler creates a new TicketHandler.
func NewTicketHandler(tickets ticketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// List handles GET /tickets?page&limit&estado&categoria.
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerOrFail(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	list, err := h.tickets.List(r.Context(), caller, q.Get("estado"), q.Get("categoria"), PageParams(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, list)
}

// Create handles POST /tickets.
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerOrFail(w, r)
	if !ok {
		return
	}
	var input service.CreateTicketInput
	if !DecodeOrFail(w, r, &input) {
		return
	}

	ticket, err := h.tickets.Create(r.Context(), caller, input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, ticket)
}

// Get handles GET /tickets/{id}.
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerOrFail(w, r)
	if !ok {
		return
	}
	id, ok := UUIDParam(w, r, "id", "ticket")
	if !ok {
		return
	}

	view, err := h.tickets.Get(r.Context(), caller, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, view)
}

type replyRequest struct {
	Message string `json:"mensaje"`
}

// Reply handles POST /tickets/{id}/respuestas.
func (h *TicketHandler) Reply(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerOrFail(w, r)
	if !ok {
		return
	}
	id, ok := UUIDParam(w, r, "id", "ticket")
	if !ok {
		return
	}
	var req replyRequest
	if !DecodeOrFail(w, r, &req) {
		return
	}

	res, err := h.tickets.Reply(r.Context(), caller, id, req.Message)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, res)
}

type statusRequest struct {
	Status string `json:"estado"`
}

// SetStatus handles PUT /tickets/{id}/estado (admin only).
func (h *TicketHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerOrFail(w, r)
	if !ok {
		return
	}
	id, ok := UUIDParam(w, r, "id", "ticket")
	if !ok {
		return
	}
	var req statusRequest
	if !DecodeOrFail(w, r, &req) {
		return
	}

	ticket, err := h.tickets.SetStatus(r.Context(), caller, id, req.Status)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, ticket)
}
