package handler

import (
	"net/http"

	"github.com/celerhost/panel/internal/service"
)

// ServerHandler handles the game server endpoints.
type ServerHandler struct {
	servers serverService
}

// NewServerHandler creates a new ServerHandler.
func NewServerHandler(servers serverService) *ServerHandler {
	return &ServerHandler{servers: servers}
}

// List handles GET /servers?page&limit&estado.
func (h *ServerHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerOrFail(w, r)
	if !ok {
		return
	}
	list, err := h.servers.List(r.Context(), caller, r.URL.Query().Get("estado"), PageParams(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, list)
}

// Create handles POST /servers.
func (h *ServerHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerOrFail(w, r)
	if !ok {
		return
	}
	var input service.CreateServerInput
	if !DecodeOrFail(w, r, &input) {
		return
	}

	srv, err := h.servers.Create(r.Context(), caller, input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "server is being provisioned",
		"server":  srv,
	})
}

// Get handles GET /servers/{id}.
func (h *ServerHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerOrFail(w, r)
	if !ok {
		return
	}
	id, ok := UUIDParam(w, r, "id", "server")
	if !ok {
		return
	}

	view, err := h.servers.Get(r.Context(), caller, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, view)
}

type actionRequest struct {
	Action string `json:"accion"`
}

// Action handles POST /servers/{id}/actions.
func (h *ServerHandler) Action(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerOrFail(w, r)
	if !ok {
		return
	}
	id, ok := UUIDParam(w, r, "id", "server")
	if !ok {
		return
	}
	var req actionRequest
	if !DecodeOrFail(w, r, &req) {
		return
	}

	res, err := h.servers.PerformAction(r.Context(), caller, id, req.Action)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, res)
}

// Delete handles DELETE /servers/{id}.
func (h *ServerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerOrFail(w, r)
	if !ok {
		return
	}
	id, ok := UUIDParam(w, r, "id", "server")
	if !ok {
		return
	}

	if err := h.servers.Delete(r.Context(), caller, id); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"message": "server deleted"})
}
