package admin

import (
	"net/http"

	"github.com/celerhost/panel/internal/handler"
)

// ReportsHandler handles admin dashboard aggregates.
type ReportsHandler struct {
	reports reportService
	servers serverStats
	tickets ticketStats
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(reports reportService, servers serverStats, tickets ticketStats) *ReportsHandler {
	return &ReportsHandler{reports: reports, servers: servers, tickets: tickets}
}

// GetDashboardStats handles GET /admin/stats.
func (h *ReportsHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	overview, err := h.reports.Overview(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, overview)
}

// GetServerStats handles GET /admin/servers/stats.
func (h *ReportsHandler) GetServerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.servers.Stats(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, stats)
}

// GetTicketStats handles GET /admin/tickets/stats.
func (h *ReportsHandler) GetTicketStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tickets.Stats(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, stats)
}
