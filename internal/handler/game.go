package handler

import (
	"net/http"

	"github.com/celerhost/panel/internal/domain"
)

// ListGames handles GET /games.
func ListGames(w http.ResponseWriter, _ *http.Request) {
	RespondJSON(w, http.StatusOK, domain.SupportedGames())
}
