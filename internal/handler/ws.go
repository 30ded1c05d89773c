package handler

import (
	"net/http"

	"github.com/google/uuid"
)

type liveHub interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID, isAdmin bool)
}

// LiveHandler handles GET /ws. The caller joins their own room; admins also
// join the admin room.
func LiveHandler(hub liveHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerOrFail(w, r)
		if !ok {
			return
		}
		hub.ServeWS(w, r, caller.ID, caller.IsAdmin())
	}
}
