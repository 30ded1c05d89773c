package handler

import (
	"net/http"

	"github.com/celerhost/panel/internal/auth"
	"github.com/celerhost/panel/internal/domain"
)

// CallerOrFail returns the authenticated caller or writes a 401.
func CallerOrFail(w http.ResponseWriter, r *http.Request) (domain.Caller, bool) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		RespondError(w, domain.ErrUnauthorized("no auth context"))
	}
	return caller, ok
}
