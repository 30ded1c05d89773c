package handler

import (
	"net/http"

	"github.com/celerhost/panel/internal/auth"
	"github.com/celerhost/panel/internal/domain"
	"github.com/celerhost/panel/internal/service"
)

// AuthHandler handles registration, login and token verification.
type AuthHandler struct {
	authSvc authService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc authService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if !DecodeOrFail(w, r, &input) {
		return
	}

	result, err := h.authSvc.Register(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, result)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if !DecodeOrFail(w, r, &input) {
		return
	}

	result, err := h.authSvc.Login(r.Context(), input, ClientIP(r))
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

// Verify handles GET /auth/verify. Any failure answers {valid:false} with 401.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token, err := auth.TokenFromRequest(r, false)
	if err != nil {
		RespondJSON(w, http.StatusUnauthorized, service.VerifyResult{Valid: false})
		return
	}

	result, err := h.authSvc.Verify(r.Context(), token)
	if err != nil {
		if appErr, ok := domain.AsAppError(err); !ok || appErr.Status >= http.StatusInternalServerError {
			RespondError(w, err)
			return
		}
		RespondJSON(w, http.StatusUnauthorized, service.VerifyResult{Valid: false})
		return
	}

	RespondJSON(w, http.StatusOK, result)
}
