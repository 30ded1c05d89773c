package admin

import (
	"net/http"

	"github.com/celerhost/panel/internal/handler"
)

// UserAdminHandler handles admin user management.
type UserAdminHandler struct {
	users userService
}

// NewUserAdminHandler creates a new UserAdminHandler.
func NewUserAdminHandler(users userService) *UserAdminHandler {
	return &UserAdminHandler{users: users}
}

// ListUsers handles GET /admin/users?page&limit.
func (h *UserAdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context(), handler.PageParams(r))
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, list)
}

// PromoteUser handles POST /admin/users/{id}/promote.
func (h *UserAdminHandler) PromoteUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := handler.CallerOrFail(w, r)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(w, r, "id", "user")
	if !ok {
		return
	}

	user, err := h.users.Promote(r.Context(), caller, id)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "user promoted to admin",
		"user":    user,
	})
}

// DeleteUser handles DELETE /admin/users/{id}.
func (h *UserAdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := handler.CallerOrFail(w, r)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(w, r, "id", "user")
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), caller, id); err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
