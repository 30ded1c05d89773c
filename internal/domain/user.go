package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access tier of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a usuarios row.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Caller is the identity resolved from a verified bearer token.
type Caller struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
}

// CallerFromUser builds the request identity for u.
func CallerFromUser(u *User) Caller {
	return Caller{ID: u.ID, Username: u.Username, Role: u.Role}
}

// IsAdmin reports whether the caller has the admin role.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CanAccess is the self-or-admin predicate for owned rows.
func (c Caller) CanAccess(ownerID uuid.UUID) bool {
	return c.IsAdmin() || (c.ID != uuid.Nil && c.ID == ownerID)
}

// OwnerScope returns the owner filter repositories apply for this caller:
// uuid.Nil (no restriction) for admins, the caller's own id otherwise.
func (c Caller) OwnerScope() uuid.UUID {
	if c.IsAdmin() {
		return uuid.Nil
	}
	return c.ID
}
