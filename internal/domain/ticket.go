package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TicketStatus is the state of a support ticket: open -> in_progress -> closed,
// with closed -> open allowed to admins.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketClosed     TicketStatus = "closed"
)

// Valid reports whether s is one of the three ticket states.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketClosed:
		return true
	}
	return false
}

// ParseTicketStatus fails with INVALID_STATE for values outside the three states.
func ParseTicketStatus(s string) (TicketStatus, error) {
	st := TicketStatus(s)
	if !st.Valid() {
		return "", ErrInvalidState(fmt.Sprintf("invalid ticket status %q", s))
	}
	return st, nil
}

// CheckReplyAllowed rejects replies on closed tickets, for every role.
func CheckReplyAllowed(s TicketStatus) error {
	if s == TicketClosed {
		return ErrTicketClosed()
	}
	return nil
}

// StatusAfterReply returns the status a ticket moves to after a reply.
// Only the first admin reply to an open ticket advances it.
func StatusAfterReply(current TicketStatus, byAdmin bool) TicketStatus {
	if byAdmin && current == TicketOpen {
		return TicketInProgress
	}
	return current
}

// TicketCategory groups tickets for triage.
type TicketCategory string

const (
	CategoryGeneral   TicketCategory = "general"
	CategoryTechnical TicketCategory = "technical"
	CategoryBilling   TicketCategory = "billing"
)

// TicketPriority orders triage.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "baja"
	PriorityMedium TicketPriority = "media"
	PriorityHigh   TicketPriority = "alta"
)

// ParseCategory defaults empty input to general.
func ParseCategory(s string) (TicketCategory, error) {
	switch c := TicketCategory(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CategoryGeneral, nil
	case CategoryGeneral, CategoryTechnical, CategoryBilling:
		return c, nil
	}
	return "", fmt.Errorf("invalid categoria %q: allowed general, technical, billing", s)
}

// ParsePriority defaults empty input to media.
func ParsePriority(s string) (TicketPriority, error) {
	switch p := TicketPriority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("invalid prioridad %q: allowed baja, media, alta", s)
}

// Ticket represents a tickets row.
type Ticket struct {
	ID            uuid.UUID      `json:"id"`
	OwnerID       uuid.UUID      `json:"usuario_id"`
	Subject       string         `json:"asunto"`
	Message       string         `json:"mensaje"`
	Category      TicketCategory `json:"categoria"`
	Priority      TicketPriority `json:"prioridad"`
	Status        TicketStatus   `json:"estado"`
	OwnerUsername string         `json:"username,omitempty"`
	OwnerEmail    string         `json:"email,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TicketReply represents a ticket_respuestas row.
type TicketReply struct {
	ID             uuid.UUID `json:"id"`
	TicketID       uuid.UUID `json:"ticket_id"`
	AuthorID       uuid.UUID `json:"usuario_id"`
	Message        string    `json:"mensaje"`
	ByAdmin        bool      `json:"es_admin"`
	AuthorUsername string    `json:"username,omitempty"`
	AuthorRole     Role      `json:"role,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TicketFilter scopes ticket listings.
type TicketFilter struct {
	OwnerID  uuid.UUID // uuid.Nil = all owners
	Status   TicketStatus
	Category TicketCategory
	Page
}

// TicketStats is the admin aggregate for tickets.
type TicketStats struct {
	ByStatus []StatusCount `json:"porEstado"`
	Total    int           `json:"total"`
	Today    int           `json:"hoy"`
}
