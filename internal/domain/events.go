package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

func newDraft(agg AggregateType, id uuid.UUID, evt EventType, payload interface{}) OutboxDraft {
	raw, _ := json.Marshal(payload)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: agg,
		AggregateID:   id.String(),
		EventType:     evt,
		Payload:       raw,
		OccurredAt:    time.Now(),
	}
}

// NewUserRegisteredEvent records a new account.
func NewUserRegisteredEvent(u *User) OutboxDraft {
	return newDraft(AggregateUser, u.ID, EventUserRegistered, map[string]string{
		"user_id":  u.ID.String(),
		"username": u.Username,
		"email":    u.Email,
	})
}

// NewUserPromotedEvent records a role change to admin.
func NewUserPromotedEvent(userID, by uuid.UUID) OutboxDraft {
	return newDraft(AggregateUser, userID, EventUserPromoted, map[string]string{
		"user_id":     userID.String(),
		"promoted_by": by.String(),
	})
}

// NewUserDeletedEvent records an account removal and the servers it cascaded to.
func NewUserDeletedEvent(userID, by uuid.UUID, servers []uuid.UUID) OutboxDraft {
	return newDraft(AggregateUser, userID, EventUserDeleted, map[string]interface{}{
		"user_id":    userID.String(),
		"deleted_by": by.String(),
		"servers":    servers,
	})
}

// NewServerCreatedEvent records a provisioning request.
func NewServerCreatedEvent(s *Server) OutboxDraft {
	return newDraft(AggregateServer, s.ID, EventServerCreated, s)
}

// NewServerStatusChangedEvent records a status transition.
func NewServerStatusChangedEvent(serverID uuid.UUID, from, to ServerStatus) OutboxDraft {
	return newDraft(AggregateServer, serverID, EventServerStatusChanged, map[string]string{
		"server_id": serverID.String(),
		"from":      string(from),
		"to":        string(to),
	})
}

// NewServerActionEvent records a completed action-log entry.
func NewServerActionEvent(a *ServerAction) OutboxDraft {
	return newDraft(AggregateServer, a.ServerID, EventServerActionLogged, a)
}

// NewServerDeletedEvent records a server removal.
func NewServerDeletedEvent(serverID, by uuid.UUID) OutboxDraft {
	return newDraft(AggregateServer, serverID, EventServerDeleted, map[string]string{
		"server_id":  serverID.String(),
		"deleted_by": by.String(),
	})
}

// NewTicketCreatedEvent records a new support ticket.
func NewTicketCreatedEvent(t *Ticket) OutboxDraft {
	return newDraft(AggregateTicket, t.ID, EventTicketCreated, t)
}

// NewTicketRepliedEvent records a reply.
func NewTicketRepliedEvent(r *TicketReply) OutboxDraft {
	return newDraft(AggregateTicket, r.TicketID, EventTicketReplied, r)
}

// NewTicketStatusChangedEvent records a ticket transition.
func NewTicketStatusChangedEvent(ticketID uuid.UUID, from, to TicketStatus, by uuid.UUID) OutboxDraft {
	return newDraft(AggregateTicket, ticketID, EventTicketStatusChanged, map[string]string{
		"ticket_id":  ticketID.String(),
		"from":       string(from),
		"to":         string(to),
		"changed_by": by.String(),
	})
}
