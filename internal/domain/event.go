package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventUserRegistered      EventType = "user.registered"
	EventUserPromoted        EventType = "user.promoted"
	EventUserDeleted         EventType = "user.deleted"
	EventServerCreated       EventType = "server.created"
	EventServerStatusChanged EventType = "server.status_changed"
	EventServerActionLogged  EventType = "server.action_recorded"
	EventServerDeleted       EventType = "server.deleted"
	EventTicketCreated       EventType = "ticket.created"
	EventTicketReplied       EventType = "ticket.replied"
	EventTicketStatusChanged EventType = "ticket.status_changed"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateUser   AggregateType = "user"
	AggregateServer AggregateType = "server"
	AggregateTicket AggregateType = "ticket"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	SeqID         int64           `json:"-"`
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType AggregateType   `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     EventType       `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Topic returns the broker topic the event is published to.
func (d OutboxDraft) Topic(prefix string) string {
	return prefix + string(d.EventType)
}
