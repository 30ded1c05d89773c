package repository

import (
	"context"
	"errors"
	"time"

	"github.com/celerhost/panel/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// DB is a DBTX that can open transactions. *pgxpool.Pool satisfies it.
type DB interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate key")

// UserRepository provides access to usuarios.
type UserRepository interface {
	// FindByID returns a user by ID, or nil when absent.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error)

	// FindByEmail returns a user by email, or nil when absent.
	FindByEmail(ctx context.Context, db DBTX, email string) (*domain.User, error)

	// ExistsByUsernameOrEmail reports whether either value is taken.
	ExistsByUsernameOrEmail(ctx context.Context, db DBTX, username, email string) (bool, error)

	// Create inserts a new user. Returns ErrDuplicate on a unique violation.
	Create(ctx context.Context, db DBTX, user *domain.User) error

	// List returns users ordered by created_at DESC.
	List(ctx context.Context, db DBTX, page domain.Page) ([]domain.User, error)

	// Count returns the number of users.
	Count(ctx context.Context, db DBTX) (int, error)

	// UpdateRole sets the role. Returns false when the user does not exist.
	UpdateRole(ctx context.Context, db DBTX, id uuid.UUID, role domain.Role) (bool, error)

	// Delete removes the user; servers and tickets cascade.
	Delete(ctx context.Context, db DBTX, id uuid.UUID) (bool, error)
}

// PlanRepository provides access to planes.
type PlanRepository interface {
	// FindByID returns a plan, or nil when absent.
	FindByID(ctx context.Context, db DBTX, id int64) (*domain.Plan, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the plan, or nil.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Plan, error)

	// List returns plans ordered by price; inactive plans only when includeInactive.
	List(ctx context.Context, db DBTX, includeInactive bool) ([]domain.Plan, error)

	// Create inserts a plan and sets its ID.
	Create(ctx context.Context, db DBTX, plan *domain.Plan) error

	// Update overwrites a plan. Returns false when absent.
	Update(ctx context.Context, db DBTX, plan *domain.Plan) (bool, error)

	// SetActive toggles the activo flag. Returns false when absent.
	SetActive(ctx context.Context, db DBTX, id int64, active bool) (bool, error)

	// Count returns the number of plans.
	Count(ctx context.Context, db DBTX) (int, error)
}

// ServerRepository provides access to servidores.
type ServerRepository interface {
	// Create inserts a new server.
	Create(ctx context.Context, db DBTX, server *domain.Server) error

	// FindByID returns a server joined with plan and owner. A non-nil owner
	// restricts the lookup to that owner's rows.
	FindByID(ctx context.Context, db DBTX, id, owner uuid.UUID) (*domain.ServerDetail, error)

	// List returns servers matching the filter, newest first.
	List(ctx context.Context, db DBTX, filter domain.ServerFilter) ([]domain.ServerDetail, error)

	// Count returns the number of servers matching the filter's scope and status.
	Count(ctx context.Context, db DBTX, filter domain.ServerFilter) (int, error)

	// TransitionStatus sets estado = to only where estado = from.
	// Returns false when no row matched.
	TransitionStatus(ctx context.Context, db DBTX, id uuid.UUID, from, to domain.ServerStatus) (bool, error)

	// Delete removes a server. A non-nil owner restricts the delete to that owner.
	Delete(ctx context.Context, db DBTX, id, owner uuid.UUID) (bool, error)

	// ListIDsByOwner returns the ids of a user's servers.
	ListIDsByOwner(ctx context.Context, db DBTX, owner uuid.UUID) ([]uuid.UUID, error)

	// ListStale returns servers in one of statuses not updated since before.
	ListStale(ctx context.Context, db DBTX, statuses []domain.ServerStatus, before time.Time) ([]domain.Server, error)

	// Stats returns per-status counts, the total and the RAM of active servers.
	Stats(ctx context.Context, db DBTX) (*domain.ServerStats, error)
}

// ServerActionRepository provides access to server_actions.
type ServerActionRepository interface {
	// Insert appends a pending entry.
	Insert(ctx context.Context, db DBTX, action *domain.ServerAction) error

	// Complete flips a pending entry to completed with a result.
	Complete(ctx context.Context, db DBTX, id uuid.UUID, result string) error

	// ListRecent returns the newest entries for a server.
	ListRecent(ctx context.Context, db DBTX, serverID uuid.UUID, limit int) ([]domain.ServerAction, error)
}

// TicketRepository provides access to tickets and ticket_respuestas.
type TicketRepository interface {
	// Create inserts a ticket.
	Create(ctx context.Context, db DBTX, ticket *domain.Ticket) error

	// FindByID returns a ticket with owner details. A non-nil owner restricts
	// the lookup to that owner's rows.
	FindByID(ctx context.Context, db DBTX, id, owner uuid.UUID) (*domain.Ticket, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the ticket.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id, owner uuid.UUID) (*domain.Ticket, error)

	// List returns tickets matching the filter, newest first.
	List(ctx context.Context, db DBTX, filter domain.TicketFilter) ([]domain.Ticket, error)

	// Count returns the number of tickets matching the filter.
	Count(ctx context.Context, db DBTX, filter domain.TicketFilter) (int, error)

	// SetStatus writes estado and bumps updated_at. Returns false when absent.
	SetStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.TicketStatus) (bool, error)

	// Touch bumps updated_at.
	Touch(ctx context.Context, db DBTX, id uuid.UUID) error

	// InsertReply appends a reply.
	InsertReply(ctx context.Context, db DBTX, reply *domain.TicketReply) error

	// ListReplies returns replies oldest first with author details.
	ListReplies(ctx context.Context, db DBTX, ticketID uuid.UUID) ([]domain.TicketReply, error)

	// Stats returns per-status counts, the total and the number created today.
	Stats(ctx context.Context, db DBTX) (*domain.TicketStats, error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event within the caller's transaction.
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns the oldest events for the relay.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxDraft, error)

	// MarkPublished deletes published events.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}

// LoginAttemptRepository provides access to login_attempts.
type LoginAttemptRepository interface {
	// Record inserts an attempt.
	Record(ctx context.Context, db DBTX, email, ip string, success bool) error

	// CountFailures returns failed attempts for email since the given time.
	CountFailures(ctx context.Context, db DBTX, email string, since time.Time) (int, error)
}
