package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/celerhost/panel/internal/domain"
	"github.com/celerhost/panel/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxTicketMessage bounds ticket and reply bodies.
const maxTicketMessage = 5000

// TicketService manages support tickets and their replies.
type TicketService struct {
	db      repository.DB
	tickets repository.TicketRepository
	outbox  repository.OutboxRepository
	notify  Notifier
	logger  *slog.Logger
}

// NewTicketService creates a new TicketService. notify may be nil.
func NewTicketService(
	db repository.DB,
	tickets repository.TicketRepository,
	outbox repository.OutboxRepository,
	notify Notifier,
	logger *slog.Logger,
) *TicketService {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &TicketService{db: db, tickets: tickets, outbox: outbox, notify: notify, logger: logger}
}

// CreateTicketInput holds the create request fields.
type CreateTicketInput struct {
	Subject  string `json:"asunto"`
	Message  string `json:"mensaje"`
	Category string `json:"categoria"`
	Priority string `json:"prioridad"`
}

// TicketList is a page of tickets.
type TicketList struct {
	Tickets    []domain.Ticket `json:"tickets"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
}

// TicketView is a ticket with its conversation.
type TicketView struct {
	domain.Ticket
	Replies []domain.TicketReply `json:"respuestas"`
}

// ReplyResult is the outcome of a reply.
type ReplyResult struct {
	Reply  domain.TicketReply  `json:"respuesta"`
	Status domain.TicketStatus `json:"estado"`
}

// Create opens a ticket owned by the caller.
func (s *TicketService) Create(ctx context.Context, caller domain.Caller, input CreateTicketInput) (*domain.Ticket, error) {
	subject, err := domain.RequireText("asunto", input.Subject, domain.MaxSubjectLength)
	if err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	message, err := domain.RequireText("mensaje", input.Message, maxTicketMessage)
	if err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	category, err := domain.ParseCategory(input.Category)
	if err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	priority, err := domain.ParsePriority(input.Priority)
	if err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	ticket := domain.Ticket{
		ID:            uuid.New(),
		OwnerID:       caller.ID,
		Subject:       subject,
		Message:       message,
		Category:      category,
		Priority:      priority,
		Status:        domain.TicketOpen,
		OwnerUsername: caller.Username,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := s.tickets.Create(ctx, tx, &ticket); err != nil {
		return nil, domain.ErrInternal("create ticket", err)
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewTicketCreatedEvent(&ticket)); err != nil {
		return nil, domain.ErrInternal("write outbox", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("ticket created", "ticket_id", ticket.ID, "owner_id", caller.ID, "categoria", category)
	s.notify.Notify(ticket.OwnerID, EventTicketUpdate, ticketPayload(ticket.ID, ticket.Status))
	return &ticket, nil
}

// List returns a page of tickets visible to the caller.
func (s *TicketService) List(ctx context.Context, caller domain.Caller, status, category string, page domain.Page) (*TicketList, error) {
	filter := domain.TicketFilter{OwnerID: caller.OwnerScope(), Page: page}
	if status != "" {
		filter.Status = domain.TicketStatus(status)
		if !filter.Status.Valid() {
			return nil, domain.ErrValidation(fmt.Sprintf("invalid estado %q", status))
		}
	}
	if category != "" {
		c, err := domain.ParseCategory(category)
		if err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
		filter.Category = c
	}

	var (
		tickets []domain.Ticket
		total   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tickets, err = s.tickets.List(gctx, s.db, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.tickets.Count(gctx, s.db, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domain.ErrInternal("list tickets", err)
	}

	return &TicketList{
		Tickets:    tickets,
		Total:      total,
		Page:       page.Number,
		TotalPages: page.TotalPages(total),
	}, nil
}

// Get returns a ticket and its replies, oldest first.
func (s *TicketService) Get(ctx context.Context, caller domain.Caller, id uuid.UUID) (*TicketView, error) {
	ticket, err := s.tickets.FindByID(ctx, s.db, id, caller.OwnerScope())
	if err != nil {
		return nil, domain.ErrInternal("find ticket", err)
	}
	if ticket == nil {
		return nil, domain.ErrNotFound("ticket", id.String())
	}
	replies, err := s.tickets.ListReplies(ctx, s.db, id)
	if err != nil {
		return nil, domain.ErrInternal("list replies", err)
	}
	return &TicketView{Ticket: *ticket, Replies: replies}, nil
}

// Reply appends a message. The ticket row stays locked until commit so a
// concurrent close cannot interleave with the status check.
func (s *TicketService) Reply(ctx context.Context, caller domain.Caller, id uuid.UUID, message string) (*ReplyResult, error) {
	body, err := domain.RequireText("mensaje", message, maxTicketMessage)
	if err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	ticket, err := s.tickets.LockForUpdate(ctx, tx, id, caller.OwnerScope())
	if err != nil {
		return nil, domain.ErrInternal("lock ticket", err)
	}
	if ticket == nil {
		return nil, domain.ErrNotFound("ticket", id.String())
	}
	if err := domain.CheckReplyAllowed(ticket.Status); err != nil {
		return nil, err
	}

	reply := domain.TicketReply{
		ID:             uuid.New(),
		TicketID:       id,
		AuthorID:       caller.ID,
		Message:        body,
		ByAdmin:        caller.IsAdmin(),
		AuthorUsername: caller.Username,
		AuthorRole:     caller.Role,
	}
	if err := s.tickets.InsertReply(ctx, tx, &reply); err != nil {
		return nil, domain.ErrInternal("insert reply", err)
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewTicketRepliedEvent(&reply)); err != nil {
		return nil, domain.ErrInternal("write outbox", err)
	}

	next := domain.StatusAfterReply(ticket.Status, reply.ByAdmin)
	if next != ticket.Status {
		if _, err := s.tickets.SetStatus(ctx, tx, id, next); err != nil {
			return nil, domain.ErrInternal("update ticket status", err)
		}
		if err := s.outbox.Insert(ctx, tx, domain.NewTicketStatusChangedEvent(id, ticket.Status, next, caller.ID)); err != nil {
			return nil, domain.ErrInternal("write outbox", err)
		}
	} else if err := s.tickets.Touch(ctx, tx, id); err != nil {
		return nil, domain.ErrInternal("touch ticket", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.notify.Notify(ticket.OwnerID, EventTicketUpdate, ticketPayload(id, next))
	return &ReplyResult{Reply: reply, Status: next}, nil
}

// SetStatus moves a ticket to any of the three states. Admin only.
func (s *TicketService) SetStatus(ctx context.Context, caller domain.Caller, id uuid.UUID, status string) (*domain.Ticket, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden("only admins can change ticket status")
	}
	next, err := domain.ParseTicketStatus(status)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	ticket, err := s.tickets.LockForUpdate(ctx, tx, id, uuid.Nil)
	if err != nil {
		return nil, domain.ErrInternal("lock ticket", err)
	}
	if ticket == nil {
		return nil, domain.ErrNotFound("ticket", id.String())
	}

	prev := ticket.Status
	if _, err := s.tickets.SetStatus(ctx, tx, id, next); err != nil {
		return nil, domain.ErrInternal("update ticket status", err)
	}
	if prev != next {
		if err := s.outbox.Insert(ctx, tx, domain.NewTicketStatusChangedEvent(id, prev, next, caller.ID)); err != nil {
			return nil, domain.ErrInternal("write outbox", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	ticket.Status = next
	s.logger.Info("ticket status changed", "ticket_id", id, "from", prev, "to", next, "by", caller.ID)
	s.notify.Notify(ticket.OwnerID, EventTicketUpdate, ticketPayload(id, next))
	return ticket, nil
}

// Stats returns the admin ticket aggregate.
func (s *TicketService) Stats(ctx context.Context) (*domain.TicketStats, error) {
	stats, err := s.tickets.Stats(ctx, s.db)
	if err != nil {
		return nil, domain.ErrInternal("ticket stats", err)
	}
	return stats, nil
}

func ticketPayload(id uuid.UUID, status domain.TicketStatus) map[string]string {
	return map[string]string{"id": id.String(), "estado": string(status)}
}
