package handler

import (
	"context"

	"github.com/celerhost/panel/internal/domain"
	"github.com/celerhost/panel/internal/service"
	"github.com/google/uuid"
)

// The handlers depend on these rather than on the concrete services so they
// can be exercised with fakes.

type authService interface {
	Register(ctx context.Context, input service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, input service.LoginInput, ip string) (*service.AuthResult, error)
	Verify(ctx context.Context, token string) (*service.VerifyResult, error)
}

type planService interface {
	ListActive(ctx context.Context) ([]domain.Plan, error)
	Get(ctx context.Context, id int64) (*domain.Plan, error)
}

type serverService interface {
	Create(ctx context.Context, caller domain.Caller, input service.CreateServerInput) (*domain.ServerDetail, error)
	List(ctx context.Context, caller domain.Caller, status string, page domain.Page) (*service.ServerList, error)
	Get(ctx context.Context, caller domain.Caller, id uuid.UUID) (*service.ServerView, error)
	PerformAction(ctx context.Context, caller domain.Caller, id uuid.UUID, action string) (*service.ActionResult, error)
	Delete(ctx context.Context, caller domain.Caller, id uuid.UUID) error
}

type ticketService interface {
	Create(ctx context.Context, caller domain.Caller, input service.CreateTicketInput) (*domain.Ticket, error)
	List(ctx context.Context, caller domain.Caller, status, category string, page domain.Page) (*service.TicketList, error)
	Get(ctx context.Context, caller domain.Caller, id uuid.UUID) (*service.TicketView, error)
	Reply(ctx context.Context, caller domain.Caller, id uuid.UUID, message string) (*service.ReplyResult, error)
	SetStatus(ctx context.Context, caller domain.Caller, id uuid.UUID, status string) (*domain.Ticket, error)
}
