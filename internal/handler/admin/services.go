// Package admin serves the /admin routes. Every route here sits behind
// auth.RequireRole(domain.RoleAdmin).
package admin

import (
	"context"

	"github.com/celerhost/panel/internal/domain"
	"github.com/celerhost/panel/internal/service"
	"github.com/google/uuid"
)

type userService interface {
	List(ctx context.Context, page domain.Page) (*service.UserList, error)
	Promote(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.User, error)
	Delete(ctx context.Context, caller domain.Caller, id uuid.UUID) error
}

type planService interface {
	ListAll(ctx context.Context) ([]domain.Plan, error)
	Create(ctx context.Context, input domain.PlanInput) (*domain.Plan, error)
	Update(ctx context.Context, id int64, input domain.PlanInput) (*domain.Plan, error)
	Deactivate(ctx context.Context, id int64) error
}

type reportService interface {
	Overview(ctx context.Context) (*service.Overview, error)
}

type serverStats interface {
	Stats(ctx context.Context) (*domain.ServerStats, error)
}

type ticketStats interface {
	Stats(ctx context.Context) (*domain.TicketStats, error)
}
