package service

import (
	"context"
	"log/slog"

	"github.com/celerhost/panel/internal/domain"
	"github.com/celerhost/panel/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// UserService covers admin user management.
type UserService struct {
	db      repository.DB
	users   repository.UserRepository
	servers repository.ServerRepository
	outbox  repository.OutboxRepository
	jobs    JobScheduler
	logger  *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	db repository.DB,
	users repository.UserRepository,
	servers repository.ServerRepository,
	outbox repository.OutboxRepository,
	jobs JobScheduler,
	logger *slog.Logger,
) *UserService {
	return &UserService{db: db, users: users, servers: servers, outbox: outbox, jobs: jobs, logger: logger}
}

// UserList is a page of users.
type UserList struct {
	Users      []domain.User `json:"users"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
}

// List returns users newest first.
func (s *UserService) List(ctx context.Context, page domain.Page) (*UserList, error) {
	var (
		users []domain.User
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.users.List(gctx, s.db, page)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.users.Count(gctx, s.db)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domain.ErrInternal("list users", err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return &UserList{Users: users, Total: total, Page: page.Number, TotalPages: page.TotalPages(total)}, nil
}

// Promote grants the admin role.
func (s *UserService) Promote(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.User, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	user, err := s.users.FindByID(ctx, tx, id)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user", id.String())
	}
	if user.Role == domain.RoleAdmin {
		return user, nil
	}

	if _, err := s.users.UpdateRole(ctx, tx, id, domain.RoleAdmin); err != nil {
		return nil, domain.ErrInternal("update role", err)
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewUserPromotedEvent(id, caller.ID)); err != nil {
		return nil, domain.ErrInternal("write outbox", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	user.Role = domain.RoleAdmin
	s.logger.Info("user promoted", "user_id", id, "by", caller.ID)
	return user, nil
}

// Delete removes a user with their servers and tickets, cancelling any
// pending provisioning job for those servers.
func (s *UserService) Delete(ctx context.Context, caller domain.Caller, id uuid.UUID) error {
	if id == caller.ID {
		return domain.ErrValidation("cannot delete your own account")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	serverIDs, err := s.servers.ListIDsByOwner(ctx, tx, id)
	if err != nil {
		return domain.ErrInternal("list servers", err)
	}
	ok, err := s.users.Delete(ctx, tx, id)
	if err != nil {
		return domain.ErrInternal("delete user", err)
	}
	if !ok {
		return domain.ErrNotFound("user", id.String())
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewUserDeletedEvent(id, caller.ID, serverIDs)); err != nil {
		return domain.ErrInternal("write outbox", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.ErrInternal("commit tx", err)
	}

	for _, sid := range serverIDs {
		s.jobs.Cancel(sid)
	}
	s.logger.Info("user deleted", "user_id", id, "by", caller.ID, "servers", len(serverIDs))
	return nil
}
