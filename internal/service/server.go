package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/celerhost/panel/internal/domain"
	"github.com/celerhost/panel/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// recentActions is how many log entries a server detail carries.
const recentActions = 10

// ServerConfig holds the provisioning timings (simulated).
type ServerConfig struct {
	ProvisionDelay time.Duration
	RestartDelay   time.Duration
	StaleAfter     time.Duration
}

// ServerService manages the server registry and its action log.
type ServerService struct {
	db      repository.DB
	servers repository.ServerRepository
	actions repository.ServerActionRepository
	plans   repository.PlanRepository
	outbox  repository.OutboxRepository
	jobs    JobScheduler
	notify  Notifier
	cfg     ServerConfig
	logger  *slog.Logger
	ipGen   func() string
	now     func() time.Time
}

// NewServerService creates a new ServerService. notify may be nil.
func NewServerService(
	db repository.DB,
	servers repository.ServerRepository,
	actions repository.ServerActionRepository,
	plans repository.PlanRepository,
	outbox repository.OutboxRepository,
	jobs JobScheduler,
	notify Notifier,
	cfg ServerConfig,
	logger *slog.Logger,
) *ServerService {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &ServerService{
		db:      db,
		servers: servers,
		actions: actions,
		plans:   plans,
		outbox:  outbox,
		jobs:    jobs,
		notify:  notify,
		cfg:     cfg,
		logger:  logger,
		ipGen:   simulatedIP,
		now:     time.Now,
	}
}

// simulatedIP picks an address in 192.168.1.0/24.
func simulatedIP() string {
	return fmt.Sprintf("192.168.1.%d", 1+rand.IntN(254))
}

// CreateServerInput holds the create request fields.
type CreateServerInput struct {
	Name   string `json:"nombre"`
	Game   string `json:"juego"`
	PlanID int64  `json:"plan_id"`
}

// ServerList is a page of servers.
type ServerList struct {
	Servers        []domain.ServerDetail `json:"servers"`
	Total          int                   `json:"total"`
	Page           int                   `json:"page"`
	TotalPages     int                   `json:"totalPages"`
	SupportedGames []domain.GameInfo     `json:"supportedGames"`
}

// ServerView is a server with its recent action log.
type ServerView struct {
	domain.ServerDetail
	Actions []domain.ServerAction `json:"acciones"`
}

// ActionResult is the outcome of an accepted action.
type ActionResult struct {
	Message string              `json:"message"`
	Status  domain.ServerStatus `json:"estado"`
	Action  domain.ServerAction `json:"accion"`
}

// Create validates the request, persists the server as installing and
// schedules the job that brings it online.
func (s *ServerService) Create(ctx context.Context, caller domain.Caller, input CreateServerInput) (*domain.ServerDetail, error) {
	name, err := domain.RequireText("nombre", input.Name, domain.MaxServerNameLen)
	if err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	game, ok := domain.LookupGame(strings.TrimSpace(input.Game))
	if !ok {
		ids := make([]string, 0, 6)
		for _, g := range domain.SupportedGames() {
			ids = append(ids, string(g.ID))
		}
		return nil, domain.ErrValidation(fmt.Sprintf("juego must be one of: %s", strings.Join(ids, ", ")))
	}
	if input.PlanID <= 0 {
		return nil, domain.ErrValidation("plan_id is required")
	}

	plan, err := s.plans.FindByID(ctx, s.db, input.PlanID)
	if err != nil {
		return nil, domain.ErrInternal("find plan", err)
	}
	if plan == nil || !plan.Active {
		return nil, domain.ErrValidation(fmt.Sprintf("plan %d does not exist or is not available", input.PlanID))
	}

	server := domain.Server{
		ID:         uuid.New(),
		OwnerID:    caller.ID,
		PlanID:     plan.ID,
		Name:       name,
		Game:       game.ID,
		IP:         s.ipGen(),
		Port:       game.DefaultPort,
		Status:     domain.ServerInstalling,
		MaxPlayers: plan.PlayerSlots,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := s.servers.Create(ctx, tx, &server); err != nil {
		return nil, domain.ErrInternal("create server", err)
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewServerCreatedEvent(&server)); err != nil {
		return nil, domain.ErrInternal("write outbox", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("server created", "server_id", server.ID, "owner_id", caller.ID, "juego", server.Game)
	s.scheduleTransition(server.ID, server.OwnerID, domain.ServerInstalling, domain.ServerActive, s.cfg.ProvisionDelay)

	return &domain.ServerDetail{
		Server:        server,
		PlanName:      plan.Name,
		PlanRAMMB:     plan.RAMMB,
		OwnerUsername: caller.Username,
		GameInfo:      game,
	}, nil
}

// List returns a page of servers visible to the caller.
func (s *ServerService) List(ctx context.Context, caller domain.Caller, status string, page domain.Page) (*ServerList, error) {
	filter := domain.ServerFilter{OwnerID: caller.OwnerScope(), Page: page}
	if status != "" {
		filter.Status = domain.ServerStatus(status)
		if !filter.Status.Valid() {
			return nil, domain.ErrValidation(fmt.Sprintf("invalid estado %q", status))
		}
	}

	var (
		servers []domain.ServerDetail
		total   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		servers, err = s.servers.List(gctx, s.db, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.servers.Count(gctx, s.db, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domain.ErrInternal("list servers", err)
	}

	return &ServerList{
		Servers:        servers,
		Total:          total,
		Page:           page.Number,
		TotalPages:     page.TotalPages(total),
		SupportedGames: domain.SupportedGames(),
	}, nil
}

// Get returns a server and its latest actions. Servers the caller cannot
// access are reported as not found.
func (s *ServerService) Get(ctx context.Context, caller domain.Caller, id uuid.UUID) (*ServerView, error) {
	detail, err := s.find(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	actions, err := s.actions.ListRecent(ctx, s.db, id, recentActions)
	if err != nil {
		return nil, domain.ErrInternal("list actions", err)
	}
	return &ServerView{ServerDetail: *detail, Actions: actions}, nil
}

func (s *ServerService) find(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.ServerDetail, error) {
	detail, err := s.servers.FindByID(ctx, s.db, id, caller.OwnerScope())
	if err != nil {
		return nil, domain.ErrInternal("find server", err)
	}
	if detail == nil {
		return nil, domain.ErrNotFound("server", id.String())
	}
	return detail, nil
}

// PerformAction validates and applies an action. The log entry, the
// conditional status change and the outbox events commit together; a
// rejected action leaves no trace.
func (s *ServerService) PerformAction(ctx context.Context, caller domain.Caller, id uuid.UUID, action string) (*ActionResult, error) {
	detail, err := s.find(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	plan, err := domain.PlanServerAction(detail.Status, strings.TrimSpace(action))
	if err != nil {
		return nil, err
	}

	entry := domain.ServerAction{
		ID:       uuid.New(),
		ServerID: id,
		Action:   plan.Action,
		Status:   domain.ActionPending,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := s.actions.Insert(ctx, tx, &entry); err != nil {
		return nil, domain.ErrInternal("log action", err)
	}
	if plan.ChangesStatus() {
		ok, err := s.servers.TransitionStatus(ctx, tx, id, plan.From, plan.To)
		if err != nil {
			return nil, domain.ErrInternal("update server status", err)
		}
		if !ok {
			return nil, domain.ErrInvalidAction(fmt.Sprintf("server is no longer %s", plan.From))
		}
		if err := s.outbox.Insert(ctx, tx, domain.NewServerStatusChangedEvent(id, plan.From, plan.To)); err != nil {
			return nil, domain.ErrInternal("write outbox", err)
		}
	}
	if err := s.actions.Complete(ctx, tx, entry.ID, plan.Result); err != nil {
		return nil, domain.ErrInternal("complete action", err)
	}
	entry.Status = domain.ActionCompleted
	entry.Result = plan.Result

	if err := s.outbox.Insert(ctx, tx, domain.NewServerActionEvent(&entry)); err != nil {
		return nil, domain.ErrInternal("write outbox", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("server action", "server_id", id, "accion", plan.Action, "from", plan.From, "to", plan.To)
	s.notify.Notify(detail.OwnerID, EventServerAction, entry)
	if plan.ChangesStatus() {
		s.notify.Notify(detail.OwnerID, EventServerStatus, statusPayload(id, plan.To))
	}
	if plan.SettleTo != "" {
		s.scheduleTransition(id, detail.OwnerID, plan.To, plan.SettleTo, s.cfg.RestartDelay)
	}

	return &ActionResult{Message: plan.Result, Status: plan.To, Action: entry}, nil
}

// Delete removes a server and cancels its pending job.
func (s *ServerService) Delete(ctx context.Context, caller domain.Caller, id uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	ok, err := s.servers.Delete(ctx, tx, id, caller.OwnerScope())
	if err != nil {
		return domain.ErrInternal("delete server", err)
	}
	if !ok {
		return domain.ErrNotFound("server", id.String())
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewServerDeletedEvent(id, caller.ID)); err != nil {
		return domain.ErrInternal("write outbox", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.ErrInternal("commit tx", err)
	}

	s.jobs.Cancel(id)
	s.logger.Info("server deleted", "server_id", id, "by", caller.ID)
	return nil
}

// CancelJobs drops pending jobs for servers removed by a cascade.
func (s *ServerService) CancelJobs(ids []uuid.UUID) {
	for _, id := range ids {
		s.jobs.Cancel(id)
	}
}

// CompleteTransition applies a deferred status change only if the server is
// still in the expected state. Returns false when the server was deleted or
// has moved on.
func (s *ServerService) CompleteTransition(ctx context.Context, id, ownerID uuid.UUID, from, to domain.ServerStatus) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ok, err := s.servers.TransitionStatus(ctx, tx, id, from, to)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewServerStatusChangedEvent(id, from, to)); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}

	s.notify.Notify(ownerID, EventServerStatus, statusPayload(id, to))
	return true, nil
}

func (s *ServerService) scheduleTransition(id, ownerID uuid.UUID, from, to domain.ServerStatus, delay time.Duration) {
	err := s.jobs.Schedule(id, delay, func(ctx context.Context) {
		ok, err := s.CompleteTransition(ctx, id, ownerID, from, to)
		switch {
		case err != nil:
			s.logger.Error("provision transition failed", "server_id", id, "from", from, "to", to, "error", err)
		case !ok:
			s.logger.Info("provision transition skipped", "server_id", id, "from", from, "to", to)
		default:
			s.logger.Info("provision transition applied", "server_id", id, "from", from, "to", to)
		}
	})
	if err != nil {
		// the reconciler settles it once it goes stale
		s.logger.Warn("schedule provision job", "server_id", id, "error", err)
	}
}

// SettleStale moves servers stuck in installing or restarting to active when
// no job is pending for them.
func (s *ServerService) SettleStale(ctx context.Context) (int, error) {
	stale, err := s.servers.ListStale(ctx, s.db,
		[]domain.ServerStatus{domain.ServerInstalling, domain.ServerRestarting},
		s.now().Add(-s.cfg.StaleAfter))
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, srv := range stale {
		if s.jobs.Pending(srv.ID) {
			continue
		}
		ok, err := s.CompleteTransition(ctx, srv.ID, srv.OwnerID, srv.Status, domain.ServerActive)
		if err != nil {
			return settled, err
		}
		if ok {
			settled++
		}
	}
	return settled, nil
}

// Stats returns the admin server aggregate.
func (s *ServerService) Stats(ctx context.Context) (*domain.ServerStats, error) {
	stats, err := s.servers.Stats(ctx, s.db)
	if err != nil {
		return nil, domain.ErrInternal("server stats", err)
	}
	return stats, nil
}

func statusPayload(id uuid.UUID, status domain.ServerStatus) map[string]string {
	return map[string]string{"id": id.String(), "estado": string(status)}
}
