package service

import (
	"context"

	"github.com/celerhost/panel/internal/domain"
	"github.com/celerhost/panel/internal/projection"
	"github.com/celerhost/panel/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Overview is the admin dashboard aggregate.
type Overview struct {
	TotalUsers    int `json:"totalUsuarios"`
	TotalPlans    int `json:"totalPlanes"`
	TotalServers  int `json:"totalServidores"`
	ActiveServers int `json:"servidoresActivos"`
	OpenTickets   int `json:"ticketsAbiertos"`
}

// ReportService computes admin aggregates.
type ReportService struct {
	db      repository.DBTX
	users   repository.UserRepository
	plans   repository.PlanRepository
	servers repository.ServerRepository
	tickets repository.TicketRepository
	cache   *projection.Cache
}

// NewReportService creates a new ReportService.
func NewReportService(
	db repository.DBTX,
	users repository.UserRepository,
	plans repository.PlanRepository,
	servers repository.ServerRepository,
	tickets repository.TicketRepository,
) *ReportService {
	return &ReportService{db: db, users: users, plans: plans, servers: servers, tickets: tickets}
}

// WithCache serves Overview from c until its entry expires.
func (s *ReportService) WithCache(c *projection.Cache) *ReportService {
	s.cache = c
	return s
}

// Overview returns the dashboard aggregate, cached when a cache is set.
func (s *ReportService) Overview(ctx context.Context) (*Overview, error) {
	if s.cache == nil {
		return s.loadOverview(ctx)
	}
	return projection.ReadThrough(ctx, s.cache, projection.KeyAdminOverview, s.loadOverview)
}

// loadOverview runs the four aggregate queries concurrently.
func (s *ReportService) loadOverview(ctx context.Context) (*Overview, error) {
	var (
		out         Overview
		serverStats *domain.ServerStats
		ticketStats *domain.TicketStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.TotalUsers, err = s.users.Count(gctx, s.db)
		return err
	})
	g.Go(func() error {
		var err error
		out.TotalPlans, err = s.plans.Count(gctx, s.db)
		return err
	})
	g.Go(func() error {
		var err error
		serverStats, err = s.servers.Stats(gctx, s.db)
		return err
	})
	g.Go(func() error {
		var err error
		ticketStats, err = s.tickets.Stats(gctx, s.db)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domain.ErrInternal("admin overview", err)
	}

	out.TotalServers = serverStats.Total
	out.ActiveServers = countFor(serverStats.ByStatus, string(domain.ServerActive))
	out.OpenTickets = countFor(ticketStats.ByStatus, string(domain.TicketOpen))
	return &out, nil
}

func countFor(counts []domain.StatusCount, status string) int {
	for _, c := range counts {
		if c.Status == status {
			return c.Count
		}
	}
	return 0
}
