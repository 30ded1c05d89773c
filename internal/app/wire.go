// Package app assembles services and the HTTP router from their dependencies.
package app

import (
	"log/slog"

	"github.com/celerhost/panel/internal/auth"
	"github.com/celerhost/panel/internal/domain"
	"github.com/celerhost/panel/internal/guard"
	"github.com/celerhost/panel/internal/handler"
	adminhandler "github.com/celerhost/panel/internal/handler/admin"
	"github.com/celerhost/panel/internal/infra"
	"github.com/celerhost/panel/internal/projection"
	"github.com/celerhost/panel/internal/provision"
	"github.com/celerhost/panel/internal/repository"
	"github.com/celerhost/panel/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RouterDeps holds all dependencies needed by NewServices and NewRouter.
type RouterDeps struct {
	Pool   *pgxpool.Pool
	JWTMgr *auth.JWTManager
	Logger *slog.Logger
	Config *infra.Config

	// Jobs runs deferred provisioning transitions.
	Jobs *provision.Queue
	// Hub pushes live updates; nil disables GET /ws.
	Hub *infra.WSHub
	// LoginLimiter throttles /auth/login and /auth/register per client IP.
	// nil falls back to an in-process limiter built from Config.
	LoginLimiter guard.Limiter
	// Projections backs the dashboard cache. nil uses process memory.
	Projections projection.Store
}

// Services is the assembled service layer.
type Services struct {
	Auth    *service.AuthService
	Plans   *service.PlanService
	Servers *service.ServerService
	Tickets *service.TicketService
	Users   *service.UserService
	Reports *service.ReportService
}

// NewServices builds repositories and services on the pool.
func NewServices(deps RouterDeps) *Services {
	pool := deps.Pool
	logger := deps.Logger
	cfg := deps.Config

	// Repositories
	userRepo := repository.NewUserRepository()
	planRepo := repository.NewPlanRepository()
	serverRepo := repository.NewServerRepository()
	actionRepo := repository.NewServerActionRepository()
	ticketRepo := repository.NewTicketRepository()
	outboxRepo := repository.NewOutboxRepository()
	attemptRepo := repository.NewLoginAttemptRepository()

	var notifier service.Notifier
	if deps.Hub != nil {
		notifier = deps.Hub
	}

	lockout := guard.NewLockout(pool, attemptRepo, logger)

	reports := service.NewReportService(pool, userRepo, planRepo, serverRepo, ticketRepo)
	if cfg.ReportCacheTTL > 0 {
		store := deps.Projections
		if store == nil {
			store = projection.NewInMemoryStore()
		}
		reports.WithCache(projection.NewCache(store, cfg.ReportCacheTTL, logger))
	}

	return &Services{
		Auth:  service.NewAuthService(pool, userRepo, outboxRepo, deps.JWTMgr, lockout, logger),
		Plans: service.NewPlanService(pool, planRepo, logger),
		Servers: service.NewServerService(pool, serverRepo, actionRepo, planRepo, outboxRepo, deps.Jobs, notifier,
			service.ServerConfig{
				ProvisionDelay: cfg.ProvisionDelay,
				RestartDelay:   cfg.RestartDelay,
				StaleAfter:     cfg.StaleAfter,
			}, logger),
		Tickets: service.NewTicketService(pool, ticketRepo, outboxRepo, notifier, logger),
		Users:   service.NewUserService(pool, userRepo, serverRepo, outboxRepo, deps.Jobs, logger),
		Reports: reports,
	}
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps, svc *Services) chi.Router {
	logger := deps.Logger
	jwtMgr := deps.JWTMgr
	cfg := deps.Config

	limiter := deps.LoginLimiter
	if limiter == nil {
		limiter = guard.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
	}

	// Handlers
	authHandler := handler.NewAuthHandler(svc.Auth)
	planHandler := handler.NewPlanHandler(svc.Plans)
	serverHandler := handler.NewServerHandler(svc.Servers)
	ticketHandler := handler.NewTicketHandler(svc.Tickets)

	// Admin handlers
	userAdmin := adminhandler.NewUserAdminHandler(svc.Users)
	planAdmin := adminhandler.NewPlanAdminHandler(svc.Plans)
	reportsAdmin := adminhandler.NewReportsHandler(svc.Reports, svc.Servers, svc.Tickets)

	authenticate := auth.Authenticate(jwtMgr, svc.Auth)
	requireAdmin := auth.RequireRole(domain.RoleAdmin)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(cfg.CORSOrigins()...))

	// Live updates: token in the query string, no JSON content-type on the upgrade.
	if deps.Hub != nil {
		r.With(auth.AuthenticateQuery(jwtMgr, svc.Auth)).Get("/ws", handler.LiveHandler(deps.Hub))
	}

	r.Group(func(r chi.Router) {
		r.Use(handler.JSONContentType)

		// Health (no auth)
		r.Get("/health", handler.HealthHandler(deps.Pool))

		// Auth routes (no auth)
		r.Route("/auth", func(r chi.Router) {
			r.With(handler.RateLimit(limiter, "register")).Post("/register", authHandler.Register)
			r.With(handler.RateLimit(limiter, "login")).Post("/login", authHandler.Login)
			r.Get("/verify", authHandler.Verify)
		})

		// Catalog (no auth)
		r.Get("/plans", planHandler.List)
		r.Get("/plans/{id}", planHandler.Get)
		r.Get("/games", handler.ListGames)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Route("/servers", func(r chi.Router) {
				r.Get("/", serverHandler.List)
				r.Post("/", serverHandler.Create)
				r.Get("/{id}", serverHandler.Get)
				r.Post("/{id}/actions", serverHandler.Action)
				r.Delete("/{id}", serverHandler.Delete)
			})

			r.Route("/tickets", func(r chi.Router) {
				r.Get("/", ticketHandler.List)
				r.Post("/", ticketHandler.Create)
				r.Get("/{id}", ticketHandler.Get)
				r.Post("/{id}/respuestas", ticketHandler.Reply)
				r.With(requireAdmin).Put("/{id}/estado", ticketHandler.SetStatus)
			})
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(requireAdmin)

			r.Get("/stats", reportsAdmin.GetDashboardStats)
			r.Get("/servers/stats", reportsAdmin.GetServerStats)
			r.Get("/tickets/stats", reportsAdmin.GetTicketStats)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userAdmin.ListUsers)
				r.Post("/{id}/promote", userAdmin.PromoteUser)
				r.Delete("/{id}", userAdmin.DeleteUser)
			})

			r.Route("/plans", func(r chi.Router) {
				r.Get("/", planAdmin.ListPlans)
				r.Post("/", planAdmin.CreatePlan)
				r.Put("/{id}", planAdmin.UpdatePlan)
				r.Delete("/{id}", planAdmin.DeletePlan)
			})
		})
	})

	return r
}

// NewReconciler schedules SettleStale for servers whose queued task was lost.
func NewReconciler(cfg *infra.Config, svc *Services, logger *slog.Logger) (*provision.Reconciler, error) {
	return provision.NewReconciler(cfg.ReconcileSchedule, svc.Servers, logger)
}
