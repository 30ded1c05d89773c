package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/celerhost/panel/internal/auth"
	"github.com/celerhost/panel/internal/domain"
	"github.com/celerhost/panel/internal/guard"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	store   *memStore
	jobs    *fakeJobs
	notify  *fakeNotifier
	jwt     *auth.JWTManager
	auth    *AuthService
	plans   *PlanService
	servers *ServerService
	tickets *TicketService
	users   *UserService
	reports *ReportService

	basic domain.Plan
	pro   domain.Plan
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	logger := discardLogger()
	e := &testEnv{
		store:  store,
		jobs:   newFakeJobs(),
		notify: &fakeNotifier{},
		jwt:    auth.NewJWTManager(testSecret, time.Hour),
	}

	users := memUsers{store}
	plans := memPlans{store}
	servers := memServers{store}
	tickets := memTickets{store}
	outbox := memOutbox{store}

	lockout := guard.NewLockout(store, memAttempts{store}, logger)
	e.auth = NewAuthService(store, users, outbox, e.jwt, lockout, logger)
	e.auth.cost = bcrypt.MinCost
	e.plans = NewPlanService(store, plans, logger)
	e.servers = NewServerService(store, servers, memActions{store}, plans, outbox, e.jobs, e.notify,
		ServerConfig{ProvisionDelay: 5 * time.Second, RestartDelay: 3 * time.Second, StaleAfter: 2 * time.Minute},
		logger)
	e.servers.ipGen = func() string { return "192.168.1.10" }
	e.tickets = NewTicketService(store, tickets, outbox, e.notify, logger)
	e.users = NewUserService(store, users, servers, outbox, e.jobs, logger)
	e.reports = NewReportService(store, users, plans, servers, tickets)

	e.basic = store.seedPlan(domain.Plan{Name: "Básico", Price: 999, PlayerSlots: 10, RAMMB: 1024, StorageMB: 10240, Active: true})
	e.pro = store.seedPlan(domain.Plan{Name: "Pro", Price: 1999, PlayerSlots: 50, RAMMB: 4096, StorageMB: 51200, Active: true})
	return e
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code, "message: %s", appErr.Message)
}
