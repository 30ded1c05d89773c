package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/celerhost/panel/internal/domain"
	"github.com/celerhost/panel/internal/provision"
	"github.com/celerhost/panel/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// memStore is an in-memory stand-in for Postgres. Transactions are
// serialized and rolled back by restoring a snapshot.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data *memData
	tick time.Time

	failOutbox bool
}

type memData struct {
	users    map[uuid.UUID]domain.User
	plans    map[int64]domain.Plan
	servers  map[uuid.UUID]domain.Server
	actions  []domain.ServerAction
	tickets  map[uuid.UUID]domain.Ticket
	replies  []domain.TicketReply
	outbox   []domain.OutboxDraft
	attempts []memAttempt
	planSeq  int64
	eventSeq int64
}

type memAttempt struct {
	email   string
	success bool
	at      time.Time
}

func newMemStore() *memStore {
	return &memStore{
		tick: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		data: &memData{
			users:   map[uuid.UUID]domain.User{},
			plans:   map[int64]domain.Plan{},
			servers: map[uuid.UUID]domain.Server{},
			tickets: map[uuid.UUID]domain.Ticket{},
		},
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		users:    make(map[uuid.UUID]domain.User, len(d.users)),
		plans:    make(map[int64]domain.Plan, len(d.plans)),
		servers:  make(map[uuid.UUID]domain.Server, len(d.servers)),
		tickets:  make(map[uuid.UUID]domain.Ticket, len(d.tickets)),
		actions:  append([]domain.ServerAction(nil), d.actions...),
		replies:  append([]domain.TicketReply(nil), d.replies...),
		outbox:   append([]domain.OutboxDraft(nil), d.outbox...),
		attempts: append([]memAttempt(nil), d.attempts...),
		planSeq:  d.planSeq,
		eventSeq: d.eventSeq,
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.plans {
		c.plans[k] = v
	}
	for k, v := range d.servers {
		c.servers[k] = v
	}
	for k, v := range d.tickets {
		c.tickets[k] = v
	}
	return c
}

// now returns strictly increasing timestamps so ordering is deterministic.
// Callers hold s.mu.
func (s *memStore) now() time.Time {
	s.tick = s.tick.Add(time.Millisecond)
	return s.tick
}

func (s *memStore) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	panic("memStore: raw SQL not supported")
}

func (s *memStore) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	panic("memStore: raw SQL not supported")
}

func (s *memStore) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	panic("memStore: raw SQL not supported")
}

func (s *memStore) Begin(context.Context) (pgx.Tx, error) {
	s.txMu.Lock()
	s.mu.Lock()
	snap := s.data.clone()
	s.mu.Unlock()
	return &memTx{store: s, snap: snap}, nil
}

type memTx struct {
	pgx.Tx
	store *memStore
	snap  *memData
	done  bool
}

func (t *memTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return t.store.Exec(ctx, sql, args...)
}

func (t *memTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return t.store.Query(ctx, sql, args...)
}

func (t *memTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return t.store.QueryRow(ctx, sql, args...)
}

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.mu.Lock()
	t.store.data = t.snap
	t.store.mu.Unlock()
	t.store.txMu.Unlock()
	return nil
}

var errInjected = errors.New("injected failure")

// --- users ---

type memUsers struct{ s *memStore }

func (r memUsers) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.data.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (r memUsers) FindByEmail(_ context.Context, _ repository.DBTX, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r memUsers) ExistsByUsernameOrEmail(_ context.Context, _ repository.DBTX, username, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r memUsers) Create(_ context.Context, _ repository.DBTX, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.CreatedAt = r.s.now()
	r.s.data.users[user.ID] = *user
	return nil
}

func (r memUsers) List(_ context.Context, _ repository.DBTX, page domain.Page) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.User, 0, len(r.s.data.users))
	for _, u := range r.s.data.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page), nil
}

func (r memUsers) Count(context.Context, repository.DBTX) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.data.users), nil
}

func (r memUsers) UpdateRole(_ context.Context, _ repository.DBTX, id uuid.UUID, role domain.Role) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return false, nil
	}
	u.Role = role
	r.s.data.users[id] = u
	return true, nil
}

func (r memUsers) Delete(_ context.Context, _ repository.DBTX, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.users[id]; !ok {
		return false, nil
	}
	delete(r.s.data.users, id)
	// ON DELETE CASCADE
	for sid, srv := range r.s.data.servers {
		if srv.OwnerID == id {
			delete(r.s.data.servers, sid)
		}
	}
	for tid, t := range r.s.data.tickets {
		if t.OwnerID == id {
			delete(r.s.data.tickets, tid)
		}
	}
	return true, nil
}

// --- plans ---

type memPlans struct{ s *memStore }

func (r memPlans) FindByID(_ context.Context, _ repository.DBTX, id int64) (*domain.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.data.plans[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (r memPlans) LockForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Plan, error) {
	return r.FindByID(ctx, tx, id)
}

func (r memPlans) List(_ context.Context, _ repository.DBTX, includeInactive bool) ([]domain.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Plan{}
	for _, p := range r.s.data.plans {
		if includeInactive || p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			return out[i].Price < out[j].Price
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memPlans) Create(_ context.Context, _ repository.DBTX, plan *domain.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.planSeq++
	plan.ID = r.s.data.planSeq
	r.s.data.plans[plan.ID] = *plan
	return nil
}

func (r memPlans) Update(_ context.Context, _ repository.DBTX, plan *domain.Plan) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.plans[plan.ID]; !ok {
		return false, nil
	}
	r.s.data.plans[plan.ID] = *plan
	return true, nil
}

func (r memPlans) SetActive(_ context.Context, _ repository.DBTX, id int64, active bool) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.plans[id]
	if !ok {
		return false, nil
	}
	p.Active = active
	r.s.data.plans[id] = p
	return true, nil
}

func (r memPlans) Count(context.Context, repository.DBTX) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.data.plans), nil
}

// --- servers ---

type memServers struct{ s *memStore }

func (r memServers) Create(_ context.Context, _ repository.DBTX, srv *domain.Server) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	srv.CreatedAt = r.s.now()
	srv.UpdatedAt = srv.CreatedAt
	r.s.data.servers[srv.ID] = *srv
	return nil
}

func (r memServers) detail(srv domain.Server) domain.ServerDetail {
	plan := r.s.data.plans[srv.PlanID]
	owner := r.s.data.users[srv.OwnerID]
	return domain.ServerDetail{
		Server:        srv,
		PlanName:      plan.Name,
		PlanRAMMB:     plan.RAMMB,
		OwnerUsername: owner.Username,
		OwnerEmail:    owner.Email,
		GameInfo:      domain.GameInfoFor(srv.Game),
	}
}

func (r memServers) FindByID(_ context.Context, _ repository.DBTX, id, owner uuid.UUID) (*domain.ServerDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	srv, ok := r.s.data.servers[id]
	if !ok || (owner != uuid.Nil && srv.OwnerID != owner) {
		return nil, nil
	}
	d := r.detail(srv)
	return &d, nil
}

func (r memServers) filtered(f domain.ServerFilter) []domain.Server {
	var out []domain.Server
	for _, srv := range r.s.data.servers {
		if f.OwnerID != uuid.Nil && srv.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && srv.Status != f.Status {
			continue
		}
		out = append(out, srv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r memServers) List(_ context.Context, _ repository.DBTX, f domain.ServerFilter) ([]domain.ServerDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.ServerDetail{}
	for _, srv := range paginate(r.filtered(f), f.Page) {
		out = append(out, r.detail(srv))
	}
	return out, nil
}

func (r memServers) Count(_ context.Context, _ repository.DBTX, f domain.ServerFilter) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.filtered(f)), nil
}

func (r memServers) TransitionStatus(_ context.Context, _ repository.DBTX, id uuid.UUID, from, to domain.ServerStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	srv, ok := r.s.data.servers[id]
	if !ok || srv.Status != from {
		return false, nil
	}
	srv.Status = to
	srv.UpdatedAt = r.s.now()
	r.s.data.servers[id] = srv
	return true, nil
}

func (r memServers) Delete(_ context.Context, _ repository.DBTX, id, owner uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	srv, ok := r.s.data.servers[id]
	if !ok || (owner != uuid.Nil && srv.OwnerID != owner) {
		return false, nil
	}
	delete(r.s.data.servers, id)
	return true, nil
}

func (r memServers) ListIDsByOwner(_ context.Context, _ repository.DBTX, owner uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []uuid.UUID
	for id, srv := range r.s.data.servers {
		if srv.OwnerID == owner {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r memServers) ListStale(_ context.Context, _ repository.DBTX, statuses []domain.ServerStatus, before time.Time) ([]domain.Server, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Server
	for _, srv := range r.s.data.servers {
		for _, st := range statuses {
			if srv.Status == st && srv.UpdatedAt.Before(before) {
				out = append(out, srv)
			}
		}
	}
	return out, nil
}

func (r memServers) Stats(context.Context, repository.DBTX) (*domain.ServerStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[string]int{}
	stats := &domain.ServerStats{}
	for _, srv := range r.s.data.servers {
		counts[string(srv.Status)]++
		stats.Total++
		if srv.Status == domain.ServerActive {
			stats.ActiveRAMMB += int64(r.s.data.plans[srv.PlanID].RAMMB)
		}
	}
	stats.ByStatus = sortedCounts(counts)
	return stats, nil
}

// --- server actions ---

type memActions struct{ s *memStore }

func (r memActions) Insert(_ context.Context, _ repository.DBTX, a *domain.ServerAction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.CreatedAt = r.s.now()
	r.s.data.actions = append(r.s.data.actions, *a)
	return nil
}

func (r memActions) Complete(_ context.Context, _ repository.DBTX, id uuid.UUID, result string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, a := range r.s.data.actions {
		if a.ID == id && a.Status == domain.ActionPending {
			r.s.data.actions[i].Status = domain.ActionCompleted
			r.s.data.actions[i].Result = result
			return nil
		}
	}
	return errors.New("action not pending")
}

func (r memActions) ListRecent(_ context.Context, _ repository.DBTX, serverID uuid.UUID, limit int) ([]domain.ServerAction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.ServerAction{}
	for i := len(r.s.data.actions) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.data.actions[i].ServerID == serverID {
			out = append(out, r.s.data.actions[i])
		}
	}
	return out, nil
}

// --- tickets ---

type memTickets struct{ s *memStore }

func (r memTickets) withOwner(t domain.Ticket) domain.Ticket {
	u := r.s.data.users[t.OwnerID]
	t.OwnerUsername, t.OwnerEmail = u.Username, u.Email
	return t
}

func (r memTickets) Create(_ context.Context, _ repository.DBTX, t *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.CreatedAt = r.s.now()
	t.UpdatedAt = t.CreatedAt
	r.s.data.tickets[t.ID] = *t
	return nil
}

func (r memTickets) FindByID(_ context.Context, _ repository.DBTX, id, owner uuid.UUID) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tickets[id]
	if !ok || (owner != uuid.Nil && t.OwnerID != owner) {
		return nil, nil
	}
	t = r.withOwner(t)
	return &t, nil
}

func (r memTickets) LockForUpdate(ctx context.Context, tx pgx.Tx, id, owner uuid.UUID) (*domain.Ticket, error) {
	return r.FindByID(ctx, tx, id, owner)
}

func (r memTickets) filtered(f domain.TicketFilter) []domain.Ticket {
	var out []domain.Ticket
	for _, t := range r.s.data.tickets {
		if f.OwnerID != uuid.Nil && t.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		out = append(out, r.withOwner(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r memTickets) List(_ context.Context, _ repository.DBTX, f domain.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.Ticket{}, paginate(r.filtered(f), f.Page)...), nil
}

func (r memTickets) Count(_ context.Context, _ repository.DBTX, f domain.TicketFilter) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.filtered(f)), nil
}

func (r memTickets) SetStatus(_ context.Context, _ repository.DBTX, id uuid.UUID, status domain.TicketStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tickets[id]
	if !ok {
		return false, nil
	}
	t.Status = status
	t.UpdatedAt = r.s.now()
	r.s.data.tickets[id] = t
	return true, nil
}

func (r memTickets) Touch(_ context.Context, _ repository.DBTX, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.data.tickets[id]; ok {
		t.UpdatedAt = r.s.now()
		r.s.data.tickets[id] = t
	}
	return nil
}

func (r memTickets) InsertReply(_ context.Context, _ repository.DBTX, reply *domain.TicketReply) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reply.CreatedAt = r.s.now()
	r.s.data.replies = append(r.s.data.replies, *reply)
	return nil
}

func (r memTickets) ListReplies(_ context.Context, _ repository.DBTX, ticketID uuid.UUID) ([]domain.TicketReply, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.TicketReply{}
	for _, rp := range r.s.data.replies {
		if rp.TicketID == ticketID {
			out = append(out, rp)
		}
	}
	return out, nil
}

func (r memTickets) Stats(context.Context, repository.DBTX) (*domain.TicketStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[string]int{}
	stats := &domain.TicketStats{}
	for _, t := range r.s.data.tickets {
		counts[string(t.Status)]++
		stats.Total++
		if t.CreatedAt.Truncate(24 * time.Hour).Equal(r.s.tick.Truncate(24 * time.Hour)) {
			stats.Today++
		}
	}
	stats.ByStatus = sortedCounts(counts)
	return stats, nil
}

// --- outbox ---

type memOutbox struct{ s *memStore }

func (r memOutbox) Insert(_ context.Context, _ repository.DBTX, d domain.OutboxDraft) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failOutbox {
		return errInjected
	}
	r.s.data.eventSeq++
	d.SeqID = r.s.data.eventSeq
	r.s.data.outbox = append(r.s.data.outbox, d)
	return nil
}

func (r memOutbox) FetchUnpublished(_ context.Context, _ repository.DBTX, limit int) ([]domain.OutboxDraft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := min(limit, len(r.s.data.outbox))
	return append([]domain.OutboxDraft(nil), r.s.data.outbox[:n]...), nil
}

func (r memOutbox) MarkPublished(_ context.Context, _ repository.DBTX, ids []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	drop := map[int64]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := r.s.data.outbox[:0]
	for _, d := range r.s.data.outbox {
		if !drop[d.SeqID] {
			kept = append(kept, d)
		}
	}
	r.s.data.outbox = kept
	return nil
}

// --- helpers ---

func paginate[T any](items []T, page domain.Page) []T {
	start := page.Offset()
	if start >= len(items) {
		return nil
	}
	end := min(start+page.Limit, len(items))
	return items[start:end]
}

func sortedCounts(m map[string]int) []domain.StatusCount {
	out := []domain.StatusCount{}
	for k, v := range m {
		out = append(out, domain.StatusCount{Status: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}

func (s *memStore) eventTypes() []domain.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventType, len(s.data.outbox))
	for i, d := range s.data.outbox {
		out[i] = d.EventType
	}
	return out
}

func (s *memStore) actionLog(serverID uuid.UUID) []domain.ServerAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ServerAction
	for _, a := range s.data.actions {
		if a.ServerID == serverID {
			out = append(out, a)
		}
	}
	return out
}

func (s *memStore) serverStatus(id uuid.UUID) domain.ServerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.servers[id].Status
}

func (s *memStore) seedPlan(p domain.Plan) domain.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.planSeq++
	p.ID = s.data.planSeq
	s.data.plans[p.ID] = p
	return p
}

func (s *memStore) seedUser(username string, role domain.Role) domain.Caller {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := domain.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     username + "@example.com",
		Role:      role,
		CreatedAt: s.now(),
	}
	s.data.users[u.ID] = u
	return domain.CallerFromUser(&u)
}

// --- jobs & notifications ---

type fakeJobs struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]fakeTask
	cancelled []uuid.UUID
}

type fakeTask struct {
	delay time.Duration
	fn    provision.Task
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{tasks: map[uuid.UUID]fakeTask{}}
}

func (f *fakeJobs) Schedule(id uuid.UUID, delay time.Duration, fn provision.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[id] = fakeTask{delay: delay, fn: fn}
	return nil
}

func (f *fakeJobs) Cancel(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	_, ok := f.tasks[id]
	delete(f.tasks, id)
	return ok
}

func (f *fakeJobs) Pending(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tasks[id]
	return ok
}

func (f *fakeJobs) delay(id uuid.UUID) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[id].delay
}

// fire runs and removes the pending task for id.
func (f *fakeJobs) fire(id uuid.UUID) bool {
	f.mu.Lock()
	t, ok := f.tasks[id]
	delete(f.tasks, id)
	f.mu.Unlock()
	if ok {
		t.fn(context.Background())
	}
	return ok
}

// drop forgets a task without cancelling it, as a process restart would.
func (f *fakeJobs) drop(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) Notify(_ uuid.UUID, event string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e == event {
			c++
		}
	}
	return c
}

// --- login attempts ---

type memAttempts struct{ s *memStore }

func (r memAttempts) Record(_ context.Context, _ repository.DBTX, email, _ string, success bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.attempts = append(r.s.data.attempts, memAttempt{email: email, success: success, at: time.Now()})
	return nil
}

func (r memAttempts) CountFailures(_ context.Context, _ repository.DBTX, email string, since time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, a := range r.s.data.attempts {
		if a.email == email && !a.success && !a.at.Before(since) {
			n++
		}
	}
	return n, nil
}
