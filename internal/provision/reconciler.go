package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// StaleSettler settles servers stuck in a transient status.
type StaleSettler interface {
	SettleStale(ctx context.Context) (int, error)
}

// Reconciler periodically settles servers whose pending task was lost,
// e.g. after a process restart dropped the in-memory queue.
type Reconciler struct {
	cron    *cron.Cron
	settler StaleSettler
	logger  *slog.Logger
	timeout time.Duration
}

// NewReconciler registers the settle job on schedule (standard cron syntax or
// a descriptor such as "@every 1m").
func NewReconciler(schedule string, settler StaleSettler, logger *slog.Logger) (*Reconciler, error) {
	r := &Reconciler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		settler: settler,
		logger:  logger,
		timeout: 30 * time.Second,
	}
	if _, err := r.cron.AddFunc(schedule, r.tick); err != nil {
		return nil, fmt.Errorf("schedule reconciler %q: %w", schedule, err)
	}
	return r, nil
}

// Start runs the schedule in the background.
func (r *Reconciler) Start() {
	r.cron.Start()
	r.logger.Info("provision reconciler started", "entries", len(r.cron.Entries()))
}

// Stop halts scheduling and waits for a running tick to finish or ctx to end.
func (r *Reconciler) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
	r.logger.Info("provision reconciler stopped")
}

// RunOnce settles stale servers immediately.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	n, err := r.settler.SettleStale(ctx)
	if err != nil {
		return n, fmt.Errorf("settle stale servers: %w", err)
	}
	return n, nil
}

func (r *Reconciler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	n, err := r.RunOnce(ctx)
	if err != nil {
		r.logger.Error("provision reconcile failed", "error", err)
		return
	}
	if n > 0 {
		r.logger.Info("provision reconcile settled servers", "count", n)
	}
}
