// Package provision runs the simulated provisioning workflow: deferred,
// cancellable status transitions keyed by server id, plus a cron reconciler
// for servers whose in-memory task was lost.
package provision

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task runs when a scheduled delay elapses. ctx is cancelled on Shutdown.
type Task func(ctx context.Context)

// ErrShutdown is returned by Schedule after Shutdown.
var ErrShutdown = errors.New("provision queue is shut down")

// Queue holds at most one pending task per server.
type Queue struct {
	mu     sync.Mutex
	jobs   map[uuid.UUID]*job
	seq    uint64
	closed bool

	base   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

type job struct {
	seq    uint64
	cancel context.CancelFunc
}

// NewQueue creates an empty queue.
func NewQueue(logger *slog.Logger) *Queue {
	base, stop := context.WithCancel(context.Background())
	return &Queue{
		jobs:   make(map[uuid.UUID]*job),
		base:   base,
		stop:   stop,
		logger: logger,
	}
}

// Schedule runs fn after delay, replacing any task pending for serverID.
func (q *Queue) Schedule(serverID uuid.UUID, delay time.Duration, fn Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrShutdown
	}
	if prev, ok := q.jobs[serverID]; ok {
		prev.cancel()
	}

	q.seq++
	ctx, cancel := context.WithCancel(q.base)
	j := &job{seq: q.seq, cancel: cancel}
	q.jobs[serverID] = j

	q.wg.Add(1)
	go q.run(ctx, serverID, j, delay, fn)
	return nil
}

func (q *Queue) run(ctx context.Context, serverID uuid.UUID, j *job, delay time.Duration, fn Task) {
	defer q.wg.Done()
	defer j.cancel()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	q.mu.Lock()
	current, ok := q.jobs[serverID]
	if !ok || current.seq != j.seq {
		// replaced or cancelled between the timer firing and here
		q.mu.Unlock()
		return
	}
	delete(q.jobs, serverID)
	q.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			q.logger.Error("provision task panic", "server_id", serverID, "panic", rec)
		}
	}()
	fn(ctx)
}

// Cancel aborts the pending task for serverID. Returns false when none was pending.
func (q *Queue) Cancel(serverID uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.jobs[serverID]
	if !ok {
		return false
	}
	j.cancel()
	delete(q.jobs, serverID)
	return true
}

// Pending reports whether a task is waiting for serverID.
func (q *Queue) Pending(serverID uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.jobs[serverID]
	return ok
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Shutdown cancels every task and waits for running ones to return.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	pending := len(q.jobs)
	q.jobs = make(map[uuid.UUID]*job)
	q.mu.Unlock()

	q.stop()
	q.logger.Info("provision queue stopping", "dropped", pending)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
