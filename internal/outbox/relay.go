// Package outbox relays event_outbox rows to the message broker.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/celerhost/panel/internal/guard"
	"github.com/celerhost/panel/internal/repository"
)

// Publisher sends one message to a topic. *infra.KafkaProducer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// RelayConfig tunes the polling loop.
type RelayConfig struct {
	TopicPrefix string
	Interval    time.Duration
	BatchSize   int

	// A topic is skipped after FailThreshold consecutive publish failures
	// until Cooldown has passed.
	FailThreshold int
	Cooldown      time.Duration
}

// Relay polls the outbox table and publishes events, deleting the rows that
// were delivered. Delivery is at-least-once: a crash between publish and
// delete re-sends the event, and consumers dedupe on event_id.
type Relay struct {
	db      repository.DBTX
	outbox  repository.OutboxRepository
	pub     Publisher
	breaker *guard.TopicBreaker
	cfg     RelayConfig
	logger  *slog.Logger
}

// NewRelay creates a Relay. Each topic gets its own circuit so one failing
// topic does not hold back the others.
func NewRelay(db repository.DBTX, outbox repository.OutboxRepository, pub Publisher, cfg RelayConfig, logger *slog.Logger) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FailThreshold <= 0 {
		cfg.FailThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Relay{
		db:      db,
		outbox:  outbox,
		pub:     pub,
		breaker: guard.NewTopicBreaker(cfg.FailThreshold, cfg.Cooldown),
		cfg:     cfg,
		logger:  logger,
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	r.logger.Info("outbox relay started", "interval", r.cfg.Interval, "batch_size", r.cfg.BatchSize)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.Poll(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("outbox poll error", "error", err)
			}
		}
	}
}

// Start runs the relay in a goroutine.
func (r *Relay) Start(ctx context.Context) {
	go r.Run(ctx)
}

// Poll publishes one batch and returns how many events were delivered.
// Events keep their order within a topic: after a failure the rest of that
// topic's events wait for the next poll.
func (r *Relay) Poll(ctx context.Context) (int, error) {
	events, err := r.outbox.FetchUnpublished(ctx, r.db, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	blocked := make(map[string]bool)
	ids := make([]int64, 0, len(events))
	for _, e := range events {
		topic := e.Topic(r.cfg.TopicPrefix)
		if blocked[topic] {
			continue
		}

		msg, err := json.Marshal(e)
		if err != nil {
			// a row that cannot be encoded will never publish; drop it
			r.logger.Error("outbox marshal failed", "event_id", e.EventID, "error", err)
			ids = append(ids, e.SeqID)
			continue
		}

		if ok, wait := r.breaker.Allow(topic); !ok {
			blocked[topic] = true
			r.logger.Warn("outbox topic skipped", "topic", topic, "retry_in", wait)
			continue
		}
		if err := r.pub.Publish(ctx, topic, []byte(e.AggregateID), msg); err != nil {
			r.breaker.Failure(topic, err)
			blocked[topic] = true
			r.logger.Error("outbox publish failed", "event_id", e.EventID, "topic", topic, "error", err)
			continue
		}
		r.breaker.Success(topic)
		ids = append(ids, e.SeqID)
	}

	if err := r.outbox.MarkPublished(ctx, r.db, ids); err != nil {
		return 0, fmt.Errorf("mark published: %w", err)
	}
	if len(ids) > 0 {
		r.logger.Debug("outbox batch published", "count", len(ids))
	}
	for _, st := range r.breaker.OpenTopics() {
		r.logger.Warn("outbox topic circuit not closed", "topic", st.Topic, "state", st.State.String(),
			"failures", st.Failures, "last_error", st.LastError)
	}
	return len(ids), nil
}
