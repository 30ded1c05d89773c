package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/celerhost/panel/internal/infra"
	"github.com/celerhost/panel/internal/outbox"
	"github.com/celerhost/panel/internal/repository"
)

// outbox-relay publishes event_outbox rows to Kafka as a standalone process,
// for deployments that run the API with KAFKA_ENABLED=false.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("outbox relay failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("outbox-relay connected to postgres")

	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, true, logger)
	defer producer.Close()

	relay := outbox.NewRelay(pool, repository.NewOutboxRepository(), producer, outbox.RelayConfig{
		TopicPrefix: cfg.KafkaTopicPrefix,
		Interval:    cfg.OutboxPollInterval,
		BatchSize:   cfg.OutboxBatchSize,
	}, logger)

	logger.Info("outbox-relay starting",
		"brokers", cfg.KafkaBrokers,
		"poll_interval", cfg.OutboxPollInterval,
		"batch_size", cfg.OutboxBatchSize,
	)
	relay.Run(ctx)
	logger.Info("outbox-relay shutting down")
	return nil
}
