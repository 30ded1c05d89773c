package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/celerhost/panel/internal/app"
	"github.com/celerhost/panel/internal/auth"
	"github.com/celerhost/panel/internal/guard"
	"github.com/celerhost/panel/internal/infra"
	"github.com/celerhost/panel/internal/outbox"
	"github.com/celerhost/panel/internal/projection"
	"github.com/celerhost/panel/internal/provision"
	"github.com/celerhost/panel/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.AllowInsecureDefaults {
		logger.Warn("ALLOW_INSECURE_DEFAULTS is set; do not use in production")
	}

	// Schema
	if cfg.MigrateOnStart {
		if err := infra.RunMigrations(cfg.DSN(), cfg.MigrationsDir, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Connect to Postgres
	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	jobs := provision.NewQueue(logger)
	hub := infra.NewWSHub(cfg.CORSOrigins(), logger)

	deps := app.RouterDeps{
		Pool:   pool,
		JWTMgr: auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry),
		Logger: logger,
		Config: cfg,
		Jobs:   jobs,
		Hub:    hub,
	}

	// Login throttling: shared across instances through Redis when enabled.
	if cfg.RedisEnabled {
		client, err := guard.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, limiter fails open until it recovers", "error", err)
		}
		deps.LoginLimiter = guard.NewRedisLimiter(client, "celerhost:ratelimit", cfg.LoginRateLimit, cfg.LoginRateWindow, logger)
		deps.Projections = projection.NewRedisStore(client, "celerhost:")
	} else {
		limiter := guard.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
		go sweepLimiter(ctx, limiter, cfg.LoginRateWindow)
		deps.LoginLimiter = limiter
	}

	svc := app.NewServices(deps)
	router := app.NewRouter(deps, svc)

	// Servers left installing/restarting by a previous process
	reconciler, err := app.NewReconciler(cfg, svc, logger)
	if err != nil {
		return err
	}
	if n, err := reconciler.RunOnce(ctx); err != nil {
		logger.Error("initial reconcile failed", "error", err)
	} else if n > 0 {
		logger.Info("settled stale servers at startup", "count", n)
	}
	reconciler.Start()

	// In-process outbox relay
	if cfg.KafkaEnabled {
		producer := infra.NewKafkaProducer(cfg.KafkaBrokers, true, logger)
		defer producer.Close()
		relay := outbox.NewRelay(pool, repository.NewOutboxRepository(), producer, outbox.RelayConfig{
			TopicPrefix: cfg.KafkaTopicPrefix,
			Interval:    cfg.OutboxPollInterval,
			BatchSize:   cfg.OutboxBatchSize,
		}, logger)
		relay.Start(ctx)
	}

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	hub.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	reconciler.Stop(shutdownCtx)
	if err := jobs.Shutdown(shutdownCtx); err != nil {
		logger.Warn("provision queue did not drain", "error", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

func sweepLimiter(ctx context.Context, limiter *guard.RateLimiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}
