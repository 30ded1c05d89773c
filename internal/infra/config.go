package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL    string `env:"DATABASE_URL"`
	PGHost         string `env:"PGHOST" envDefault:"localhost"`
	PGPort         int    `env:"PGPORT" envDefault:"5432"`
	PGUser         string `env:"PGUSER" envDefault:"celerhost"`
	PGPassword     string `env:"PGPASSWORD" envDefault:"celerhost"`
	PGDatabase     string `env:"PGDATABASE" envDefault:"celerhost"`
	DBMaxConns     int32  `env:"DB_MAX_CONNS" envDefault:"20"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`
	MigrationsDir  string `env:"MIGRATIONS_DIR"`

	// Redis
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	RedisEnabled bool   `env:"REDIS_ENABLED" envDefault:"false"`

	// JWT
	JWTSecret string        `env:"JWT_SECRET"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`

	// Server
	APIPort         int           `env:"API_PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Kafka
	KafkaBrokers       string        `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled       bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaTopicPrefix   string        `env:"KAFKA_TOPIC_PREFIX" envDefault:"celerhost."`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Login protection
	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m"`

	// Provisioning (simulated)
	ProvisionDelay    time.Duration `env:"PROVISION_DELAY" envDefault:"5s"`
	RestartDelay      time.Duration `env:"RESTART_DELAY" envDefault:"5s"`
	ReconcileSchedule string        `env:"RECONCILE_SCHEDULE" envDefault:"@every 1m"`
	StaleAfter        time.Duration `env:"STALE_AFTER" envDefault:"2m"`

	// Admin dashboard projection; 0 disables caching
	ReportCacheTTL time.Duration `env:"REPORT_CACHE_TTL" envDefault:"15s"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// insecureSecrets are values shipped in examples and old deployments.
var insecureSecrets = []string{"change-me-in-production", "secret", "celerhost_secret_key"}

// LoadConfig loads an optional .env file (existing environment wins) and then
// parses environment variables into a Config struct.
func LoadConfig(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for insecure or inconsistent configuration.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass the secret checks (local dev only).
func (c *Config) Validate() error {
	if _, err := cron.ParseStandard(c.ReconcileSchedule); err != nil {
		return fmt.Errorf("RECONCILE_SCHEDULE %q: %w", c.ReconcileSchedule, err)
	}
	if c.ProvisionDelay < 0 || c.RestartDelay < 0 {
		return fmt.Errorf("PROVISION_DELAY and RESTART_DELAY must not be negative")
	}
	if c.ReportCacheTTL < 0 {
		return fmt.Errorf("REPORT_CACHE_TTL must not be negative")
	}
	if c.JWTExpiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY must be positive")
	}
	if c.LoginRateLimit <= 0 || c.LoginRateWindow <= 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT and LOGIN_RATE_WINDOW must be positive")
	}

	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	for _, s := range insecureSecrets {
		if c.JWTSecret == s {
			return fmt.Errorf("JWT_SECRET is set to a known insecure value; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
		}
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// CORSOrigins splits CORS_ALLOWED_ORIGINS into a list.
func (c *Config) CORSOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
