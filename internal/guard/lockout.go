package guard

import (
	"context"
	"log/slog"
	"time"

	"github.com/celerhost/panel/internal/domain"
	"github.com/celerhost/panel/internal/repository"
)

const (
	MaxAttempts   = 5
	LockoutWindow = 15 * time.Minute
)

// Lockout locks an email after repeated failed logins.
type Lockout struct {
	db       repository.DBTX
	attempts repository.LoginAttemptRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewLockout creates a Lockout backed by login_attempts.
func NewLockout(db repository.DBTX, attempts repository.LoginAttemptRepository, logger *slog.Logger) *Lockout {
	return &Lockout{db: db, attempts: attempts, logger: logger, now: time.Now}
}

// RecordAttempt inserts a login attempt row. Failures are logged, not returned.
func (l *Lockout) RecordAttempt(ctx context.Context, email, ip string, success bool) {
	if err := l.attempts.Record(ctx, l.db, email, ip, success); err != nil {
		l.logger.Error("record login attempt", "error", err)
	}
}

// CheckLocked returns ErrAccountLocked if the account has >= MaxAttempts failed
// logins within the lockout window.
func (l *Lockout) CheckLocked(ctx context.Context, email string) error {
	count, err := l.attempts.CountFailures(ctx, l.db, email, l.now().Add(-LockoutWindow))
	if err != nil {
		// fail open: a storage hiccup must not block every login
		l.logger.Error("check login lockout", "error", err)
		return nil
	}
	if count >= MaxAttempts {
		return domain.ErrAccountLocked("too many failed login attempts, try again later")
	}
	return nil
}
