package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/celerhost/panel/internal/auth"
	"github.com/celerhost/panel/internal/domain"
	"github.com/celerhost/panel/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// LoginGuard tracks failed logins per email.
type LoginGuard interface {
	CheckLocked(ctx context.Context, email string) error
	RecordAttempt(ctx context.Context, email, ip string, success bool)
}

// AuthService handles registration, login and token verification.
type AuthService struct {
	db      repository.DB
	users   repository.UserRepository
	outbox  repository.OutboxRepository
	jwtMgr  *auth.JWTManager
	lockout LoginGuard
	logger  *slog.Logger
	cost    int
}

// NewAuthService creates a new AuthService. lockout may be nil.
func NewAuthService(
	db repository.DB,
	users repository.UserRepository,
	outbox repository.OutboxRepository,
	jwtMgr *auth.JWTManager,
	lockout LoginGuard,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		db:      db,
		users:   users,
		outbox:  outbox,
		jwtMgr:  jwtMgr,
		lockout: lockout,
		logger:  logger,
		cost:    bcrypt.DefaultCost,
	}
}

// RegisterInput holds the registration request fields.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput holds the login request fields.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned on successful registration or login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// VerifyResult is the body of GET /auth/verify.
type VerifyResult struct {
	Valid bool         `json:"valid"`
	User  *domain.User `json:"user,omitempty"`
}

// Register creates a user account with the user role.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if input.Username == "" || input.Email == "" || input.Password == "" {
		return nil, domain.ErrValidation("username, email and password are required")
	}
	if err := domain.ValidateUsername(input.Username); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := domain.ValidateEmail(input.Email); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, s.db, input.Username, input.Email)
	if err != nil {
		return nil, domain.ErrInternal("check user", err)
	}
	if exists {
		return nil, domain.ErrConflict("username or email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, domain.ErrInternal("hash password", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := s.users.Create(ctx, tx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.ErrConflict("username or email already registered")
		}
		return nil, domain.ErrInternal("create user", err)
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewUserRegisteredEvent(user)); err != nil {
		return nil, domain.ErrInternal("write outbox", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	token, err := s.jwtMgr.GenerateToken(domain.CallerFromUser(user))
	if err != nil {
		return nil, domain.ErrInternal("generate token", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return &AuthResult{Token: token, User: user}, nil
}

// Login authenticates by email and password. ip feeds the lockout audit trail.
func (s *AuthService) Login(ctx context.Context, input LoginInput, ip string) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, domain.ErrValidation("email and password are required")
	}

	if s.lockout != nil {
		if err := s.lockout.CheckLocked(ctx, email); err != nil {
			return nil, err
		}
	}

	user, err := s.users.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		s.recordAttempt(ctx, email, ip, false)
		return nil, domain.ErrInvalidCredentials()
	}
	s.recordAttempt(ctx, email, ip, true)

	token, err := s.jwtMgr.GenerateToken(domain.CallerFromUser(user))
	if err != nil {
		return nil, domain.ErrInternal("generate token", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) recordAttempt(ctx context.Context, email, ip string, success bool) {
	if s.lockout != nil {
		s.lockout.RecordAttempt(ctx, email, ip, success)
	}
}

// Verify validates a raw token and re-reads the user it names.
func (s *AuthService) Verify(ctx context.Context, token string) (*VerifyResult, error) {
	claims, err := s.jwtMgr.ValidateToken(token)
	if err != nil {
		return &VerifyResult{Valid: false}, domain.ErrUnauthorized("invalid or expired token")
	}
	user, err := s.lookup(ctx, claims)
	if err != nil {
		return &VerifyResult{Valid: false}, err
	}
	return &VerifyResult{Valid: true, User: user}, nil
}

// ResolveCaller implements auth.IdentityResolver: the stored role wins over
// the role in the token, and deleted users are rejected.
func (s *AuthService) ResolveCaller(ctx context.Context, claims *auth.Claims) (domain.Caller, error) {
	user, err := s.lookup(ctx, claims)
	if err != nil {
		return domain.Caller{}, err
	}
	return domain.CallerFromUser(user), nil
}

func (s *AuthService) lookup(ctx context.Context, claims *auth.Claims) (*domain.User, error) {
	id, err := claims.UserID()
	if err != nil {
		return nil, domain.ErrUnauthorized("invalid token subject")
	}
	user, err := s.users.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		return nil, domain.ErrUnauthorized("user no longer exists")
	}
	return user, nil
}
