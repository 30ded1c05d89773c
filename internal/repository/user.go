package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/celerhost/panel/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type userRepo struct{}

// NewUserRepository returns a pgx-backed UserRepository.
func NewUserRepository() UserRepository {
	return &userRepo{}
}

const userColumns = `id, username, email, password_hash, role, created_at`

func (r *userRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error) {
	row := db.QueryRow(ctx, `SELECT `+userColumns+` FROM usuarios WHERE id = $1`, id)
	return scanUser(row)
}

func (r *userRepo) FindByEmail(ctx context.Context, db DBTX, email string) (*domain.User, error) {
	row := db.QueryRow(ctx, `SELECT `+userColumns+` FROM usuarios WHERE email = $1`, email)
	return scanUser(row)
}

func (r *userRepo) ExistsByUsernameOrEmail(ctx context.Context, db DBTX, username, email string) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM usuarios WHERE username = $1 OR email = $2)`,
		username, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (r *userRepo) Create(ctx context.Context, db DBTX, user *domain.User) error {
	err := db.QueryRow(ctx, `
		INSERT INTO usuarios (id, username, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		user.ID, user.Username, user.Email, user.PasswordHash, string(user.Role),
	).Scan(&user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepo) List(ctx context.Context, db DBTX, page domain.Page) ([]domain.User, error) {
	rows, err := db.Query(ctx, `
		SELECT `+userColumns+` FROM usuarios
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, page.Limit, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *userRepo) Count(ctx context.Context, db DBTX) (int, error) {
	var n int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM usuarios`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *userRepo) UpdateRole(ctx context.Context, db DBTX, id uuid.UUID, role domain.Role) (bool, error) {
	tag, err := db.Exec(ctx, `UPDATE usuarios SET role = $1 WHERE id = $2`, string(role), id)
	if err != nil {
		return false, fmt.Errorf("update role: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *userRepo) Delete(ctx context.Context, db DBTX, id uuid.UUID) (bool, error) {
	tag, err := db.Exec(ctx, `DELETE FROM usuarios WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = domain.Role(role)
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ownerArg maps uuid.Nil to SQL NULL so "$n::uuid IS NULL OR usuario_id = $n"
// matches every row for admins.
func ownerArg(owner uuid.UUID) interface{} {
	if owner == uuid.Nil {
		return nil
	}
	return owner
}
