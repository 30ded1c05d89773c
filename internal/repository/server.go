package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/celerhost/panel/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type serverRepo struct{}

// NewServerRepository returns a pgx-backed ServerRepository.
func NewServerRepository() ServerRepository {
	return &serverRepo{}
}

const serverDetailSelect = `
	SELECT s.id, s.usuario_id, s.plan_id, s.nombre, s.juego, s.ip, s.puerto, s.estado,
	       s.max_players, s.created_at, s.updated_at,
	       p.nombre, p.ram, u.username, u.email
	FROM servidores s
	JOIN planes p ON p.id = s.plan_id
	JOIN usuarios u ON u.id = s.usuario_id`

func (r *serverRepo) Create(ctx context.Context, db DBTX, s *domain.Server) error {
	err := db.QueryRow(ctx, `
		INSERT INTO servidores (id, usuario_id, plan_id, nombre, juego, ip, puerto, estado, max_players)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		s.ID, s.OwnerID, s.PlanID, s.Name, string(s.Game), s.IP, s.Port, string(s.Status), s.MaxPlayers,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert server: %w", err)
	}
	return nil
}

func (r *serverRepo) FindByID(ctx context.Context, db DBTX, id, owner uuid.UUID) (*domain.ServerDetail, error) {
	row := db.QueryRow(ctx, serverDetailSelect+`
		WHERE s.id = $1 AND ($2::uuid IS NULL OR s.usuario_id = $2)`, id, ownerArg(owner))
	d, err := scanServerDetail(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

// serverWhere builds the WHERE clause shared by List and Count so both bind
// exactly the same parameters.
func serverWhere(f domain.ServerFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.OwnerID != uuid.Nil {
		args = append(args, f.OwnerID)
		conds = append(conds, fmt.Sprintf("s.usuario_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("s.estado = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *serverRepo) List(ctx context.Context, db DBTX, f domain.ServerFilter) ([]domain.ServerDetail, error) {
	where, args := serverWhere(f)
	args = append(args, f.Limit, f.Offset())
	query := serverDetailSelect + where +
		fmt.Sprintf(" ORDER BY s.created_at DESC, s.id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	defer rows.Close()

	servers := []domain.ServerDetail{}
	for rows.Next() {
		d, err := scanServerDetail(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, *d)
	}
	return servers, rows.Err()
}

func (r *serverRepo) Count(ctx context.Context, db DBTX, f domain.ServerFilter) (int, error) {
	where, args := serverWhere(f)
	var n int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM servidores s`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count servers: %w", err)
	}
	return n, nil
}

func (r *serverRepo) TransitionStatus(ctx context.Context, db DBTX, id uuid.UUID, from, to domain.ServerStatus) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE servidores SET estado = $1, updated_at = now()
		WHERE id = $2 AND estado = $3`, string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("transition server status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *serverRepo) Delete(ctx context.Context, db DBTX, id, owner uuid.UUID) (bool, error) {
	tag, err := db.Exec(ctx, `
		DELETE FROM servidores
		WHERE id = $1 AND ($2::uuid IS NULL OR usuario_id = $2)`, id, ownerArg(owner))
	if err != nil {
		return false, fmt.Errorf("delete server: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *serverRepo) ListIDsByOwner(ctx context.Context, db DBTX, owner uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.Query(ctx, `SELECT id FROM servidores WHERE usuario_id = $1`, owner)
	if err != nil {
		return nil, fmt.Errorf("list server ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (r *serverRepo) ListStale(ctx context.Context, db DBTX, statuses []domain.ServerStatus, before time.Time) ([]domain.Server, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	rows, err := db.Query(ctx, `
		SELECT id, usuario_id, plan_id, nombre, juego, ip, puerto, estado, max_players, created_at, updated_at
		FROM servidores
		WHERE estado = ANY($1) AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT 500`, names, before)
	if err != nil {
		return nil, fmt.Errorf("list stale servers: %w", err)
	}
	defer rows.Close()

	var servers []domain.Server
	for rows.Next() {
		var s domain.Server
		var game, status string
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.PlanID, &s.Name, &game, &s.IP, &s.Port,
			&status, &s.MaxPlayers, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stale server: %w", err)
		}
		s.Game = domain.GameKind(game)
		s.Status = domain.ServerStatus(status)
		servers = append(servers, s)
	}
	return servers, rows.Err()
}

func (r *serverRepo) Stats(ctx context.Context, db DBTX) (*domain.ServerStats, error) {
	stats := &domain.ServerStats{ByStatus: []domain.StatusCount{}}

	counts, err := groupByStatus(ctx, db, `SELECT estado, COUNT(*) FROM servidores GROUP BY estado ORDER BY estado`)
	if err != nil {
		return nil, fmt.Errorf("server stats: %w", err)
	}
	stats.ByStatus = counts
	for _, c := range counts {
		stats.Total += c.Count
	}

	err = db.QueryRow(ctx, `
		SELECT COALESCE(SUM(p.ram), 0)
		FROM servidores s JOIN planes p ON p.id = s.plan_id
		WHERE s.estado = $1`, string(domain.ServerActive)).Scan(&stats.ActiveRAMMB)
	if err != nil {
		return nil, fmt.Errorf("server ram total: %w", err)
	}
	return stats, nil
}

func groupByStatus(ctx context.Context, db DBTX, query string) ([]domain.StatusCount, error) {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.StatusCount{}
	for rows.Next() {
		var c domain.StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanServerDetail(row pgx.Row) (*domain.ServerDetail, error) {
	d := &domain.ServerDetail{}
	var game, status string
	err := row.Scan(&d.ID, &d.OwnerID, &d.PlanID, &d.Name, &game, &d.IP, &d.Port, &status,
		&d.MaxPlayers, &d.CreatedAt, &d.UpdatedAt,
		&d.PlanName, &d.PlanRAMMB, &d.OwnerUsername, &d.OwnerEmail)
	if err != nil {
		return nil, err
	}
	d.Game = domain.GameKind(game)
	d.Status = domain.ServerStatus(status)
	d.GameInfo = domain.GameInfoFor(d.Game)
	return d, nil
}

type serverActionRepo struct{}

// NewServerActionRepository returns a pgx-backed ServerActionRepository.
func NewServerActionRepository() ServerActionRepository {
	return &serverActionRepo{}
}

func (r *serverActionRepo) Insert(ctx context.Context, db DBTX, a *domain.ServerAction) error {
	err := db.QueryRow(ctx, `
		INSERT INTO server_actions (id, servidor_id, accion, estado, resultado)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		a.ID, a.ServerID, string(a.Action), string(a.Status), a.Result,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert server action: %w", err)
	}
	return nil
}

func (r *serverActionRepo) Complete(ctx context.Context, db DBTX, id uuid.UUID, result string) error {
	tag, err := db.Exec(ctx, `
		UPDATE server_actions SET estado = $1, resultado = $2
		WHERE id = $3 AND estado = $4`,
		string(domain.ActionCompleted), result, id, string(domain.ActionPending))
	if err != nil {
		return fmt.Errorf("complete server action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete server action %s: not pending", id)
	}
	return nil
}

func (r *serverActionRepo) ListRecent(ctx context.Context, db DBTX, serverID uuid.UUID, limit int) ([]domain.ServerAction, error) {
	rows, err := db.Query(ctx, `
		SELECT id, servidor_id, accion, estado, resultado, created_at
		FROM server_actions
		WHERE servidor_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`, serverID, limit)
	if err != nil {
		return nil, fmt.Errorf("list server actions: %w", err)
	}
	defer rows.Close()

	actions := []domain.ServerAction{}
	for rows.Next() {
		var a domain.ServerAction
		var action, status string
		if err := rows.Scan(&a.ID, &a.ServerID, &action, &status, &a.Result, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan server action: %w", err)
		}
		a.Action = domain.ActionKind(action)
		a.Status = domain.ActionLogStatus(status)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
