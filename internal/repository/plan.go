package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/celerhost/panel/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type planRepo struct{}

// NewPlanRepository returns a pgx-backed PlanRepository.
func NewPlanRepository() PlanRepository {
	return &planRepo{}
}

const planColumns = `id, nombre, descripcion, precio, slots_jugadores, ram, almacenamiento, activo`

func (r *planRepo) FindByID(ctx context.Context, db DBTX, id int64) (*domain.Plan, error) {
	row := db.QueryRow(ctx, `SELECT `+planColumns+` FROM planes WHERE id = $1`, id)
	p, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *planRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Plan, error) {
	row := tx.QueryRow(ctx, `SELECT `+planColumns+` FROM planes WHERE id = $1 FOR UPDATE`, id)
	p, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *planRepo) List(ctx context.Context, db DBTX, includeInactive bool) ([]domain.Plan, error) {
	rows, err := db.Query(ctx, `
		SELECT `+planColumns+` FROM planes
		WHERE $1 OR activo
		ORDER BY precio ASC, id ASC`, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	plans := []domain.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

func (r *planRepo) Create(ctx context.Context, db DBTX, plan *domain.Plan) error {
	err := db.QueryRow(ctx, `
		INSERT INTO planes (nombre, descripcion, precio, slots_jugadores, ram, almacenamiento, activo)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		plan.Name, plan.Description, plan.Price.Numeric(),
		plan.PlayerSlots, plan.RAMMB, plan.StorageMB, plan.Active,
	).Scan(&plan.ID)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (r *planRepo) Update(ctx context.Context, db DBTX, plan *domain.Plan) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE planes SET nombre = $1, descripcion = $2, precio = $3,
		       slots_jugadores = $4, ram = $5, almacenamiento = $6, activo = $7
		WHERE id = $8`,
		plan.Name, plan.Description, plan.Price.Numeric(),
		plan.PlayerSlots, plan.RAMMB, plan.StorageMB, plan.Active, plan.ID)
	if err != nil {
		return false, fmt.Errorf("update plan: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *planRepo) SetActive(ctx context.Context, db DBTX, id int64, active bool) (bool, error) {
	tag, err := db.Exec(ctx, `UPDATE planes SET activo = $1 WHERE id = $2`, active, id)
	if err != nil {
		return false, fmt.Errorf("set plan active: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *planRepo) Count(ctx context.Context, db DBTX) (int, error) {
	var n int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM planes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count plans: %w", err)
	}
	return n, nil
}

func scanPlan(row pgx.Row) (*domain.Plan, error) {
	p := &domain.Plan{}
	var price pgtype.Numeric
	err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.PlayerSlots, &p.RAMMB, &p.StorageMB, &p.Active)
	if err != nil {
		return nil, err
	}
	p.Price, err = domain.CentsFromNumeric(price)
	if err != nil {
		return nil, fmt.Errorf("plan %d precio: %w", p.ID, err)
	}
	return p, nil
}
