package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/celerhost/panel/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ticketRepo struct{}

// NewTicketRepository returns a pgx-backed TicketRepository.
func NewTicketRepository() TicketRepository {
	return &ticketRepo{}
}

const ticketSelect = `
	SELECT t.id, t.usuario_id, t.asunto, t.mensaje, t.categoria, t.prioridad, t.estado,
	       u.username, u.email, t.created_at, t.updated_at
	FROM tickets t
	JOIN usuarios u ON u.id = t.usuario_id`

func (r *ticketRepo) Create(ctx context.Context, db DBTX, t *domain.Ticket) error {
	err := db.QueryRow(ctx, `
		INSERT INTO tickets (id, usuario_id, asunto, mensaje, categoria, prioridad, estado)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		t.ID, t.OwnerID, t.Subject, t.Message, string(t.Category), string(t.Priority), string(t.Status),
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (r *ticketRepo) FindByID(ctx context.Context, db DBTX, id, owner uuid.UUID) (*domain.Ticket, error) {
	row := db.QueryRow(ctx, ticketSelect+`
		WHERE t.id = $1 AND ($2::uuid IS NULL OR t.usuario_id = $2)`, id, ownerArg(owner))
	t, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (r *ticketRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id, owner uuid.UUID) (*domain.Ticket, error) {
	row := tx.QueryRow(ctx, ticketSelect+`
		WHERE t.id = $1 AND ($2::uuid IS NULL OR t.usuario_id = $2)
		FOR UPDATE OF t`, id, ownerArg(owner))
	t, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// ticketWhere builds the WHERE clause shared by List and Count.
func ticketWhere(f domain.TicketFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.OwnerID != uuid.Nil {
		args = append(args, f.OwnerID)
		conds = append(conds, fmt.Sprintf("t.usuario_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("t.estado = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, string(f.Category))
		conds = append(conds, fmt.Sprintf("t.categoria = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *ticketRepo) List(ctx context.Context, db DBTX, f domain.TicketFilter) ([]domain.Ticket, error) {
	where, args := ticketWhere(f)
	args = append(args, f.Limit, f.Offset())
	query := ticketSelect + where +
		fmt.Sprintf(" ORDER BY t.created_at DESC, t.id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	tickets := []domain.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func (r *ticketRepo) Count(ctx context.Context, db DBTX, f domain.TicketFilter) (int, error) {
	where, args := ticketWhere(f)
	var n int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets t`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return n, nil
}

func (r *ticketRepo) SetStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.TicketStatus) (bool, error) {
	tag, err := db.Exec(ctx,
		`UPDATE tickets SET estado = $1, updated_at = now() WHERE id = $2`, string(status), id)
	if err != nil {
		return false, fmt.Errorf("set ticket status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ticketRepo) Touch(ctx context.Context, db DBTX, id uuid.UUID) error {
	if _, err := db.Exec(ctx, `UPDATE tickets SET updated_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("touch ticket: %w", err)
	}
	return nil
}

func (r *ticketRepo) InsertReply(ctx context.Context, db DBTX, reply *domain.TicketReply) error {
	err := db.QueryRow(ctx, `
		INSERT INTO ticket_respuestas (id, ticket_id, usuario_id, mensaje, es_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		reply.ID, reply.TicketID, reply.AuthorID, reply.Message, reply.ByAdmin,
	).Scan(&reply.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ticket reply: %w", err)
	}
	return nil
}

func (r *ticketRepo) ListReplies(ctx context.Context, db DBTX, ticketID uuid.UUID) ([]domain.TicketReply, error) {
	rows, err := db.Query(ctx, `
		SELECT r.id, r.ticket_id, r.usuario_id, r.mensaje, r.es_admin, u.username, u.role, r.created_at
		FROM ticket_respuestas r
		JOIN usuarios u ON u.id = r.usuario_id
		WHERE r.ticket_id = $1
		ORDER BY r.created_at ASC, r.id`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list ticket replies: %w", err)
	}
	defer rows.Close()

	replies := []domain.TicketReply{}
	for rows.Next() {
		var rp domain.TicketReply
		var role string
		if err := rows.Scan(&rp.ID, &rp.TicketID, &rp.AuthorID, &rp.Message, &rp.ByAdmin,
			&rp.AuthorUsername, &role, &rp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket reply: %w", err)
		}
		rp.AuthorRole = domain.Role(role)
		replies = append(replies, rp)
	}
	return replies, rows.Err()
}

func (r *ticketRepo) Stats(ctx context.Context, db DBTX) (*domain.TicketStats, error) {
	stats := &domain.TicketStats{}

	counts, err := groupByStatus(ctx, db, `SELECT estado, COUNT(*) FROM tickets GROUP BY estado ORDER BY estado`)
	if err != nil {
		return nil, fmt.Errorf("ticket stats: %w", err)
	}
	stats.ByStatus = counts
	for _, c := range counts {
		stats.Total += c.Count
	}

	err = db.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE created_at >= date_trunc('day', now())`).Scan(&stats.Today)
	if err != nil {
		return nil, fmt.Errorf("tickets today: %w", err)
	}
	return stats, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	t := &domain.Ticket{}
	var category, priority, status string
	err := row.Scan(&t.ID, &t.OwnerID, &t.Subject, &t.Message, &category, &priority, &status,
		&t.OwnerUsername, &t.OwnerEmail, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Category = domain.TicketCategory(category)
	t.Priority = domain.TicketPriority(priority)
	t.Status = domain.TicketStatus(status)
	return t, nil
}
