package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskline/ticket-sync/internal/domain"
)

// TicketFilter captures list parameters. Zero values do not filter.
type TicketFilter struct {
	Status         domain.TicketStatus
	Priority       string
	TicketType     string
	Category       string
	SearchTerm     string
	InvolvedUserID *int64
	Limit          int
	Offset         int
}

// TicketPatch is the change applied by a bulk update. Nil fields are left alone; OpenIfNew
// moves tickets still in "new" to "open".
type TicketPatch struct {
	Status       *domain.TicketStatus
	AssignedToID *int64
	Priority     *string
	TicketType   *string
	OpenIfNew    bool
}

// Apply mutates t according to the patch.
func (p TicketPatch) Apply(t *domain.Ticket) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.AssignedToID != nil {
		v := *p.AssignedToID
		t.AssignedToID = &v
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.TicketType != nil {
		t.TicketType = *p.TicketType
	}
	if p.OpenIfNew && t.Status == domain.TicketStatusNew {
		t.Status = domain.TicketStatusOpen
	}
}

// TicketRepository encapsulates ticket persistence. Missing rows are reported as pgx.ErrNoRows
// by every implementation.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	BulkUpdate(ctx context.Context, ids []int64, patch TicketPatch) (int, error)
	Stats(ctx context.Context) (domain.TicketStats, error)
}

const resolutionCodeKey = "resolution_code"

// ResolutionCode reads the resolution code carried in the ticket's passthrough fields.
func ResolutionCode(t domain.Ticket) string {
	raw, ok := t.Extra[resolutionCodeKey]
	if !ok {
		return ""
	}
	var code string
	_ = json.Unmarshal(raw, &code)
	return code
}

// SetResolutionCode stores code among the ticket's passthrough fields.
func SetResolutionCode(t *domain.Ticket, code string) {
	if code == "" {
		delete(t.Extra, resolutionCodeKey)
		return
	}
	raw, _ := json.Marshal(code)
	if t.Extra == nil {
		t.Extra = map[string]json.RawMessage{}
	}
	t.Extra[resolutionCodeKey] = raw
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates a Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, status, priority, ticket_type, category,
               assigned_to_id, requester_id, sla_breached, resolution, resolution_code, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, priority, ticket_type, category, assigned_to_id, requester_id, sla_breached)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.TicketType,
		ticket.Category,
		ticket.AssignedToID,
		ticket.RequesterID,
		ticket.SLABreached,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, ticket_type=$5, category=$6,
            assigned_to_id=$7, sla_breached=$8, resolution=$9, resolution_code=$10, updated_at=NOW()
        WHERE id=$11
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.TicketType,
		ticket.Category,
		ticket.AssignedToID,
		ticket.SLABreached,
		ticket.Resolution,
		ResolutionCode(*ticket),
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.TicketType != "" {
		args = append(args, filter.TicketType)
		clauses = append(clauses, fmt.Sprintf("ticket_type=$%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.InvolvedUserID != nil {
		args = append(args, *filter.InvolvedUserID)
		clauses = append(clauses, fmt.Sprintf("(assigned_to_id=$%d OR requester_id=$%d)", len(args), len(args)))
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		args = append(args, "%"+strings.ToLower(term)+"%")
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d)", len(args), len(args)))
	}
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets` + where + ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tickets := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, total, rows.Err()
}

func (r *ticketRepository) BulkUpdate(ctx context.Context, ids []int64, patch TicketPatch) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	sets := []string{"updated_at=NOW()"}
	args := []any{}
	if patch.Status != nil {
		args = append(args, *patch.Status)
		sets = append(sets, fmt.Sprintf("status=$%d", len(args)))
	}
	if patch.AssignedToID != nil {
		args = append(args, *patch.AssignedToID)
		sets = append(sets, fmt.Sprintf("assigned_to_id=$%d", len(args)))
	}
	if patch.Priority != nil {
		args = append(args, *patch.Priority)
		sets = append(sets, fmt.Sprintf("priority=$%d", len(args)))
	}
	if patch.TicketType != nil {
		args = append(args, *patch.TicketType)
		sets = append(sets, fmt.Sprintf("ticket_type=$%d", len(args)))
	}
	if patch.OpenIfNew && patch.Status == nil {
		sets = append(sets, fmt.Sprintf("status=CASE WHEN status='%s' THEN '%s' ELSE status END",
			domain.TicketStatusNew, domain.TicketStatusOpen))
	}
	args = append(args, ids)
	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id = ANY($%d)`, strings.Join(sets, ", "), len(args))

	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *ticketRepository) Stats(ctx context.Context) (domain.TicketStats, error) {
	const query = `
        SELECT status, priority, ticket_type, COUNT(*), COUNT(*) FILTER (WHERE sla_breached)
        FROM tickets GROUP BY status, priority, ticket_type`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return domain.TicketStats{}, err
	}
	defer rows.Close()

	stats := domain.NewTicketStats()
	for rows.Next() {
		var (
			status               domain.TicketStatus
			priority, ticketType string
			count, breached      int
		)
		if err := rows.Scan(&status, &priority, &ticketType, &count, &breached); err != nil {
			return domain.TicketStats{}, err
		}
		stats.Total += count
		stats.SLABreached += breached
		stats.ByPriority[priority] += count
		stats.ByType[ticketType] += count
		stats.TransitionStatus("", status, count)
	}
	return stats, rows.Err()
}

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var (
		ticket         domain.Ticket
		resolutionCode string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.TicketType,
		&ticket.Category,
		&ticket.AssignedToID,
		&ticket.RequesterID,
		&ticket.SLABreached,
		&ticket.Resolution,
		&resolutionCode,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return domain.Ticket{}, err
	}
	SetResolutionCode(&ticket, resolutionCode)
	return ticket, nil
}
