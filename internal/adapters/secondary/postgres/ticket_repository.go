package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowbit/support-platform/internal/core/domain"
	apperrors "github.com/flowbit/support-platform/internal/core/errors"
	"github.com/flowbit/support-platform/internal/core/ports"
)

const ticketColumns = `id, tenant_id, title, description, status, priority,
	created_by, assigned_to, workflow_run_id, created_at, updated_at`

// TicketRepository is the secondary adapter for ticket persistence. Every
// query conjoins tenant_id into the filter; there is no cross-tenant path.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// Ensure TicketRepository implements the ports.TicketRepository interface.
var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

// scanTicket maps one row onto a domain ticket.
func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket        domain.Ticket
		assignedTo    pgtype.UUID
		workflowRunID pgtype.Text
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
	)

	err := row.Scan(
		&ticket.ID,
		&ticket.TenantID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedBy,
		&assignedTo,
		&workflowRunID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		assignee := uuid.UUID(assignedTo.Bytes)
		ticket.AssignedTo = &assignee
	}
	if workflowRunID.Valid {
		runID := workflowRunID.String
		ticket.WorkflowRunID = &runID
	}
	ticket.CreatedAt = createdAt.Time
	ticket.UpdatedAt = updatedAt.Time

	return &ticket, nil
}

// Create persists a new ticket entity.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		INSERT INTO tickets (tenant_id, title, description, status, priority, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+ticketColumns,
		ticket.TenantID,
		ticket.Title,
		ticket.Description,
		string(ticket.Status),
		string(ticket.Priority),
		ticket.CreatedBy,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)

	return scanTicket(row)
}

// GetByID retrieves a single ticket under the mandatory tenant filter. When
// the query carries a CreatedBy restriction it is conjoined as well; a ticket
// that exists but fails either filter surfaces as not found.
func (r *TicketRepository) GetByID(ctx context.Context, query ports.TicketQuery) (*domain.Ticket, error) {
	q := GetDBTX(ctx, r.pool)

	sql := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1 AND tenant_id = $2`
	args := []interface{}{query.TicketID, query.TenantID}

	if query.CreatedBy != nil {
		sql += ` AND created_by = $3`
		args = append(args, *query.CreatedBy)
	}

	ticket, err := scanTicket(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// List retrieves tenant-scoped tickets ordered newest-first.
func (r *TicketRepository) List(ctx context.Context, query ports.TicketListQuery) ([]*domain.Ticket, error) {
	q := GetDBTX(ctx, r.pool)

	sql := `SELECT ` + ticketColumns + ` FROM tickets WHERE tenant_id = $1`
	args := []interface{}{query.TenantID}

	if query.CreatedBy != nil {
		sql += ` AND created_by = $2`
		args = append(args, *query.CreatedBy)
	}
	sql += ` ORDER BY created_at DESC`

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}

	return tickets, rows.Err()
}

// Update persists the mutable fields of an existing ticket, scoped to its
// tenant.
func (r *TicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		UPDATE tickets
		SET status = $1, priority = $2, assigned_to = $3, updated_at = $4
		WHERE id = $5 AND tenant_id = $6
		RETURNING `+ticketColumns,
		string(ticket.Status),
		string(ticket.Priority),
		ticket.AssignedTo,
		ticket.UpdatedAt,
		ticket.ID,
		ticket.TenantID,
	)

	updated, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return updated, nil
}

// SetWorkflowRunID records the workflow engine's run id as a secondary update
// after creation. A missing row is not an error here: the ticket may have
// been mutated concurrently and the run id is best-effort metadata.
func (r *TicketRepository) SetWorkflowRunID(ctx context.Context, tenantID string, ticketID int64, runID string) error {
	q := GetDBTX(ctx, r.pool)

	_, err := q.Exec(ctx, `
		UPDATE tickets
		SET workflow_run_id = $1
		WHERE id = $2 AND tenant_id = $3`,
		runID, ticketID, tenantID,
	)
	return err
}
