package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CustomerID *string
	EngineerID *string
	Statuses   []domain.TicketStatus
	Limit      int
	Offset     int
}

// TicketStore encapsulates ticket persistence. Every mutation after creation
// goes through ConditionalUpdate so that two concurrent writers on the same
// ticket cannot both succeed silently.
type TicketStore interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)

	// ConditionalUpdate applies mutate to the current record and persists it,
	// but only if the stored version still equals expectedVersion. On success
	// the version is bumped and the fresh record returned; a competing writer
	// surfaces as ErrVersionConflict. An error returned by mutate aborts the
	// update untouched.
	ConditionalUpdate(ctx context.Context, id string, expectedVersion int64, mutate func(*domain.Ticket) error) (*domain.Ticket, error)
}

type ticketStore struct {
	pool *pgxpool.Pool
}

// NewTicketStore instantiates the Postgres-backed store.
func NewTicketStore(pool *pgxpool.Pool) TicketStore {
	return &ticketStore{pool: pool}
}

const ticketColumns = `id, external_key, customer_id, engineer_id, title, service_type,
               description, solution, status, version, created_at, updated_at, closed_at`

func (r *ticketStore) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, customer_id, engineer_id, title, service_type, description, solution, status, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,1)
        RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.CustomerID,
		ticket.EngineerID,
		ticket.Title,
		ticket.ServiceType,
		ticket.Description,
		ticket.Solution,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketStore) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketStore) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.EngineerID != nil {
		args = append(args, *filter.EngineerID)
		clauses = append(clauses, fmt.Sprintf("engineer_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketStore) ConditionalUpdate(ctx context.Context, id string, expectedVersion int64, mutate func(*domain.Ticket) error) (*domain.Ticket, error) {
	ticket, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.Version != expectedVersion {
		return nil, ErrVersionConflict
	}
	if err := mutate(ticket); err != nil {
		return nil, err
	}

	// The WHERE clause re-checks the version so a writer that slipped in
	// between the read above and this statement loses cleanly.
	const query = `
        UPDATE tickets SET engineer_id=$1, title=$2, description=$3, solution=$4,
            status=$5, closed_at=$6, version=version+1, updated_at=NOW()
        WHERE id=$7 AND version=$8
        RETURNING version, updated_at`
	err = r.pool.QueryRow(ctx, query,
		ticket.EngineerID,
		ticket.Title,
		ticket.Description,
		ticket.Solution,
		ticket.Status,
		ticket.ClosedAt,
		ticket.ID,
		expectedVersion,
	).Scan(&ticket.Version, &ticket.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVersionConflict
		}
		return nil, err
	}
	return ticket, nil
}

type ticketRow interface {
	Scan(dest ...any) error
}

func scanTicket(row ticketRow, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.CustomerID,
		&ticket.EngineerID,
		&ticket.Title,
		&ticket.ServiceType,
		&ticket.Description,
		&ticket.Solution,
		&ticket.Status,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	)
}
