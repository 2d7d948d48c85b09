package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// ServiceCatalog reads the service-type reference data used to validate
// ticket creation. Seeded administratively, never written at runtime.
type ServiceCatalog interface {
	List(ctx context.Context) ([]domain.Service, error)
	GetByName(ctx context.Context, name string) (*domain.Service, error)
}

type serviceCatalog struct {
	pool *pgxpool.Pool
}

// NewServiceCatalog instantiates the Postgres-backed catalog.
func NewServiceCatalog(pool *pgxpool.Pool) ServiceCatalog {
	return &serviceCatalog{pool: pool}
}

func (r *serviceCatalog) List(ctx context.Context) ([]domain.Service, error) {
	const query = `SELECT id, name FROM services ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Service
	for rows.Next() {
		var svc domain.Service
		if err := rows.Scan(&svc.ID, &svc.Name); err != nil {
			return nil, err
		}
		result = append(result, svc)
	}
	return result, rows.Err()
}

func (r *serviceCatalog) GetByName(ctx context.Context, name string) (*domain.Service, error) {
	const query = `SELECT id, name FROM services WHERE name=$1`
	var svc domain.Service
	if err := r.pool.QueryRow(ctx, query, name).Scan(&svc.ID, &svc.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &svc, nil
}
