package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/case-service/internal/domain"
)

// CaseRepository encapsulates case persistence.
type CaseRepository interface {
	Create(ctx context.Context, c *domain.Case) error
	Update(ctx context.Context, c *domain.Case) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Case, error)
	List(ctx context.Context, page Page) ([]domain.Case, int, error)
}

type caseRepository struct {
	pool *pgxpool.Pool
}

// NewCaseRepository instantiates repository.
func NewCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &caseRepository{pool: pool}
}

const caseColumns = `id, COALESCE(user_id::text, ''), full_name, code, disease, age, date, created_at, updated_at`

func scanCase(row pgx.Row) (*domain.Case, error) {
	var c domain.Case
	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.FullName,
		&c.Code,
		&c.Disease,
		&c.Age,
		&c.Date,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func (r *caseRepository) Create(ctx context.Context, c *domain.Case) error {
	const query = `
        INSERT INTO cases (user_id, full_name, code, disease, age, date)
        VALUES (NULLIF($1, '')::uuid, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		c.UserID,
		c.FullName,
		c.Code,
		c.Disease,
		c.Age,
		c.Date,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapError(err)
}

func (r *caseRepository) Update(ctx context.Context, c *domain.Case) error {
	const query = `
        UPDATE cases SET full_name=$1, code=$2, disease=$3, age=$4, date=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		c.FullName,
		c.Code,
		c.Disease,
		c.Age,
		c.Date,
		c.ID,
	).Scan(&c.UpdatedAt)
	return mapError(err)
}

// Delete removes the case; its reports and visits go with it through ON DELETE CASCADE.
func (r *caseRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cases WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *caseRepository) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	return scanCase(r.pool.QueryRow(ctx, `SELECT `+caseColumns+` FROM cases WHERE id=$1`, id))
}

func (r *caseRepository) List(ctx context.Context, page Page) ([]domain.Case, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cases`).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	rows, err := r.pool.Query(ctx, `
        SELECT `+caseColumns+`
        FROM cases
        ORDER BY date DESC, id
        LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	cases := make([]domain.Case, 0, page.Limit)
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		cases = append(cases, *c)
	}
	return cases, total, mapError(rows.Err())
}
