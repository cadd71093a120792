package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/case-service/internal/domain"
)

// VisitingFilter narrows visit listings.
type VisitingFilter struct {
	CaseID *string
	Page
}

// VisitingRepository persists case visits.
type VisitingRepository interface {
	Create(ctx context.Context, v *domain.Visiting) error
	Update(ctx context.Context, v *domain.Visiting) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Visiting, error)
	List(ctx context.Context, filter VisitingFilter) ([]domain.Visiting, int, error)
}

type visitingRepository struct {
	pool *pgxpool.Pool
}

// NewVisitingRepository instantiates repository.
func NewVisitingRepository(pool *pgxpool.Pool) VisitingRepository {
	return &visitingRepository{pool: pool}
}

const visitingColumns = `id, COALESCE(user_id::text, ''), case_id, visited_at, comments, created_at, updated_at`

func scanVisiting(row pgx.Row) (*domain.Visiting, error) {
	var v domain.Visiting
	if err := row.Scan(
		&v.ID,
		&v.UserID,
		&v.CaseID,
		&v.VisitedAt,
		&v.Comments,
		&v.CreatedAt,
		&v.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &v, nil
}

func (r *visitingRepository) Create(ctx context.Context, v *domain.Visiting) error {
	const query = `
        INSERT INTO visitings (user_id, case_id, visited_at, comments)
        VALUES (NULLIF($1, '')::uuid, $2, $3, $4)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query, v.UserID, v.CaseID, v.VisitedAt, v.Comments).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	return mapError(err)
}

func (r *visitingRepository) Update(ctx context.Context, v *domain.Visiting) error {
	const query = `
        UPDATE visitings SET case_id=$1, visited_at=$2, comments=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query, v.CaseID, v.VisitedAt, v.Comments, v.ID).Scan(&v.UpdatedAt)
	return mapError(err)
}

func (r *visitingRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM visitings WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *visitingRepository) GetByID(ctx context.Context, id string) (*domain.Visiting, error) {
	return scanVisiting(r.pool.QueryRow(ctx, `SELECT `+visitingColumns+` FROM visitings WHERE id=$1`, id))
}

func (r *visitingRepository) List(ctx context.Context, filter VisitingFilter) ([]domain.Visiting, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM visitings WHERE ($1::uuid IS NULL OR case_id = $1)`, filter.CaseID,
	).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	rows, err := r.pool.Query(ctx, `
        SELECT `+visitingColumns+`
        FROM visitings
        WHERE ($1::uuid IS NULL OR case_id = $1)
        ORDER BY visited_at DESC, id
        LIMIT $2 OFFSET $3`, filter.CaseID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	visits := make([]domain.Visiting, 0, filter.Limit)
	for rows.Next() {
		v, err := scanVisiting(rows)
		if err != nil {
			return nil, 0, err
		}
		visits = append(visits, *v)
	}
	return visits, total, mapError(rows.Err())
}
