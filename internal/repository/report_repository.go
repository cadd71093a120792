package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/case-service/internal/domain"
)

// ReportFilter narrows report listings.
type ReportFilter struct {
	CaseID *string
	Page
}

// ReportRepository persists uploaded case reports.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
	UpdateCase(ctx context.Context, id, caseID string) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	List(ctx context.Context, filter ReportFilter) ([]domain.Report, int, error)
	ListFilesByCase(ctx context.Context, caseID string) ([]string, error)
}

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository instantiates repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

// Reads join the owning case so callers get its full name.
const reportSelect = `
        SELECT r.id, COALESCE(r.user_id::text, ''), r.case_id, r.file, c.full_name, r.created_at
        FROM reports r
        JOIN cases c ON c.id = r.case_id`

func scanReport(row pgx.Row) (*domain.Report, error) {
	var report domain.Report
	if err := row.Scan(
		&report.ID,
		&report.UserID,
		&report.CaseID,
		&report.File,
		&report.CaseFullName,
		&report.CreatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &report, nil
}

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	const query = `
        INSERT INTO reports (user_id, case_id, file)
        VALUES (NULLIF($1, '')::uuid, $2, $3)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query, report.UserID, report.CaseID, report.File).
		Scan(&report.ID, &report.CreatedAt)
	return mapError(err)
}

func (r *reportRepository) UpdateCase(ctx context.Context, id, caseID string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE reports SET case_id=$1 WHERE id=$2`, caseID, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *reportRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM reports WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	return scanReport(r.pool.QueryRow(ctx, reportSelect+` WHERE r.id=$1`, id))
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]domain.Report, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reports WHERE ($1::uuid IS NULL OR case_id = $1)`, filter.CaseID,
	).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	rows, err := r.pool.Query(ctx, reportSelect+`
        WHERE ($1::uuid IS NULL OR r.case_id = $1)
        ORDER BY r.created_at DESC, r.id
        LIMIT $2 OFFSET $3`, filter.CaseID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	reports := make([]domain.Report, 0, filter.Limit)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, *report)
	}
	return reports, total, mapError(rows.Err())
}

func (r *reportRepository) ListFilesByCase(ctx context.Context, caseID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT file FROM reports WHERE case_id=$1`, caseID)
	if err != nil {
		return nil, mapError(err)
	}
	files, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return files, mapError(err)
}
