package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/case-service/internal/domain"
)

// UserRepository defines persistence access for accounts and their reset state.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, page Page) ([]domain.User, int, error)
	UpdateToken(ctx context.Context, id, token string) error

	SetResetCode(ctx context.Context, id, codeDigest string, expiresAt time.Time) error
	ClearResetState(ctx context.Context, id, codeDigest string) error
	ResetCodeInUse(ctx context.Context, codeDigest string, now time.Time) (bool, error)
	MarkResetVerified(ctx context.Context, codeDigest string, now time.Time) (string, error)
	CompleteReset(ctx context.Context, id, passwordHash, token string) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, first_name, last_name, email, password_hash, role, avatar, token,
        password_reset_code, password_reset_expires_at, password_reset_verified, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Avatar,
		&user.Token,
		&user.PasswordResetCode,
		&user.PasswordResetExpiresAt,
		&user.PasswordResetVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, first_name, last_name, email, password_hash, role, avatar, token)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Avatar,
		user.Token,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	return mapError(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET first_name=$1, last_name=$2, email=$3, role=$4, avatar=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Role,
		user.Avatar,
		user.ID,
	).Scan(&user.UpdatedAt)
	return mapError(err)
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

func (r *userRepository) List(ctx context.Context, page Page) ([]domain.User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	rows, err := r.pool.Query(ctx, `
        SELECT `+userColumns+`
        FROM users
        ORDER BY created_at DESC, id
        LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	users := make([]domain.User, 0, page.Limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}
	return users, total, mapError(rows.Err())
}

func (r *userRepository) UpdateToken(ctx context.Context, id, token string) error {
	return r.execOne(ctx, `UPDATE users SET token=$1, updated_at=NOW() WHERE id=$2`, token, id)
}

// SetResetCode replaces any pending code and drops an earlier verification.
func (r *userRepository) SetResetCode(ctx context.Context, id, codeDigest string, expiresAt time.Time) error {
	const query = `
        UPDATE users
        SET password_reset_code=$1, password_reset_expires_at=$2, password_reset_verified=FALSE, updated_at=NOW()
        WHERE id=$3`
	return r.execOne(ctx, query, codeDigest, expiresAt, id)
}

// ClearResetState drops the pending code only if it is still codeDigest, so a rollback
// never erases a newer request's code. Returns ErrNotFound when nothing matched.
func (r *userRepository) ClearResetState(ctx context.Context, id, codeDigest string) error {
	const query = `
        UPDATE users
        SET password_reset_code=NULL, password_reset_expires_at=NULL, password_reset_verified=FALSE, updated_at=NOW()
        WHERE id=$1 AND password_reset_code=$2`
	return r.execOne(ctx, query, id, codeDigest)
}

func (r *userRepository) ResetCodeInUse(ctx context.Context, codeDigest string, now time.Time) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM users WHERE password_reset_code=$1 AND password_reset_expires_at > $2
        )`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, codeDigest, now).Scan(&exists); err != nil {
		return false, mapError(err)
	}
	return exists, nil
}

// MarkResetVerified flags the account holding a live matching code and returns its id.
// Expiry is exclusive: a code is dead at its expiry instant.
func (r *userRepository) MarkResetVerified(ctx context.Context, codeDigest string, now time.Time) (string, error) {
	const query = `
        UPDATE users SET password_reset_verified=TRUE, updated_at=NOW()
        WHERE id = (
            SELECT id FROM users
            WHERE password_reset_code=$1 AND password_reset_expires_at > $2
            ORDER BY password_reset_expires_at DESC
            LIMIT 1
        )
        RETURNING id`

	var id string
	if err := r.pool.QueryRow(ctx, query, codeDigest, now).Scan(&id); err != nil {
		return "", mapError(err)
	}
	return id, nil
}

// CompleteReset swaps the password only while the account is verified, returning
// ErrStateMismatch otherwise.
func (r *userRepository) CompleteReset(ctx context.Context, id, passwordHash, token string) error {
	const query = `
        UPDATE users
        SET password_hash=$1, token=$2,
            password_reset_code=NULL, password_reset_expires_at=NULL, password_reset_verified=FALSE,
            updated_at=NOW()
        WHERE id=$3 AND password_reset_verified`

	cmd, err := r.pool.Exec(ctx, query, passwordHash, token, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrStateMismatch
	}
	return nil
}

func (r *userRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
