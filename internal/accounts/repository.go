package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentinel-auth/sentinel/internal/authz"
	"github.com/sentinel-auth/sentinel/internal/shared"
)

// Repository defines persistence operations for accounts.
type Repository interface {
	Create(ctx context.Context, email, username, passwordHash string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	UpdateProfile(ctx context.Context, id int64, firstName, lastName, username string) error
	SetActive(ctx context.Context, id int64, active bool) error
	MarkEmailVerified(ctx context.Context, id int64) (bool, error)
}

const userColumns = `id, email, username, first_name, last_name, password_hash,
	is_active, is_superuser, email_verified, created_at, updated_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a new, unverified user.
func (r *PGRepository) Create(ctx context.Context, email, username, passwordHash string) (*User, error) {
	const query = `
		INSERT INTO users (email, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns
	user, err := r.scanUser(r.pool.QueryRow(ctx, query, email, username, passwordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.InvalidInputf("A user with that email already exists.")
		}
		return nil, err
	}
	return user, nil
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.findOne(ctx, query, email)
}

// FindByID fetches a user by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// UpdateProfile updates the mutable profile fields.
func (r *PGRepository) UpdateProfile(ctx context.Context, id int64, firstName, lastName, username string) error {
	const query = `
		UPDATE users
		SET first_name = $2, last_name = $3, username = $4, updated_at = now()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, firstName, lastName, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetActive flips the active flag.
func (r *PGRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkEmailVerified flips email_verified to true exactly once. The second
// caller sees false.
func (r *PGRepository) MarkEmailVerified(ctx context.Context, id int64) (bool, error) {
	const query = `
		UPDATE users SET email_verified = true, updated_at = now()
		WHERE id = $1 AND email_verified = false`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FindPrincipal implements authz.Resolver.
func (r *PGRepository) FindPrincipal(ctx context.Context, id int64) (authz.Principal, error) {
	return r.FindByID(ctx, id)
}

func (r *PGRepository) findOne(ctx context.Context, query string, arg any) (*User, error) {
	user, err := r.scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *PGRepository) scanUser(row pgx.Row) (*User, error) {
	var user User
	if err := row.Scan(
		&user.ID, &user.Email, &user.Username, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.IsActive, &user.IsSuperuser, &user.EmailVerified,
		&user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
var _ authz.Resolver = (*PGRepository)(nil)
