package users

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const userColumns = `id, email, hashed_password, full_name, role, company_id, is_active, created_at`

// Create inserts a new user.
func (r *PGRepo) Create(ctx context.Context, user User) (User, error) {
	const query = `
INSERT INTO users (email, hashed_password, full_name, role, company_id, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`
	err := r.DB.QueryRowContext(ctx, query,
		user.Email,
		user.HashedPassword,
		user.FullName,
		user.Role,
		user.CompanyID,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// GetByEmail returns a user by email.
func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`
	return r.get(ctx, query, email)
}

// GetByID returns a user by ID.
func (r *PGRepo) GetByID(ctx context.Context, id int64) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	return r.get(ctx, query, id)
}

func (r *PGRepo) get(ctx context.Context, query string, arg any) (User, error) {
	var user User
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.FullName,
		&user.Role,
		&user.CompanyID,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

var _ Repo = (*PGRepo)(nil)
