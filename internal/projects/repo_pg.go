package projects

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const projectColumns = `id, name, description, company_id, is_active, created_at`

// Create inserts a new project.
func (r *PGRepo) Create(ctx context.Context, project Project) (Project, error) {
	const query = `
INSERT INTO projects (name, description, company_id, is_active)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`
	err := r.DB.QueryRowContext(ctx, query,
		project.Name,
		project.Description,
		project.CompanyID,
		project.IsActive,
	).Scan(&project.ID, &project.CreatedAt)
	if err != nil {
		return Project{}, err
	}
	return project, nil
}

// GetByID returns a project by ID.
func (r *PGRepo) GetByID(ctx context.Context, id int64) (Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 LIMIT 1`
	var project Project
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&project.ID,
		&project.Name,
		&project.Description,
		&project.CompanyID,
		&project.IsActive,
		&project.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	return project, nil
}

// List returns active projects, optionally scoped to a company.
func (r *PGRepo) List(ctx context.Context, companyID *int64) ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE is_active = TRUE`
	var args []any
	if companyID != nil {
		query += ` AND company_id = $1`
		args = append(args, *companyID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var project Project
		if err := rows.Scan(
			&project.ID,
			&project.Name,
			&project.Description,
			&project.CompanyID,
			&project.IsActive,
			&project.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, project)
	}
	return out, rows.Err()
}

// Update saves mutable project fields.
func (r *PGRepo) Update(ctx context.Context, project Project) (Project, error) {
	const query = `
UPDATE projects SET name = $2, description = $3, is_active = $4
WHERE id = $1
RETURNING id`
	err := r.DB.QueryRowContext(ctx, query,
		project.ID,
		project.Name,
		project.Description,
		project.IsActive,
	).Scan(&project.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	return r.GetByID(ctx, project.ID)
}

var _ Repo = (*PGRepo)(nil)
