package projects

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no project matches the lookup.
var ErrNotFound = errors.New("project not found")

// Repo defines persistence operations for projects.
type Repo interface {
	Create(ctx context.Context, project Project) (Project, error)
	GetByID(ctx context.Context, id int64) (Project, error)
	List(ctx context.Context, companyID *int64) ([]Project, error)
	Update(ctx context.Context, project Project) (Project, error)
}
