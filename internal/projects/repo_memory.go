package projects

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo implements Repo in memory for tests and local development.
type MemoryRepo struct {
	mu       sync.Mutex
	nextID   int64
	projects map[int64]Project
}

// NewMemoryRepo creates an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{nextID: 1, projects: make(map[int64]Project)}
}

// Create inserts a new project.
func (r *MemoryRepo) Create(ctx context.Context, project Project) (Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	project.ID = r.nextID
	r.nextID++
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}
	r.projects[project.ID] = project
	return project, nil
}

// GetByID returns a project by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	project, ok := r.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return project, nil
}

// List returns active projects, optionally scoped to a company.
func (r *MemoryRepo) List(ctx context.Context, companyID *int64) ([]Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Project
	for _, project := range r.projects {
		if !project.IsActive {
			continue
		}
		if companyID != nil && (project.CompanyID == nil || *project.CompanyID != *companyID) {
			continue
		}
		out = append(out, project)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Update saves mutable project fields.
func (r *MemoryRepo) Update(ctx context.Context, project Project) (Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.projects[project.ID]
	if !ok {
		return Project{}, ErrNotFound
	}
	existing.Name = project.Name
	existing.Description = project.Description
	existing.IsActive = project.IsActive
	r.projects[project.ID] = existing
	return existing, nil
}

var _ Repo = (*MemoryRepo)(nil)
