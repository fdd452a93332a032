package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "opsledger/internal/masterdata/domain"
)

const defaultProjectsTable = "projects"

// ProjectRepository is a Postgres implementation for projects.
type ProjectRepository struct {
	db    DBTX
	table string
}

// NewProjectRepository constructs a repository.
func NewProjectRepository(db DBTX, opts ...ProjectOption) *ProjectRepository {
	repo := &ProjectRepository{db: db, table: defaultProjectsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ProjectOption configures the repository.
type ProjectOption func(*ProjectRepository)

// WithProjectsTable overrides the default table name.
func WithProjectsTable(table string) ProjectOption {
	return func(repo *ProjectRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Exists reports whether a project id is present.
func (r *ProjectRepository) Exists(ctx context.Context, id string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("project repo: nil db")
	}
	if id == "" {
		return false, nil
	}

	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, r.table)
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Get loads a project by id.
func (r *ProjectRepository) Get(ctx context.Context, id string) (*masterdata.Project, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("project repo: nil db")
	}
	if id == "" {
		return nil, errors.New("project repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, client_id, project_name, status, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var project masterdata.Project
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID,
		&project.ClientID,
		&project.ProjectName,
		&project.Status,
		&project.CreatedAt,
		&project.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	project.CreatedAt = project.CreatedAt.UTC()
	project.UpdatedAt = project.UpdatedAt.UTC()
	return &project, nil
}
