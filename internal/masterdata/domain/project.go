package masterdata

import (
	"context"
	"errors"
	"time"
)

// Project represents a client project invoices may reference.
type Project struct {
	ID          string
	ClientID    string
	ProjectName string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks project invariants.
func (p Project) Validate() error {
	if p.ID == "" {
		return errors.New("project: empty id")
	}
	if p.ClientID == "" {
		return errors.New("project: empty client id")
	}
	if p.ProjectName == "" {
		return errors.New("project: empty project name")
	}
	return nil
}

// ProjectRepository provides read access to projects.
type ProjectRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*Project, error)
}
