package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "opsledger/internal/masterdata/domain"
)

const defaultClientsTable = "clients"

// ClientRepository is a Postgres implementation for clients.
type ClientRepository struct {
	db    DBTX
	table string
}

// NewClientRepository constructs a repository.
func NewClientRepository(db DBTX, opts ...ClientOption) *ClientRepository {
	repo := &ClientRepository{db: db, table: defaultClientsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ClientOption configures the repository.
type ClientOption func(*ClientRepository)

// WithClientsTable overrides the default table name.
func WithClientsTable(table string) ClientOption {
	return func(repo *ClientRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Exists reports whether a client id is present.
func (r *ClientRepository) Exists(ctx context.Context, id string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("client repo: nil db")
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

// Get loads a client by id.
func (r *ClientRepository) Get(ctx context.Context, id string) (*masterdata.Client, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("client repo: nil db")
	}
	if id == "" {
		return nil, errors.New("client repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, company_name, contact_person, email, phone, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var client masterdata.Client
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&client.ID,
		&client.CompanyName,
		&client.ContactPerson,
		&client.Email,
		&client.Phone,
		&client.CreatedAt,
		&client.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	client.CreatedAt = client.CreatedAt.UTC()
	client.UpdatedAt = client.UpdatedAt.UTC()
	return &client, nil
}
