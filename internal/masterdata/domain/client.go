package masterdata

import (
	"context"
	"errors"
	"time"
)

// Client represents a billable client account.
type Client struct {
	ID            string
	CompanyName   string
	ContactPerson string
	Email         string
	Phone         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks client invariants.
func (c Client) Validate() error {
	if c.ID == "" {
		return errors.New("client: empty id")
	}
	if c.CompanyName == "" {
		return errors.New("client: empty company name")
	}
	return nil
}

// ClientRepository provides read access to clients.
type ClientRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*Client, error)
}
