package billing

import (
	"context"
	"time"

	"opsledger/internal/money"
)

// ListFilter narrows an invoice listing. Zero values mean "no filter".
// Search matches the invoice number case-insensitively.
type ListFilter struct {
	Status     string
	ClientID   string
	IssuedFrom time.Time
	IssuedTo   time.Time
	MinTotal   *money.Money
	MaxTotal   *money.Money
	Search     string
}

// Page controls listing pagination and ordering.
type Page struct {
	Number         int
	Size           int
	SortField      string
	SortDescending bool
}

// Normalize applies listing defaults.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 || p.Size > 200 {
		p.Size = 20
	}
	switch p.SortField {
	case "issue_date", "due_date", "total_amount", "invoice_number", "created_at":
	default:
		p.SortField = "created_at"
	}
	return p
}

// Repository persists invoice aggregates. Get returns (nil, nil) when
// the invoice is absent; the application layer maps that to ErrNotFound.
type Repository interface {
	// Create inserts a new aggregate; a taken invoice number surfaces
	// as ErrDuplicateNumber.
	Create(ctx context.Context, inv *Invoice) error

	Get(ctx context.Context, id string) (*Invoice, error)

	// Mutate loads the invoice, runs mutate under a per-invoice
	// exclusion scope and commits the result. The scope is held across
	// check and commit, so balance checks inside mutate cannot race.
	// Returns ErrNotFound when the invoice is absent.
	Mutate(ctx context.Context, id string, mutate func(*Invoice) error) (*Invoice, error)

	// Delete hard-removes the invoice after guard passes under the same
	// exclusion scope Mutate uses.
	Delete(ctx context.Context, id string, guard func(*Invoice) error) error

	List(ctx context.Context, filter ListFilter, page Page) ([]Invoice, int, error)
}
