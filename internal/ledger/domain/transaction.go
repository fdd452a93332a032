package domain

import (
	"context"
	"fmt"
	"time"

	"opsledger/internal/money"
)

// Transaction kinds.
const (
	TypePayment      = "payment"
	TypeCancellation = "cancellation"
)

// Transaction is one append-only ledger line. Rows are never updated
// or deleted; corrections are new rows.
type Transaction struct {
	ID            string
	EventID       string
	Type          string
	InvoiceID     string
	InvoiceNumber string
	ClientID      string
	PaymentID     string
	Amount        money.Money
	Method        string
	Reference     string
	Notes         string
	RecordedBy    string
	OccurredAt    time.Time
	CreatedAt     time.Time
}

// Validate checks required fields before append.
func (t Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("ledger: empty transaction id")
	}
	if t.EventID == "" {
		return fmt.Errorf("ledger: empty event id")
	}
	if t.Type != TypePayment && t.Type != TypeCancellation {
		return fmt.Errorf("ledger: unknown transaction type %q", t.Type)
	}
	if t.InvoiceID == "" {
		return fmt.Errorf("ledger: empty invoice id")
	}
	if t.OccurredAt.IsZero() {
		return fmt.Errorf("ledger: zero occurred_at")
	}
	return nil
}

// Store persists ledger transactions append-only.
type Store interface {
	Append(ctx context.Context, tx Transaction) error
	ListByInvoice(ctx context.Context, invoiceID string) ([]Transaction, error)
	ListByPeriod(ctx context.Context, from, to time.Time) ([]Transaction, error)
}
