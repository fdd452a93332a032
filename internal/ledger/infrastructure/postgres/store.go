package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	ledger "opsledger/internal/ledger/domain"
	"opsledger/internal/money"
)

const defaultTransactionsTable = "ledger_transactions"

// Store is a Postgres implementation of the ledger transaction store.
type Store struct {
	db    *sql.DB
	table string
}

// NewStore constructs a store.
func NewStore(db *sql.DB, opts ...Option) *Store {
	store := &Store{db: db, table: defaultTransactionsTable}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Option configures the store.
type Option func(*Store)

// WithTransactionsTable overrides the table name.
func WithTransactionsTable(table string) Option {
	return func(store *Store) {
		if table != "" {
			store.table = table
		}
	}
}

// Append inserts a transaction. Re-delivery of the same event id is a
// no-op, so the consumer stays idempotent even without a processed
// store in front of it.
func (s *Store) Append(ctx context.Context, tx ledger.Transaction) error {
	if s == nil || s.db == nil {
		return errors.New("ledger store: nil db")
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id, event_id, type, invoice_id, invoice_number, client_id, payment_id,
	amount, currency, method, reference, notes, recorded_by, occurred_at, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
)
ON CONFLICT (event_id)
DO NOTHING`, s.table)

	_, err := s.db.ExecContext(ctx, query,
		tx.ID, tx.EventID, tx.Type, tx.InvoiceID, tx.InvoiceNumber, tx.ClientID,
		nullString(tx.PaymentID), tx.Amount.Amount(), tx.Amount.Currency(),
		tx.Method, tx.Reference, tx.Notes, tx.RecordedBy, tx.OccurredAt, tx.CreatedAt,
	)
	return err
}

// ListByInvoice returns all transactions for one invoice in order.
func (s *Store) ListByInvoice(ctx context.Context, invoiceID string) ([]ledger.Transaction, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("ledger store: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, event_id, type, invoice_id, invoice_number, client_id, payment_id,
	amount, currency, method, reference, notes, recorded_by, occurred_at, created_at
FROM %s
WHERE invoice_id = $1
ORDER BY occurred_at ASC, created_at ASC`, s.table)

	return s.query(ctx, query, invoiceID)
}

// ListByPeriod returns transactions in [from, to).
func (s *Store) ListByPeriod(ctx context.Context, from, to time.Time) ([]ledger.Transaction, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("ledger store: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, event_id, type, invoice_id, invoice_number, client_id, payment_id,
	amount, currency, method, reference, notes, recorded_by, occurred_at, created_at
FROM %s
WHERE occurred_at >= $1 AND occurred_at < $2
ORDER BY occurred_at ASC, created_at ASC`, s.table)

	return s.query(ctx, query, from, to)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Transaction
	for rows.Next() {
		var (
			tx        ledger.Transaction
			amount    decimal.Decimal
			currency  string
			paymentID sql.NullString
		)
		if err := rows.Scan(
			&tx.ID, &tx.EventID, &tx.Type, &tx.InvoiceID, &tx.InvoiceNumber,
			&tx.ClientID, &paymentID, &amount, &currency, &tx.Method,
			&tx.Reference, &tx.Notes, &tx.RecordedBy, &tx.OccurredAt, &tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		value, err := money.New(amount, currency)
		if err != nil {
			return nil, err
		}
		tx.Amount = value
		tx.PaymentID = paymentID.String
		tx.OccurredAt = tx.OccurredAt.UTC()
		tx.CreatedAt = tx.CreatedAt.UTC()
		result = append(result, tx)
	}
	return result, rows.Err()
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
