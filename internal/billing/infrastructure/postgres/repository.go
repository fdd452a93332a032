package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	billing "opsledger/internal/billing/domain"
	"opsledger/internal/money"
)

const (
	defaultInvoicesTable = "invoices"
	defaultPaymentsTable = "invoice_payments"

	pgUniqueViolation = "23505"
)

// InvoiceRepository persists invoice aggregates. Per-invoice
// serialization of mutations uses a row lock (SELECT ... FOR UPDATE)
// held for the duration of check and commit.
type InvoiceRepository struct {
	db            *sql.DB
	invoicesTable string
	paymentsTable string
}

// NewInvoiceRepository constructs a repository.
func NewInvoiceRepository(db *sql.DB, opts ...Option) *InvoiceRepository {
	repo := &InvoiceRepository{
		db:            db,
		invoicesTable: defaultInvoicesTable,
		paymentsTable: defaultPaymentsTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Option configures the repository.
type Option func(*InvoiceRepository)

// WithInvoicesTable overrides the invoices table name.
func WithInvoicesTable(table string) Option {
	return func(repo *InvoiceRepository) {
		if table != "" {
			repo.invoicesTable = table
		}
	}
}

// WithPaymentsTable overrides the payments table name.
func WithPaymentsTable(table string) Option {
	return func(repo *InvoiceRepository) {
		if table != "" {
			repo.paymentsTable = table
		}
	}
}

type lineItemRow struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TaxRate     string `json:"tax_rate"`
	LineTotal   string `json:"line_total"`
}

// Create inserts a new aggregate; unique-constraint violations on the
// invoice number surface as ErrDuplicateNumber.
func (r *InvoiceRepository) Create(ctx context.Context, inv *billing.Invoice) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repo: nil db")
	}
	if inv == nil {
		return billing.ErrNilInvoice
	}
	items, err := marshalItems(inv.Items)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id, invoice_number, client_id, project_id, issue_date, due_date, currency,
	tax_rate, discount, subtotal, tax_amount, total_amount, status, items,
	notes, created_by, created_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
)`, r.invoicesTable)

	_, err = r.db.ExecContext(ctx, query,
		inv.ID, inv.InvoiceNumber, inv.ClientID, nullString(inv.ProjectID),
		inv.IssueDate, inv.DueDate, inv.Currency,
		inv.TaxRate, inv.Discount.Amount(), inv.Subtotal.Amount(),
		inv.TaxAmount.Amount(), inv.TotalAmount.Amount(), inv.Status, items,
		inv.Notes, nullString(inv.CreatedBy), inv.CreatedAt, inv.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return billing.ErrDuplicateNumber
	}
	return err
}

// Get loads an aggregate with its payment history, (nil, nil) if absent.
func (r *InvoiceRepository) Get(ctx context.Context, id string) (*billing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}
	inv, err := r.fetch(ctx, r.db, id, false)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Mutate loads the invoice under a row lock, applies mutate and commits
// the new state plus any appended payments within one transaction.
func (r *InvoiceRepository) Mutate(ctx context.Context, id string, mutate func(*billing.Invoice) error) (*billing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	inv, err := r.fetch(ctx, tx, id, true)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if inv == nil {
		_ = tx.Rollback()
		return nil, billing.ErrNotFound
	}

	persistedPayments := len(inv.Payments)
	if err := mutate(inv); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := r.update(ctx, tx, inv); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	// Payment history is append-only; persist only the new tail.
	for _, payment := range inv.Payments[persistedPayments:] {
		if err := r.insertPayment(ctx, tx, inv.ID, payment); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return inv, nil
}

// Delete hard-removes the invoice when guard passes, under a row lock.
func (r *InvoiceRepository) Delete(ctx context.Context, id string, guard func(*billing.Invoice) error) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	inv, err := r.fetch(ctx, tx, id, true)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if inv == nil {
		_ = tx.Rollback()
		return billing.ErrNotFound
	}
	if guard != nil {
		if err := guard(inv); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE invoice_id = $1`, r.paymentsTable), id); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.invoicesTable), id); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// List returns matching invoices and the unpaged total count.
func (r *InvoiceRepository) List(ctx context.Context, filter billing.ListFilter, page billing.Page) ([]billing.Invoice, int, error) {
	if r == nil || r.db == nil {
		return nil, 0, errors.New("invoice repo: nil db")
	}
	page = page.Normalize()

	where, args := buildWhere(filter)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, r.invoicesTable, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	direction := "ASC"
	if page.SortDescending {
		direction = "DESC"
	}
	offset := (page.Number - 1) * page.Size
	listQuery := fmt.Sprintf(`
SELECT id, invoice_number, client_id, project_id, issue_date, due_date, currency,
	tax_rate, discount, subtotal, tax_amount, total_amount, status, items,
	notes, created_by, created_at, updated_at
FROM %s
%s
ORDER BY %s %s
LIMIT %d OFFSET %d`, r.invoicesTable, where, page.SortField, direction, page.Size, offset)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []billing.Invoice
	ids := make([]string, 0, page.Size)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, *inv)
		ids = append(ids, inv.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.attachPayments(ctx, invoices, ids); err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func buildWhere(filter billing.ListFilter) (string, []any) {
	clauses := make([]string, 0, 6)
	args := make([]any, 0, 6)

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	switch filter.Status {
	case "":
	case billing.StatusOverdue:
		// Overdue is derived, never stored; match it the way reads derive it.
		clauses = append(clauses, "(status IN ('pending', 'partially_paid') AND due_date < NOW())")
	default:
		add("status = $%d", filter.Status)
	}
	if filter.ClientID != "" {
		add("client_id = $%d", filter.ClientID)
	}
	if !filter.IssuedFrom.IsZero() {
		add("issue_date >= $%d", filter.IssuedFrom)
	}
	if !filter.IssuedTo.IsZero() {
		add("issue_date <= $%d", filter.IssuedTo)
	}
	if filter.MinTotal != nil {
		add("total_amount >= $%d", filter.MinTotal.Amount())
	}
	if filter.MaxTotal != nil {
		add("total_amount <= $%d", filter.MaxTotal.Amount())
	}
	if filter.Search != "" {
		add("invoice_number ILIKE $%d", "%"+filter.Search+"%")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *InvoiceRepository) fetch(ctx context.Context, q queryer, id string, forUpdate bool) (*billing.Invoice, error) {
	suffix := ""
	if forUpdate {
		suffix = " FOR UPDATE"
	}
	query := fmt.Sprintf(`
SELECT id, invoice_number, client_id, project_id, issue_date, due_date, currency,
	tax_rate, discount, subtotal, tax_amount, total_amount, status, items,
	notes, created_by, created_at, updated_at
FROM %s
WHERE id = $1%s`, r.invoicesTable, suffix)

	inv, err := scanInvoice(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	payments, err := r.loadPayments(ctx, q, inv.ID, inv.Currency)
	if err != nil {
		return nil, err
	}
	inv.Payments = payments
	return inv, nil
}

func (r *InvoiceRepository) update(ctx context.Context, q queryer, inv *billing.Invoice) error {
	items, err := marshalItems(inv.Items)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
UPDATE %s SET
	due_date = $2, tax_rate = $3, discount = $4, subtotal = $5, tax_amount = $6,
	total_amount = $7, status = $8, items = $9, notes = $10, updated_at = $11
WHERE id = $1`, r.invoicesTable)

	_, err = q.ExecContext(ctx, query,
		inv.ID, inv.DueDate, inv.TaxRate, inv.Discount.Amount(), inv.Subtotal.Amount(),
		inv.TaxAmount.Amount(), inv.TotalAmount.Amount(), inv.Status, items,
		inv.Notes, inv.UpdatedAt,
	)
	return err
}

func (r *InvoiceRepository) insertPayment(ctx context.Context, q queryer, invoiceID string, payment billing.PaymentRecord) error {
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, invoice_id, amount, currency, method, reference, notes, processed_by, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`, r.paymentsTable)

	_, err := q.ExecContext(ctx, query,
		payment.ID, invoiceID, payment.Amount.Amount(), payment.Amount.Currency(),
		payment.Method, payment.Reference, payment.Notes,
		nullString(payment.ProcessedBy), payment.Timestamp,
	)
	return err
}

func (r *InvoiceRepository) loadPayments(ctx context.Context, q queryer, invoiceID, currency string) ([]billing.PaymentRecord, error) {
	query := fmt.Sprintf(`
SELECT id, amount, currency, method, reference, notes, processed_by, created_at
FROM %s
WHERE invoice_id = $1
ORDER BY created_at ASC, id ASC`, r.paymentsTable)

	rows, err := q.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []billing.PaymentRecord
	for rows.Next() {
		payment, err := scanPayment(rows, currency)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func (r *InvoiceRepository) attachPayments(ctx context.Context, invoices []billing.Invoice, ids []string) error {
	index := make(map[string]*billing.Invoice, len(invoices))
	for i := range invoices {
		index[invoices[i].ID] = &invoices[i]
	}
	for _, id := range ids {
		inv := index[id]
		payments, err := r.loadPayments(ctx, r.db, id, inv.Currency)
		if err != nil {
			return err
		}
		inv.Payments = payments
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*billing.Invoice, error) {
	var (
		inv       billing.Invoice
		projectID sql.NullString
		createdBy sql.NullString
		discount  decimal.Decimal
		subtotal  decimal.Decimal
		tax       decimal.Decimal
		total     decimal.Decimal
		itemsRaw  []byte
	)
	if err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.ClientID, &projectID,
		&inv.IssueDate, &inv.DueDate, &inv.Currency,
		&inv.TaxRate, &discount, &subtotal, &tax, &total,
		&inv.Status, &itemsRaw, &inv.Notes, &createdBy,
		&inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	inv.ProjectID = projectID.String
	inv.CreatedBy = createdBy.String

	var err error
	if inv.Discount, err = money.New(discount, inv.Currency); err != nil {
		return nil, err
	}
	if inv.Subtotal, err = money.New(subtotal, inv.Currency); err != nil {
		return nil, err
	}
	if inv.TaxAmount, err = money.New(tax, inv.Currency); err != nil {
		return nil, err
	}
	if inv.TotalAmount, err = money.New(total, inv.Currency); err != nil {
		return nil, err
	}
	if inv.Items, err = unmarshalItems(itemsRaw, inv.Currency); err != nil {
		return nil, err
	}

	inv.IssueDate = inv.IssueDate.UTC()
	inv.DueDate = inv.DueDate.UTC()
	inv.CreatedAt = inv.CreatedAt.UTC()
	inv.UpdatedAt = inv.UpdatedAt.UTC()
	return &inv, nil
}

func scanPayment(row rowScanner, invoiceCurrency string) (billing.PaymentRecord, error) {
	var (
		payment     billing.PaymentRecord
		amount      decimal.Decimal
		currency    string
		processedBy sql.NullString
	)
	if err := row.Scan(
		&payment.ID, &amount, &currency, &payment.Method,
		&payment.Reference, &payment.Notes, &processedBy, &payment.Timestamp,
	); err != nil {
		return billing.PaymentRecord{}, err
	}
	if currency == "" {
		currency = invoiceCurrency
	}
	value, err := money.New(amount, currency)
	if err != nil {
		return billing.PaymentRecord{}, err
	}
	payment.Amount = value
	payment.ProcessedBy = processedBy.String
	payment.Timestamp = payment.Timestamp.UTC()
	return payment, nil
}

func marshalItems(items []billing.LineItem) ([]byte, error) {
	rows := make([]lineItemRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, lineItemRow{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(),
			TaxRate:     item.TaxRate.String(),
			LineTotal:   item.LineTotal.StringFixed(),
		})
	}
	return json.Marshal(rows)
}

func unmarshalItems(raw []byte, currency string) ([]billing.LineItem, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rows []lineItemRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	items := make([]billing.LineItem, 0, len(rows))
	for _, row := range rows {
		unitPrice, err := money.FromString(row.UnitPrice, currency)
		if err != nil {
			return nil, err
		}
		lineTotal, err := money.FromString(row.LineTotal, currency)
		if err != nil {
			return nil, err
		}
		taxRate, err := decimal.NewFromString(row.TaxRate)
		if err != nil {
			return nil, err
		}
		items = append(items, billing.LineItem{
			Description: row.Description,
			Quantity:    row.Quantity,
			UnitPrice:   unitPrice,
			TaxRate:     taxRate,
			LineTotal:   lineTotal,
		})
	}
	return items, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
