package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"opsledger/internal/money"
)

const (
	StatusDraft         = "draft"
	StatusPending       = "pending"
	StatusPartiallyPaid = "partially_paid"
	StatusPaid          = "paid"
	StatusOverdue       = "overdue"
	StatusCancelled     = "cancelled"
)

const (
	MethodMpesa        = "mpesa"
	MethodBankTransfer = "bank_transfer"
	MethodCard         = "card"
	MethodCash         = "cash"
)

// DefaultTaxRate applies when the caller does not set one.
var DefaultTaxRate = decimal.NewFromFloat(16.0)

// LineItem is one billed position. LineTotal and TaxRate are derived
// during recomputation; TaxRate inherits the invoice rate when unset.
type LineItem struct {
	Description string
	Quantity    int64
	UnitPrice   money.Money
	TaxRate     decimal.Decimal
	LineTotal   money.Money
}

// PaymentRecord is one applied payment. The history is append-only.
type PaymentRecord struct {
	ID          string
	Amount      money.Money
	Method      string
	Reference   string
	Notes       string
	ProcessedBy string
	Timestamp   time.Time
}

// Invoice is the aggregate owning line items, derived totals and the
// payment history as one consistency boundary. Client, project and
// creator are referenced by id only.
type Invoice struct {
	ID            string
	InvoiceNumber string
	ClientID      string
	ProjectID     string
	IssueDate     time.Time
	DueDate       time.Time
	Currency      string
	TaxRate       decimal.Decimal
	Discount      money.Money
	Items         []LineItem
	Subtotal      money.Money
	TaxAmount     money.Money
	TotalAmount   money.Money
	Status        string
	Payments      []PaymentRecord
	Notes         string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewInvoiceInput carries the caller's invoice creation request.
type NewInvoiceInput struct {
	InvoiceNumber string
	ClientID      string
	ProjectID     string
	IssueDate     time.Time
	DueDate       time.Time
	Currency      string
	TaxRate       *decimal.Decimal
	Discount      money.Money
	Items         []LineItem
	Notes         string
	AsDraft       bool
}

// NewInvoice validates input, computes derived totals and returns the
// aggregate in its initial state with an empty payment history.
// Client/project existence is the application layer's concern.
func NewInvoice(id string, input NewInvoiceInput, now time.Time) (*Invoice, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty invoice id", ErrValidation)
	}
	if input.ClientID == "" {
		return nil, fmt.Errorf("%w: client id required", ErrValidation)
	}
	if len(input.Currency) != 3 {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", ErrValidation)
	}
	if input.IssueDate.IsZero() || input.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: issue and due dates required", ErrValidation)
	}
	if input.DueDate.Before(input.IssueDate) {
		return nil, fmt.Errorf("%w: due date before issue date", ErrValidation)
	}

	taxRate := DefaultTaxRate
	if input.TaxRate != nil {
		taxRate = *input.TaxRate
	}

	status := StatusPending
	if input.AsDraft {
		status = StatusDraft
	}

	inv := &Invoice{
		ID:            id,
		InvoiceNumber: input.InvoiceNumber,
		ClientID:      input.ClientID,
		ProjectID:     input.ProjectID,
		IssueDate:     input.IssueDate,
		DueDate:       input.DueDate,
		Currency:      input.Currency,
		TaxRate:       taxRate,
		Discount:      input.Discount,
		Items:         append([]LineItem(nil), input.Items...),
		Status:        status,
		Notes:         input.Notes,
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}
	if err := inv.Recompute(); err != nil {
		return nil, err
	}
	return inv, nil
}

// UpdatePatch is the closed set of fields update may change. Unknown
// fields are rejected at the type level; nil means leave untouched.
type UpdatePatch struct {
	Items    *[]LineItem
	Discount *money.Money
	TaxRate  *decimal.Decimal
	DueDate  *time.Time
	Notes    *string
}

// ApplyUpdate mutates the invoice per the patch and recomputes totals.
// Paid and cancelled invoices reject all updates. A patch may never push
// the total below the applied payment sum; equality settles the invoice.
func (inv *Invoice) ApplyUpdate(patch UpdatePatch, now time.Time) error {
	if inv.Status == StatusPaid || inv.Status == StatusCancelled {
		return fmt.Errorf("%w: cannot update %s invoice", ErrInvalidState, inv.Status)
	}
	if patch.DueDate != nil {
		if patch.DueDate.Before(inv.IssueDate) {
			return fmt.Errorf("%w: due date before issue date", ErrValidation)
		}
		inv.DueDate = *patch.DueDate
	}
	if patch.Items != nil {
		inv.Items = append([]LineItem(nil), (*patch.Items)...)
	}
	if patch.Discount != nil {
		inv.Discount = *patch.Discount
	}
	if patch.TaxRate != nil {
		inv.TaxRate = *patch.TaxRate
	}
	if patch.Notes != nil {
		inv.Notes = *patch.Notes
	}
	if err := inv.Recompute(); err != nil {
		return err
	}
	if paid := inv.PaidTotal(); !paid.IsZero() {
		switch paid.Cmp(inv.TotalAmount) {
		case 1:
			return fmt.Errorf("%w: new total %s below applied payments %s", ErrValidation,
				inv.TotalAmount.StringFixed(), paid.StringFixed())
		case 0:
			inv.Status = StatusPaid
		}
	}
	inv.UpdatedAt = now.UTC()
	return nil
}

// Recompute rederives line totals, subtotal, tax and total from current
// items, tax rate and discount. It is a pure step: repeated invocation
// on an unchanged invoice yields identical Money values.
func (inv *Invoice) Recompute() error {
	if len(inv.Items) == 0 {
		return fmt.Errorf("%w: at least one line item required", ErrValidation)
	}
	if inv.TaxRate.IsNegative() || inv.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: tax rate must be within 0-100", ErrValidation)
	}

	subtotal := money.Zero(inv.Currency)
	for i := range inv.Items {
		item := &inv.Items[i]
		if item.Description == "" {
			return fmt.Errorf("%w: line %d: description required", ErrValidation, i+1)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: line %d: quantity must be >= 1", ErrValidation, i+1)
		}
		if !item.UnitPrice.IsNonNegative() {
			return fmt.Errorf("%w: line %d: negative unit price", ErrValidation, i+1)
		}
		if item.TaxRate.IsZero() {
			item.TaxRate = inv.TaxRate
		}
		item.LineTotal = item.UnitPrice.MulInt(item.Quantity)

		var err error
		subtotal, err = subtotal.Add(item.LineTotal)
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrValidation, i+1, err)
		}
	}

	if !inv.Discount.IsNonNegative() {
		return fmt.Errorf("%w: negative discount", ErrValidation)
	}
	discount := inv.Discount
	if discount.Currency() == "" {
		discount = money.Zero(inv.Currency)
	}
	if discount.Currency() != inv.Currency {
		return fmt.Errorf("%w: discount currency %s", ErrValidation, discount.Currency())
	}
	if discount.Cmp(subtotal) > 0 {
		return fmt.Errorf("%w: discount exceeds subtotal", ErrValidation)
	}

	taxAmount := subtotal.PercentOf(inv.TaxRate)
	total, err := subtotal.Add(taxAmount)
	if err != nil {
		return err
	}
	total, err = total.Sub(discount)
	if err != nil {
		return err
	}
	if !total.IsNonNegative() {
		return fmt.Errorf("%w: negative total amount", ErrValidation)
	}

	inv.Discount = discount
	inv.Subtotal = subtotal
	inv.TaxAmount = taxAmount
	inv.TotalAmount = total
	return nil
}

// PaidTotal returns the cumulative applied payment amount.
func (inv *Invoice) PaidTotal() money.Money {
	total := money.Zero(inv.Currency)
	for _, payment := range inv.Payments {
		total, _ = total.Add(payment.Amount)
	}
	return total
}

// RemainingBalance returns totalAmount minus the paid total.
func (inv *Invoice) RemainingBalance() money.Money {
	remaining, _ := inv.TotalAmount.Sub(inv.PaidTotal())
	return remaining
}

// ApplyPayment appends a payment record and moves status to paid or
// partially_paid. Equality with the remaining balance settles the
// invoice; any overshoot is rejected outright.
func (inv *Invoice) ApplyPayment(record PaymentRecord) error {
	switch inv.Status {
	case StatusPending, StatusPartiallyPaid:
	case StatusPaid, StatusCancelled, StatusDraft:
		return fmt.Errorf("%w: cannot pay %s invoice", ErrInvalidState, inv.Status)
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidState, inv.Status)
	}
	if !validMethod(record.Method) {
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, record.Method)
	}
	if !record.Amount.IsPositive() {
		return fmt.Errorf("%w: payment amount must be positive", ErrValidation)
	}
	if record.Amount.Currency() != inv.Currency {
		return fmt.Errorf("%w: %s vs %s", money.ErrCurrencyMismatch, record.Amount.Currency(), inv.Currency)
	}

	remaining := inv.RemainingBalance()
	if record.Amount.Cmp(remaining) > 0 {
		return fmt.Errorf("%w: %s over remaining %s", ErrAmountExceedsBalance,
			record.Amount.StringFixed(), remaining.StringFixed())
	}

	inv.Payments = append(inv.Payments, record)
	if inv.PaidTotal().Cmp(inv.TotalAmount) == 0 {
		inv.Status = StatusPaid
	} else {
		inv.Status = StatusPartiallyPaid
	}
	inv.UpdatedAt = record.Timestamp.UTC()
	return nil
}

// Issue moves a draft invoice into pending so payments may apply.
func (inv *Invoice) Issue(now time.Time) error {
	if inv.Status != StatusDraft {
		return fmt.Errorf("%w: only draft invoices can be issued", ErrInvalidState)
	}
	inv.Status = StatusPending
	inv.UpdatedAt = now.UTC()
	return nil
}

// Cancel is the administrative override out of any non-terminal state.
// Cancelling an already-cancelled invoice is a no-op.
func (inv *Invoice) Cancel(now time.Time) error {
	switch inv.Status {
	case StatusCancelled:
		return nil
	case StatusPaid:
		return fmt.Errorf("%w: cannot cancel a paid invoice", ErrInvalidState)
	}
	inv.Status = StatusCancelled
	inv.UpdatedAt = now.UTC()
	return nil
}

// CanDelete reports whether hard deletion is permitted.
func (inv *Invoice) CanDelete() bool {
	return inv.Status == StatusDraft
}

// EffectiveStatus derives the read-time status: overdue when the due
// date has passed and the stored status is pending or partially_paid.
// The persisted status is never rewritten to overdue.
func (inv *Invoice) EffectiveStatus(now time.Time) string {
	if (inv.Status == StatusPending || inv.Status == StatusPartiallyPaid) && now.After(inv.DueDate) {
		return StatusOverdue
	}
	return inv.Status
}

// Clone returns a detached deep copy; items and payments are never
// aliased outside the aggregate.
func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	dup := *inv
	dup.Items = append([]LineItem(nil), inv.Items...)
	dup.Payments = append([]PaymentRecord(nil), inv.Payments...)
	return &dup
}

func validMethod(method string) bool {
	switch method {
	case MethodMpesa, MethodBankTransfer, MethodCard, MethodCash:
		return true
	default:
		return false
	}
}
