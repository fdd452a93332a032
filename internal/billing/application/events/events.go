package events

import "time"

// PaymentReceived is the ledger transaction emitted after a payment
// commits. The ledger consumer persists it append-only; delivery is
// asynchronous and never rolls back the payment.
type PaymentReceived struct {
	EventID       string    `json:"event_id"`
	InvoiceID     string    `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	ClientID      string    `json:"client_id"`
	PaymentID     string    `json:"payment_id"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Method        string    `json:"method"`
	Reference     string    `json:"reference"`
	Notes         string    `json:"notes"`
	ProcessedBy   string    `json:"processed_by"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// InvoiceCancelled is emitted when an invoice is administratively
// cancelled, so ledger reporting can exclude it from receivables.
type InvoiceCancelled struct {
	EventID       string    `json:"event_id"`
	InvoiceID     string    `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	ClientID      string    `json:"client_id"`
	Reason        string    `json:"reason"`
	CancelledBy   string    `json:"cancelled_by"`
	OccurredAt    time.Time `json:"occurred_at"`
}
