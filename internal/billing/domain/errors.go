package billing

import "errors"

var (
	// ErrNotFound is returned when an invoice does not exist.
	ErrNotFound = errors.New("billing: invoice not found")
	// ErrClientNotFound is returned when the referenced client does not exist.
	ErrClientNotFound = errors.New("billing: client not found")
	// ErrProjectNotFound is returned when the referenced project does not exist.
	ErrProjectNotFound = errors.New("billing: project not found")
	// ErrInvalidState is returned when an operation is not permitted in the
	// invoice's current lifecycle state.
	ErrInvalidState = errors.New("billing: operation not allowed in current state")
	// ErrAmountExceedsBalance is returned when a payment would overshoot the
	// remaining balance. Payments are never clamped.
	ErrAmountExceedsBalance = errors.New("billing: payment amount exceeds remaining balance")
	// ErrValidation is returned for malformed or missing caller input.
	ErrValidation = errors.New("billing: validation failed")
	// ErrDuplicateNumber is returned when an invoice number is already taken.
	ErrDuplicateNumber = errors.New("billing: duplicate invoice number")
	// ErrNilInvoice is returned when persisting a nil invoice.
	ErrNilInvoice = errors.New("billing: nil invoice")
)
