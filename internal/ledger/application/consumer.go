package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	billingevents "opsledger/internal/billing/application/events"
	ledger "opsledger/internal/ledger/domain"
	"opsledger/internal/money"
)

// Consumer turns billing events into append-only ledger transactions.
type Consumer struct {
	store  ledger.Store
	logger *log.Logger
}

// NewConsumer constructs a consumer.
func NewConsumer(store ledger.Store, logger *log.Logger) (*Consumer, error) {
	if store == nil {
		return nil, errors.New("ledger consumer: nil store")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Consumer{store: store, logger: logger}, nil
}

// HandlePaymentReceived appends a payment transaction.
func (c *Consumer) HandlePaymentReceived(ctx context.Context, event any) error {
	if c == nil {
		return errors.New("ledger consumer: nil consumer")
	}

	var evt billingevents.PaymentReceived
	switch e := event.(type) {
	case billingevents.PaymentReceived:
		evt = e
	case *billingevents.PaymentReceived:
		if e == nil {
			return nil
		}
		evt = *e
	default:
		return nil
	}

	amount, err := money.FromString(evt.Amount, evt.Currency)
	if err != nil {
		return err
	}

	c.logger.Printf("ledger append: invoice=%s payment=%s amount=%s %s", evt.InvoiceNumber, evt.PaymentID, evt.Amount, evt.Currency)

	return c.store.Append(ctx, ledger.Transaction{
		ID:            uuid.NewString(),
		EventID:       evt.EventID,
		Type:          ledger.TypePayment,
		InvoiceID:     evt.InvoiceID,
		InvoiceNumber: evt.InvoiceNumber,
		ClientID:      evt.ClientID,
		PaymentID:     evt.PaymentID,
		Amount:        amount,
		Method:        evt.Method,
		Reference:     evt.Reference,
		Notes:         evt.Notes,
		RecordedBy:    evt.ProcessedBy,
		OccurredAt:    evt.OccurredAt,
		CreatedAt:     time.Now().UTC(),
	})
}

// HandleInvoiceCancelled appends a cancellation marker.
func (c *Consumer) HandleInvoiceCancelled(ctx context.Context, event any) error {
	if c == nil {
		return errors.New("ledger consumer: nil consumer")
	}

	var evt billingevents.InvoiceCancelled
	switch e := event.(type) {
	case billingevents.InvoiceCancelled:
		evt = e
	case *billingevents.InvoiceCancelled:
		if e == nil {
			return nil
		}
		evt = *e
	default:
		return nil
	}

	c.logger.Printf("ledger append: invoice=%s cancelled reason=%q", evt.InvoiceNumber, evt.Reason)

	return c.store.Append(ctx, ledger.Transaction{
		ID:            uuid.NewString(),
		EventID:       evt.EventID,
		Type:          ledger.TypeCancellation,
		InvoiceID:     evt.InvoiceID,
		InvoiceNumber: evt.InvoiceNumber,
		ClientID:      evt.ClientID,
		Notes:         evt.Reason,
		RecordedBy:    evt.CancelledBy,
		OccurredAt:    evt.OccurredAt,
		CreatedAt:     time.Now().UTC(),
	})
}
