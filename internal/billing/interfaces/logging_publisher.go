package interfaces

import (
	"context"
	"errors"
	"log"

	"opsledger/internal/billing/application/events"
)

// LoggingPublisher logs billing events instead of dispatching them.
// Used when the outbox is not wired, for example in local setups.
type LoggingPublisher struct {
	logger *log.Logger
}

// NewLoggingPublisher constructs a logging publisher.
func NewLoggingPublisher(logger *log.Logger) *LoggingPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingPublisher{logger: logger}
}

// PublishPaymentReceived logs the event.
func (p *LoggingPublisher) PublishPaymentReceived(ctx context.Context, event events.PaymentReceived) error {
	_ = ctx
	if p == nil {
		return errors.New("billing publisher: nil publisher")
	}
	p.logger.Printf("payment received: invoice=%s payment=%s amount=%s %s method=%s", event.InvoiceNumber, event.PaymentID, event.Amount, event.Currency, event.Method)
	return nil
}

// PublishInvoiceCancelled logs the event.
func (p *LoggingPublisher) PublishInvoiceCancelled(ctx context.Context, event events.InvoiceCancelled) error {
	_ = ctx
	if p == nil {
		return errors.New("billing publisher: nil publisher")
	}
	p.logger.Printf("invoice cancelled: invoice=%s reason=%q", event.InvoiceNumber, event.Reason)
	return nil
}
