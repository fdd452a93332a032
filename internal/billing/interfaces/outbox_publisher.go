package interfaces

import (
	"context"

	"opsledger/internal/billing/application/events"
	"opsledger/internal/eventing"
)

// OutboxPublisher writes billing events to the outbox.
type OutboxPublisher struct {
	publisher *eventing.Publisher
	actorID   string
}

// NewOutboxPublisher constructs an outbox publisher.
func NewOutboxPublisher(publisher *eventing.Publisher, actorID string) *OutboxPublisher {
	return &OutboxPublisher{publisher: publisher, actorID: actorID}
}

// PublishPaymentReceived writes the event to outbox.
func (p *OutboxPublisher) PublishPaymentReceived(ctx context.Context, event events.PaymentReceived) error {
	if p == nil || p.publisher == nil {
		return nil
	}
	ctx = p.withActor(ctx, event.ProcessedBy)
	return p.publisher.Publish(ctx, event)
}

// PublishInvoiceCancelled writes the event to outbox.
func (p *OutboxPublisher) PublishInvoiceCancelled(ctx context.Context, event events.InvoiceCancelled) error {
	if p == nil || p.publisher == nil {
		return nil
	}
	ctx = p.withActor(ctx, event.CancelledBy)
	return p.publisher.Publish(ctx, event)
}

func (p *OutboxPublisher) withActor(ctx context.Context, eventActor string) context.Context {
	actor := eventActor
	if actor == "" {
		actor = p.actorID
	}
	return eventing.WithActorID(ctx, actor)
}
