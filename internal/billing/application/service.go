package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"opsledger/internal/billing/application/events"
	billing "opsledger/internal/billing/domain"
	masterdata "opsledger/internal/masterdata/domain"
	"opsledger/internal/money"
	"opsledger/internal/observability/metrics"
)

// numberRetries bounds regeneration attempts after a duplicate
// auto-generated invoice number.
const numberRetries = 3

// LedgerPublisher emits ledger transaction events after commit.
type LedgerPublisher interface {
	PublishPaymentReceived(ctx context.Context, event events.PaymentReceived) error
	PublishInvoiceCancelled(ctx context.Context, event events.InvoiceCancelled) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// InvoiceService is the entry point for all invoice mutations and reads.
type InvoiceService struct {
	repo     billing.Repository
	clients  masterdata.ClientRepository
	projects masterdata.ProjectRepository
	ledger   LedgerPublisher
	clock    Clock
	logger   *log.Logger
}

// NewInvoiceService constructs the service.
func NewInvoiceService(
	repo billing.Repository,
	clients masterdata.ClientRepository,
	projects masterdata.ProjectRepository,
	ledger LedgerPublisher,
	clock Clock,
	logger *log.Logger,
) (*InvoiceService, error) {
	if repo == nil {
		return nil, errors.New("invoice service: nil repository")
	}
	if clients == nil {
		return nil, errors.New("invoice service: nil client repository")
	}
	if projects == nil {
		return nil, errors.New("invoice service: nil project repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &InvoiceService{
		repo:     repo,
		clients:  clients,
		projects: projects,
		ledger:   ledger,
		clock:    clock,
		logger:   logger,
	}, nil
}

// Create validates references, computes totals and persists the invoice.
func (s *InvoiceService) Create(ctx context.Context, input billing.NewInvoiceInput) (*billing.Invoice, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveInvoiceCreate(result, time.Since(start))
	}()

	exists, err := s.clients.Exists(ctx, input.ClientID)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if !exists {
		result = metrics.ResultError
		return nil, billing.ErrClientNotFound
	}
	if input.ProjectID != "" {
		exists, err := s.projects.Exists(ctx, input.ProjectID)
		if err != nil {
			result = metrics.ResultError
			return nil, err
		}
		if !exists {
			result = metrics.ResultError
			return nil, billing.ErrProjectNotFound
		}
	}

	now := s.clock.Now()
	generated := input.InvoiceNumber == ""
	if generated {
		input.InvoiceNumber = billing.GenerateInvoiceNumber(now)
	}

	inv, err := billing.NewInvoice(uuid.NewString(), input, now)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		err = s.repo.Create(ctx, inv)
		if err == nil {
			return inv.Clone(), nil
		}
		// A caller-supplied number colliding is the caller's fault; an
		// auto-generated one is ours, so regenerate and retry.
		if !errors.Is(err, billing.ErrDuplicateNumber) || !generated || attempt >= numberRetries {
			break
		}
		inv.InvoiceNumber = billing.GenerateInvoiceNumber(s.clock.Now())
	}
	result = metrics.ResultError
	if errors.Is(err, billing.ErrDuplicateNumber) && !generated {
		return nil, errors.Join(billing.ErrValidation, err)
	}
	return nil, err
}

// Get loads an invoice; the derived overdue status is applied read-time.
func (s *InvoiceService) Get(ctx context.Context, id string) (*billing.Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, billing.ErrNotFound
	}
	inv.Status = inv.EffectiveStatus(s.clock.Now())
	return inv, nil
}

// List returns invoices matching the filter plus the unpaged count.
func (s *InvoiceService) List(ctx context.Context, filter billing.ListFilter, page billing.Page) ([]billing.Invoice, int, error) {
	items, total, err := s.repo.List(ctx, filter, page.Normalize())
	if err != nil {
		return nil, 0, err
	}
	now := s.clock.Now()
	for i := range items {
		items[i].Status = items[i].EffectiveStatus(now)
	}
	return items, total, nil
}

// Update applies a closed patch; derived totals are fully recomputed.
func (s *InvoiceService) Update(ctx context.Context, id string, patch billing.UpdatePatch) (*billing.Invoice, error) {
	return s.repo.Mutate(ctx, id, func(inv *billing.Invoice) error {
		return inv.ApplyUpdate(patch, s.clock.Now())
	})
}

// Issue moves a draft invoice to pending.
func (s *InvoiceService) Issue(ctx context.Context, id string) (*billing.Invoice, error) {
	return s.repo.Mutate(ctx, id, func(inv *billing.Invoice) error {
		return inv.Issue(s.clock.Now())
	})
}

// Delete hard-removes an invoice; only drafts qualify.
func (s *InvoiceService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id, func(inv *billing.Invoice) error {
		if !inv.CanDelete() {
			return billing.ErrInvalidState
		}
		return nil
	})
}

// Cancel is the administrative override; it emits a ledger event.
func (s *InvoiceService) Cancel(ctx context.Context, id, reason, actorID string) (*billing.Invoice, error) {
	inv, err := s.repo.Mutate(ctx, id, func(inv *billing.Invoice) error {
		return inv.Cancel(s.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	s.publishCancelled(ctx, inv, reason, actorID)
	return inv, nil
}

// ApplyPaymentInput carries one payment request.
type ApplyPaymentInput struct {
	Amount    money.Money
	Method    string
	Reference string
	Notes     string
	ActorID   string
}

// ApplyPayment reconciles a payment against the invoice's remaining
// balance. The balance check and the commit run under the repository's
// per-invoice exclusion scope, so concurrent attempts cannot both pass.
// Ledger emission happens after commit; its failure is logged, never
// propagated.
func (s *InvoiceService) ApplyPayment(ctx context.Context, id string, input ApplyPaymentInput) (*billing.Invoice, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObservePaymentApply(result, time.Since(start))
	}()

	record := billing.PaymentRecord{
		ID:          uuid.NewString(),
		Amount:      input.Amount,
		Method:      input.Method,
		Reference:   input.Reference,
		Notes:       input.Notes,
		ProcessedBy: input.ActorID,
		Timestamp:   s.clock.Now(),
	}

	inv, err := s.repo.Mutate(ctx, id, func(inv *billing.Invoice) error {
		return inv.ApplyPayment(record)
	})
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}

	s.publishPayment(ctx, inv, record)
	return inv, nil
}

func (s *InvoiceService) publishPayment(ctx context.Context, inv *billing.Invoice, record billing.PaymentRecord) {
	if s.ledger == nil {
		return
	}
	event := events.PaymentReceived{
		EventID:       uuid.NewString(),
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientID:      inv.ClientID,
		PaymentID:     record.ID,
		Amount:        record.Amount.StringFixed(),
		Currency:      record.Amount.Currency(),
		Method:        record.Method,
		Reference:     record.Reference,
		Notes:         record.Notes,
		ProcessedBy:   record.ProcessedBy,
		OccurredAt:    record.Timestamp.UTC(),
	}
	if err := s.ledger.PublishPaymentReceived(ctx, event); err != nil {
		metrics.IncLedgerPublishError()
		s.logger.Printf("ledger publish failed for invoice %s payment %s: %v", inv.ID, record.ID, err)
	}
}

func (s *InvoiceService) publishCancelled(ctx context.Context, inv *billing.Invoice, reason, actorID string) {
	if s.ledger == nil {
		return
	}
	event := events.InvoiceCancelled{
		EventID:       uuid.NewString(),
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientID:      inv.ClientID,
		Reason:        reason,
		CancelledBy:   actorID,
		OccurredAt:    s.clock.Now().UTC(),
	}
	if err := s.ledger.PublishInvoiceCancelled(ctx, event); err != nil {
		metrics.IncLedgerPublishError()
		s.logger.Printf("ledger publish failed for cancelled invoice %s: %v", inv.ID, err)
	}
}
