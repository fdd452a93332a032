package application

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"opsledger/internal/billing/application/events"
	billing "opsledger/internal/billing/domain"
	billingmemory "opsledger/internal/billing/infrastructure/memory"
	masterdata "opsledger/internal/masterdata/domain"
	masterdatamemory "opsledger/internal/masterdata/infrastructure/memory"
	"opsledger/internal/money"
)

type capturingLedger struct {
	mu         sync.Mutex
	payments   []events.PaymentReceived
	cancelled  []events.InvoiceCancelled
	publishErr error
}

func (l *capturingLedger) PublishPaymentReceived(_ context.Context, event events.PaymentReceived) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.publishErr != nil {
		return l.publishErr
	}
	l.payments = append(l.payments, event)
	return nil
}

func (l *capturingLedger) PublishInvoiceCancelled(_ context.Context, event events.InvoiceCancelled) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.publishErr != nil {
		return l.publishErr
	}
	l.cancelled = append(l.cancelled, event)
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, ledger LedgerPublisher) *InvoiceService {
	t.Helper()
	directory := masterdatamemory.NewDirectory()
	directory.PutClient(masterdata.Client{ID: "client-1", CompanyName: "Acme Ltd"})
	directory.PutProject(masterdata.Project{ID: "project-1", ProjectName: "Website", ClientID: "client-1"})

	service, err := NewInvoiceService(
		billingmemory.NewInvoiceRepository(),
		directory.Clients(),
		directory.Projects(),
		ledger,
		fixedClock{now: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)},
		log.New(io.Discard, "", 0),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func testMoney(t *testing.T, value string) money.Money {
	t.Helper()
	m, err := money.FromString(value, "KES")
	if err != nil {
		t.Fatalf("money %q: %v", value, err)
	}
	return m
}

func createInput(t *testing.T) billing.NewInvoiceInput {
	t.Helper()
	return billing.NewInvoiceInput{
		ClientID:  "client-1",
		ProjectID: "project-1",
		IssueDate: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		Currency:  "KES",
		Items: []billing.LineItem{
			{Description: "Consulting", Quantity: 2, UnitPrice: testMoney(t, "100.00")},
		},
	}
}

func TestCreateGeneratesInvoiceNumber(t *testing.T) {
	service := newTestService(t, nil)

	inv, err := service.Create(context.Background(), createInput(t))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(inv.InvoiceNumber, "INV-202601-") {
		t.Fatalf("invoice number = %q, want INV-202601-NNN", inv.InvoiceNumber)
	}
	if got := inv.TotalAmount.StringFixed(); got != "232.00" {
		t.Fatalf("total = %s, want 232.00", got)
	}
}

func TestCreateRejectsUnknownReferences(t *testing.T) {
	service := newTestService(t, nil)

	input := createInput(t)
	input.ClientID = "client-missing"
	if _, err := service.Create(context.Background(), input); !errors.Is(err, billing.ErrClientNotFound) {
		t.Fatalf("err = %v, want ErrClientNotFound", err)
	}

	input = createInput(t)
	input.ProjectID = "project-missing"
	if _, err := service.Create(context.Background(), input); !errors.Is(err, billing.ErrProjectNotFound) {
		t.Fatalf("err = %v, want ErrProjectNotFound", err)
	}
}

func TestCreateDuplicateNumberFromCaller(t *testing.T) {
	service := newTestService(t, nil)

	input := createInput(t)
	input.InvoiceNumber = "INV-202601-777"
	if _, err := service.Create(context.Background(), input); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := service.Create(context.Background(), input); !errors.Is(err, billing.ErrDuplicateNumber) {
		t.Fatalf("err = %v, want ErrDuplicateNumber", err)
	}
}

func TestApplyPaymentPublishesLedgerEvent(t *testing.T) {
	ledger := &capturingLedger{}
	service := newTestService(t, ledger)

	inv, err := service.Create(context.Background(), createInput(t))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := service.ApplyPayment(context.Background(), inv.ID, ApplyPaymentInput{
		Amount:    testMoney(t, "232.00"),
		Method:    billing.MethodMpesa,
		Reference: "MPESA-123",
		ActorID:   "user-7",
	})
	if err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	if updated.Status != billing.StatusPaid {
		t.Fatalf("status = %s, want paid", updated.Status)
	}

	if len(ledger.payments) != 1 {
		t.Fatalf("published payments = %d, want 1", len(ledger.payments))
	}
	event := ledger.payments[0]
	if event.InvoiceID != inv.ID || event.Amount != "232.00" || event.ProcessedBy != "user-7" {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.EventID == "" {
		t.Fatalf("event id not set")
	}
}

func TestApplyPaymentSurvivesPublishFailure(t *testing.T) {
	ledger := &capturingLedger{publishErr: errors.New("outbox unavailable")}
	service := newTestService(t, ledger)

	inv, err := service.Create(context.Background(), createInput(t))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := service.ApplyPayment(context.Background(), inv.ID, ApplyPaymentInput{
		Amount: testMoney(t, "100.00"),
		Method: billing.MethodCash,
	})
	if err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	if updated.Status != billing.StatusPartiallyPaid {
		t.Fatalf("status = %s, want partially_paid", updated.Status)
	}
}

func TestConcurrentPaymentsNeverOvershoot(t *testing.T) {
	service := newTestService(t, nil)

	inv, err := service.Create(context.Background(), createInput(t))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Two payments of 150.00 against a 232.00 total: both pass the
	// balance check when read outside the exclusion scope, so exactly
	// one may commit.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = service.ApplyPayment(context.Background(), inv.ID, ApplyPaymentInput{
				Amount: testMoney(t, "150.00"),
				Method: billing.MethodBankTransfer,
			})
		}(i)
	}
	wg.Wait()

	var rejected int
	for _, err := range errs {
		if err != nil {
			if !errors.Is(err, billing.ErrAmountExceedsBalance) {
				t.Fatalf("unexpected error: %v", err)
			}
			rejected++
		}
	}
	if rejected != 1 {
		t.Fatalf("rejected = %d, want exactly 1", rejected)
	}

	final, err := service.Get(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.PaidTotal().Cmp(final.TotalAmount) > 0 {
		t.Fatalf("paid total %s exceeds invoice total %s", final.PaidTotal(), final.TotalAmount)
	}
	if len(final.Payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(final.Payments))
	}
}

func TestCancelPublishesEvent(t *testing.T) {
	ledger := &capturingLedger{}
	service := newTestService(t, ledger)

	inv, err := service.Create(context.Background(), createInput(t))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cancelled, err := service.Cancel(context.Background(), inv.ID, "duplicate entry", "admin-1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != billing.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
	if len(ledger.cancelled) != 1 {
		t.Fatalf("published cancellations = %d, want 1", len(ledger.cancelled))
	}
	event := ledger.cancelled[0]
	if event.Reason != "duplicate entry" || event.CancelledBy != "admin-1" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestDeleteOnlyDrafts(t *testing.T) {
	service := newTestService(t, nil)

	input := createInput(t)
	input.AsDraft = true
	draft, err := service.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if err := service.Delete(context.Background(), draft.ID); err != nil {
		t.Fatalf("delete draft: %v", err)
	}
	if _, err := service.Get(context.Background(), draft.ID); !errors.Is(err, billing.ErrNotFound) {
		t.Fatalf("get deleted: err = %v, want ErrNotFound", err)
	}

	pending, err := service.Create(context.Background(), createInput(t))
	if err != nil {
		t.Fatalf("create pending: %v", err)
	}
	if err := service.Delete(context.Background(), pending.ID); !errors.Is(err, billing.ErrInvalidState) {
		t.Fatalf("delete pending: err = %v, want ErrInvalidState", err)
	}
}

func TestListAppliesOverdueAndFilters(t *testing.T) {
	service := newTestService(t, nil)

	early := createInput(t)
	early.IssueDate = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	early.DueDate = time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	if _, err := service.Create(context.Background(), early); err != nil {
		t.Fatalf("create early: %v", err)
	}
	if _, err := service.Create(context.Background(), createInput(t)); err != nil {
		t.Fatalf("create current: %v", err)
	}

	items, total, err := service.List(context.Background(), billing.ListFilter{}, billing.Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("total = %d items = %d, want 2/2", total, len(items))
	}

	var overdue int
	for _, item := range items {
		if item.Status == billing.StatusOverdue {
			overdue++
		}
	}
	if overdue != 1 {
		t.Fatalf("overdue = %d, want 1", overdue)
	}

	items, total, err = service.List(context.Background(), billing.ListFilter{
		IssuedFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}, billing.Page{})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("filtered total = %d items = %d, want 1/1", total, len(items))
	}
}

func TestListFiltersOnDerivedOverdue(t *testing.T) {
	service := newTestService(t, nil)

	lapsed := createInput(t)
	lapsed.IssueDate = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	lapsed.DueDate = time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	created, err := service.Create(context.Background(), lapsed)
	if err != nil {
		t.Fatalf("create lapsed: %v", err)
	}

	future := createInput(t)
	future.DueDate = time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := service.Create(context.Background(), future); err != nil {
		t.Fatalf("create future: %v", err)
	}

	items, total, err := service.List(context.Background(), billing.ListFilter{
		Status: billing.StatusOverdue,
	}, billing.Page{})
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("total = %d items = %d, want 1/1", total, len(items))
	}
	if items[0].ID != created.ID {
		t.Fatalf("matched %s, want %s", items[0].ID, created.ID)
	}
	if items[0].Status != billing.StatusOverdue {
		t.Fatalf("status = %s, want overdue", items[0].Status)
	}
}
