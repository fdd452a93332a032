package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	billing "opsledger/internal/billing/domain"
	billingrepo "opsledger/internal/billing/infrastructure/postgres"
	"opsledger/internal/money"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestBilling_CreateAndRoundTrip(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	ctx := context.Background()
	resetBillingTables(ctx, db)

	repo := billingrepo.NewInvoiceRepository(db)
	inv := newTestInvoice(t, "INV-202601-501")

	if err := repo.Create(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}

	loaded, err := repo.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded == nil {
		t.Fatalf("invoice not found after create")
	}
	if !loaded.TotalAmount.Equal(inv.TotalAmount) {
		t.Fatalf("total = %s, want %s", loaded.TotalAmount, inv.TotalAmount)
	}
	if len(loaded.Items) != len(inv.Items) {
		t.Fatalf("items = %d, want %d", len(loaded.Items), len(inv.Items))
	}
}

func TestBilling_DuplicateNumberRejected(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	ctx := context.Background()
	resetBillingTables(ctx, db)

	repo := billingrepo.NewInvoiceRepository(db)
	if err := repo.Create(ctx, newTestInvoice(t, "INV-202601-502")); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := repo.Create(ctx, newTestInvoice(t, "INV-202601-502"))
	if !errors.Is(err, billing.ErrDuplicateNumber) {
		t.Fatalf("err = %v, want ErrDuplicateNumber", err)
	}
}

func TestBilling_MutateAppendsPayments(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	ctx := context.Background()
	resetBillingTables(ctx, db)

	repo := billingrepo.NewInvoiceRepository(db)
	inv := newTestInvoice(t, "INV-202601-503")
	if err := repo.Create(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}

	pay := func(amount string) error {
		_, err := repo.Mutate(ctx, inv.ID, func(current *billing.Invoice) error {
			return current.ApplyPayment(billing.PaymentRecord{
				ID:        uuid.NewString(),
				Amount:    kes(t, amount),
				Method:    billing.MethodMpesa,
				Timestamp: time.Now(),
			})
		})
		return err
	}

	if err := pay("100.00"); err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if err := pay("296.00"); err != nil {
		t.Fatalf("second payment: %v", err)
	}

	loaded, err := repo.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Status != billing.StatusPaid {
		t.Fatalf("status = %s, want paid", loaded.Status)
	}
	if len(loaded.Payments) != 2 {
		t.Fatalf("payments = %d, want 2", len(loaded.Payments))
	}
}

func TestBilling_ConcurrentPaymentsSerialized(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	ctx := context.Background()
	resetBillingTables(ctx, db)

	repo := billingrepo.NewInvoiceRepository(db)
	inv := newTestInvoice(t, "INV-202601-504")
	if err := repo.Create(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Total is 396.00; two 250.00 payments cannot both commit.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = repo.Mutate(ctx, inv.ID, func(current *billing.Invoice) error {
				return current.ApplyPayment(billing.PaymentRecord{
					ID:        uuid.NewString(),
					Amount:    kes(t, "250.00"),
					Method:    billing.MethodBankTransfer,
					Timestamp: time.Now(),
				})
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

	loaded, err := repo.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.PaidTotal().Cmp(loaded.TotalAmount) > 0 {
		t.Fatalf("paid total %s exceeds %s", loaded.PaidTotal(), loaded.TotalAmount)
	}
	if len(loaded.Payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(loaded.Payments))
	}
}

func TestBilling_ListFiltersAndPages(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	ctx := context.Background()
	resetBillingTables(ctx, db)

	repo := billingrepo.NewInvoiceRepository(db)
	for _, number := range []string{"INV-202601-601", "INV-202601-602", "INV-202601-603"} {
		if err := repo.Create(ctx, newTestInvoice(t, number)); err != nil {
			t.Fatalf("create %s: %v", number, err)
		}
	}

	items, total, err := repo.List(ctx, billing.ListFilter{}, billing.Page{Size: 2, SortField: "invoice_number"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if len(items) != 2 {
		t.Fatalf("page items = %d, want 2", len(items))
	}

	items, total, err = repo.List(ctx, billing.ListFilter{Search: "602"}, billing.Page{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].InvoiceNumber != "INV-202601-602" {
		t.Fatalf("search matched %d items", len(items))
	}
}

func newTestInvoice(t *testing.T, number string) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewInvoice(uuid.NewString(), billing.NewInvoiceInput{
		InvoiceNumber: number,
		ClientID:      "client-it-1",
		IssueDate:     time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		Currency:      "KES",
		Discount:      kes(t, "10.00"),
		Items: []billing.LineItem{
			{Description: "Consulting", Quantity: 3, UnitPrice: kes(t, "100.00")},
			{Description: "Support", Quantity: 1, UnitPrice: kes(t, "50.00")},
		},
	}, time.Now())
	if err != nil {
		t.Fatalf("new invoice: %v", err)
	}
	return inv
}

func kes(t *testing.T, value string) money.Money {
	t.Helper()
	m, err := money.FromString(value, "KES")
	if err != nil {
		t.Fatalf("money %q: %v", value, err)
	}
	return m
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if !tableExists(db, "invoices") || !tableExists(db, "invoice_payments") {
		db.Close()
		t.Skip("missing tables; run migrations")
	}
	return db
}

func resetBillingTables(ctx context.Context, db *sql.DB) {
	_, _ = db.ExecContext(ctx, "DELETE FROM invoice_payments")
	_, _ = db.ExecContext(ctx, "DELETE FROM invoices")
}

func tableExists(db *sql.DB, table string) bool {
	var exists bool
	err := db.QueryRow(`
SELECT EXISTS (
	SELECT 1
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name = $1
)`, table).Scan(&exists)
	if err != nil {
		return false
	}
	return exists
}
