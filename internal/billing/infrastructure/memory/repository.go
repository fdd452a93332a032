package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	billing "opsledger/internal/billing/domain"
)

// InvoiceRepository is an in-memory invoice store. Mutations on one
// invoice serialize on a per-invoice lock held across check and commit.
type InvoiceRepository struct {
	mu      sync.RWMutex
	data    map[string]*billing.Invoice
	numbers map[string]string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewInvoiceRepository constructs an empty repository.
func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{
		data:    make(map[string]*billing.Invoice),
		numbers: make(map[string]string),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (r *InvoiceRepository) lockFor(id string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	return lock
}

// Create inserts a new invoice, enforcing invoice number uniqueness.
func (r *InvoiceRepository) Create(_ context.Context, inv *billing.Invoice) error {
	if inv == nil {
		return billing.ErrNilInvoice
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, taken := r.numbers[inv.InvoiceNumber]; taken && owner != inv.ID {
		return billing.ErrDuplicateNumber
	}
	r.data[inv.ID] = inv.Clone()
	r.numbers[inv.InvoiceNumber] = inv.ID
	return nil
}

// Get returns a detached copy, or (nil, nil) when absent.
func (r *InvoiceRepository) Get(_ context.Context, id string) (*billing.Invoice, error) {
	r.mu.RLock()
	inv := r.data[id]
	r.mu.RUnlock()
	return inv.Clone(), nil
}

// Mutate runs mutate under the invoice's lock and commits the result.
func (r *InvoiceRepository) Mutate(_ context.Context, id string, mutate func(*billing.Invoice) error) (*billing.Invoice, error) {
	lock := r.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	stored := r.data[id]
	r.mu.RUnlock()
	if stored == nil {
		return nil, billing.ErrNotFound
	}

	working := stored.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.data[id] = working.Clone()
	r.mu.Unlock()
	return working, nil
}

// Delete hard-removes the invoice when guard passes.
func (r *InvoiceRepository) Delete(_ context.Context, id string, guard func(*billing.Invoice) error) error {
	lock := r.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	stored := r.data[id]
	r.mu.RUnlock()
	if stored == nil {
		return billing.ErrNotFound
	}
	if guard != nil {
		if err := guard(stored.Clone()); err != nil {
			return err
		}
	}

	r.mu.Lock()
	delete(r.data, id)
	delete(r.numbers, stored.InvoiceNumber)
	r.mu.Unlock()
	return nil
}

// List filters, sorts and pages invoices in memory.
func (r *InvoiceRepository) List(_ context.Context, filter billing.ListFilter, page billing.Page) ([]billing.Invoice, int, error) {
	page = page.Normalize()

	r.mu.RLock()
	matched := make([]*billing.Invoice, 0, len(r.data))
	for _, inv := range r.data {
		if matches(inv, filter) {
			matched = append(matched, inv.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		less := orderBefore(matched[i], matched[j], page.SortField)
		if page.SortDescending {
			return !less
		}
		return less
	})

	total := len(matched)
	offset := (page.Number - 1) * page.Size
	if offset >= total {
		return nil, total, nil
	}
	end := offset + page.Size
	if end > total {
		end = total
	}

	items := make([]billing.Invoice, 0, end-offset)
	for _, inv := range matched[offset:end] {
		items = append(items, *inv)
	}
	return items, total, nil
}

func matches(inv *billing.Invoice, filter billing.ListFilter) bool {
	if filter.Status != "" {
		status := inv.Status
		if filter.Status == billing.StatusOverdue {
			status = inv.EffectiveStatus(time.Now())
		}
		if status != filter.Status {
			return false
		}
	}
	if filter.ClientID != "" && inv.ClientID != filter.ClientID {
		return false
	}
	if !filter.IssuedFrom.IsZero() && inv.IssueDate.Before(filter.IssuedFrom) {
		return false
	}
	if !filter.IssuedTo.IsZero() && inv.IssueDate.After(filter.IssuedTo) {
		return false
	}
	if filter.MinTotal != nil && inv.TotalAmount.Cmp(*filter.MinTotal) < 0 {
		return false
	}
	if filter.MaxTotal != nil && inv.TotalAmount.Cmp(*filter.MaxTotal) > 0 {
		return false
	}
	if filter.Search != "" && !strings.Contains(strings.ToLower(inv.InvoiceNumber), strings.ToLower(filter.Search)) {
		return false
	}
	return true
}

func orderBefore(a, b *billing.Invoice, field string) bool {
	switch field {
	case "issue_date":
		return a.IssueDate.Before(b.IssueDate)
	case "due_date":
		return a.DueDate.Before(b.DueDate)
	case "total_amount":
		return a.TotalAmount.Cmp(b.TotalAmount) < 0
	case "invoice_number":
		return a.InvoiceNumber < b.InvoiceNumber
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}
