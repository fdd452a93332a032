package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	ledger "opsledger/internal/ledger/domain"
)

// Store is an in-memory ledger transaction store for tests and local
// setups.
type Store struct {
	mu      sync.RWMutex
	data    []ledger.Transaction
	eventID map[string]struct{}
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{eventID: make(map[string]struct{})}
}

// Append adds a transaction; duplicate event ids are dropped.
func (s *Store) Append(ctx context.Context, tx ledger.Transaction) error {
	_ = ctx
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.eventID[tx.EventID]; seen {
		return nil
	}
	s.eventID[tx.EventID] = struct{}{}
	s.data = append(s.data, tx)
	return nil
}

// ListByInvoice returns transactions for one invoice in order.
func (s *Store) ListByInvoice(ctx context.Context, invoiceID string) ([]ledger.Transaction, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ledger.Transaction
	for _, tx := range s.data {
		if tx.InvoiceID == invoiceID {
			result = append(result, tx)
		}
	}
	sortByTime(result)
	return result, nil
}

// ListByPeriod returns transactions in [from, to).
func (s *Store) ListByPeriod(ctx context.Context, from, to time.Time) ([]ledger.Transaction, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ledger.Transaction
	for _, tx := range s.data {
		if !tx.OccurredAt.Before(from) && tx.OccurredAt.Before(to) {
			result = append(result, tx)
		}
	}
	sortByTime(result)
	return result, nil
}

func sortByTime(list []ledger.Transaction) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].OccurredAt.Before(list[j].OccurredAt)
	})
}
