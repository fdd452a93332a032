package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	ledger "opsledger/internal/ledger/domain"
)

// LedgerHandler exposes read access to the transaction log.
type LedgerHandler struct {
	store ledger.Store
}

// NewLedgerHandler constructs a handler.
func NewLedgerHandler(store ledger.Store) (*LedgerHandler, error) {
	if store == nil {
		return nil, errors.New("ledger handler: nil store")
	}
	return &LedgerHandler{store: store}, nil
}

type transactionResponse struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	InvoiceID     string    `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	ClientID      string    `json:"client_id"`
	PaymentID     string    `json:"payment_id,omitempty"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Method        string    `json:"method,omitempty"`
	Reference     string    `json:"reference,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	RecordedBy    string    `json:"recorded_by,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ServeHTTP handles GET /api/v1/ledger.
func (h *LedgerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	var (
		list []ledger.Transaction
		err  error
	)
	if invoiceID := q.Get("invoice_id"); invoiceID != "" {
		list, err = h.store.ListByInvoice(r.Context(), invoiceID)
	} else {
		from, to, parseErr := parsePeriod(q.Get("from"), q.Get("to"))
		if parseErr != nil {
			http.Error(w, parseErr.Error(), http.StatusBadRequest)
			return
		}
		list, err = h.store.ListByPeriod(r.Context(), from, to)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]transactionResponse, 0, len(list))
	for _, tx := range list {
		resp = append(resp, transactionResponse{
			ID:            tx.ID,
			Type:          tx.Type,
			InvoiceID:     tx.InvoiceID,
			InvoiceNumber: tx.InvoiceNumber,
			ClientID:      tx.ClientID,
			PaymentID:     tx.PaymentID,
			Amount:        tx.Amount.StringFixed(),
			Currency:      tx.Amount.Currency(),
			Method:        tx.Method,
			Reference:     tx.Reference,
			Notes:         tx.Notes,
			RecordedBy:    tx.RecordedBy,
			OccurredAt:    tx.OccurredAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func parsePeriod(fromRaw, toRaw string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, -1, 0)
	to := now
	if fromRaw != "" {
		parsed, err := time.Parse("2006-01-02", fromRaw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from date")
		}
		from = parsed
	}
	if toRaw != "" {
		parsed, err := time.Parse("2006-01-02", toRaw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to date")
		}
		// to is inclusive of the named day.
		to = parsed.AddDate(0, 0, 1)
	}
	return from, to, nil
}
