package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"opsledger/internal/billing/application"
	billing "opsledger/internal/billing/domain"
	"opsledger/internal/money"
)

// PaymentWebhookHandler accepts payment gateway callbacks. The caller
// is authenticated by signature middleware, not by JWT.
type PaymentWebhookHandler struct {
	service *application.InvoiceService
}

// NewPaymentWebhookHandler constructs a webhook handler.
func NewPaymentWebhookHandler(service *application.InvoiceService) (*PaymentWebhookHandler, error) {
	if service == nil {
		return nil, errors.New("payment webhook: nil service")
	}
	return &PaymentWebhookHandler{service: service}, nil
}

type webhookPayment struct {
	InvoiceID     string `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Method        string `json:"method"`
	Reference     string `json:"reference"`
}

// ServeHTTP handles POST /api/v1/webhooks/payments.
func (h *PaymentWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req webhookPayment
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	id := req.InvoiceID
	if id == "" {
		resolved, err := h.resolveByNumber(r, req.InvoiceNumber)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		id = resolved
	}

	currency := req.Currency
	if currency == "" {
		current, err := h.service.Get(r.Context(), id)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		currency = current.Currency
	}
	amount, err := money.FromString(req.Amount, currency)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}

	method := req.Method
	if method == "" {
		method = billing.MethodMpesa
	}

	inv, err := h.service.ApplyPayment(r.Context(), id, application.ApplyPaymentInput{
		Amount:    amount,
		Method:    method,
		Reference: req.Reference,
		ActorID:   "gateway",
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"invoice_id": inv.ID,
		"status":     inv.Status,
		"balance":    inv.RemainingBalance().StringFixed(),
	})
}

func (h *PaymentWebhookHandler) resolveByNumber(r *http.Request, number string) (string, error) {
	if number == "" {
		return "", billing.ErrNotFound
	}
	items, _, err := h.service.List(r.Context(), billing.ListFilter{Search: number}, billing.Page{Size: 5})
	if err != nil {
		return "", err
	}
	for _, inv := range items {
		if inv.InvoiceNumber == number {
			return inv.ID, nil
		}
	}
	return "", billing.ErrNotFound
}
