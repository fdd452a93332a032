package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"opsledger/internal/audit"
	"opsledger/internal/auth"
	"opsledger/internal/billing/application"
	billing "opsledger/internal/billing/domain"
	"opsledger/internal/money"
)

const defaultCurrency = "KES"

// InvoiceHandler handles invoice APIs.
type InvoiceHandler struct {
	service     *application.InvoiceService
	auditLogger audit.Logger
}

// NewInvoiceHandler constructs a handler.
func NewInvoiceHandler(service *application.InvoiceService, auditLogger audit.Logger) (*InvoiceHandler, error) {
	if service == nil {
		return nil, errors.New("invoice handler: nil service")
	}
	return &InvoiceHandler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP handles invoice routes under /api/v1/invoices.
func (h *InvoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/invoices" {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if strings.HasPrefix(path, "/api/v1/invoices/") {
		rest := strings.TrimPrefix(path, "/api/v1/invoices/")
		h.handleByID(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

type lineItemRequest struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TaxRate     string `json:"tax_rate"`
}

type createInvoiceRequest struct {
	InvoiceNumber string            `json:"invoice_number"`
	ClientID      string            `json:"client_id"`
	ProjectID     string            `json:"project_id"`
	IssueDate     string            `json:"issue_date"`
	DueDate       string            `json:"due_date"`
	Currency      string            `json:"currency"`
	TaxRate       string            `json:"tax_rate"`
	Discount      string            `json:"discount"`
	Items         []lineItemRequest `json:"items"`
	Notes         string            `json:"notes"`
	Draft         bool              `json:"draft"`
}

func (h *InvoiceHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	issueDate, err := parseDate(req.IssueDate)
	if err != nil {
		http.Error(w, "invalid issue_date", http.StatusBadRequest)
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		http.Error(w, "invalid due_date", http.StatusBadRequest)
		return
	}

	input := billing.NewInvoiceInput{
		InvoiceNumber: req.InvoiceNumber,
		ClientID:      req.ClientID,
		ProjectID:     req.ProjectID,
		IssueDate:     issueDate,
		DueDate:       dueDate,
		Currency:      currency,
		Notes:         req.Notes,
		AsDraft:       req.Draft,
	}
	if req.TaxRate != "" {
		rate, err := decimal.NewFromString(req.TaxRate)
		if err != nil {
			http.Error(w, "invalid tax_rate", http.StatusBadRequest)
			return
		}
		input.TaxRate = &rate
	}
	if req.Discount != "" {
		discount, err := money.FromString(req.Discount, currency)
		if err != nil {
			http.Error(w, "invalid discount", http.StatusBadRequest)
			return
		}
		input.Discount = discount
	}
	items, err := parseItems(req.Items, currency)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input.Items = items

	inv, err := h.service.Create(r.Context(), input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceResponse(inv))
	h.logAudit(r, inv.ID, "invoice.create", map[string]any{
		"invoice_number": inv.InvoiceNumber,
		"client_id":      inv.ClientID,
		"total":          inv.TotalAmount.StringFixed(),
	})
}

func (h *InvoiceHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := billing.ListFilter{
		Status:   q.Get("status"),
		ClientID: q.Get("client_id"),
		Search:   q.Get("search"),
	}
	if raw := q.Get("issued_from"); raw != "" {
		from, err := parseDate(raw)
		if err != nil {
			http.Error(w, "invalid issued_from", http.StatusBadRequest)
			return
		}
		filter.IssuedFrom = from
	}
	if raw := q.Get("issued_to"); raw != "" {
		to, err := parseDate(raw)
		if err != nil {
			http.Error(w, "invalid issued_to", http.StatusBadRequest)
			return
		}
		filter.IssuedTo = to
	}
	currency := q.Get("currency")
	if currency == "" {
		currency = defaultCurrency
	}
	if raw := q.Get("min_total"); raw != "" {
		value, err := money.FromString(raw, currency)
		if err != nil {
			http.Error(w, "invalid min_total", http.StatusBadRequest)
			return
		}
		filter.MinTotal = &value
	}
	if raw := q.Get("max_total"); raw != "" {
		value, err := money.FromString(raw, currency)
		if err != nil {
			http.Error(w, "invalid max_total", http.StatusBadRequest)
			return
		}
		filter.MaxTotal = &value
	}

	page := billing.Page{
		SortField:      q.Get("sort"),
		SortDescending: q.Get("order") == "desc",
	}
	if raw := q.Get("page"); raw != "" {
		page.Number, _ = strconv.Atoi(raw)
	}
	if raw := q.Get("page_size"); raw != "" {
		page.Size, _ = strconv.Atoi(raw)
	}

	items, total, err := h.service.List(r.Context(), filter, page)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	page = page.Normalize()
	resp := listResponse{
		Items:    make([]invoiceResponse, 0, len(items)),
		Total:    total,
		Page:     page.Number,
		PageSize: page.Size,
	}
	for i := range items {
		resp.Items = append(resp.Items, toInvoiceResponse(&items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *InvoiceHandler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, id)
		case http.MethodPatch:
			h.handleUpdate(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if len(parts) == 2 && r.Method == http.MethodPost {
		switch parts[1] {
		case "payments":
			h.handleApplyPayment(w, r, id)
			return
		case "issue":
			h.handleIssue(w, r, id)
			return
		case "cancel":
			h.handleCancel(w, r, id)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *InvoiceHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

type updateInvoiceRequest struct {
	Items    *[]lineItemRequest `json:"items"`
	Discount *string            `json:"discount"`
	TaxRate  *string            `json:"tax_rate"`
	DueDate  *string            `json:"due_date"`
	Notes    *string            `json:"notes"`
}

func (h *InvoiceHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req updateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	current, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	currency := current.Currency

	patch := billing.UpdatePatch{Notes: req.Notes}
	if req.Items != nil {
		items, err := parseItems(*req.Items, currency)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		patch.Items = &items
	}
	if req.Discount != nil {
		discount, err := money.FromString(*req.Discount, currency)
		if err != nil {
			http.Error(w, "invalid discount", http.StatusBadRequest)
			return
		}
		patch.Discount = &discount
	}
	if req.TaxRate != nil {
		rate, err := decimal.NewFromString(*req.TaxRate)
		if err != nil {
			http.Error(w, "invalid tax_rate", http.StatusBadRequest)
			return
		}
		patch.TaxRate = &rate
	}
	if req.DueDate != nil {
		dueDate, err := parseDate(*req.DueDate)
		if err != nil {
			http.Error(w, "invalid due_date", http.StatusBadRequest)
			return
		}
		patch.DueDate = &dueDate
	}

	inv, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
	h.logAudit(r, inv.ID, "invoice.update", map[string]any{
		"invoice_number": inv.InvoiceNumber,
		"total":          inv.TotalAmount.StringFixed(),
	})
}

func (h *InvoiceHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, id, "invoice.delete", nil)
}

type paymentRequest struct {
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
}

func (h *InvoiceHandler) handleApplyPayment(w http.ResponseWriter, r *http.Request, id string) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
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

	inv, err := h.service.ApplyPayment(r.Context(), id, application.ApplyPaymentInput{
		Amount:    amount,
		Method:    req.Method,
		Reference: req.Reference,
		Notes:     req.Notes,
		ActorID:   auth.SubjectFromContext(r.Context()),
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
	h.logAudit(r, inv.ID, "invoice.payment", map[string]any{
		"amount":  amount.StringFixed(),
		"method":  req.Method,
		"status":  inv.Status,
		"balance": inv.RemainingBalance().StringFixed(),
	})
}

func (h *InvoiceHandler) handleIssue(w http.ResponseWriter, r *http.Request, id string) {
	inv, err := h.service.Issue(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
	h.logAudit(r, inv.ID, "invoice.issue", nil)
}

func (h *InvoiceHandler) handleCancel(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	inv, err := h.service.Cancel(r.Context(), id, req.Reason, auth.SubjectFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
	h.logAudit(r, inv.ID, "invoice.cancel", map[string]any{"reason": req.Reason})
}

func (h *InvoiceHandler) logAudit(r *http.Request, invoiceID, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "invoice",
		ResourceID:   invoiceID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func parseItems(reqs []lineItemRequest, currency string) ([]billing.LineItem, error) {
	items := make([]billing.LineItem, 0, len(reqs))
	for _, req := range reqs {
		unitPrice, err := money.FromString(req.UnitPrice, currency)
		if err != nil {
			return nil, errors.New("invalid item unit_price")
		}
		item := billing.LineItem{
			Description: req.Description,
			Quantity:    req.Quantity,
			UnitPrice:   unitPrice,
		}
		if req.TaxRate != "" {
			rate, err := decimal.NewFromString(req.TaxRate)
			if err != nil {
				return nil, errors.New("invalid item tax_rate")
			}
			item.TaxRate = rate
		}
		items = append(items, item)
	}
	return items, nil
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, billing.ErrNotFound):
		http.Error(w, "invoice not found", http.StatusNotFound)
	case errors.Is(err, billing.ErrClientNotFound), errors.Is(err, billing.ErrProjectNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, billing.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, billing.ErrAmountExceedsBalance):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
