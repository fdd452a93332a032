package interfaces

import (
	"time"

	billing "opsledger/internal/billing/domain"
)

type lineItemResponse struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TaxRate     string `json:"tax_rate"`
	LineTotal   string `json:"line_total"`
}

type paymentResponse struct {
	ID          string    `json:"id"`
	Amount      string    `json:"amount"`
	Method      string    `json:"method"`
	Reference   string    `json:"reference,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	ProcessedBy string    `json:"processed_by,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type invoiceResponse struct {
	ID            string             `json:"id"`
	InvoiceNumber string             `json:"invoice_number"`
	ClientID      string             `json:"client_id"`
	ProjectID     string             `json:"project_id,omitempty"`
	IssueDate     string             `json:"issue_date"`
	DueDate       string             `json:"due_date"`
	Currency      string             `json:"currency"`
	TaxRate       string             `json:"tax_rate"`
	Discount      string             `json:"discount"`
	Items         []lineItemResponse `json:"items"`
	Subtotal      string             `json:"subtotal"`
	TaxAmount     string             `json:"tax_amount"`
	TotalAmount   string             `json:"total_amount"`
	PaidTotal     string             `json:"paid_total"`
	Balance       string             `json:"balance"`
	Status        string             `json:"status"`
	Payments      []paymentResponse  `json:"payments"`
	Notes         string             `json:"notes,omitempty"`
	CreatedBy     string             `json:"created_by,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type listResponse struct {
	Items    []invoiceResponse `json:"items"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

func toInvoiceResponse(inv *billing.Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientID:      inv.ClientID,
		ProjectID:     inv.ProjectID,
		IssueDate:     inv.IssueDate.Format("2006-01-02"),
		DueDate:       inv.DueDate.Format("2006-01-02"),
		Currency:      inv.Currency,
		TaxRate:       inv.TaxRate.String(),
		Discount:      inv.Discount.StringFixed(),
		Items:         make([]lineItemResponse, 0, len(inv.Items)),
		Subtotal:      inv.Subtotal.StringFixed(),
		TaxAmount:     inv.TaxAmount.StringFixed(),
		TotalAmount:   inv.TotalAmount.StringFixed(),
		PaidTotal:     inv.PaidTotal().StringFixed(),
		Balance:       inv.RemainingBalance().StringFixed(),
		Status:        inv.Status,
		Payments:      make([]paymentResponse, 0, len(inv.Payments)),
		Notes:         inv.Notes,
		CreatedBy:     inv.CreatedBy,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
	for _, item := range inv.Items {
		resp.Items = append(resp.Items, lineItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(),
			TaxRate:     item.TaxRate.String(),
			LineTotal:   item.LineTotal.StringFixed(),
		})
	}
	for _, payment := range inv.Payments {
		resp.Payments = append(resp.Payments, paymentResponse{
			ID:          payment.ID,
			Amount:      payment.Amount.StringFixed(),
			Method:      payment.Method,
			Reference:   payment.Reference,
			Notes:       payment.Notes,
			ProcessedBy: payment.ProcessedBy,
			Timestamp:   payment.Timestamp,
		})
	}
	return resp
}
