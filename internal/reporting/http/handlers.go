package reportinghttp

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"opsledger/internal/observability/metrics"
)

const dateLayout = "2006-01-02"

// ReportsHandler serves read-side rollups over invoices and payments.
// No invariants live here; everything is derived from persisted state.
type ReportsHandler struct {
	db *sql.DB
}

// NewReportsHandler constructs a ReportsHandler.
func NewReportsHandler(db *sql.DB) *ReportsHandler {
	return &ReportsHandler{db: db}
}

// ServeHTTP handles report routes under /api/v1/reports.
func (h *ReportsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	switch r.URL.Path {
	case "/api/v1/reports/sales-summary":
		h.serve(w, r, "sales_summary", h.handleSalesSummary)
	case "/api/v1/reports/sales-by-status":
		h.serve(w, r, "sales_by_status", h.handleSalesByStatus)
	case "/api/v1/reports/trends":
		h.serve(w, r, "trends", h.handleTrends)
	case "/api/v1/reports/top-clients":
		h.serve(w, r, "top_clients", h.handleTopClients)
	case "/api/v1/reports/export.xlsx":
		h.serve(w, r, "export_xlsx", h.handleExportXLSX)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ReportsHandler) serve(w http.ResponseWriter, r *http.Request, report string, fn func(w http.ResponseWriter, r *http.Request) error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReportQuery(report, result, time.Since(start))
	}()
	if err := fn(w, r); err != nil {
		result = metrics.ResultError
	}
}

type salesSummary struct {
	From          string `json:"from"`
	To            string `json:"to"`
	InvoiceCount  int    `json:"invoice_count"`
	InvoicedTotal string `json:"invoiced_total"`
	SettledTotal  string `json:"settled_total"`
	Outstanding   string `json:"outstanding"`
}

// handleSalesSummary reports over paid and partially paid invoices.
func (h *ReportsHandler) handleSalesSummary(w http.ResponseWriter, r *http.Request) error {
	from, to, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return err
	}

	summary, err := querySalesSummary(r.Context(), h.db, from, to)
	if err != nil {
		http.Error(w, "query sales summary error", http.StatusInternalServerError)
		return err
	}
	writeJSON(w, summary)
	return nil
}

func querySalesSummary(ctx context.Context, db *sql.DB, from, to time.Time) (salesSummary, error) {
	var (
		count    int
		invoiced decimal.Decimal
		settled  decimal.Decimal
	)
	err := db.QueryRowContext(ctx, `
SELECT
	COUNT(*),
	COALESCE(SUM(i.total_amount), 0),
	COALESCE(SUM(p.paid), 0)
FROM invoices i
LEFT JOIN (
	SELECT invoice_id, SUM(amount) AS paid
	FROM invoice_payments
	GROUP BY invoice_id
) p ON p.invoice_id = i.id
WHERE i.status IN ('paid', 'partially_paid')
	AND i.issue_date >= $1
	AND i.issue_date < $2`, from, to).Scan(&count, &invoiced, &settled)
	if err != nil {
		return salesSummary{}, err
	}
	return salesSummary{
		From:          from.Format(dateLayout),
		To:            to.Format(dateLayout),
		InvoiceCount:  count,
		InvoicedTotal: invoiced.StringFixed(2),
		SettledTotal:  settled.StringFixed(2),
		Outstanding:   invoiced.Sub(settled).StringFixed(2),
	}, nil
}

type statusRow struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Total  string `json:"total"`
}

// handleSalesByStatus groups invoices by effective status. Overdue is
// derived in SQL the same way the aggregate derives it at read time.
func (h *ReportsHandler) handleSalesByStatus(w http.ResponseWriter, r *http.Request) error {
	result, err := querySalesByStatus(r.Context(), h.db)
	if err != nil {
		http.Error(w, "query sales by status error", http.StatusInternalServerError)
		return err
	}
	writeJSON(w, result)
	return nil
}

func querySalesByStatus(ctx context.Context, db *sql.DB) ([]statusRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT
	CASE
		WHEN status IN ('pending', 'partially_paid') AND due_date < NOW() THEN 'overdue'
		ELSE status
	END AS effective_status,
	COUNT(*),
	COALESCE(SUM(total_amount), 0)
FROM invoices
GROUP BY effective_status
ORDER BY effective_status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]statusRow, 0, 6)
	for rows.Next() {
		var (
			row   statusRow
			total decimal.Decimal
		)
		if err := rows.Scan(&row.Status, &row.Count, &total); err != nil {
			return nil, err
		}
		row.Total = total.StringFixed(2)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type trendRow struct {
	Period string `json:"period"`
	Count  int    `json:"count"`
	Total  string `json:"total"`
}

// handleTrends groups invoiced volume by day, month or year.
func (h *ReportsHandler) handleTrends(w http.ResponseWriter, r *http.Request) error {
	from, to, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return err
	}
	granularity, layout, err := resolveGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return err
	}

	rows, err := h.db.QueryContext(r.Context(), `
SELECT
	DATE_TRUNC($1, issue_date) AS bucket,
	COUNT(*),
	COALESCE(SUM(total_amount), 0)
FROM invoices
WHERE status <> 'cancelled'
	AND issue_date >= $2
	AND issue_date < $3
GROUP BY bucket
ORDER BY bucket ASC`, granularity, from, to)
	if err != nil {
		http.Error(w, "query trends error", http.StatusInternalServerError)
		return err
	}
	defer rows.Close()

	result := make([]trendRow, 0, 32)
	for rows.Next() {
		var (
			bucket time.Time
			row    trendRow
			total  decimal.Decimal
		)
		if err := rows.Scan(&bucket, &row.Count, &total); err != nil {
			http.Error(w, "scan trends error", http.StatusInternalServerError)
			return err
		}
		row.Period = bucket.UTC().Format(layout)
		row.Total = total.StringFixed(2)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		http.Error(w, "query trends error", http.StatusInternalServerError)
		return err
	}
	writeJSON(w, result)
	return nil
}

type clientRow struct {
	ClientID     string `json:"client_id"`
	ClientName   string `json:"client_name"`
	InvoiceCount int    `json:"invoice_count"`
	SettledTotal string `json:"settled_total"`
}

// handleTopClients returns the ten clients with the highest settled
// volume.
func (h *ReportsHandler) handleTopClients(w http.ResponseWriter, r *http.Request) error {
	rows, err := queryTopClients(r.Context(), h.db)
	if err != nil {
		http.Error(w, "query top clients error", http.StatusInternalServerError)
		return err
	}
	writeJSON(w, rows)
	return nil
}

func queryTopClients(ctx context.Context, db *sql.DB) ([]clientRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT
	i.client_id,
	COALESCE(MAX(c.name), ''),
	COUNT(DISTINCT i.id),
	COALESCE(SUM(p.amount), 0) AS settled
FROM invoices i
JOIN invoice_payments p ON p.invoice_id = i.id
LEFT JOIN clients c ON c.id = i.client_id
GROUP BY i.client_id
ORDER BY settled DESC
LIMIT 10`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]clientRow, 0, 10)
	for rows.Next() {
		var (
			row     clientRow
			settled decimal.Decimal
		)
		if err := rows.Scan(&row.ClientID, &row.ClientName, &row.InvoiceCount, &settled); err != nil {
			return nil, err
		}
		row.SettledTotal = settled.StringFixed(2)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(-1, 0, 0)
	to := now.AddDate(0, 0, 1)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD")
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD")
		}
		to = parsed.AddDate(0, 0, 1)
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, errors.New("to must be after from")
	}
	return from, to, nil
}

func resolveGranularity(value string) (string, string, error) {
	switch value {
	case "", "month":
		return "month", "2006-01", nil
	case "day":
		return "day", "2006-01-02", nil
	case "year":
		return "year", "2006", nil
	default:
		return "", "", errors.New("granularity must be day, month or year")
	}
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
