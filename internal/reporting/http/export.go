package reportinghttp

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/xuri/excelize/v2"
)

// handleExportXLSX serves /api/v1/reports/export.xlsx. It renders the
// sales summary, by-status breakdown and top clients for the requested
// range into a single workbook.
func (h *ReportsHandler) handleExportXLSX(w http.ResponseWriter, r *http.Request) error {
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
	byStatus, err := querySalesByStatus(r.Context(), h.db)
	if err != nil {
		http.Error(w, "query sales by status error", http.StatusInternalServerError)
		return err
	}
	topClients, err := queryTopClients(r.Context(), h.db)
	if err != nil {
		http.Error(w, "query top clients error", http.StatusInternalServerError)
		return err
	}

	data, err := buildSalesReportXLSX(summary, byStatus, topClients)
	if err != nil {
		http.Error(w, "export xlsx error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+salesReportFileName(summary))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	return nil
}

func buildSalesReportXLSX(summary salesSummary, byStatus []statusRow, topClients []clientRow) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	statusSheet := "by_status"
	clientsSheet := "top_clients"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(statusSheet)
	f.NewSheet(clientsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Sales Report")
	_ = f.SetCellValue(summarySheet, "A3", "From")
	_ = f.SetCellValue(summarySheet, "B3", summary.From)
	_ = f.SetCellValue(summarySheet, "A4", "To")
	_ = f.SetCellValue(summarySheet, "B4", summary.To)
	_ = f.SetCellValue(summarySheet, "A5", "Invoices")
	_ = f.SetCellValue(summarySheet, "B5", summary.InvoiceCount)
	_ = f.SetCellValue(summarySheet, "A6", "Invoiced Total")
	_ = f.SetCellValue(summarySheet, "B6", summary.InvoicedTotal)
	_ = f.SetCellValue(summarySheet, "A7", "Settled Total")
	_ = f.SetCellValue(summarySheet, "B7", summary.SettledTotal)
	_ = f.SetCellValue(summarySheet, "A8", "Outstanding")
	_ = f.SetCellValue(summarySheet, "B8", summary.Outstanding)

	writeSheetRows(f, statusSheet, []string{"Status", "Count", "Total"}, len(byStatus), func(i int) []any {
		row := byStatus[i]
		return []any{row.Status, row.Count, row.Total}
	})
	writeSheetRows(f, clientsSheet, []string{"Client ID", "Client Name", "Invoices", "Settled Total"}, len(topClients), func(i int) []any {
		row := topClients[i]
		return []any{row.ClientID, row.ClientName, row.InvoiceCount, row.SettledTotal}
	})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheetRows(f *excelize.File, sheet string, headers []string, count int, rowAt func(i int) []any) {
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, header)
	}
	for i := 0; i < count; i++ {
		for col, value := range rowAt(i) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}
}

func salesReportFileName(summary salesSummary) string {
	return fmt.Sprintf("sales-report-%s-%s.xlsx", summary.From, summary.To)
}
