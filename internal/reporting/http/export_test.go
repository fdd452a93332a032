package reportinghttp

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestBuildSalesReportXLSX(t *testing.T) {
	summary := salesSummary{
		From:          "2026-01-01",
		To:            "2026-02-01",
		InvoiceCount:  3,
		InvoicedTotal: "1200.00",
		SettledTotal:  "900.00",
		Outstanding:   "300.00",
	}
	byStatus := []statusRow{
		{Status: "paid", Count: 2, Total: "800.00"},
		{Status: "partially_paid", Count: 1, Total: "400.00"},
	}
	topClients := []clientRow{
		{ClientID: "client-1", ClientName: "Acme Ltd", InvoiceCount: 2, SettledTotal: "700.00"},
	}

	data, err := buildSalesReportXLSX(summary, byStatus, topClients)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("summary", "B8")
	if err != nil {
		t.Fatalf("summary cell: %v", err)
	}
	if got != "300.00" {
		t.Fatalf("outstanding = %q, want 300.00", got)
	}

	got, err = f.GetCellValue("by_status", "A3")
	if err != nil {
		t.Fatalf("status cell: %v", err)
	}
	if got != "partially_paid" {
		t.Fatalf("status row = %q, want partially_paid", got)
	}

	got, err = f.GetCellValue("top_clients", "B2")
	if err != nil {
		t.Fatalf("client cell: %v", err)
	}
	if got != "Acme Ltd" {
		t.Fatalf("client name = %q, want Acme Ltd", got)
	}
}

func TestSalesReportFileName(t *testing.T) {
	name := salesReportFileName(salesSummary{From: "2026-01-01", To: "2026-02-01"})
	if name != "sales-report-2026-01-01-2026-02-01.xlsx" {
		t.Fatalf("file name = %q", name)
	}
}
