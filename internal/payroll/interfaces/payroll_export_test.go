package interfaces

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"opsledger/internal/money"
	payroll "opsledger/internal/payroll/domain"
)

func exportBatch(t *testing.T) payroll.Batch {
	t.Helper()
	policy := payroll.DefaultAllowancePolicy()
	schedule := payroll.DefaultSchedule()

	entry, err := payroll.ComputeEntry(payroll.EntryInput{
		EmployeeID:   "emp-1",
		EmployeeCode: "E001",
		EmployeeName: "Grace Wanjiku",
		Department:   "management",
		BasicSalary:  mustKES(t, "30000.00"),
	}, policy, schedule)
	if err != nil {
		t.Fatalf("entry: %v", err)
	}

	period, err := payroll.NewPeriod(2026, time.January)
	if err != nil {
		t.Fatalf("period: %v", err)
	}
	batch, err := payroll.BuildBatch(period, time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC), []payroll.Entry{entry}, "KES")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	return batch
}

func mustKES(t *testing.T, value string) money.Money {
	t.Helper()
	m, err := money.FromString(value, "KES")
	if err != nil {
		t.Fatalf("money %q: %v", value, err)
	}
	return m
}

func TestBuildPayrollXLSX(t *testing.T) {
	batch := exportBatch(t)

	data, err := BuildPayrollXLSX(batch)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	period, err := f.GetCellValue("summary", "B3")
	if err != nil {
		t.Fatalf("read period: %v", err)
	}
	if period != "2026-01" {
		t.Fatalf("period cell = %q, want 2026-01", period)
	}

	code, err := f.GetCellValue("entries", "A2")
	if err != nil {
		t.Fatalf("read code: %v", err)
	}
	if code != "E001" {
		t.Fatalf("code cell = %q, want E001", code)
	}

	net, err := f.GetCellValue("entries", "O2")
	if err != nil {
		t.Fatalf("read net: %v", err)
	}
	if net != "59570.00" {
		t.Fatalf("net cell = %q, want 59570.00", net)
	}
}

func TestPayrollFileName(t *testing.T) {
	batch := exportBatch(t)
	if got := payrollFileName(batch); got != "payroll-2026-01.xlsx" {
		t.Fatalf("file name = %q", got)
	}
}
