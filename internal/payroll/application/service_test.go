package application

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	masterdata "opsledger/internal/masterdata/domain"
	masterdatamemory "opsledger/internal/masterdata/infrastructure/memory"
	payroll "opsledger/internal/payroll/domain"
	"opsledger/internal/money"
)

func salary(t *testing.T, value string) money.Money {
	t.Helper()
	m, err := money.FromString(value, "KES")
	if err != nil {
		t.Fatalf("money %q: %v", value, err)
	}
	return m
}

func rosterDirectory(t *testing.T) *masterdatamemory.Directory {
	t.Helper()
	directory := masterdatamemory.NewDirectory()
	directory.PutEmployee(masterdata.Employee{
		ID:          "emp-1",
		Code:        "E001",
		FullName:    "Grace Wanjiku",
		Department:  "management",
		BasicSalary: salary(t, "30000.00"),
		Status:      masterdata.EmployeeStatusActive,
		HireDate:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	directory.PutEmployee(masterdata.Employee{
		ID:          "emp-2",
		Code:        "E002",
		FullName:    "Brian Otieno",
		Department:  "development",
		BasicSalary: salary(t, "20000.00"),
		Status:      masterdata.EmployeeStatusActive,
		HireDate:    time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	// Terminated before the run period; must never appear in a batch.
	directory.PutEmployee(masterdata.Employee{
		ID:          "emp-3",
		Code:        "E003",
		FullName:    "Faith Njeri",
		Department:  "development",
		BasicSalary: salary(t, "25000.00"),
		Status:      masterdata.EmployeeStatusTerminated,
		HireDate:    time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	// Hired after the run period start.
	directory.PutEmployee(masterdata.Employee{
		ID:          "emp-4",
		Code:        "E004",
		FullName:    "Kevin Mutua",
		Department:  "management",
		BasicSalary: salary(t, "40000.00"),
		Status:      masterdata.EmployeeStatusActive,
		HireDate:    time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	})
	return directory
}

func newService(t *testing.T, directory *masterdatamemory.Directory) *PayrollService {
	t.Helper()
	service, err := NewPayrollService(
		directory.Employees(),
		payroll.DefaultSchedule(),
		payroll.DefaultAllowancePolicy(),
		"KES",
		SystemClock{},
		log.New(io.Discard, "", 0),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func TestRunSnapshotsActiveRoster(t *testing.T) {
	service := newService(t, rosterDirectory(t))

	period, err := payroll.NewPeriod(2026, time.January)
	if err != nil {
		t.Fatalf("period: %v", err)
	}
	batch, err := service.Run(context.Background(), period)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if batch.Totals.Count != 2 {
		t.Fatalf("count = %d, want 2", batch.Totals.Count)
	}
	for _, entry := range batch.Entries {
		if entry.EmployeeID == "emp-3" {
			t.Fatalf("terminated employee in batch")
		}
		if entry.EmployeeID == "emp-4" {
			t.Fatalf("not-yet-hired employee in batch")
		}
	}
	if batch.Entries[0].EmployeeCode != "E001" {
		t.Fatalf("first entry = %s, want E001", batch.Entries[0].EmployeeCode)
	}
	if got := batch.Totals.Basic.StringFixed(); got != "50000.00" {
		t.Fatalf("basic total = %s, want 50000.00", got)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	service := newService(t, rosterDirectory(t))

	period, err := payroll.NewPeriod(2026, time.January)
	if err != nil {
		t.Fatalf("period: %v", err)
	}
	first, err := service.Run(context.Background(), period)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := service.Run(context.Background(), period)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !first.Totals.Net.Equal(second.Totals.Net) {
		t.Fatalf("net totals differ: %s vs %s", first.Totals.Net, second.Totals.Net)
	}
	if !first.Summary.AverageNet.Equal(second.Summary.AverageNet) {
		t.Fatalf("averages differ: %s vs %s", first.Summary.AverageNet, second.Summary.AverageNet)
	}
}

func TestRunEmptyRoster(t *testing.T) {
	service := newService(t, masterdatamemory.NewDirectory())

	period, err := payroll.NewPeriod(2026, time.January)
	if err != nil {
		t.Fatalf("period: %v", err)
	}
	batch, err := service.Run(context.Background(), period)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if batch.Totals.Count != 0 {
		t.Fatalf("count = %d, want 0", batch.Totals.Count)
	}
	if !batch.Summary.AverageNet.IsZero() {
		t.Fatalf("average = %s, want 0", batch.Summary.AverageNet)
	}
}
