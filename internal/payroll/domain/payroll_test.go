package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"opsledger/internal/money"
)

func kes(t *testing.T, value string) money.Money {
	t.Helper()
	m, err := money.FromString(value, "KES")
	if err != nil {
		t.Fatalf("money %q: %v", value, err)
	}
	return m
}

func TestComputeDeductionsBrackets(t *testing.T) {
	schedule := DefaultSchedule()

	cases := []struct {
		name  string
		basic string
		tax   string
		statA string
		statB string
	}{
		// 10% flat inside the first bracket; both statutory rates
		// below their caps until 6% crosses 1080.
		{name: "tier1", basic: "20000.00", tax: "2000.00", statA: "300.00", statB: "1080.00"},
		{name: "tier1 ceiling", basic: "24000.00", tax: "2400.00", statA: "360.00", statB: "1080.00"},
		// 2400 flat plus 25% of the excess over 24000.
		{name: "tier2", basic: "30000.00", tax: "3900.00", statA: "450.00", statB: "1080.00"},
		{name: "tier2 ceiling", basic: "32333.00", tax: "4483.25", statA: "485.00", statB: "1080.00"},
		// 4483.25 flat plus 30% of the excess over 32333.
		{name: "tier3", basic: "50000.00", tax: "9783.35", statA: "750.00", statB: "1080.00"},
		{name: "tier3 statA capped", basic: "150000.00", tax: "39783.35", statA: "1700.00", statB: "1080.00"},
		{name: "zero", basic: "0.00", tax: "0.00", statA: "0.00", statB: "0.00"},
	}

	for _, tc := range cases {
		d, err := ComputeDeductions(kes(t, tc.basic), schedule)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got := d.Tax.StringFixed(); got != tc.tax {
			t.Errorf("%s: tax = %s, want %s", tc.name, got, tc.tax)
		}
		if got := d.StatutoryA.StringFixed(); got != tc.statA {
			t.Errorf("%s: statutory a = %s, want %s", tc.name, got, tc.statA)
		}
		if got := d.StatutoryB.StringFixed(); got != tc.statB {
			t.Errorf("%s: statutory b = %s, want %s", tc.name, got, tc.statB)
		}
	}
}

func TestComputeDeductionsRejectsNegative(t *testing.T) {
	negative, err := kes(t, "100.00").Sub(kes(t, "200.00"))
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	if _, err := ComputeDeductions(negative, DefaultSchedule()); err == nil {
		t.Fatalf("negative taxable accepted")
	}
}

func TestScheduleValidate(t *testing.T) {
	schedule := DefaultSchedule()
	if err := schedule.Validate(); err != nil {
		t.Fatalf("default schedule invalid: %v", err)
	}

	bad := DefaultSchedule()
	bad.Tier2Ceiling = decimal.NewFromInt(1000)
	if err := bad.Validate(); err == nil {
		t.Fatalf("unordered ceilings accepted")
	}

	bad = DefaultSchedule()
	bad.Tier1Rate = decimal.NewFromFloat(1.5)
	if err := bad.Validate(); err == nil {
		t.Fatalf("rate above 1 accepted")
	}
}

func TestAllowancePolicyCompose(t *testing.T) {
	policy := DefaultAllowancePolicy()

	management, err := policy.Compose("Management", "KES")
	if err != nil {
		t.Fatalf("compose management: %v", err)
	}
	if got := management.Total.StringFixed(); got != "35000.00" {
		t.Fatalf("management total = %s, want 35000.00", got)
	}
	if got := management.Housing.StringFixed(); got != "20000.00" {
		t.Fatalf("management housing = %s, want 20000.00", got)
	}

	development, err := policy.Compose("development", "KES")
	if err != nil {
		t.Fatalf("compose development: %v", err)
	}
	if got := development.Total.StringFixed(); got != "13000.00" {
		t.Fatalf("development total = %s, want 13000.00", got)
	}

	unknown, err := policy.Compose("logistics", "KES")
	if err != nil {
		t.Fatalf("compose unknown: %v", err)
	}
	if !unknown.Total.IsZero() {
		t.Fatalf("unknown department total = %s, want 0", unknown.Total)
	}
}

func TestComputeEntry(t *testing.T) {
	entry, err := ComputeEntry(EntryInput{
		EmployeeID:   "emp-1",
		EmployeeCode: "E001",
		EmployeeName: "Grace Wanjiku",
		Department:   "management",
		BasicSalary:  kes(t, "30000.00"),
	}, DefaultAllowancePolicy(), DefaultSchedule())
	if err != nil {
		t.Fatalf("compute entry: %v", err)
	}

	if got := entry.GrossSalary.StringFixed(); got != "65000.00" {
		t.Fatalf("gross = %s, want 65000.00", got)
	}
	if got := entry.Deductions.Total.StringFixed(); got != "5430.00" {
		t.Fatalf("deductions = %s, want 5430.00", got)
	}
	if got := entry.NetSalary.StringFixed(); got != "59570.00" {
		t.Fatalf("net = %s, want 59570.00", got)
	}
	if entry.NegativeNet {
		t.Fatalf("negative net flagged on positive entry")
	}
}

func TestComputeEntryNegativeNetFlagged(t *testing.T) {
	// A confiscatory first bracket forces deductions past gross for a
	// department with no allowances. The net must carry the sign.
	schedule := DefaultSchedule()
	schedule.Tier1Rate = decimal.NewFromInt(1)

	entry, err := ComputeEntry(EntryInput{
		EmployeeID:  "emp-1",
		Department:  "logistics",
		BasicSalary: kes(t, "10000.00"),
	}, DefaultAllowancePolicy(), schedule)
	if err != nil {
		t.Fatalf("compute entry: %v", err)
	}
	if !entry.NegativeNet {
		t.Fatalf("negative net not flagged")
	}
	if got := entry.NetSalary.StringFixed(); got != "-750.00" {
		t.Fatalf("net = %s, want -750.00", got)
	}
}

func TestBuildBatchTotalsAndSummary(t *testing.T) {
	policy := DefaultAllowancePolicy()
	schedule := DefaultSchedule()

	second, err := ComputeEntry(EntryInput{
		EmployeeID:   "emp-2",
		EmployeeCode: "E002",
		Department:   "development",
		BasicSalary:  kes(t, "20000.00"),
	}, policy, schedule)
	if err != nil {
		t.Fatalf("entry 2: %v", err)
	}
	first, err := ComputeEntry(EntryInput{
		EmployeeID:   "emp-1",
		EmployeeCode: "E001",
		Department:   "management",
		BasicSalary:  kes(t, "30000.00"),
	}, policy, schedule)
	if err != nil {
		t.Fatalf("entry 1: %v", err)
	}

	period, err := NewPeriod(2026, time.January)
	if err != nil {
		t.Fatalf("period: %v", err)
	}
	batch, err := BuildBatch(period, time.Now(), []Entry{second, first}, "KES")
	if err != nil {
		t.Fatalf("build batch: %v", err)
	}

	if batch.Totals.Count != 2 {
		t.Fatalf("count = %d, want 2", batch.Totals.Count)
	}
	if batch.Entries[0].EmployeeCode != "E001" {
		t.Fatalf("entries not ordered by code: %s first", batch.Entries[0].EmployeeCode)
	}
	if got := batch.Totals.Basic.StringFixed(); got != "50000.00" {
		t.Fatalf("basic total = %s, want 50000.00", got)
	}
	if got := batch.Totals.Allowances.StringFixed(); got != "48000.00" {
		t.Fatalf("allowance total = %s, want 48000.00", got)
	}

	// E001 nets 59570.00, E002 nets 29620.00.
	if got := batch.Summary.HighestNet.StringFixed(); got != "59570.00" {
		t.Fatalf("highest net = %s, want 59570.00", got)
	}
	if got := batch.Summary.LowestNet.StringFixed(); got != "29620.00" {
		t.Fatalf("lowest net = %s, want 29620.00", got)
	}
	if got := batch.Summary.AverageNet.StringFixed(); got != "44595.00" {
		t.Fatalf("average net = %s, want 44595.00", got)
	}
}

func TestNewPeriodValidation(t *testing.T) {
	if _, err := NewPeriod(1999, time.January); err == nil {
		t.Fatalf("year below range accepted")
	}
	if _, err := NewPeriod(2026, time.Month(13)); err == nil {
		t.Fatalf("month 13 accepted")
	}
	period, err := NewPeriod(2026, time.March)
	if err != nil {
		t.Fatalf("period: %v", err)
	}
	if period.String() != "2026-03" {
		t.Fatalf("string = %s, want 2026-03", period.String())
	}
	if !period.Start().Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %s", period.Start())
	}
}
