package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"opsledger/internal/money"
)

// Period identifies one payroll month.
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod validates year and month.
func NewPeriod(year int, month time.Month) (Period, error) {
	if year < 2000 || year > 2200 {
		return Period{}, fmt.Errorf("payroll: year %d out of range", year)
	}
	if month < time.January || month > time.December {
		return Period{}, fmt.Errorf("payroll: invalid month %d", month)
	}
	return Period{Year: year, Month: month}, nil
}

// Start returns the first instant of the period in UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// String formats the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Entry is one employee's computed payroll line.
type Entry struct {
	EmployeeID   string
	EmployeeCode string
	EmployeeName string
	Department   string
	BasicSalary  money.Money
	Allowances   Allowances
	Deductions   Deductions
	GrossSalary  money.Money
	NetSalary    money.Money
	// NegativeNet marks entries whose deductions exceed gross. They
	// are reported, never clamped.
	NegativeNet bool
}

// ControlTotals are the batch-level reconciliation sums.
type ControlTotals struct {
	Basic      money.Money
	Allowances money.Money
	Deductions money.Money
	Net        money.Money
	Count      int
}

// Summary carries the report figures over entry net salaries.
type Summary struct {
	AverageNet money.Money
	HighestNet money.Money
	LowestNet  money.Money
}

// Batch is the result of one payroll run. It is a pure computation
// over a roster snapshot; there is no lifecycle beyond construction.
type Batch struct {
	Period      Period
	GeneratedAt time.Time
	Entries     []Entry
	Totals      ControlTotals
	Summary     Summary
}

// BuildBatch assembles entries into a batch with control totals and
// summary figures. Entries are ordered by employee code.
func BuildBatch(period Period, generatedAt time.Time, entries []Entry, currency string) (Batch, error) {
	ordered := append([]Entry(nil), entries...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EmployeeCode < ordered[j].EmployeeCode
	})

	totals := ControlTotals{
		Basic:      money.Zero(currency),
		Allowances: money.Zero(currency),
		Deductions: money.Zero(currency),
		Net:        money.Zero(currency),
		Count:      len(ordered),
	}
	var err error
	for _, entry := range ordered {
		if totals.Basic, err = totals.Basic.Add(entry.BasicSalary); err != nil {
			return Batch{}, err
		}
		if totals.Allowances, err = totals.Allowances.Add(entry.Allowances.Total); err != nil {
			return Batch{}, err
		}
		if totals.Deductions, err = totals.Deductions.Add(entry.Deductions.Total); err != nil {
			return Batch{}, err
		}
		if totals.Net, err = totals.Net.Add(entry.NetSalary); err != nil {
			return Batch{}, err
		}
	}

	summary, err := summarize(ordered, currency)
	if err != nil {
		return Batch{}, err
	}

	return Batch{
		Period:      period,
		GeneratedAt: generatedAt.UTC(),
		Entries:     ordered,
		Totals:      totals,
		Summary:     summary,
	}, nil
}

func summarize(entries []Entry, currency string) (Summary, error) {
	zero := money.Zero(currency)
	if len(entries) == 0 {
		return Summary{AverageNet: zero, HighestNet: zero, LowestNet: zero}, nil
	}

	highest := entries[0].NetSalary
	lowest := entries[0].NetSalary
	sum := zero
	var err error
	for _, entry := range entries {
		if sum, err = sum.Add(entry.NetSalary); err != nil {
			return Summary{}, err
		}
		if entry.NetSalary.Cmp(highest) > 0 {
			highest = entry.NetSalary
		}
		if entry.NetSalary.Cmp(lowest) < 0 {
			lowest = entry.NetSalary
		}
	}

	count := int64(len(entries))
	average, err := money.New(sum.Amount().DivRound(decimal.NewFromInt(count), money.MinorUnits), currency)
	if err != nil {
		return Summary{}, err
	}
	return Summary{AverageNet: average, HighestNet: highest, LowestNet: lowest}, nil
}
