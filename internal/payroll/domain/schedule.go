package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"opsledger/internal/money"
)

// DeductionSchedule parameterizes the progressive withholding brackets
// and the two capped statutory deductions. Boundaries, rates, flats and
// caps are configuration so jurisdiction changes never touch code.
type DeductionSchedule struct {
	Tier1Ceiling decimal.Decimal
	Tier1Rate    decimal.Decimal
	Tier2Ceiling decimal.Decimal
	Tier2Flat    decimal.Decimal
	Tier2Rate    decimal.Decimal
	Tier3Flat    decimal.Decimal
	Tier3Rate    decimal.Decimal

	StatutoryARate decimal.Decimal
	StatutoryACap  decimal.Decimal
	StatutoryBRate decimal.Decimal
	StatutoryBCap  decimal.Decimal
}

// DefaultSchedule returns the Kenyan 2024 values.
func DefaultSchedule() DeductionSchedule {
	return DeductionSchedule{
		Tier1Ceiling: decimal.NewFromInt(24000),
		Tier1Rate:    decimal.NewFromFloat(0.10),
		Tier2Ceiling: decimal.NewFromInt(32333),
		Tier2Flat:    decimal.NewFromInt(2400),
		Tier2Rate:    decimal.NewFromFloat(0.25),
		Tier3Flat:    decimal.NewFromFloat(4483.25),
		Tier3Rate:    decimal.NewFromFloat(0.30),

		StatutoryARate: decimal.NewFromFloat(0.015),
		StatutoryACap:  decimal.NewFromInt(1700),
		StatutoryBRate: decimal.NewFromFloat(0.06),
		StatutoryBCap:  decimal.NewFromInt(1080),
	}
}

// Validate rejects schedules that cannot produce sane withholdings.
func (s DeductionSchedule) Validate() error {
	if s.Tier1Ceiling.IsNegative() || s.Tier2Ceiling.Cmp(s.Tier1Ceiling) < 0 {
		return fmt.Errorf("payroll: bracket ceilings must be non-negative and ordered")
	}
	for _, rate := range []decimal.Decimal{s.Tier1Rate, s.Tier2Rate, s.Tier3Rate, s.StatutoryARate, s.StatutoryBRate} {
		if rate.IsNegative() || rate.Cmp(decimal.NewFromInt(1)) > 0 {
			return fmt.Errorf("payroll: rates must be within [0, 1]")
		}
	}
	if s.StatutoryACap.IsNegative() || s.StatutoryBCap.IsNegative() {
		return fmt.Errorf("payroll: statutory caps must be non-negative")
	}
	return nil
}

// Deductions is the withholding breakdown for one salary.
type Deductions struct {
	Tax        money.Money
	StatutoryA money.Money
	StatutoryB money.Money
	Total      money.Money
}

// ComputeDeductions applies the schedule to a taxable salary component.
// Zero input yields an all-zero breakdown. All figures are rounded to
// 2 decimal places half-up.
func ComputeDeductions(taxable money.Money, schedule DeductionSchedule) (Deductions, error) {
	if err := schedule.Validate(); err != nil {
		return Deductions{}, err
	}
	if !taxable.IsNonNegative() {
		return Deductions{}, fmt.Errorf("payroll: negative taxable amount")
	}
	currency := taxable.Currency()
	amount := taxable.Amount()

	var taxRaw decimal.Decimal
	switch {
	case amount.Cmp(schedule.Tier1Ceiling) <= 0:
		taxRaw = amount.Mul(schedule.Tier1Rate)
	case amount.Cmp(schedule.Tier2Ceiling) <= 0:
		taxRaw = schedule.Tier2Flat.Add(amount.Sub(schedule.Tier1Ceiling).Mul(schedule.Tier2Rate))
	default:
		taxRaw = schedule.Tier3Flat.Add(amount.Sub(schedule.Tier2Ceiling).Mul(schedule.Tier3Rate))
	}

	statARaw := decimal.Min(amount.Mul(schedule.StatutoryARate), schedule.StatutoryACap)
	statBRaw := decimal.Min(amount.Mul(schedule.StatutoryBRate), schedule.StatutoryBCap)

	tax, err := money.New(taxRaw, currency)
	if err != nil {
		return Deductions{}, err
	}
	statA, err := money.New(statARaw, currency)
	if err != nil {
		return Deductions{}, err
	}
	statB, err := money.New(statBRaw, currency)
	if err != nil {
		return Deductions{}, err
	}
	total, err := tax.Add(statA)
	if err != nil {
		return Deductions{}, err
	}
	total, err = total.Add(statB)
	if err != nil {
		return Deductions{}, err
	}

	return Deductions{Tax: tax, StatutoryA: statA, StatutoryB: statB, Total: total}, nil
}
