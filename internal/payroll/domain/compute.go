package domain

import (
	"fmt"

	"opsledger/internal/money"
)

// EntryInput is one roster line as the run engine sees it.
type EntryInput struct {
	EmployeeID   string
	EmployeeCode string
	EmployeeName string
	Department   string
	BasicSalary  money.Money
}

// ComputeEntry derives one payroll entry. Deductions are computed on
// the basic salary; gross = basic + allowances, net = gross - total
// deductions. A negative net is flagged so reporting surfaces it.
func ComputeEntry(input EntryInput, policy AllowancePolicy, schedule DeductionSchedule) (Entry, error) {
	if input.EmployeeID == "" {
		return Entry{}, fmt.Errorf("payroll: empty employee id")
	}
	if !input.BasicSalary.IsNonNegative() {
		return Entry{}, fmt.Errorf("payroll: negative basic salary for %s", input.EmployeeID)
	}
	currency := input.BasicSalary.Currency()

	allowances, err := policy.Compose(input.Department, currency)
	if err != nil {
		return Entry{}, err
	}
	deductions, err := ComputeDeductions(input.BasicSalary, schedule)
	if err != nil {
		return Entry{}, err
	}

	gross, err := input.BasicSalary.Add(allowances.Total)
	if err != nil {
		return Entry{}, err
	}
	net, err := gross.Sub(deductions.Total)
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		EmployeeID:   input.EmployeeID,
		EmployeeCode: input.EmployeeCode,
		EmployeeName: input.EmployeeName,
		Department:   input.Department,
		BasicSalary:  input.BasicSalary,
		Allowances:   allowances,
		Deductions:   deductions,
		GrossSalary:  gross,
		NetSalary:    net,
		NegativeNet:  !net.IsNonNegative(),
	}, nil
}
