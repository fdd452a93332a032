package masterdata

import (
	"context"
	"errors"
	"time"

	"opsledger/internal/money"
)

const (
	EmployeeStatusActive     = "active"
	EmployeeStatusOnLeave    = "on_leave"
	EmployeeStatusTerminated = "terminated"
)

// Employee represents one roster member.
// BasicSalary carries the payroll currency; payroll entries inherit it.
type Employee struct {
	ID          string
	Code        string
	FullName    string
	Email       string
	Department  string
	Role        string
	BasicSalary money.Money
	Status      string
	HireDate    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks employee invariants.
func (e Employee) Validate() error {
	if e.ID == "" {
		return errors.New("employee: empty id")
	}
	if e.Code == "" {
		return errors.New("employee: empty code")
	}
	if e.FullName == "" {
		return errors.New("employee: empty full name")
	}
	if !e.BasicSalary.IsNonNegative() {
		return errors.New("employee: negative basic salary")
	}
	switch e.Status {
	case EmployeeStatusActive, EmployeeStatusOnLeave, EmployeeStatusTerminated:
		return nil
	default:
		return errors.New("employee: unknown status")
	}
}

// RosterFilter narrows a roster snapshot query.
type RosterFilter struct {
	Department      string
	Status          string
	HiredOnOrBefore time.Time
}

// EmployeeRepository provides roster snapshots for payroll runs.
type EmployeeRepository interface {
	Get(ctx context.Context, id string) (*Employee, error)
	ListRoster(ctx context.Context, filter RosterFilter) ([]Employee, error)
}
