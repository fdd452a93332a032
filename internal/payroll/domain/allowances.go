package domain

import (
	"strings"

	"github.com/shopspring/decimal"

	"opsledger/internal/money"
)

// AllowanceSet is the monthly allowance grid for one department.
type AllowanceSet struct {
	Housing   decimal.Decimal
	Transport decimal.Decimal
	Medical   decimal.Decimal
	Other     decimal.Decimal
}

// AllowancePolicy maps lowercase department names to allowance sets.
// Departments without an entry get no allowances.
type AllowancePolicy map[string]AllowanceSet

// DefaultAllowancePolicy returns the built-in department grid.
func DefaultAllowancePolicy() AllowancePolicy {
	return AllowancePolicy{
		"management": {
			Housing:   decimal.NewFromInt(20000),
			Transport: decimal.NewFromInt(15000),
		},
		"development": {
			Transport: decimal.NewFromInt(8000),
			Medical:   decimal.NewFromInt(5000),
		},
	}
}

// Allowances is the composed allowance breakdown for one entry.
type Allowances struct {
	Housing   money.Money
	Transport money.Money
	Medical   money.Money
	Other     money.Money
	Total     money.Money
}

// Compose resolves the allowance breakdown for a department.
func (p AllowancePolicy) Compose(department, currency string) (Allowances, error) {
	set := p[strings.ToLower(strings.TrimSpace(department))]

	housing, err := money.New(set.Housing, currency)
	if err != nil {
		return Allowances{}, err
	}
	transport, err := money.New(set.Transport, currency)
	if err != nil {
		return Allowances{}, err
	}
	medical, err := money.New(set.Medical, currency)
	if err != nil {
		return Allowances{}, err
	}
	other, err := money.New(set.Other, currency)
	if err != nil {
		return Allowances{}, err
	}

	total := money.Zero(currency)
	for _, part := range []money.Money{housing, transport, medical, other} {
		total, err = total.Add(part)
		if err != nil {
			return Allowances{}, err
		}
	}

	return Allowances{
		Housing:   housing,
		Transport: transport,
		Medical:   medical,
		Other:     other,
		Total:     total,
	}, nil
}
