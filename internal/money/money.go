package money

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorUnits is the decimal precision every amount is rounded to.
// Currency codes are carried opaquely; two minor units cover all
// currencies this system bills in.
const MinorUnits = 2

var (
	// ErrCurrencyMismatch is returned when arithmetic crosses currency codes.
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	// ErrInvalidCurrency is returned when a currency code is not 3 letters.
	ErrInvalidCurrency = errors.New("money: invalid currency code")
	// ErrInvalidAmount is returned when an amount string cannot be parsed.
	ErrInvalidAmount = errors.New("money: invalid amount")
)

// Money is a fixed-precision amount in a single currency.
// The zero value is 0.00 with an empty currency code and is treated
// as compatible with any currency in Add/Sub.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New builds a Money from a decimal amount, rounded to minor units half-up.
func New(amount decimal.Decimal, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{amount: amount.Round(MinorUnits), currency: currency}, nil
}

// FromString parses an amount string such as "350.00".
func FromString(value, currency string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	return New(d, currency)
}

// FromMinorUnits builds a Money from an integer count of minor units.
func FromMinorUnits(units int64, currency string) (Money, error) {
	return New(decimal.New(units, -MinorUnits), currency)
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the underlying decimal value.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the 3-letter currency code.
func (m Money) Currency() string { return m.currency }

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsNonNegative reports whether the amount is >= 0.
func (m Money) IsNonNegative() bool { return !m.amount.IsNegative() }

// IsPositive reports whether the amount is > 0.
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// Add returns m + other. Currencies must match.
func (m Money) Add(other Money) (Money, error) {
	currency, err := sameCurrency(m, other)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: currency}, nil
}

// Sub returns m - other. Currencies must match.
func (m Money) Sub(other Money) (Money, error) {
	currency, err := sameCurrency(m, other)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: currency}, nil
}

// MulInt returns m multiplied by an integer factor (line quantities).
func (m Money) MulInt(factor int64) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(factor)), currency: m.currency}
}

// PercentOf returns amount * percent / 100 rounded to minor units half-up.
func (m Money) PercentOf(percent decimal.Decimal) Money {
	value := m.amount.Mul(percent).Div(decimal.NewFromInt(100))
	return Money{amount: value.Round(MinorUnits), currency: m.currency}
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, 1 if m > other.
// Comparison is exact; callers must have matched currencies beforehand.
func (m Money) Cmp(other Money) int {
	return m.amount.Cmp(other.amount)
}

// Equal reports whether amount and currency are both equal.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Round returns the amount rounded to minor units half-up.
func (m Money) Round() Money {
	return Money{amount: m.amount.Round(MinorUnits), currency: m.currency}
}

// Min returns the smaller of m and other in the same currency.
func (m Money) Min(other Money) (Money, error) {
	currency, err := sameCurrency(m, other)
	if err != nil {
		return Money{}, err
	}
	if m.amount.LessThanOrEqual(other.amount) {
		return Money{amount: m.amount, currency: currency}, nil
	}
	return Money{amount: other.amount, currency: currency}, nil
}

// String formats as "<amount> <currency>", amount fixed to minor units.
func (m Money) String() string {
	if m.currency == "" {
		return m.amount.StringFixed(MinorUnits)
	}
	return m.amount.StringFixed(MinorUnits) + " " + m.currency
}

// StringFixed formats the bare amount fixed to minor units.
func (m Money) StringFixed() string {
	return m.amount.StringFixed(MinorUnits)
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON encodes as {"amount":"396.00","currency":"KES"}.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.StringFixed(MinorUnits), Currency: m.currency})
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (m *Money) UnmarshalJSON(data []byte) error {
	var wire moneyJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Amount == "" && wire.Currency == "" {
		*m = Money{}
		return nil
	}
	parsed, err := FromString(wire.Amount, wire.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func sameCurrency(a, b Money) (string, error) {
	switch {
	case a.currency == b.currency:
		return a.currency, nil
	case a.currency == "":
		return b.currency, nil
	case b.currency == "":
		return a.currency, nil
	default:
		return "", fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.currency, b.currency)
	}
}
