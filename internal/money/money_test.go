package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func mustMoney(t *testing.T, value, currency string) Money {
	t.Helper()
	m, err := FromString(value, currency)
	if err != nil {
		t.Fatalf("from string %q: %v", value, err)
	}
	return m
}

func TestAddSubSameCurrency(t *testing.T) {
	a := mustMoney(t, "100.50", "KES")
	b := mustMoney(t, "49.50", "KES")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sum.StringFixed() != "150.00" {
		t.Fatalf("sum = %s, want 150.00", sum.StringFixed())
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	if diff.StringFixed() != "51.00" {
		t.Fatalf("diff = %s, want 51.00", diff.StringFixed())
	}
}

func TestAddCurrencyMismatch(t *testing.T) {
	a := mustMoney(t, "10.00", "KES")
	b := mustMoney(t, "10.00", "USD")

	if _, err := a.Add(b); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("add mismatch err = %v, want ErrCurrencyMismatch", err)
	}
	if _, err := a.Sub(b); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("sub mismatch err = %v, want ErrCurrencyMismatch", err)
	}
}

func TestZeroValueCompatibleWithAnyCurrency(t *testing.T) {
	var zero Money
	a := mustMoney(t, "5.00", "KES")

	sum, err := zero.Add(a)
	if err != nil {
		t.Fatalf("zero add: %v", err)
	}
	if sum.Currency() != "KES" || sum.StringFixed() != "5.00" {
		t.Fatalf("zero add = %s, want 5.00 KES", sum)
	}
}

func TestPercentOfRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount  string
		percent string
		want    string
	}{
		{"350.00", "16", "56.00"},
		{"100.00", "16.005", "16.01"},
		{"0.10", "25", "0.03"},  // 0.025 rounds up
		{"0.00", "16", "0.00"},
	}
	for _, tc := range cases {
		m := mustMoney(t, tc.amount, "KES")
		pct, err := decimal.NewFromString(tc.percent)
		if err != nil {
			t.Fatalf("percent %q: %v", tc.percent, err)
		}
		got := m.PercentOf(pct).StringFixed()
		if got != tc.want {
			t.Fatalf("%s%% of %s = %s, want %s", tc.percent, tc.amount, got, tc.want)
		}
	}
}

func TestRoundIdempotent(t *testing.T) {
	m := mustMoney(t, "396.00", "KES")
	once := m.Round()
	twice := once.Round()
	if !once.Equal(twice) {
		t.Fatalf("repeated rounding drifted: %s vs %s", once, twice)
	}
}

func TestInvalidCurrency(t *testing.T) {
	if _, err := New(decimal.NewFromInt(1), "KE"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("err = %v, want ErrInvalidCurrency", err)
	}
}

func TestIsNonNegative(t *testing.T) {
	pos := mustMoney(t, "0.01", "KES")
	neg := mustMoney(t, "-0.01", "KES")
	zero := Zero("KES")

	if !pos.IsNonNegative() || !zero.IsNonNegative() {
		t.Fatal("positive/zero amounts must be non-negative")
	}
	if neg.IsNonNegative() {
		t.Fatal("negative amount reported non-negative")
	}
}

func TestFromMinorUnits(t *testing.T) {
	m, err := FromMinorUnits(39600, "KES")
	if err != nil {
		t.Fatalf("from minor units: %v", err)
	}
	if m.StringFixed() != "396.00" {
		t.Fatalf("amount = %s, want 396.00", m.StringFixed())
	}
}
