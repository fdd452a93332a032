package reportinghttp

import (
	"net/http/httptest"
	"testing"
)

func TestResolveGranularity(t *testing.T) {
	cases := []struct {
		value  string
		trunc  string
		layout string
	}{
		{value: "", trunc: "month", layout: "2006-01"},
		{value: "month", trunc: "month", layout: "2006-01"},
		{value: "day", trunc: "day", layout: "2006-01-02"},
		{value: "year", trunc: "year", layout: "2006"},
	}
	for _, tc := range cases {
		trunc, layout, err := resolveGranularity(tc.value)
		if err != nil {
			t.Fatalf("%q: %v", tc.value, err)
		}
		if trunc != tc.trunc || layout != tc.layout {
			t.Fatalf("%q: got %s/%s, want %s/%s", tc.value, trunc, layout, tc.trunc, tc.layout)
		}
	}

	if _, _, err := resolveGranularity("hour"); err == nil {
		t.Fatalf("hour granularity accepted")
	}
}

func TestParseRange(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/reports/trends?from=2026-01-01&to=2026-01-31", nil)
	from, to, err := parseRange(r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if from.Format("2006-01-02") != "2026-01-01" {
		t.Fatalf("from = %s", from)
	}
	// The to bound is exclusive; the requested end day is inside it.
	if to.Format("2006-01-02") != "2026-02-01" {
		t.Fatalf("to = %s", to)
	}

	r = httptest.NewRequest("GET", "/api/v1/reports/trends?from=2026-02-01&to=2026-01-01", nil)
	if _, _, err := parseRange(r); err == nil {
		t.Fatalf("inverted range accepted")
	}

	r = httptest.NewRequest("GET", "/api/v1/reports/trends?from=01/02/2026", nil)
	if _, _, err := parseRange(r); err == nil {
		t.Fatalf("malformed date accepted")
	}
}
