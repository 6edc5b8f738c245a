package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"0", "0", true},
		{".5", "0.5", true},
		{"5.", "5", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"1e3", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("%q expected invalid argument, got %v", tc.in, err)
			}
		}
	}
}

func TestRoundCents(t *testing.T) {
	sum := AmountFromFloat(0.1).Add(AmountFromFloat(0.2))
	if got := RoundCents(sum).String(); got != "0.3" {
		t.Fatalf("expected 0.3, got %s", got)
	}
	if got := RoundCents(decimal.RequireFromString("1.005")).String(); got != "1.01" {
		t.Fatalf("expected half-up rounding, got %s", got)
	}
}
