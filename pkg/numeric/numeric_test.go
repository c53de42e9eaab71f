package numeric

import (
	"encoding/json"
	"math"
	"testing"
)

func TestSafeIsTotal(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  float64
	}{
		{"nil", nil, 0},
		{"empty string", "", 0},
		{"whitespace string", "   ", 0},
		{"garbage string", "abc", 0},
		{"numeric string", "12.5", 12.5},
		{"integer string", "1200", 1200},
		{"float", 12.5, 12.5},
		{"int", 42, 42},
		{"nan", math.NaN(), 0},
		{"positive infinity", math.Inf(1), 0},
		{"negative infinity", math.Inf(-1), 0},
		{"infinity string", "Inf", 0},
		{"json number", json.Number("45.30"), 45.3},
		{"nil string pointer", (*string)(nil), 0},
		{"negative", -3.5, -3.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Safe(tc.input)
			if math.IsNaN(got) || math.IsInf(got, 0) {
				t.Fatalf("Safe(%v) returned non-finite %v", tc.input, got)
			}
			if got != tc.want {
				t.Fatalf("Safe(%v) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestRoundCount(t *testing.T) {
	if got := RoundCount(12.6); got != 13 {
		t.Fatalf("expected 12.6 to round to 13, got %d", got)
	}
	if got := RoundCount(12.4); got != 12 {
		t.Fatalf("expected 12.4 to round to 12, got %d", got)
	}
	if got := RoundCount(math.NaN()); got != 0 {
		t.Fatalf("expected NaN to round to 0, got %d", got)
	}
}

func TestSpendString(t *testing.T) {
	if got := SpendString(45.305); got != "45.31" {
		t.Fatalf("expected half-up rounding to 45.31, got %s", got)
	}
	if got := SpendString(45.3); got != "45.30" {
		t.Fatalf("expected fixed two places 45.30, got %s", got)
	}
	if got := SpendString(0); got != "0.00" {
		t.Fatalf("expected 0.00, got %s", got)
	}
}
