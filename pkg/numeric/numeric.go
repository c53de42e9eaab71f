// Package numeric coerces loosely-typed source values into finite numbers so
// malformed provider data never reaches a persisted snapshot.
package numeric

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Safe converts an arbitrary external value into a finite float64. Nil, empty
// strings, unparseable strings, NaN and infinities all coerce to zero. The
// function is total: it never panics and never returns a non-finite value.
func Safe(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case json.Number:
		return parse(v.String())
	case decimal.Decimal:
		return finite(v.InexactFloat64())
	case string:
		return parse(v)
	case *string:
		if v == nil {
			return 0
		}
		return parse(*v)
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func parse(raw string) float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0
	}
	return finite(parsed)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// RoundCount normalizes a possibly-fractional metric total to a whole-unit
// count, rounding half away from zero.
func RoundCount(v float64) int64 {
	return int64(math.Round(finite(v)))
}

// Spend fixes a float total to a two-decimal spend amount.
func Spend(v float64) decimal.Decimal {
	return decimal.NewFromFloat(finite(v)).Round(2)
}

// SpendString serializes a spend amount as a fixed-point decimal string with
// exactly two places, rounding half away from zero (45.305 -> "45.31").
func SpendString(v float64) string {
	return decimal.NewFromFloat(finite(v)).StringFixed(2)
}
