// Package money converts between major currency units and integer cents.
//
// Every amount that takes part in discount or total arithmetic is carried
// as int64 cents. Major units (float64) only appear at the edges: decoded
// request bodies, configuration, and values rendered back to clients.
package money

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Symbol is prefixed to formatted amounts. The store trades in one currency.
const Symbol = "$"

var (
	hundred = decimal.NewFromInt(100)
	// maxMinor bounds amounts that fit in int64 cents.
	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// ToMinor converts a major-unit amount to cents as round(major*100): the
// float product is rounded half away from zero. Non-finite input, or input
// too large for int64 cents, is treated as 0.
func ToMinor(major float64) int64 {
	cents, ok := toMinor(major)
	if !ok {
		return 0
	}
	return cents
}

// OptionalMinor converts an optional major-unit amount. It reports false
// when the value is unset, not finite or out of range, so callers treat it
// as absent.
func OptionalMinor(major *float64) (int64, bool) {
	if major == nil {
		return 0, false
	}
	return toMinor(*major)
}

func toMinor(major float64) (int64, bool) {
	scaled := major * 100
	if !finite(scaled) {
		return 0, false
	}
	return intPart(decimal.NewFromFloat(scaled).Round(0))
}

func intPart(d decimal.Decimal) (int64, bool) {
	if d.Abs().GreaterThan(maxMinor) {
		return 0, false
	}
	return d.IntPart(), true
}

// ToMajor converts cents back to major units for display or transport.
func ToMajor(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}

// PercentOf returns round(cents * percent / 100) using exact decimal
// arithmetic. Non-finite percentages and out-of-range results yield 0.
func PercentOf(cents int64, percent float64) int64 {
	if !finite(percent) {
		return 0
	}
	result, ok := intPart(decimal.NewFromInt(cents).
		Mul(decimal.NewFromFloat(percent)).
		Div(hundred).
		Round(0))
	if !ok {
		return 0
	}
	return result
}

// Parse reads a decimal string such as "19.99" into cents.
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	cents, ok := intPart(d.Shift(2).Round(0))
	if !ok {
		return 0, fmt.Errorf("parse amount %q: out of range", s)
	}
	return cents, nil
}

// Format renders cents as a display string, e.g. 9998 -> "$99.98".
func Format(cents int64) string {
	if cents < 0 {
		return "-" + Symbol + decimal.New(-cents, -2).StringFixed(2)
	}
	return Symbol + decimal.New(cents, -2).StringFixed(2)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
