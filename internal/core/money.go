// Package core provides amount parsing and decimal helpers.
//
// Amounts are shopspring decimals end to end. Parsing never fails: a value
// that cannot be read is a zero movement, not a rejected row.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a raw cell into a decimal, returning zero when the
// text is not a number.
//
// It accepts plain decimals ("-1234.5"), exponent form ("1e3"), decimal
// commas ("12,5") and dotted thousands with a decimal comma ("1.234,56").
// Currency symbols and spaces are stripped first.
//
// Examples:
//
//	ParseAmount("1500")      -> 1500
//	ParseAmount("-1.234,56") -> -1234.56
//	ParseAmount("$ 2,5")     -> 2.5
//	ParseAmount("n/a")       -> 0
func ParseAmount(s string) decimal.Decimal {
	d, ok := parseAmount(s)
	if !ok {
		return decimal.Zero
	}
	return d
}

func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.NewReplacer("$", "", " ", "", "\u00a0", "").Replace(s)
	if d, err := decimal.NewFromString(s); err == nil {
		return d, true
	}
	comma := strings.LastIndex(s, ",")
	if comma < 0 {
		if strings.Count(s, ".") < 2 {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(s, ".", ""))
		return d, err == nil
	}
	// "1.234,56": dots are thousands separators.
	normalized := strings.ReplaceAll(s[:comma], ".", "") + "." + s[comma+1:]
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Sum adds a slice of decimals.
func Sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Ratio divides a by b. It returns nil when b is zero.
func Ratio(a, b decimal.Decimal) *decimal.Decimal {
	if b.IsZero() {
		return nil
	}
	r := a.Div(b)
	return &r
}
