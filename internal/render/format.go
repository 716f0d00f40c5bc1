// Package render prints dashboard reports as markdown for the terminal.
package render

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency amounts are shown in.
const DefaultCurrency = money.CLP

// Undefined stands in for ratios that have no value.
const Undefined = "—"

// Formatter renders amounts in one currency. Negative values show in
// parentheses and zero shows as an empty cell.
type Formatter struct {
	currency *money.Currency
}

// NewFormatter returns a formatter for the ISO currency code. Unknown
// codes fall back to DefaultCurrency.
func NewFormatter(code string) Formatter {
	cur := money.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		cur = money.GetCurrency(DefaultCurrency)
	}
	return Formatter{currency: cur}
}

// Amount formats v with the currency symbol.
func (f Formatter) Amount(v decimal.Decimal) string {
	if v.IsZero() {
		return ""
	}
	minor := v.Abs().Shift(int32(f.currency.Fraction)).Round(0).IntPart()
	s := f.currency.Formatter().Format(minor)
	if v.IsNegative() {
		return "(" + s + ")"
	}
	return s
}

// Number formats v with the currency grouping but no symbol.
func (f Formatter) Number(v decimal.Decimal) string {
	s := f.Amount(v)
	if g := f.currency.Grapheme; g != "" {
		s = strings.Replace(s, g, "", 1)
	}
	return strings.TrimSpace(s)
}

// Percent formats a fraction (0.25) as "25,0%" using the currency's
// decimal mark.
func (f Formatter) Percent(fraction decimal.Decimal) string {
	return f.decimalMark(fraction.Mul(decimal.NewFromInt(100)).StringFixed(1)) + "%"
}

// Ratio formats r with two decimals, or Undefined when r is nil.
func (f Formatter) Ratio(r *decimal.Decimal) string {
	if r == nil {
		return Undefined
	}
	return f.decimalMark(r.StringFixed(2)) + "x"
}

func (f Formatter) decimalMark(s string) string {
	if f.currency.Decimal == "" || f.currency.Decimal == "." {
		return s
	}
	return strings.Replace(s, ".", f.currency.Decimal, 1)
}
