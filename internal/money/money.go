// Package money holds the ledger arithmetic primitives shared by every
// component that produces a persisted monetary value.
//
// All persisted amounts are the output of Round2. Parsing is deliberately
// lenient: amounts typed into free-text fields that cannot be read as a
// number become zero instead of failing the request.
package money

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for currency amounts.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to two fractional digits.
// A result that rounds to zero is always the canonical zero, never -0.00.
func Round2(x decimal.Decimal) decimal.Decimal {
	r := x.Round(Scale)
	if r.IsZero() {
		return decimal.Zero
	}
	return r
}

// Sum adds the given amounts and rounds the result.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return Round2(total)
}

// Percent returns round2(base * rate/100).
func Percent(base, ratePercent decimal.Decimal) decimal.Decimal {
	return Round2(base.Mul(ratePercent).Div(hundred))
}

// String formats an amount with exactly two fractional digits.
func String(x decimal.Decimal) string {
	return Round2(x).StringFixed(Scale)
}

// ParseAmount reads a user-entered amount. Whitespace (including non-breaking
// spaces used as thousands separators) is ignored and either "." or "," is
// accepted as the decimal separator: "1 234,56" and "1,234.56" both parse to
// 1234.56. Unparsable or empty input yields zero.
func ParseAmount(raw string) decimal.Decimal {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			continue
		case r >= '0' && r <= '9', r == ',', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero
	}

	commas := strings.Count(cleaned, ",")
	switch {
	case commas == 1 && !strings.Contains(cleaned, "."):
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case commas > 0:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseRate is ParseAmount for percentages; the same tolerance applies.
func ParseRate(raw string) decimal.Decimal {
	return ParseAmount(raw)
}
