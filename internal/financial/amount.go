package financial

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	maxAmountLen      = 128
	maxAmountExponent = 20
)

// ParseAmount coerces free-form money text into a decimal. Currency symbols, codes and
// spacing are ignored; comma or dot decimal separators are both recognised. It reports
// false when nothing numeric is left.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxAmountLen {
		return decimal.Zero, false
	}

	if d, err := decimal.NewFromString(s); err == nil {
		return bounded(d)
	}

	negative := false

	var sb strings.Builder

	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			sb.WriteRune(r)
		case r == '-', r == '(', r == '−':
			// a sign only counts before the first digit
			if sb.Len() == 0 {
				negative = true
			}
		}
	}

	clean := normalizeSeparators(strings.TrimRight(sb.String(), ".,"))
	if clean == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}

	if negative {
		d = d.Neg()
	}

	return bounded(d)
}

// bounded rejects values whose scale no money column can hold. Rounding a decimal with
// an exponent in the millions allocates without bound.
func bounded(d decimal.Decimal) (decimal.Decimal, bool) {
	if e := d.Exponent(); e > maxAmountExponent || e < -maxAmountExponent {
		return decimal.Zero, false
	}

	return d, true
}

// normalizeSeparators rewrites digits with mixed thousands and decimal separators into
// a plain dotted decimal.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		// 1,234.56
		return strings.ReplaceAll(s, ",", "")

	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3 {
			return strings.Replace(s, ",", ".", 1)
		}

		return strings.ReplaceAll(s, ",", "")

	case lastDot >= 0 && strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}

	return s
}

// money coerces a money field, defaulting to zero, rounded to cents.
func money(a Amount) decimal.Decimal {
	d, _ := ParseAmount(string(a))
	return d.Round(2)
}

// lineQuantity coerces a line's quantity and unit price together. A missing or unreadable
// quantity is 1. Explicit quantities end up whole and non-negative without changing the
// line amount: a negative quantity moves its sign onto the price, and a fractional one
// is folded into the price with a quantity of 1.
func lineQuantity(q, price Amount) (decimal.Decimal, decimal.Decimal) {
	p := money(price)

	d, ok := ParseAmount(string(q))
	if !ok {
		return decimal.NewFromInt(1), p
	}

	if d.IsNegative() {
		d, p = d.Neg(), p.Neg()
	}

	if d.IsInteger() {
		return d, p
	}

	return decimal.NewFromInt(1), d.Mul(p).Round(2)
}

// taxRate coerces a rate into a percentage. A fractional rate such as 0.2 is read as 20%.
func taxRate(a Amount) decimal.Decimal {
	d, ok := ParseAmount(strings.TrimSuffix(strings.TrimSpace(string(a)), "%"))
	if !ok || d.IsNegative() {
		return decimal.Zero
	}

	if d.GreaterThan(decimal.Zero) && d.LessThan(decimal.NewFromInt(1)) {
		d = d.Mul(decimal.NewFromInt(100))
	}

	return d.Round(2)
}
