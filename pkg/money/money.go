// Package money performs currency arithmetic on the float64 amounts stored in
// documents. Every operation goes through shopspring/decimal and rounds to two
// places so repeated additions and reversals do not drift.
package money

import "github.com/shopspring/decimal"

// Places is the number of minor-unit digits kept for every amount.
const Places = 2

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func out(d decimal.Decimal) float64 {
	f, _ := d.Round(Places).Float64()
	return f
}

// Round normalizes an amount to two decimal places.
func Round(v float64) float64 {
	return out(dec(v))
}

// Add returns a + b.
func Add(a, b float64) float64 {
	return out(dec(a).Add(dec(b)))
}

// Sub returns a - b.
func Sub(a, b float64) float64 {
	return out(dec(a).Sub(dec(b)))
}

// Line returns quantity * unitPrice.
func Line(quantity int, unitPrice float64) float64 {
	return out(dec(unitPrice).Mul(decimal.NewFromInt(int64(quantity))))
}

// Sum adds all amounts.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(dec(v))
	}
	return out(total)
}

// Cmp compares two amounts after rounding: -1 if a < b, 0 if equal, +1 if a > b.
func Cmp(a, b float64) int {
	return dec(a).Round(Places).Cmp(dec(b).Round(Places))
}

// IsZero reports whether the amount rounds to zero.
func IsZero(v float64) bool {
	return dec(v).Round(Places).IsZero()
}

// Positive reports whether the amount rounds to something greater than zero.
func Positive(v float64) bool {
	return dec(v).Round(Places).IsPositive()
}
