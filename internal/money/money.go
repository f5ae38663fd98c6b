package money

import "github.com/shopspring/decimal"

var (
	// ReconcileTolerance is the largest residual difference that needs no
	// correction when reconciling line amounts against a target.
	ReconcileTolerance = decimal.NewFromFloat(0.001)

	// MinLineAmount is the smallest amount worth emitting as a line item.
	MinLineAmount = decimal.NewFromFloat(0.01)
)

// Round2 rounds to two decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Round6 rounds to six decimal places, used for unit prices.
func Round6(d decimal.Decimal) decimal.Decimal {
	return d.Round(6)
}

// WithinTolerance reports whether a and b differ by at most ReconcileTolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(ReconcileTolerance)
}
