package taxsplit

import (
	"github.com/shopspring/decimal"

	"windshare/internal/money"
)

// Class is a tax classification.
type Class string

const (
	ClassExempt   Class = "EXEMPT"
	ClassReduced  Class = "REDUCED"
	ClassStandard Class = "STANDARD"
)

var (
	rateExempt   = decimal.Zero
	rateReduced  = decimal.NewFromInt(7)
	rateStandard = decimal.NewFromInt(19)
)

// Result is a tax split of a net amount.
type Result struct {
	Rate        decimal.Decimal
	TaxAmount   decimal.Decimal
	GrossAmount decimal.Decimal
}

// Rate returns the percent rate for a classification. Unknown classes are
// treated as exempt.
func (c Class) Rate() decimal.Decimal {
	switch c {
	case ClassReduced:
		return rateReduced
	case ClassStandard:
		return rateStandard
	default:
		return rateExempt
	}
}

// Split derives tax and gross from a net amount at a percent rate. Rounding is
// half-up to two decimals. Negative and zero nets are valid.
func Split(net decimal.Decimal, rate decimal.Decimal) Result {
	tax := money.Round2(net.Mul(rate).Div(decimal.NewFromInt(100)))
	return Result{
		Rate:        rate,
		TaxAmount:   tax,
		GrossAmount: net.Add(tax),
	}
}

// SplitClass splits a net amount using a classification's rate.
func SplitClass(net decimal.Decimal, class Class) Result {
	return Split(net, class.Rate())
}
