package allocation

import (
	"github.com/shopspring/decimal"

	"windshare/internal/money"
	"windshare/internal/settlement/taxsplit"
)

// Line is one provisional invoice line for a recipient.
type Line struct {
	RevenueCode  string
	Description  string
	QuantityKWh  decimal.Decimal
	UnitPriceEUR decimal.Decimal
	NetEUR       decimal.Decimal
	TaxRate      decimal.Decimal
	TaxEUR       decimal.Decimal
	GrossEUR     decimal.Decimal
}

// Reconcile adjusts lines so their net amounts sum exactly to target. When the
// residual exceeds the tolerance, the whole difference goes onto the first
// line, whose tax and gross are re-derived from the corrected net — a single
// deterministic correction rather than a distributed one. The applied
// correction is returned, zero when none was needed.
func Reconcile(target decimal.Decimal, lines []Line) ([]Line, decimal.Decimal) {
	if len(lines) == 0 {
		return lines, decimal.Zero
	}

	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.NetEUR)
	}
	diff := target.Sub(sum)
	if diff.Abs().LessThanOrEqual(money.ReconcileTolerance) {
		return lines, decimal.Zero
	}

	corrected := make([]Line, len(lines))
	copy(corrected, lines)

	first := &corrected[0]
	first.NetEUR = first.NetEUR.Add(diff)
	split := taxsplit.Split(first.NetEUR, first.TaxRate)
	first.TaxEUR = split.TaxAmount
	first.GrossEUR = split.GrossAmount
	if first.QuantityKWh.IsPositive() {
		first.UnitPriceEUR = money.Round6(first.NetEUR.Div(first.QuantityKWh))
	}
	return corrected, diff
}

// SumNet returns the sum of line net amounts.
func SumNet(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.NetEUR)
	}
	return sum
}

// Totals returns net, tax and gross sums over lines.
func Totals(lines []Line) (net, tax, gross decimal.Decimal) {
	net, tax, gross = decimal.Zero, decimal.Zero, decimal.Zero
	for _, line := range lines {
		net = net.Add(line.NetEUR)
		tax = tax.Add(line.TaxEUR)
		gross = gross.Add(line.GrossEUR)
	}
	return net, tax, gross
}
