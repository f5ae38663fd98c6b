package allocation

import (
	"errors"

	"github.com/shopspring/decimal"

	"windshare/internal/money"
	settlement "windshare/internal/settlement/domain"
)

// DistributeRevenue turns per-recipient metered production into revenue
// amounts that sum exactly to total. PROPORTIONAL weights by production,
// SMOOTHED blends the proportional weight toward an equal split by the
// smoothing factor, TOLERATED collapses weights within the tolerance band
// around the equal split to the equal share. Rounding error from the per-item
// 2dp rounding is settled on the last item.
func DistributeRevenue(total decimal.Decimal, productions []decimal.Decimal, mode string, smoothingFactor, tolerancePercent float64) ([]decimal.Decimal, error) {
	if len(productions) == 0 {
		return nil, settlement.ErrNoItems
	}
	if !settlement.ValidDistributionMode(mode) {
		return nil, errors.New("allocation: unknown distribution mode " + mode)
	}

	totalProduction := decimal.Zero
	for _, production := range productions {
		if production.IsNegative() {
			return nil, errors.New("allocation: negative production share")
		}
		totalProduction = totalProduction.Add(production)
	}
	if !totalProduction.IsPositive() {
		return nil, errors.New("allocation: zero total production")
	}

	count := decimal.NewFromInt(int64(len(productions)))
	equal := decimal.NewFromInt(1).Div(count)

	weights := make([]decimal.Decimal, len(productions))
	for i, production := range productions {
		proportional := production.Div(totalProduction)
		switch mode {
		case settlement.DistributionProportional:
			weights[i] = proportional
		case settlement.DistributionSmoothed:
			factor := decimal.NewFromFloat(smoothingFactor)
			weights[i] = proportional.Mul(decimal.NewFromInt(1).Sub(factor)).Add(equal.Mul(factor))
		case settlement.DistributionTolerated:
			deviation := proportional.Sub(equal).Abs()
			band := equal.Mul(decimal.NewFromFloat(tolerancePercent)).Div(decimal.NewFromInt(100))
			if deviation.LessThanOrEqual(band) {
				weights[i] = equal
			} else {
				weights[i] = proportional
			}
		}
	}

	// Tolerated weights may no longer sum to one; renormalize.
	weightSum := decimal.Zero
	for _, weight := range weights {
		weightSum = weightSum.Add(weight)
	}
	if !weightSum.IsPositive() {
		return nil, errors.New("allocation: degenerate weights")
	}

	amounts := make([]decimal.Decimal, len(weights))
	allocated := decimal.Zero
	for i, weight := range weights {
		amounts[i] = money.Round2(total.Mul(weight).Div(weightSum))
		allocated = allocated.Add(amounts[i])
	}

	last := len(amounts) - 1
	amounts[last] = amounts[last].Add(total.Sub(allocated))
	return amounts, nil
}
