package allocation

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"windshare/internal/money"
	settlement "windshare/internal/settlement/domain"
	"windshare/internal/settlement/taxsplit"
)

// Revenue code for settlements without a regulatory split.
const RevenueCodeGeneral = "REVENUE"

var defaultLabels = map[string]string{
	settlement.RevenueCodeEEG:          "EEG remuneration",
	settlement.RevenueCodeMarktpraemie: "Market premium",
	RevenueCodeGeneral:                 "Revenue share",
}

// TaxConfig is the configured tax treatment of a revenue code.
type TaxConfig struct {
	HasTax bool
	Rate   decimal.Decimal
}

// TaxLookup resolves per-tenant tax configuration for a revenue code. The
// second return value reports whether a configuration exists.
type TaxLookup interface {
	Lookup(ctx context.Context, tenantID, revenueCode string) (TaxConfig, bool, error)
}

// ItemContext carries display names for line descriptions.
type ItemContext struct {
	ParkName    string
	TurbineName string
}

// Allocator builds tax-split, reconciled invoice lines for settlement items.
type Allocator struct {
	taxes  TaxLookup
	labels map[string]string
}

// NewAllocator constructs an allocator. Labels override the built-in revenue
// code labels; nil keeps the defaults.
func NewAllocator(taxes TaxLookup, labels map[string]string) *Allocator {
	merged := make(map[string]string, len(defaultLabels))
	for code, label := range defaultLabels {
		merged[code] = label
	}
	for code, label := range labels {
		if label != "" {
			merged[code] = label
		}
	}
	return &Allocator{taxes: taxes, labels: merged}
}

// BuildLines produces the invoice lines for one settlement item. With a
// regulatory split and positive total revenue it emits an EEG line and a DV
// line pro-rated by the settlement-level revenue ratio, otherwise a single
// tax-exempt line over the full share. Lines are reconciled against the item's
// exact revenue share; the applied correction is returned.
func (a *Allocator) BuildLines(ctx context.Context, s *settlement.EnergySettlement, item settlement.EnergySettlementItem, names ItemContext) ([]Line, decimal.Decimal, error) {
	if a == nil {
		return nil, decimal.Zero, errors.New("allocator: nil allocator")
	}
	if s == nil {
		return nil, decimal.Zero, settlement.ErrNilSettlement
	}

	share := item.RevenueShareEUR
	prodShare := item.ProductionShareKWh
	total := s.NetOperatorRevenueEUR

	var lines []Line
	if s.HasRegulatorySplit() && total.IsPositive() {
		eegRevenue := nullOrZero(s.EEGRevenueEUR)
		dvRevenue := nullOrZero(s.DVRevenueEUR)

		eegLine, ok, err := a.componentLine(ctx, s, names, settlement.RevenueCodeEEG,
			share, prodShare, eegRevenue, total, s.EEGProductionKWh)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if ok {
			lines = append(lines, eegLine)
		}

		dvLine, ok, err := a.componentLine(ctx, s, names, settlement.RevenueCodeMarktpraemie,
			share, prodShare, dvRevenue, total, s.DVProductionKWh)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if ok {
			lines = append(lines, dvLine)
		}
	} else {
		split := taxsplit.SplitClass(money.Round2(share), taxsplit.ClassExempt)
		lines = append(lines, Line{
			RevenueCode:  RevenueCodeGeneral,
			Description:  a.describe(RevenueCodeGeneral, s, names),
			QuantityKWh:  prodShare.Round(3),
			UnitPriceEUR: unitPrice(money.Round2(share), prodShare),
			NetEUR:       money.Round2(share),
			TaxRate:      split.Rate,
			TaxEUR:       split.TaxAmount,
			GrossEUR:     split.GrossAmount,
		})
	}

	reconciled, correction := Reconcile(share, lines)
	return reconciled, correction, nil
}

// componentLine builds one EEG or DV line. The amount is the item share scaled
// by the component's fraction of total revenue; the quantity is derived from
// the component production figures when present, else pro-rated by revenue.
func (a *Allocator) componentLine(ctx context.Context, s *settlement.EnergySettlement, names ItemContext, code string,
	share, prodShare, componentRevenue, totalRevenue decimal.Decimal, componentProduction decimal.NullDecimal) (Line, bool, error) {

	amount := money.Round2(share.Mul(componentRevenue).Div(totalRevenue))
	if amount.LessThanOrEqual(money.MinLineAmount) {
		return Line{}, false, nil
	}

	var quantity decimal.Decimal
	if componentProduction.Valid && s.TotalProductionKWh.IsPositive() {
		quantity = prodShare.Mul(componentProduction.Decimal).Div(s.TotalProductionKWh)
	} else {
		quantity = prodShare.Mul(componentRevenue).Div(totalRevenue)
	}
	quantity = quantity.Round(3)

	rate, err := a.resolveRate(ctx, s.TenantID, code)
	if err != nil {
		return Line{}, false, err
	}
	split := taxsplit.Split(amount, rate)

	return Line{
		RevenueCode:  code,
		Description:  a.describe(code, s, names),
		QuantityKWh:  quantity,
		UnitPriceEUR: unitPrice(amount, quantity),
		NetEUR:       amount,
		TaxRate:      split.Rate,
		TaxEUR:       split.TaxAmount,
		GrossEUR:     split.GrossAmount,
	}, true, nil
}

// resolveRate applies the configured tax treatment, defaulting EEG to the
// standard rate and the market premium to exempt when unconfigured.
func (a *Allocator) resolveRate(ctx context.Context, tenantID, code string) (decimal.Decimal, error) {
	if a.taxes != nil {
		cfg, found, err := a.taxes.Lookup(ctx, tenantID, code)
		if err != nil {
			return decimal.Zero, err
		}
		if found {
			if !cfg.HasTax {
				return decimal.Zero, nil
			}
			return cfg.Rate, nil
		}
	}
	if code == settlement.RevenueCodeEEG {
		return taxsplit.ClassStandard.Rate(), nil
	}
	return taxsplit.ClassExempt.Rate(), nil
}

func (a *Allocator) describe(code string, s *settlement.EnergySettlement, names ItemContext) string {
	label := a.labels[code]
	if label == "" {
		label = code
	}
	description := label + " " + s.PeriodLabel()
	if names.ParkName != "" {
		description += " – " + names.ParkName
	}
	if names.TurbineName != "" {
		description += " – " + names.TurbineName
	}
	return description
}

func unitPrice(amount, quantity decimal.Decimal) decimal.Decimal {
	if !quantity.IsPositive() {
		return decimal.Zero
	}
	return money.Round6(amount.Div(quantity))
}

func nullOrZero(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}
