package settlement

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Settlement status values. DRAFT settlements are editable, CALCULATED ones may
// be invoiced, INVOICED is terminal for this workflow.
const (
	StatusDraft      = "DRAFT"
	StatusCalculated = "CALCULATED"
	StatusInvoiced   = "INVOICED"
)

// Distribution modes for turning metered production into revenue shares.
const (
	DistributionProportional = "PROPORTIONAL"
	DistributionSmoothed     = "SMOOTHED"
	DistributionTolerated    = "TOLERATED"
)

// Revenue codes for the regulatory split.
const (
	RevenueCodeEEG          = "EEG"
	RevenueCodeMarktpraemie = "MARKTPRAEMIE"
)

// EnergySettlement is one revenue-distribution unit for a park and period.
type EnergySettlement struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	ParkID   string `json:"park_id"`
	Year     int    `json:"year"`
	// Month is 1-12 for monthly settlements, 0 for annual ones.
	Month  int    `json:"month,omitempty"`
	Status string `json:"status"`

	NetOperatorRevenueEUR decimal.Decimal `json:"net_operator_revenue_eur"`
	TotalProductionKWh    decimal.Decimal `json:"total_production_kwh"`

	// Regulatory split: statutory feed-in-tariff vs direct marketing. Present
	// together or absent.
	EEGRevenueEUR    decimal.NullDecimal `json:"eeg_revenue_eur,omitempty"`
	DVRevenueEUR     decimal.NullDecimal `json:"dv_revenue_eur,omitempty"`
	EEGProductionKWh decimal.NullDecimal `json:"eeg_production_kwh,omitempty"`
	DVProductionKWh  decimal.NullDecimal `json:"dv_production_kwh,omitempty"`

	DistributionMode string  `json:"distribution_mode"`
	SmoothingFactor  float64 `json:"smoothing_factor"`
	TolerancePercent float64 `json:"tolerance_percent"`

	CalculationDetails json.RawMessage `json:"calculation_details,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EnergySettlementItem is one recipient's allocation within a settlement.
type EnergySettlementItem struct {
	ID           string `json:"id"`
	SettlementID string `json:"settlement_id"`
	FundID       string `json:"fund_id"`
	TurbineID    string `json:"turbine_id,omitempty"`

	ProductionShareKWh decimal.Decimal `json:"production_share_kwh"`
	RevenueShareEUR    decimal.Decimal `json:"revenue_share_eur"`

	// InvoiceID links the credit note once emitted. Set at most once, never
	// reassigned.
	InvoiceID string `json:"invoice_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of the settlement.
func (s *EnergySettlement) Clone() *EnergySettlement {
	if s == nil {
		return nil
	}
	clone := *s
	if s.CalculationDetails != nil {
		clone.CalculationDetails = append(json.RawMessage(nil), s.CalculationDetails...)
	}
	return &clone
}

// CloneItems returns a copy of the item slice.
func CloneItems(items []EnergySettlementItem) []EnergySettlementItem {
	if items == nil {
		return nil
	}
	return append([]EnergySettlementItem(nil), items...)
}

// IsMonthly reports whether the settlement covers a single calendar month.
func (s *EnergySettlement) IsMonthly() bool {
	return s != nil && s.Month >= 1 && s.Month <= 12
}

// PeriodLabel renders the service period, "2026-03" or "2026".
func (s *EnergySettlement) PeriodLabel() string {
	if s == nil {
		return ""
	}
	if s.IsMonthly() {
		return fmt.Sprintf("%04d-%02d", s.Year, s.Month)
	}
	return fmt.Sprintf("%04d", s.Year)
}

// HasRegulatorySplit reports whether an EEG/DV revenue split is configured.
func (s *EnergySettlement) HasRegulatorySplit() bool {
	if s == nil {
		return false
	}
	return s.EEGRevenueEUR.Valid || s.DVRevenueEUR.Valid
}

// InvalidateCalculation reverts the settlement to DRAFT and clears the cached
// calculation. Applied whenever a recalculation-triggering field changes.
func (s *EnergySettlement) InvalidateCalculation() {
	if s == nil {
		return
	}
	s.Status = StatusDraft
	s.CalculationDetails = nil
}

// ValidDistributionMode reports whether mode is a known distribution mode.
func ValidDistributionMode(mode string) bool {
	switch mode {
	case DistributionProportional, DistributionSmoothed, DistributionTolerated:
		return true
	default:
		return false
	}
}

// AllowedAfter returns the statuses a settlement may move to from status.
func AllowedAfter(status string) []string {
	switch status {
	case StatusDraft:
		return []string{StatusCalculated}
	case StatusCalculated:
		return []string{StatusInvoiced, StatusDraft}
	default:
		return nil
	}
}

// CanTransition reports whether from -> to is a legal settlement transition.
func CanTransition(from, to string) bool {
	for _, allowed := range AllowedAfter(from) {
		if allowed == to {
			return true
		}
	}
	return false
}
