package settlement

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestInvalidateCalculation(t *testing.T) {
	s := &EnergySettlement{
		Status:             StatusCalculated,
		CalculationDetails: json.RawMessage(`{"mode":"PROPORTIONAL"}`),
	}
	s.InvalidateCalculation()
	if s.Status != StatusDraft {
		t.Fatalf("status: %s", s.Status)
	}
	if s.CalculationDetails != nil {
		t.Fatalf("calculation details not cleared")
	}
}

func TestPeriodLabel(t *testing.T) {
	monthly := &EnergySettlement{Year: 2026, Month: 3}
	if monthly.PeriodLabel() != "2026-03" {
		t.Fatalf("monthly label: %s", monthly.PeriodLabel())
	}
	annual := &EnergySettlement{Year: 2026}
	if annual.PeriodLabel() != "2026" {
		t.Fatalf("annual label: %s", annual.PeriodLabel())
	}
	if !monthly.IsMonthly() || annual.IsMonthly() {
		t.Fatalf("IsMonthly mismatch")
	}
}

func TestHasRegulatorySplit(t *testing.T) {
	s := &EnergySettlement{}
	if s.HasRegulatorySplit() {
		t.Fatalf("empty settlement has no split")
	}
	s.EEGRevenueEUR = decimal.NewNullDecimal(decimal.NewFromInt(100))
	if !s.HasRegulatorySplit() {
		t.Fatalf("eeg revenue implies split")
	}
}

func TestSettlementTransitions(t *testing.T) {
	cases := []struct {
		from, to string
		allowed  bool
	}{
		{StatusDraft, StatusCalculated, true},
		{StatusCalculated, StatusInvoiced, true},
		{StatusCalculated, StatusDraft, true},
		{StatusDraft, StatusInvoiced, false},
		{StatusInvoiced, StatusDraft, false},
		{StatusInvoiced, StatusCalculated, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v", tc.from, tc.to, got)
		}
	}
}

func TestValidDistributionMode(t *testing.T) {
	for _, mode := range []string{DistributionProportional, DistributionSmoothed, DistributionTolerated} {
		if !ValidDistributionMode(mode) {
			t.Errorf("%s should be valid", mode)
		}
	}
	if ValidDistributionMode("LINEAR") {
		t.Errorf("unknown mode accepted")
	}
}
