package allocation

import (
	"testing"

	"github.com/shopspring/decimal"
)

func eur(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestReconcile_ExactSumUntouched(t *testing.T) {
	lines := []Line{
		{NetEUR: eur("80000.00"), TaxRate: decimal.NewFromInt(19), TaxEUR: eur("15200.00"), GrossEUR: eur("95200.00")},
		{NetEUR: eur("20000.00"), TaxRate: decimal.Zero, TaxEUR: decimal.Zero, GrossEUR: eur("20000.00")},
	}

	reconciled, correction := Reconcile(eur("100000.00"), lines)
	if !correction.IsZero() {
		t.Fatalf("expected no correction, got %s", correction)
	}
	if !reconciled[0].NetEUR.Equal(eur("80000.00")) {
		t.Fatalf("first line changed: %s", reconciled[0].NetEUR)
	}
}

func TestReconcile_ThreeCentDriftOnFirstLine(t *testing.T) {
	// Floating division left the split three cents short of the target share.
	lines := []Line{
		{NetEUR: eur("79999.98"), QuantityKWh: eur("400000"), TaxRate: decimal.NewFromInt(19), TaxEUR: eur("15200.00"), GrossEUR: eur("95199.98")},
		{NetEUR: eur("19999.99"), TaxRate: decimal.Zero, TaxEUR: decimal.Zero, GrossEUR: eur("19999.99")},
	}

	reconciled, correction := Reconcile(eur("100000.00"), lines)
	if !correction.Equal(eur("0.03")) {
		t.Fatalf("expected 0.03 correction, got %s", correction)
	}
	if !reconciled[0].NetEUR.Equal(eur("80000.01")) {
		t.Fatalf("first line net: %s", reconciled[0].NetEUR)
	}
	// Tax and gross must be re-derived from the corrected net, never patched.
	if !reconciled[0].TaxEUR.Equal(eur("15200.00")) {
		t.Fatalf("first line tax: %s", reconciled[0].TaxEUR)
	}
	if !reconciled[0].GrossEUR.Equal(eur("95200.01")) {
		t.Fatalf("first line gross: %s", reconciled[0].GrossEUR)
	}
	// Second line untouched.
	if !reconciled[1].NetEUR.Equal(eur("19999.99")) {
		t.Fatalf("second line changed: %s", reconciled[1].NetEUR)
	}
	if !SumNet(reconciled).Equal(eur("100000.00")) {
		t.Fatalf("net sum mismatch: %s", SumNet(reconciled))
	}
}

func TestReconcile_SubToleranceResidualIgnored(t *testing.T) {
	lines := []Line{
		{NetEUR: eur("100.0005"), TaxRate: decimal.Zero, GrossEUR: eur("100.0005")},
	}
	_, correction := Reconcile(eur("100.00"), lines)
	if !correction.IsZero() {
		t.Fatalf("residual within tolerance must not be corrected, got %s", correction)
	}
}

func TestReconcile_NegativeDrift(t *testing.T) {
	lines := []Line{
		{NetEUR: eur("50.02"), TaxRate: decimal.NewFromInt(19), TaxEUR: eur("9.50"), GrossEUR: eur("59.52")},
		{NetEUR: eur("50.00"), TaxRate: decimal.Zero, GrossEUR: eur("50.00")},
	}
	reconciled, correction := Reconcile(eur("100.00"), lines)
	if !correction.Equal(eur("-0.02")) {
		t.Fatalf("expected -0.02 correction, got %s", correction)
	}
	if !reconciled[0].NetEUR.Equal(eur("50.00")) {
		t.Fatalf("first line net: %s", reconciled[0].NetEUR)
	}
	if !reconciled[0].TaxEUR.Equal(eur("9.50")) {
		t.Fatalf("first line tax: %s", reconciled[0].TaxEUR)
	}
}

func TestReconcile_EmptyLines(t *testing.T) {
	lines, correction := Reconcile(eur("10.00"), nil)
	if len(lines) != 0 || !correction.IsZero() {
		t.Fatalf("empty input must stay empty")
	}
}

func TestTotals(t *testing.T) {
	lines := []Line{
		{NetEUR: eur("80000.00"), TaxEUR: eur("15200.00"), GrossEUR: eur("95200.00")},
		{NetEUR: eur("20000.00"), TaxEUR: decimal.Zero, GrossEUR: eur("20000.00")},
	}
	net, tax, gross := Totals(lines)
	if !net.Equal(eur("100000.00")) || !tax.Equal(eur("15200.00")) || !gross.Equal(eur("115200.00")) {
		t.Fatalf("totals mismatch: %s %s %s", net, tax, gross)
	}
}
