package application_test

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"windshare/internal/apperrors"
	production "windshare/internal/production/domain"
	"windshare/internal/settlement/allocation"
	"windshare/internal/settlement/application"
	settlement "windshare/internal/settlement/domain"
	settlementmem "windshare/internal/settlement/infrastructure/memory"
)

type staticDirectory struct{}

func (staticDirectory) ParkName(_ context.Context, _, _ string) (string, error) {
	return "Windpark Nordsee I", nil
}

func (staticDirectory) TurbineName(_ context.Context, _, turbineID string) (string, error) {
	return "WEA " + turbineID, nil
}

func (staticDirectory) FundNames(_ context.Context, _ string, fundIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(fundIDs))
	for _, id := range fundIDs {
		names[id] = "Fonds " + id
	}
	return names, nil
}

func eur(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nullEUR(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: eur(s), Valid: true}
}

// splitSettlement returns a CALCULATED settlement with a full regulatory
// split: 100000.00 EUR over 500000 kWh, 80000.00 EEG / 20000.00 market
// premium.
func splitSettlement(items []settlement.EnergySettlementItem) *settlement.EnergySettlement {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	es := &settlement.EnergySettlement{
		ID:                    "es-test",
		TenantID:              "tenant-a",
		ParkID:                "park-1",
		Year:                  2026,
		Month:                 3,
		Status:                settlement.StatusCalculated,
		NetOperatorRevenueEUR: eur("100000.00"),
		TotalProductionKWh:    eur("500000"),
		EEGRevenueEUR:         nullEUR("80000.00"),
		DVRevenueEUR:          nullEUR("20000.00"),
		EEGProductionKWh:      nullEUR("400000"),
		DVProductionKWh:       nullEUR("100000"),
		DistributionMode:      settlement.DistributionProportional,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	for i := range items {
		items[i].SettlementID = es.ID
		items[i].CreatedAt = now
	}
	return es
}

func newEmitter(t *testing.T, repo *settlementmem.SettlementRepository, store *settlementmem.EmitStore) *application.InvoiceEmitter {
	t.Helper()
	emitter, err := application.NewInvoiceEmitter(repo, allocation.NewAllocator(nil, nil),
		staticDirectory{}, store, 14, log.New(testWriter{t}, "", 0))
	if err != nil {
		t.Fatalf("NewInvoiceEmitter: %v", err)
	}
	return emitter
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestEmit_WorkedExample(t *testing.T) {
	repo := settlementmem.NewSettlementRepository()
	store := settlementmem.NewEmitStore(repo, "GS")
	items := []settlement.EnergySettlementItem{{
		ID:                 "item-1",
		FundID:             "fund-1",
		TurbineID:          "01",
		ProductionShareKWh: eur("500000"),
		RevenueShareEUR:    eur("100000.00"),
	}}
	es := splitSettlement(items)
	if err := repo.Create(context.Background(), es, items); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := newEmitter(t, repo, store).Emit(context.Background(), "tenant-a", es.ID)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	if result.Summary.InvoiceCount != 1 || len(result.Invoices) != 1 {
		t.Fatalf("invoice count = %d", len(result.Invoices))
	}
	inv := result.Invoices[0]
	if !inv.GrossTotalEUR.Equal(eur("115200.00")) {
		t.Fatalf("gross total = %s, want 115200.00", inv.GrossTotalEUR)
	}
	if !inv.NetTotalEUR.Equal(eur("100000.00")) || !inv.TaxTotalEUR.Equal(eur("15200.00")) {
		t.Fatalf("net/tax = %s/%s", inv.NetTotalEUR, inv.TaxTotalEUR)
	}
	if inv.Type != "CREDIT_NOTE" || inv.RecipientName != "Fonds fund-1" {
		t.Fatalf("invoice head: %+v", inv)
	}
	if inv.ServicePeriod != "2026-03" {
		t.Fatalf("service period = %s", inv.ServicePeriod)
	}
	if inv.Number == "" {
		t.Fatal("invoice number not issued")
	}
	if !inv.DueDate.Equal(inv.IssueDate.AddDate(0, 0, 14)) {
		t.Fatalf("due date = %v for issue date %v", inv.DueDate, inv.IssueDate)
	}

	lines := store.Lines[inv.ID]
	if len(lines) != 2 {
		t.Fatalf("line count = %d", len(lines))
	}
	eeg, dv := lines[0], lines[1]
	if eeg.RevenueCode != "EEG" || !eeg.NetEUR.Equal(eur("80000.00")) ||
		!eeg.TaxEUR.Equal(eur("15200.00")) || !eeg.GrossEUR.Equal(eur("95200.00")) {
		t.Fatalf("EEG line: %+v", eeg)
	}
	if dv.RevenueCode != "MARKTPRAEMIE" || !dv.NetEUR.Equal(eur("20000.00")) ||
		!dv.TaxEUR.IsZero() || !dv.GrossEUR.Equal(eur("20000.00")) {
		t.Fatalf("DV line: %+v", dv)
	}
	if !result.Summary.TotalGrossEUR.Equal(eur("115200.00")) || result.Summary.ParkName != "Windpark Nordsee I" {
		t.Fatalf("summary: %+v", result.Summary)
	}

	after, afterItems, err := repo.Get(context.Background(), "tenant-a", es.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if after.Status != settlement.StatusInvoiced {
		t.Fatalf("status = %s, want INVOICED", after.Status)
	}
	if afterItems[0].InvoiceID != inv.ID {
		t.Fatalf("item not linked: %+v", afterItems[0])
	}
}

func TestEmit_SecondCallConflicts(t *testing.T) {
	repo := settlementmem.NewSettlementRepository()
	store := settlementmem.NewEmitStore(repo, "GS")
	items := []settlement.EnergySettlementItem{{
		ID: "item-1", FundID: "fund-1",
		ProductionShareKWh: eur("500000"), RevenueShareEUR: eur("100000.00"),
	}}
	es := splitSettlement(items)
	if err := repo.Create(context.Background(), es, items); err != nil {
		t.Fatalf("seed: %v", err)
	}

	emitter := newEmitter(t, repo, store)
	if _, err := emitter.Emit(context.Background(), "tenant-a", es.ID); err != nil {
		t.Fatalf("first Emit: %v", err)
	}
	_, err := emitter.Emit(context.Background(), "tenant-a", es.ID)
	if !apperrors.IsKind(err, apperrors.KindInvalidState) && !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("second Emit: got %v, want conflict", err)
	}
	if len(store.Invoices) != 1 {
		t.Fatalf("invoice count after retry = %d, want 1", len(store.Invoices))
	}
}

func TestEmit_AtomicOnStoreFailure(t *testing.T) {
	repo := settlementmem.NewSettlementRepository()
	store := settlementmem.NewEmitStore(repo, "GS")
	store.FailAfter = 1
	store.Productions = []production.TurbineProduction{
		{ID: "tp-1", TenantID: "tenant-a", ParkID: "park-1", TurbineID: "01", Year: 2026, Month: 3, Status: production.StatusConfirmed},
	}
	items := []settlement.EnergySettlementItem{
		{ID: "item-1", FundID: "fund-1", ProductionShareKWh: eur("300000"), RevenueShareEUR: eur("60000.00")},
		{ID: "item-2", FundID: "fund-2", ProductionShareKWh: eur("200000"), RevenueShareEUR: eur("40000.00")},
	}
	es := splitSettlement(items)
	if err := repo.Create(context.Background(), es, items); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := newEmitter(t, repo, store).Emit(context.Background(), "tenant-a", es.ID)
	if err == nil {
		t.Fatal("expected store failure")
	}
	if len(store.Invoices) != 0 {
		t.Fatalf("partial invoices persisted: %d", len(store.Invoices))
	}
	after, afterItems, err := repo.Get(context.Background(), "tenant-a", es.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if after.Status != settlement.StatusCalculated {
		t.Fatalf("status = %s, want CALCULATED", after.Status)
	}
	for _, item := range afterItems {
		if item.InvoiceID != "" {
			t.Fatalf("item %s linked after rollback", item.ID)
		}
	}
	if got := store.Productions[0].Status; got != production.StatusConfirmed {
		t.Fatalf("production status after rollback = %s, want CONFIRMED", got)
	}
}

func TestEmit_SyncsProductionRecords(t *testing.T) {
	repo := settlementmem.NewSettlementRepository()
	store := settlementmem.NewEmitStore(repo, "GS")
	store.Productions = []production.TurbineProduction{
		{ID: "tp-1", TenantID: "tenant-a", ParkID: "park-1", TurbineID: "01", Year: 2026, Month: 3, Status: production.StatusConfirmed},
		{ID: "tp-2", TenantID: "tenant-a", ParkID: "park-1", TurbineID: "02", Year: 2026, Month: 3, Status: production.StatusDraft},
		{ID: "tp-3", TenantID: "tenant-a", ParkID: "park-1", TurbineID: "01", Year: 2026, Month: 4, Status: production.StatusConfirmed},
		{ID: "tp-4", TenantID: "tenant-b", ParkID: "park-1", TurbineID: "01", Year: 2026, Month: 3, Status: production.StatusConfirmed},
	}
	items := []settlement.EnergySettlementItem{{
		ID: "item-1", FundID: "fund-1",
		ProductionShareKWh: eur("500000"), RevenueShareEUR: eur("100000.00"),
	}}
	es := splitSettlement(items)
	if err := repo.Create(context.Background(), es, items); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := newEmitter(t, repo, store).Emit(context.Background(), "tenant-a", es.ID); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	want := map[string]string{
		"tp-1": production.StatusInvoiced,
		"tp-2": production.StatusInvoiced,
		"tp-3": production.StatusConfirmed, // other month untouched
		"tp-4": production.StatusConfirmed, // other tenant untouched
	}
	for _, record := range store.Productions {
		if record.Status != want[record.ID] {
			t.Errorf("production %s status = %s, want %s", record.ID, record.Status, want[record.ID])
		}
	}
}

func TestEmit_RequiresCalculated(t *testing.T) {
	repo := settlementmem.NewSettlementRepository()
	store := settlementmem.NewEmitStore(repo, "GS")
	items := []settlement.EnergySettlementItem{{
		ID: "item-1", FundID: "fund-1",
		ProductionShareKWh: eur("500000"), RevenueShareEUR: eur("100000.00"),
	}}
	es := splitSettlement(items)
	es.Status = settlement.StatusDraft
	if err := repo.Create(context.Background(), es, items); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := newEmitter(t, repo, store).Emit(context.Background(), "tenant-a", es.ID)
	if !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("got %v, want invalid state", err)
	}
}

func TestEmit_MissingFundRejected(t *testing.T) {
	repo := settlementmem.NewSettlementRepository()
	store := settlementmem.NewEmitStore(repo, "GS")
	items := []settlement.EnergySettlementItem{{
		ID:                 "item-1",
		ProductionShareKWh: eur("500000"),
		RevenueShareEUR:    eur("100000.00"),
	}}
	es := splitSettlement(items)
	if err := repo.Create(context.Background(), es, items); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := newEmitter(t, repo, store).Emit(context.Background(), "tenant-a", es.ID)
	if !apperrors.IsKind(err, apperrors.KindValidation) {
		t.Fatalf("got %v, want validation", err)
	}
}

func TestEmit_UnknownSettlement(t *testing.T) {
	repo := settlementmem.NewSettlementRepository()
	store := settlementmem.NewEmitStore(repo, "GS")

	_, err := newEmitter(t, repo, store).Emit(context.Background(), "tenant-a", "es-missing")
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("got %v, want not found", err)
	}

	// Cross-tenant access surfaces the same way.
	items := []settlement.EnergySettlementItem{{
		ID: "item-1", FundID: "fund-1",
		ProductionShareKWh: eur("500000"), RevenueShareEUR: eur("100000.00"),
	}}
	es := splitSettlement(items)
	if err := repo.Create(context.Background(), es, items); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err = newEmitter(t, repo, store).Emit(context.Background(), "tenant-b", es.ID)
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("cross-tenant: got %v, want not found", err)
	}
}
