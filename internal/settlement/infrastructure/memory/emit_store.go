package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	invoicing "windshare/internal/invoicing/domain"
	production "windshare/internal/production/domain"
	"windshare/internal/settlement/application"
	settlement "windshare/internal/settlement/domain"
)

// EmitStore is an in-memory application.EmitStore. It mirrors the atomic
// behavior of the postgres store: a plan either lands completely or not at
// all. FailAfter > 0 injects a failure after that many invoices for tests.
type EmitStore struct {
	mu        sync.Mutex
	repo      *SettlementRepository
	prefix    string
	sequences map[string]int

	Invoices    map[string]invoicing.Invoice
	Lines       map[string][]invoicing.Line
	Productions []production.TurbineProduction
	FailAfter   int
}

// NewEmitStore constructs a store writing back into repo.
func NewEmitStore(repo *SettlementRepository, prefix string) *EmitStore {
	if prefix == "" {
		prefix = "GS"
	}
	return &EmitStore{
		repo:      repo,
		prefix:    prefix,
		sequences: make(map[string]int),
		Invoices:  make(map[string]invoicing.Invoice),
		Lines:     make(map[string][]invoicing.Line),
	}
}

// Emit persists the plan or fails without side effects.
func (s *EmitStore) Emit(ctx context.Context, plan application.EmitPlan) ([]invoicing.Invoice, error) {
	_ = ctx
	if plan.Settlement == nil {
		return nil, settlement.ErrNilSettlement
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()

	es := s.repo.data[plan.Settlement.ID]
	if es == nil {
		return nil, errors.New("emit store: settlement not found")
	}
	items := s.repo.items[es.ID]
	byID := make(map[string]int, len(items))
	for i, item := range items {
		byID[item.ID] = i
	}

	// Stage everything first so a failure leaves no partial state.
	staged := make([]invoicing.Invoice, 0, len(plan.Invoices))
	links := make(map[string]string, len(plan.Invoices))
	seq := s.sequences[plan.Settlement.TenantID]
	for n, planned := range plan.Invoices {
		if s.FailAfter > 0 && n >= s.FailAfter {
			return nil, errors.New("emit store: injected failure")
		}
		idx, ok := byID[planned.ItemID]
		if !ok {
			return nil, errors.New("emit store: unknown settlement item " + planned.ItemID)
		}
		if items[idx].InvoiceID != "" {
			return nil, errors.New("emit store: item already invoiced")
		}
		seq++
		inv := planned.Invoice
		inv.Number = fmt.Sprintf("%s-%d-%06d", s.prefix, inv.IssueDate.Year(), seq)
		staged = append(staged, inv)
		links[planned.ItemID] = inv.ID
	}

	s.sequences[plan.Settlement.TenantID] = seq
	for n, planned := range plan.Invoices {
		s.Invoices[staged[n].ID] = staged[n]
		s.Lines[staged[n].ID] = append([]invoicing.Line(nil), planned.Lines...)
	}
	for itemID, invoiceID := range links {
		items[byID[itemID]].InvoiceID = invoiceID
	}
	es.Status = settlement.StatusInvoiced
	for i := range s.Productions {
		record := &s.Productions[i]
		if record.TenantID != es.TenantID || record.ParkID != es.ParkID || record.Year != es.Year {
			continue
		}
		if es.Month > 0 && record.Month != es.Month {
			continue
		}
		if record.Status == production.StatusDraft || record.Status == production.StatusConfirmed {
			record.Status = production.StatusInvoiced
		}
	}
	return staged, nil
}
