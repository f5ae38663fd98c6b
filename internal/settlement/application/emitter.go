package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"windshare/internal/apperrors"
	invoicing "windshare/internal/invoicing/domain"
	"windshare/internal/observability/metrics"
	"windshare/internal/settlement/allocation"
	settlement "windshare/internal/settlement/domain"
)

// Directory resolves display names for invoice documents.
type Directory interface {
	ParkName(ctx context.Context, tenantID, parkID string) (string, error)
	TurbineName(ctx context.Context, tenantID, turbineID string) (string, error)
	FundNames(ctx context.Context, tenantID string, fundIDs []string) (map[string]string, error)
}

// PlannedInvoice is one credit note ready for persistence. The document
// number is still empty; the store issues it inside the transaction.
type PlannedInvoice struct {
	ItemID  string
	Invoice invoicing.Invoice
	Lines   []invoicing.Line
}

// EmitPlan is the complete outcome of one emit run: every credit note for
// every settlement item, persisted atomically or not at all.
type EmitPlan struct {
	Settlement *settlement.EnergySettlement
	Invoices   []PlannedInvoice
}

// EmitStore persists an emit plan in a single transaction: issues document
// numbers, writes invoices and lines, links the settlement items and flips
// the settlement to INVOICED. Returns the invoices with numbers assigned.
type EmitStore interface {
	Emit(ctx context.Context, plan EmitPlan) ([]invoicing.Invoice, error)
}

// EmitSummary aggregates one emit run for the caller.
type EmitSummary struct {
	InvoiceCount  int             `json:"invoice_count"`
	TotalGrossEUR decimal.Decimal `json:"total_gross_eur"`
	ServicePeriod string          `json:"service_period"`
	ParkName      string          `json:"park_name"`
}

// EmitResult is the response of a successful emit run.
type EmitResult struct {
	Invoices []invoicing.Invoice `json:"invoices"`
	Summary  EmitSummary         `json:"summary"`
}

// InvoiceEmitter turns a CALCULATED settlement into credit notes, one per
// settlement item.
type InvoiceEmitter struct {
	repo      settlement.Repository
	allocator *allocation.Allocator
	names     Directory
	store     EmitStore
	dueDays   int
	logger    *log.Logger
	now       func() time.Time
}

// NewInvoiceEmitter constructs an emitter.
func NewInvoiceEmitter(repo settlement.Repository, allocator *allocation.Allocator, names Directory, store EmitStore, dueDays int, logger *log.Logger) (*InvoiceEmitter, error) {
	if repo == nil || allocator == nil || names == nil || store == nil {
		return nil, errors.New("invoice emitter: nil dependency")
	}
	if dueDays <= 0 {
		dueDays = invoicing.DueDays
	}
	if logger == nil {
		logger = log.Default()
	}
	return &InvoiceEmitter{
		repo:      repo,
		allocator: allocator,
		names:     names,
		store:     store,
		dueDays:   dueDays,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Emit creates one credit note per settlement item and moves the settlement
// to INVOICED. The run is atomic: a failure on any item leaves no invoices,
// no item links and the settlement status untouched.
func (e *InvoiceEmitter) Emit(ctx context.Context, tenantID, settlementID string) (*EmitResult, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	created := 0
	defer func() {
		metrics.ObserveInvoiceEmit(result, created, time.Since(start))
	}()

	if tenantID == "" {
		result = metrics.ResultError
		return nil, apperrors.Forbidden("missing tenant")
	}
	es, items, err := e.repo.Get(ctx, tenantID, settlementID)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if es == nil {
		result = metrics.ResultError
		return nil, apperrors.NotFound("settlement")
	}
	if es.Status != settlement.StatusCalculated {
		result = metrics.ResultError
		return nil, apperrors.InvalidState(settlement.StatusInvoiced, settlement.AllowedAfter(es.Status))
	}
	if len(items) == 0 {
		result = metrics.ResultError
		return nil, settlement.ErrNoItems
	}
	fundIDs := make([]string, 0, len(items))
	for _, item := range items {
		if item.InvoiceID != "" {
			result = metrics.ResultError
			return nil, apperrors.Conflict("settlement already has emitted invoices")
		}
		if item.FundID == "" {
			result = metrics.ResultError
			return nil, apperrors.Validation("items.fund_id", "item without fund cannot be invoiced")
		}
		fundIDs = append(fundIDs, item.FundID)
	}

	parkName, err := e.names.ParkName(ctx, tenantID, es.ParkID)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	fundNames, err := e.names.FundNames(ctx, tenantID, fundIDs)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}

	issueDate := e.now().UTC().Truncate(24 * time.Hour)
	dueDate := issueDate.AddDate(0, 0, e.dueDays)

	plan := EmitPlan{Settlement: es}
	for _, item := range items {
		recipient, ok := fundNames[item.FundID]
		if !ok {
			result = metrics.ResultError
			return nil, apperrors.Validation("items.fund_id", "unknown fund "+item.FundID)
		}

		var turbineName string
		if item.TurbineID != "" {
			turbineName, err = e.names.TurbineName(ctx, tenantID, item.TurbineID)
			if err != nil {
				result = metrics.ResultError
				return nil, err
			}
		}

		lines, correction, err := e.allocator.BuildLines(ctx, es, item,
			allocation.ItemContext{ParkName: parkName, TurbineName: turbineName})
		if err != nil {
			result = metrics.ResultError
			return nil, err
		}
		if !correction.IsZero() {
			metrics.ObserveReconcileCorrection()
			e.logger.Printf("emit: settlement %s item %s rounding correction %s", es.ID, item.ID, correction.StringFixed(2))
		}
		if len(lines) == 0 {
			e.logger.Printf("emit: settlement %s item %s share below minimum, no credit note", es.ID, item.ID)
			continue
		}

		invoiceID := newID("inv")
		net, tax, gross := allocation.Totals(lines)
		invoiceLines := make([]invoicing.Line, 0, len(lines))
		for pos, line := range lines {
			invoiceLines = append(invoiceLines, invoicing.Line{
				InvoiceID:    invoiceID,
				Position:     pos + 1,
				RevenueCode:  line.RevenueCode,
				Description:  line.Description,
				QuantityKWh:  line.QuantityKWh,
				UnitPriceEUR: line.UnitPriceEUR,
				NetEUR:       line.NetEUR,
				TaxRate:      line.TaxRate,
				TaxEUR:       line.TaxEUR,
				GrossEUR:     line.GrossEUR,
			})
		}
		plan.Invoices = append(plan.Invoices, PlannedInvoice{
			ItemID: item.ID,
			Invoice: invoicing.Invoice{
				ID:               invoiceID,
				TenantID:         tenantID,
				Type:             invoicing.TypeCreditNote,
				Status:           invoicing.StatusDraft,
				RecipientFundID:  item.FundID,
				RecipientName:    recipient,
				SettlementID:     es.ID,
				SettlementItemID: item.ID,
				ServicePeriod:    es.PeriodLabel(),
				IssueDate:        issueDate,
				DueDate:          dueDate,
				NetTotalEUR:      net,
				TaxTotalEUR:      tax,
				GrossTotalEUR:    gross,
				CreatedAt:        e.now().UTC(),
			},
			Lines: invoiceLines,
		})
	}
	if len(plan.Invoices) == 0 {
		result = metrics.ResultError
		return nil, apperrors.Validation("items", "no item produced an invoice line")
	}

	invoices, err := e.store.Emit(ctx, plan)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	created = len(invoices)

	totalGross := decimal.Zero
	for _, inv := range invoices {
		totalGross = totalGross.Add(inv.GrossTotalEUR)
	}
	return &EmitResult{
		Invoices: invoices,
		Summary: EmitSummary{
			InvoiceCount:  created,
			TotalGrossEUR: totalGross,
			ServicePeriod: es.PeriodLabel(),
			ParkName:      parkName,
		},
	}, nil
}
