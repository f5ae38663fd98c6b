package application

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"windshare/internal/apperrors"
	"windshare/internal/money"
	"windshare/internal/observability/metrics"
	"windshare/internal/settlement/allocation"
	settlement "windshare/internal/settlement/domain"
)

// SettlementService handles the settlement lifecycle from draft to
// calculated revenue shares.
type SettlementService struct {
	repo settlement.Repository
	now  func() time.Time
}

// NewSettlementService constructs a service.
func NewSettlementService(repo settlement.Repository) (*SettlementService, error) {
	if repo == nil {
		return nil, errors.New("settlement service: nil repo")
	}
	return &SettlementService{repo: repo, now: time.Now}, nil
}

// SettlementInput carries the editable settlement fields.
type SettlementInput struct {
	ParkID string `json:"park_id"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`

	NetOperatorRevenueEUR decimal.Decimal `json:"net_operator_revenue_eur"`
	TotalProductionKWh    decimal.Decimal `json:"total_production_kwh"`

	EEGRevenueEUR    decimal.NullDecimal `json:"eeg_revenue_eur"`
	DVRevenueEUR     decimal.NullDecimal `json:"dv_revenue_eur"`
	EEGProductionKWh decimal.NullDecimal `json:"eeg_production_kwh"`
	DVProductionKWh  decimal.NullDecimal `json:"dv_production_kwh"`

	DistributionMode string  `json:"distribution_mode"`
	SmoothingFactor  float64 `json:"smoothing_factor"`
	TolerancePercent float64 `json:"tolerance_percent"`

	Items []SettlementItemInput `json:"items"`
}

// SettlementItemInput carries one recipient allocation.
type SettlementItemInput struct {
	FundID             string          `json:"fund_id"`
	TurbineID          string          `json:"turbine_id"`
	ProductionShareKWh decimal.Decimal `json:"production_share_kwh"`
}

func validateInput(in SettlementInput) error {
	if in.ParkID == "" {
		return apperrors.Validation("park_id", "required")
	}
	if in.Year < 2000 || in.Year > 2100 {
		return apperrors.Validation("year", "out of range")
	}
	if in.Month < 0 || in.Month > 12 {
		return apperrors.Validation("month", "must be 1-12 or omitted for annual")
	}
	if in.DistributionMode != "" && !settlement.ValidDistributionMode(in.DistributionMode) {
		return apperrors.Validation("distribution_mode", "unknown mode")
	}
	if in.SmoothingFactor < 0 || in.SmoothingFactor > 1 {
		return apperrors.Validation("smoothing_factor", "must be within [0, 1]")
	}
	if in.TolerancePercent < 0 {
		return apperrors.Validation("tolerance_percent", "must not be negative")
	}
	if in.NetOperatorRevenueEUR.IsNegative() {
		return apperrors.Validation("net_operator_revenue_eur", "must not be negative")
	}
	if in.TotalProductionKWh.IsNegative() {
		return apperrors.Validation("total_production_kwh", "must not be negative")
	}
	if in.EEGRevenueEUR.Valid && in.EEGRevenueEUR.Decimal.IsNegative() {
		return apperrors.Validation("eeg_revenue_eur", "must not be negative")
	}
	if in.DVRevenueEUR.Valid && in.DVRevenueEUR.Decimal.IsNegative() {
		return apperrors.Validation("dv_revenue_eur", "must not be negative")
	}

	// The regulatory split is all-or-nothing and must add up to the operator
	// revenue.
	if in.EEGRevenueEUR.Valid != in.DVRevenueEUR.Valid {
		return apperrors.Validation("eeg_revenue_eur", "EEG and DV revenue must be set together")
	}
	if in.EEGRevenueEUR.Valid {
		sum := in.EEGRevenueEUR.Decimal.Add(in.DVRevenueEUR.Decimal)
		if !money.WithinTolerance(sum, in.NetOperatorRevenueEUR) {
			return apperrors.Validation("eeg_revenue_eur", "EEG and DV revenue must sum to the operator revenue")
		}
	}
	if (in.EEGProductionKWh.Valid || in.DVProductionKWh.Valid) && !in.EEGRevenueEUR.Valid {
		return apperrors.Validation("eeg_production_kwh", "production split requires a revenue split")
	}

	if len(in.Items) == 0 {
		return apperrors.Validation("items", "at least one item required")
	}
	for _, item := range in.Items {
		if item.FundID == "" {
			return apperrors.Validation("items.fund_id", "required")
		}
		if item.ProductionShareKWh.IsNegative() {
			return apperrors.Validation("items.production_share_kwh", "must not be negative")
		}
	}
	return nil
}

// Create stores a new DRAFT settlement with its items.
func (s *SettlementService) Create(ctx context.Context, tenantID string, in SettlementInput) (*settlement.EnergySettlement, []settlement.EnergySettlementItem, error) {
	if tenantID == "" {
		return nil, nil, apperrors.Forbidden("missing tenant")
	}
	if err := validateInput(in); err != nil {
		return nil, nil, err
	}
	mode := in.DistributionMode
	if mode == "" {
		mode = settlement.DistributionProportional
	}

	now := s.now().UTC()
	es := &settlement.EnergySettlement{
		ID:                    newID("es"),
		TenantID:              tenantID,
		ParkID:                in.ParkID,
		Year:                  in.Year,
		Month:                 in.Month,
		Status:                settlement.StatusDraft,
		NetOperatorRevenueEUR: in.NetOperatorRevenueEUR,
		TotalProductionKWh:    in.TotalProductionKWh,
		EEGRevenueEUR:         in.EEGRevenueEUR,
		DVRevenueEUR:          in.DVRevenueEUR,
		EEGProductionKWh:      in.EEGProductionKWh,
		DVProductionKWh:       in.DVProductionKWh,
		DistributionMode:      mode,
		SmoothingFactor:       in.SmoothingFactor,
		TolerancePercent:      in.TolerancePercent,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	items := make([]settlement.EnergySettlementItem, 0, len(in.Items))
	for _, itemIn := range in.Items {
		items = append(items, settlement.EnergySettlementItem{
			ID:                 newID("esi"),
			SettlementID:       es.ID,
			FundID:             itemIn.FundID,
			TurbineID:          itemIn.TurbineID,
			ProductionShareKWh: itemIn.ProductionShareKWh,
			CreatedAt:          now,
		})
	}

	if err := s.repo.Create(ctx, es, items); err != nil {
		return nil, nil, err
	}
	return es, items, nil
}

// Get loads a settlement with its items.
func (s *SettlementService) Get(ctx context.Context, tenantID, id string) (*settlement.EnergySettlement, []settlement.EnergySettlementItem, error) {
	if tenantID == "" {
		return nil, nil, apperrors.Forbidden("missing tenant")
	}
	es, items, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	if es == nil {
		return nil, nil, apperrors.NotFound("settlement")
	}
	return es, items, nil
}

// ListByPark lists a park's settlements, optionally narrowed to one year.
func (s *SettlementService) ListByPark(ctx context.Context, tenantID, parkID string, year int) ([]settlement.EnergySettlement, error) {
	if tenantID == "" {
		return nil, apperrors.Forbidden("missing tenant")
	}
	if parkID == "" {
		return nil, apperrors.Validation("park_id", "required")
	}
	return s.repo.ListByPark(ctx, tenantID, parkID, year)
}

// Update replaces the editable fields of a DRAFT or CALCULATED settlement.
// Changing any calculation input reverts a CALCULATED settlement to DRAFT.
func (s *SettlementService) Update(ctx context.Context, tenantID, id string, in SettlementInput) (*settlement.EnergySettlement, []settlement.EnergySettlementItem, error) {
	es, items, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	if es.Status == settlement.StatusInvoiced {
		return nil, nil, apperrors.InvalidState("update", settlement.AllowedAfter(es.Status))
	}
	for _, item := range items {
		if item.InvoiceID != "" {
			return nil, nil, apperrors.Conflict("settlement has emitted invoices")
		}
	}
	if err := validateInput(in); err != nil {
		return nil, nil, err
	}

	mode := in.DistributionMode
	if mode == "" {
		mode = settlement.DistributionProportional
	}

	inputsChanged := !es.NetOperatorRevenueEUR.Equal(in.NetOperatorRevenueEUR) ||
		!es.TotalProductionKWh.Equal(in.TotalProductionKWh) ||
		es.DistributionMode != mode ||
		es.SmoothingFactor != in.SmoothingFactor ||
		es.TolerancePercent != in.TolerancePercent ||
		!nullDecimalEqual(es.EEGRevenueEUR, in.EEGRevenueEUR) ||
		!nullDecimalEqual(es.DVRevenueEUR, in.DVRevenueEUR) ||
		!nullDecimalEqual(es.EEGProductionKWh, in.EEGProductionKWh) ||
		!nullDecimalEqual(es.DVProductionKWh, in.DVProductionKWh)

	es.ParkID = in.ParkID
	es.Year = in.Year
	es.Month = in.Month
	es.NetOperatorRevenueEUR = in.NetOperatorRevenueEUR
	es.TotalProductionKWh = in.TotalProductionKWh
	es.EEGRevenueEUR = in.EEGRevenueEUR
	es.DVRevenueEUR = in.DVRevenueEUR
	es.EEGProductionKWh = in.EEGProductionKWh
	es.DVProductionKWh = in.DVProductionKWh
	es.DistributionMode = mode
	es.SmoothingFactor = in.SmoothingFactor
	es.TolerancePercent = in.TolerancePercent
	es.UpdatedAt = s.now().UTC()

	newItems := make([]settlement.EnergySettlementItem, 0, len(in.Items))
	now := es.UpdatedAt
	for _, itemIn := range in.Items {
		newItems = append(newItems, settlement.EnergySettlementItem{
			ID:                 newID("esi"),
			SettlementID:       es.ID,
			FundID:             itemIn.FundID,
			TurbineID:          itemIn.TurbineID,
			ProductionShareKWh: itemIn.ProductionShareKWh,
			CreatedAt:          now,
		})
	}
	if itemsChanged(items, in.Items) {
		inputsChanged = true
		if err := s.repo.ReplaceItems(ctx, es.ID, newItems); err != nil {
			return nil, nil, err
		}
		items = newItems
	}

	if inputsChanged {
		es.InvalidateCalculation()
	}
	if err := s.repo.Update(ctx, es); err != nil {
		return nil, nil, err
	}
	return es, items, nil
}

// Delete removes a settlement without emitted invoices.
func (s *SettlementService) Delete(ctx context.Context, tenantID, id string) error {
	es, items, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if es.Status == settlement.StatusInvoiced {
		return apperrors.Conflict("settlement already invoiced")
	}
	for _, item := range items {
		if item.InvoiceID != "" {
			return apperrors.Conflict("settlement has emitted invoices")
		}
	}
	return s.repo.Delete(ctx, tenantID, id)
}

// calculationDetails is the persisted audit trail of one calculation run.
type calculationDetails struct {
	CalculatedAt       time.Time                `json:"calculated_at"`
	DistributionMode   string                   `json:"distribution_mode"`
	TotalRevenueEUR    decimal.Decimal          `json:"total_revenue_eur"`
	TotalProductionKWh decimal.Decimal          `json:"total_production_kwh"`
	Items              []calculationDetailsItem `json:"items"`
}

type calculationDetailsItem struct {
	ItemID             string          `json:"item_id"`
	FundID             string          `json:"fund_id"`
	ProductionShareKWh decimal.Decimal `json:"production_share_kwh"`
	RevenueShareEUR    decimal.Decimal `json:"revenue_share_eur"`
}

// Calculate distributes the operator revenue onto the settlement items and
// moves the settlement to CALCULATED. Recalculating a CALCULATED settlement
// is allowed, an INVOICED one is immutable.
func (s *SettlementService) Calculate(ctx context.Context, tenantID, id string) (*settlement.EnergySettlement, []settlement.EnergySettlementItem, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveSettlementCalculate(result, time.Since(start))
	}()

	es, items, err := s.Get(ctx, tenantID, id)
	if err != nil {
		result = metrics.ResultError
		return nil, nil, err
	}
	if es.Status == settlement.StatusInvoiced {
		result = metrics.ResultError
		return nil, nil, apperrors.InvalidState(settlement.StatusCalculated, settlement.AllowedAfter(es.Status))
	}
	if len(items) == 0 {
		result = metrics.ResultError
		return nil, nil, settlement.ErrNoItems
	}

	productions := make([]decimal.Decimal, len(items))
	total := decimal.Zero
	for i, item := range items {
		productions[i] = item.ProductionShareKWh
		total = total.Add(item.ProductionShareKWh)
	}
	if es.TotalProductionKWh.IsZero() {
		es.TotalProductionKWh = total
	} else if total.Sub(es.TotalProductionKWh).Abs().GreaterThan(decimal.NewFromInt(1)) {
		result = metrics.ResultError
		return nil, nil, apperrors.Validation("items", "item production does not match total production")
	}

	shares, err := allocation.DistributeRevenue(es.NetOperatorRevenueEUR, productions,
		es.DistributionMode, es.SmoothingFactor, es.TolerancePercent)
	if err != nil {
		result = metrics.ResultError
		return nil, nil, err
	}

	details := calculationDetails{
		CalculatedAt:       s.now().UTC(),
		DistributionMode:   es.DistributionMode,
		TotalRevenueEUR:    es.NetOperatorRevenueEUR,
		TotalProductionKWh: es.TotalProductionKWh,
	}
	for i := range items {
		items[i].RevenueShareEUR = shares[i]
		details.Items = append(details.Items, calculationDetailsItem{
			ItemID:             items[i].ID,
			FundID:             items[i].FundID,
			ProductionShareKWh: items[i].ProductionShareKWh,
			RevenueShareEUR:    shares[i],
		})
	}
	encoded, err := json.Marshal(details)
	if err != nil {
		result = metrics.ResultError
		return nil, nil, err
	}

	es.Status = settlement.StatusCalculated
	es.CalculationDetails = encoded
	es.UpdatedAt = details.CalculatedAt
	if err := s.repo.SaveCalculation(ctx, es, items); err != nil {
		result = metrics.ResultError
		return nil, nil, err
	}
	return es, items, nil
}

func nullDecimalEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	if !a.Valid {
		return true
	}
	return a.Decimal.Equal(b.Decimal)
}

func itemsChanged(current []settlement.EnergySettlementItem, in []SettlementItemInput) bool {
	if len(current) != len(in) {
		return true
	}
	for i := range in {
		if current[i].FundID != in[i].FundID ||
			current[i].TurbineID != in[i].TurbineID ||
			!current[i].ProductionShareKWh.Equal(in[i].ProductionShareKWh) {
			return true
		}
	}
	return false
}
