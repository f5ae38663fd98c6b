package postgres

import (
	"context"
	"database/sql"
	"errors"

	"windshare/internal/storage"

	settlement "windshare/internal/settlement/domain"
)

// SettlementRepository persists energy settlements in postgres.
type SettlementRepository struct {
	db *sql.DB
}

// NewSettlementRepository constructs a repository.
func NewSettlementRepository(db *sql.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

const settlementColumns = `id, tenant_id, park_id, year, month, status,
	net_operator_revenue_eur, total_production_kwh,
	eeg_revenue_eur, dv_revenue_eur, eeg_production_kwh, dv_production_kwh,
	distribution_mode, smoothing_factor, tolerance_percent,
	calculation_details, created_at, updated_at`

func scanSettlement(row interface{ Scan(...any) error }) (*settlement.EnergySettlement, error) {
	var es settlement.EnergySettlement
	var details sql.NullString
	err := row.Scan(&es.ID, &es.TenantID, &es.ParkID, &es.Year, &es.Month, &es.Status,
		&es.NetOperatorRevenueEUR, &es.TotalProductionKWh,
		&es.EEGRevenueEUR, &es.DVRevenueEUR, &es.EEGProductionKWh, &es.DVProductionKWh,
		&es.DistributionMode, &es.SmoothingFactor, &es.TolerancePercent,
		&details, &es.CreatedAt, &es.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if details.Valid {
		es.CalculationDetails = []byte(details.String)
	}
	return &es, nil
}

// Get loads a settlement with its items, nil when absent for the tenant.
func (r *SettlementRepository) Get(ctx context.Context, tenantID, id string) (*settlement.EnergySettlement, []settlement.EnergySettlementItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+settlementColumns+`
		FROM energy_settlements WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	es, err := scanSettlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	items, err := listItems(ctx, r.db, es.ID)
	if err != nil {
		return nil, nil, err
	}
	return es, items, nil
}

// ListByPark lists a park's settlements, optionally narrowed to a year.
func (r *SettlementRepository) ListByPark(ctx context.Context, tenantID, parkID string, year int) ([]settlement.EnergySettlement, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+settlementColumns+`
		FROM energy_settlements
		WHERE park_id = $1 AND tenant_id = $2 AND ($3 = 0 OR year = $3)
		ORDER BY year DESC, month DESC, created_at DESC`, parkID, tenantID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []settlement.EnergySettlement
	for rows.Next() {
		es, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *es)
	}
	return out, rows.Err()
}

func listItems(ctx context.Context, q storage.Querier, settlementID string) ([]settlement.EnergySettlementItem, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, settlement_id, fund_id, turbine_id,
			production_share_kwh, revenue_share_eur, invoice_id, created_at
		FROM energy_settlement_items WHERE settlement_id = $1 ORDER BY created_at, id`, settlementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []settlement.EnergySettlementItem
	for rows.Next() {
		var item settlement.EnergySettlementItem
		var turbineID, invoiceID sql.NullString
		if err := rows.Scan(&item.ID, &item.SettlementID, &item.FundID, &turbineID,
			&item.ProductionShareKWh, &item.RevenueShareEUR, &invoiceID, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.TurbineID = turbineID.String
		item.InvoiceID = invoiceID.String
		items = append(items, item)
	}
	return items, rows.Err()
}

func insertItems(ctx context.Context, q storage.Querier, items []settlement.EnergySettlementItem) error {
	for _, item := range items {
		_, err := q.ExecContext(ctx, `INSERT INTO energy_settlement_items
				(id, settlement_id, fund_id, turbine_id, production_share_kwh, revenue_share_eur, created_at)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)`,
			item.ID, item.SettlementID, item.FundID, item.TurbineID,
			item.ProductionShareKWh, item.RevenueShareEUR, item.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// Create stores a new settlement with its items in one transaction.
func (r *SettlementRepository) Create(ctx context.Context, s *settlement.EnergySettlement, items []settlement.EnergySettlementItem) error {
	if s == nil {
		return settlement.ErrNilSettlement
	}
	return storage.RunAtomic(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO energy_settlements
				(id, tenant_id, park_id, year, month, status,
				net_operator_revenue_eur, total_production_kwh,
				eeg_revenue_eur, dv_revenue_eur, eeg_production_kwh, dv_production_kwh,
				distribution_mode, smoothing_factor, tolerance_percent, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			s.ID, s.TenantID, s.ParkID, s.Year, s.Month, s.Status,
			s.NetOperatorRevenueEUR, s.TotalProductionKWh,
			s.EEGRevenueEUR, s.DVRevenueEUR, s.EEGProductionKWh, s.DVProductionKWh,
			s.DistributionMode, s.SmoothingFactor, s.TolerancePercent, s.CreatedAt, s.UpdatedAt)
		if err != nil {
			return err
		}
		return insertItems(ctx, tx, items)
	})
}

// Update overwrites the settlement head record.
func (r *SettlementRepository) Update(ctx context.Context, s *settlement.EnergySettlement) error {
	if s == nil {
		return settlement.ErrNilSettlement
	}
	var details any
	if s.CalculationDetails != nil {
		details = string(s.CalculationDetails)
	}
	_, err := r.db.ExecContext(ctx, `UPDATE energy_settlements SET
			park_id = $2, year = $3, month = $4, status = $5,
			net_operator_revenue_eur = $6, total_production_kwh = $7,
			eeg_revenue_eur = $8, dv_revenue_eur = $9,
			eeg_production_kwh = $10, dv_production_kwh = $11,
			distribution_mode = $12, smoothing_factor = $13, tolerance_percent = $14,
			calculation_details = $15, updated_at = $16
		WHERE id = $1`,
		s.ID, s.ParkID, s.Year, s.Month, s.Status,
		s.NetOperatorRevenueEUR, s.TotalProductionKWh,
		s.EEGRevenueEUR, s.DVRevenueEUR, s.EEGProductionKWh, s.DVProductionKWh,
		s.DistributionMode, s.SmoothingFactor, s.TolerancePercent,
		details, s.UpdatedAt)
	return err
}

// ReplaceItems swaps the item set of a settlement. Items linked to an
// invoice are never replaced.
func (r *SettlementRepository) ReplaceItems(ctx context.Context, settlementID string, items []settlement.EnergySettlementItem) error {
	return storage.RunAtomic(ctx, r.db, func(tx *sql.Tx) error {
		var linked int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM energy_settlement_items
			WHERE settlement_id = $1 AND invoice_id IS NOT NULL`, settlementID).Scan(&linked)
		if err != nil {
			return err
		}
		if linked > 0 {
			return errors.New("settlement repository: items already invoiced")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM energy_settlement_items
			WHERE settlement_id = $1`, settlementID); err != nil {
			return err
		}
		return insertItems(ctx, tx, items)
	})
}

// SaveCalculation persists the calculation outcome: the head record and the
// per-item revenue shares, atomically.
func (r *SettlementRepository) SaveCalculation(ctx context.Context, s *settlement.EnergySettlement, items []settlement.EnergySettlementItem) error {
	if s == nil {
		return settlement.ErrNilSettlement
	}
	return storage.RunAtomic(ctx, r.db, func(tx *sql.Tx) error {
		var details any
		if s.CalculationDetails != nil {
			details = string(s.CalculationDetails)
		}
		_, err := tx.ExecContext(ctx, `UPDATE energy_settlements SET
				status = $2, total_production_kwh = $3, calculation_details = $4, updated_at = $5
			WHERE id = $1`,
			s.ID, s.Status, s.TotalProductionKWh, details, s.UpdatedAt)
		if err != nil {
			return err
		}
		for _, item := range items {
			if _, err := tx.ExecContext(ctx, `UPDATE energy_settlement_items
				SET revenue_share_eur = $2 WHERE id = $1`, item.ID, item.RevenueShareEUR); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a settlement with its items.
func (r *SettlementRepository) Delete(ctx context.Context, tenantID, id string) error {
	return storage.RunAtomic(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM energy_settlement_items
			WHERE settlement_id IN (SELECT id FROM energy_settlements
				WHERE id = $1 AND tenant_id = $2)`, id, tenantID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM energy_settlements
			WHERE id = $1 AND tenant_id = $2`, id, tenantID)
		return err
	})
}
