package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	production "windshare/internal/production/domain"
	"windshare/internal/storage"
)

// ProductionRepository persists turbine production records.
type ProductionRepository struct {
	db *sql.DB
}

// NewProductionRepository constructs a repository.
func NewProductionRepository(db *sql.DB) *ProductionRepository {
	return &ProductionRepository{db: db}
}

// ListForPeriod returns production records for a park and year, narrowed to a
// month when month > 0.
func (r *ProductionRepository) ListForPeriod(ctx context.Context, tenantID, parkID string, year, month int) ([]production.TurbineProduction, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("production repo: nil db")
	}
	query := `
SELECT id, tenant_id, park_id, turbine_id, year, month, production_kwh, status, created_at, updated_at
FROM turbine_productions
WHERE tenant_id = $1 AND park_id = $2 AND year = $3`
	args := []any{tenantID, parkID, year}
	if month > 0 {
		query += ` AND month = $4`
		args = append(args, month)
	}
	query += ` ORDER BY turbine_id ASC, month ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []production.TurbineProduction
	for rows.Next() {
		var record production.TurbineProduction
		var month sql.NullInt64
		if err := rows.Scan(&record.ID, &record.TenantID, &record.ParkID, &record.TurbineID,
			&record.Year, &month, &record.ProductionKWh, &record.Status,
			&record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, err
		}
		if month.Valid {
			record.Month = int(month.Int64)
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

// MarkInvoiced flips DRAFT and CONFIRMED records of the period to INVOICED
// using q, which may be a surrounding transaction. Returns the affected count.
func MarkInvoiced(ctx context.Context, q storage.Querier, tenantID, parkID string, year, month int, now time.Time) (int64, error) {
	if q == nil {
		return 0, errors.New("production repo: nil querier")
	}
	query := `
UPDATE turbine_productions
SET status = $1, updated_at = $2
WHERE tenant_id = $3 AND park_id = $4 AND year = $5
	AND status IN ($6, $7)`
	args := []any{production.StatusInvoiced, now, tenantID, parkID, year, production.StatusDraft, production.StatusConfirmed}
	if month > 0 {
		query += ` AND month = $8`
		args = append(args, month)
	}
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
