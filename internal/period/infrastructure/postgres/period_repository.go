package postgres

import (
	"context"
	"database/sql"

	period "windshare/internal/period/domain"
	"windshare/internal/storage"
)

// PeriodRepository persists settlement periods in postgres.
type PeriodRepository struct {
	db *sql.DB
}

// NewPeriodRepository constructs a repository.
func NewPeriodRepository(db *sql.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

const periodColumns = `id, tenant_id, park_id, year, month, period_type, status,
	settlement_id, reviewed_by, reviewed_at, review_notes,
	revenue_eur, minimum_rent_eur, actual_rent_eur, created_at, updated_at`

func scanPeriod(row interface{ Scan(...any) error }) (*period.SettlementPeriod, error) {
	var p period.SettlementPeriod
	var settlementID, reviewedBy, reviewNotes sql.NullString
	var reviewedAt sql.NullTime
	err := row.Scan(&p.ID, &p.TenantID, &p.ParkID, &p.Year, &p.Month, &p.PeriodType, &p.Status,
		&settlementID, &reviewedBy, &reviewedAt, &reviewNotes,
		&p.RevenueEUR, &p.MinimumRentEUR, &p.ActualRentEUR, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.SettlementID = settlementID.String
	p.ReviewedBy = reviewedBy.String
	p.ReviewNotes = reviewNotes.String
	if reviewedAt.Valid {
		p.ReviewedAt = reviewedAt.Time
	}
	return &p, nil
}

// Get loads a period, nil when absent for the tenant.
func (r *PeriodRepository) Get(ctx context.Context, tenantID, id string) (*period.SettlementPeriod, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+periodColumns+`
		FROM settlement_periods WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	p, err := scanPeriod(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListByPark lists a park's periods, optionally narrowed to a year.
func (r *PeriodRepository) ListByPark(ctx context.Context, tenantID, parkID string, year int) ([]period.SettlementPeriod, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+periodColumns+`
		FROM settlement_periods
		WHERE park_id = $1 AND tenant_id = $2 AND ($3 = 0 OR year = $3)
		ORDER BY year, month`, parkID, tenantID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []period.SettlementPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Existing reports the ADVANCE months present and whether a FINAL period
// exists for a park and year.
func (r *PeriodRepository) Existing(ctx context.Context, tenantID, parkID string, year int) (map[int]bool, bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT month, period_type FROM settlement_periods
		WHERE park_id = $1 AND tenant_id = $2 AND year = $3`, parkID, tenantID, year)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	months := make(map[int]bool)
	hasFinal := false
	for rows.Next() {
		var month int
		var periodType string
		if err := rows.Scan(&month, &periodType); err != nil {
			return nil, false, err
		}
		switch periodType {
		case period.TypeAdvance:
			months[month] = true
		case period.TypeFinal:
			hasFinal = true
		}
	}
	return months, hasFinal, rows.Err()
}

func insertPeriod(ctx context.Context, q storage.Querier, p *period.SettlementPeriod) error {
	var reviewedAt any
	if !p.ReviewedAt.IsZero() {
		reviewedAt = p.ReviewedAt
	}
	_, err := q.ExecContext(ctx, `INSERT INTO settlement_periods
			(id, tenant_id, park_id, year, month, period_type, status,
			settlement_id, reviewed_by, reviewed_at, review_notes,
			revenue_eur, minimum_rent_eur, actual_rent_eur, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10, NULLIF($11, ''),
			$12, $13, $14, $15, $16)`,
		p.ID, p.TenantID, p.ParkID, p.Year, p.Month, p.PeriodType, p.Status,
		p.SettlementID, p.ReviewedBy, reviewedAt, p.ReviewNotes,
		p.RevenueEUR, p.MinimumRentEUR, p.ActualRentEUR, p.CreatedAt, p.UpdatedAt)
	return err
}

// Create stores a new period.
func (r *PeriodRepository) Create(ctx context.Context, p *period.SettlementPeriod) error {
	if p == nil {
		return period.ErrNilPeriod
	}
	return insertPeriod(ctx, r.db, p)
}

// CreateBatch stores all periods in one transaction.
func (r *PeriodRepository) CreateBatch(ctx context.Context, periods []period.SettlementPeriod) error {
	return storage.RunAtomic(ctx, r.db, func(tx *sql.Tx) error {
		for i := range periods {
			if err := insertPeriod(ctx, tx, &periods[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update overwrites the mutable fields of a period.
func (r *PeriodRepository) Update(ctx context.Context, p *period.SettlementPeriod) error {
	if p == nil {
		return period.ErrNilPeriod
	}
	var reviewedAt any
	if !p.ReviewedAt.IsZero() {
		reviewedAt = p.ReviewedAt
	}
	_, err := r.db.ExecContext(ctx, `UPDATE settlement_periods SET
			status = $2, settlement_id = NULLIF($3, ''),
			reviewed_by = NULLIF($4, ''), reviewed_at = $5, review_notes = NULLIF($6, ''),
			revenue_eur = $7, minimum_rent_eur = $8, actual_rent_eur = $9, updated_at = $10
		WHERE id = $1`,
		p.ID, p.Status, p.SettlementID,
		p.ReviewedBy, reviewedAt, p.ReviewNotes,
		p.RevenueEUR, p.MinimumRentEUR, p.ActualRentEUR, p.UpdatedAt)
	return err
}

// Delete removes a period.
func (r *PeriodRepository) Delete(ctx context.Context, tenantID, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM settlement_periods
		WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	return err
}
