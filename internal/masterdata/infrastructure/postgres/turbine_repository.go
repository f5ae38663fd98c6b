package postgres

import (
	"context"
	"database/sql"
	"errors"

	masterdata "windshare/internal/masterdata/domain"
)

// TurbineRepository reads turbine masterdata.
type TurbineRepository struct {
	db *sql.DB
}

// NewTurbineRepository constructs a repository.
func NewTurbineRepository(db *sql.DB) *TurbineRepository {
	return &TurbineRepository{db: db}
}

// Get fetches a turbine by id, nil when absent.
func (r *TurbineRepository) Get(ctx context.Context, id string) (*masterdata.Turbine, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("turbine repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, tenant_id, park_id, designation, created_at
FROM turbines
WHERE id = $1
LIMIT 1`, id)

	var turbine masterdata.Turbine
	err := row.Scan(&turbine.ID, &turbine.TenantID, &turbine.ParkID, &turbine.Designation, &turbine.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	turbine.CreatedAt = turbine.CreatedAt.UTC()
	return &turbine, nil
}

// ListByPark lists turbines of a park.
func (r *TurbineRepository) ListByPark(ctx context.Context, parkID string) ([]masterdata.Turbine, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("turbine repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, tenant_id, park_id, designation, created_at
FROM turbines
WHERE park_id = $1
ORDER BY designation ASC`, parkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Turbine
	for rows.Next() {
		var turbine masterdata.Turbine
		if err := rows.Scan(&turbine.ID, &turbine.TenantID, &turbine.ParkID, &turbine.Designation, &turbine.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, turbine)
	}
	return result, rows.Err()
}
