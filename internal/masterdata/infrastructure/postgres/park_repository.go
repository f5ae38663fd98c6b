package postgres

import (
	"context"
	"database/sql"
	"errors"

	masterdata "windshare/internal/masterdata/domain"
)

// ParkRepository reads park masterdata.
type ParkRepository struct {
	db *sql.DB
}

// NewParkRepository constructs a repository.
func NewParkRepository(db *sql.DB) *ParkRepository {
	return &ParkRepository{db: db}
}

// Get fetches a park by id, nil when absent.
func (r *ParkRepository) Get(ctx context.Context, id string) (*masterdata.Park, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("park repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, tenant_id, name, operator, created_at, updated_at
FROM parks
WHERE id = $1
LIMIT 1`, id)

	var park masterdata.Park
	var operator sql.NullString
	err := row.Scan(&park.ID, &park.TenantID, &park.Name, &operator, &park.CreatedAt, &park.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if operator.Valid {
		park.Operator = operator.String
	}
	park.CreatedAt = park.CreatedAt.UTC()
	park.UpdatedAt = park.UpdatedAt.UTC()
	return &park, nil
}

// ListByTenant lists parks of a tenant.
func (r *ParkRepository) ListByTenant(ctx context.Context, tenantID string) ([]masterdata.Park, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("park repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, tenant_id, name, operator, created_at, updated_at
FROM parks
WHERE tenant_id = $1
ORDER BY name ASC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Park
	for rows.Next() {
		var park masterdata.Park
		var operator sql.NullString
		if err := rows.Scan(&park.ID, &park.TenantID, &park.Name, &operator, &park.CreatedAt, &park.UpdatedAt); err != nil {
			return nil, err
		}
		if operator.Valid {
			park.Operator = operator.String
		}
		result = append(result, park)
	}
	return result, rows.Err()
}
