package postgres

import (
	"context"
	"database/sql"
	"errors"

	masterdata "windshare/internal/masterdata/domain"
)

// FundRepository reads fund masterdata.
type FundRepository struct {
	db *sql.DB
}

// NewFundRepository constructs a repository.
func NewFundRepository(db *sql.DB) *FundRepository {
	return &FundRepository{db: db}
}

// Get fetches a fund by id, nil when absent.
func (r *FundRepository) Get(ctx context.Context, id string) (*masterdata.Fund, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("fund repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, tenant_id, name, legal_form, created_at
FROM funds
WHERE id = $1
LIMIT 1`, id)

	var fund masterdata.Fund
	var legalForm sql.NullString
	err := row.Scan(&fund.ID, &fund.TenantID, &fund.Name, &legalForm, &fund.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if legalForm.Valid {
		fund.LegalForm = legalForm.String
	}
	fund.CreatedAt = fund.CreatedAt.UTC()
	return &fund, nil
}

// NamesByID resolves display names for a set of fund ids.
func (r *FundRepository) NamesByID(ctx context.Context, tenantID string, ids []string) (map[string]string, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("fund repo: nil db")
	}
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		if _, ok := names[id]; ok {
			continue
		}
		fund, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if fund == nil || fund.TenantID != tenantID {
			continue
		}
		names[id] = fund.Name
	}
	return names, nil
}
