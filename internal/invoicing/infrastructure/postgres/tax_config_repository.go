package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"windshare/internal/settlement/allocation"
)

// TaxConfigRepository resolves per-tenant tax configuration for revenue codes,
// falling back to static defaults when a tenant has no row.
type TaxConfigRepository struct {
	db       *sql.DB
	defaults map[string]allocation.TaxConfig
}

// NewTaxConfigRepository constructs a repository. Defaults may be nil.
func NewTaxConfigRepository(db *sql.DB, defaults map[string]allocation.TaxConfig) *TaxConfigRepository {
	return &TaxConfigRepository{db: db, defaults: defaults}
}

// Lookup returns the tax configuration for a revenue code. The second return
// value reports whether any configuration (tenant row or default) exists.
func (r *TaxConfigRepository) Lookup(ctx context.Context, tenantID, revenueCode string) (allocation.TaxConfig, bool, error) {
	if r == nil || r.db == nil {
		return allocation.TaxConfig{}, false, errors.New("tax config repo: nil db")
	}
	var hasTax bool
	var rate decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
SELECT has_tax, rate
FROM revenue_tax_configs
WHERE tenant_id = $1 AND revenue_code = $2
LIMIT 1`, tenantID, revenueCode).Scan(&hasTax, &rate)
	if err == nil {
		return allocation.TaxConfig{HasTax: hasTax, Rate: rate}, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return allocation.TaxConfig{}, false, err
	}
	if cfg, ok := r.defaults[revenueCode]; ok {
		return cfg, true, nil
	}
	return allocation.TaxConfig{}, false, nil
}
