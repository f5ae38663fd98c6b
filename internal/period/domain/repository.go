package period

import "context"

// Repository persists settlement periods. Get returns nil when the period
// does not exist for the tenant.
type Repository interface {
	Get(ctx context.Context, tenantID, id string) (*SettlementPeriod, error)
	ListByPark(ctx context.Context, tenantID, parkID string, year int) ([]SettlementPeriod, error)
	// Existing reports the ADVANCE months already present for a park and year
	// and whether the FINAL period exists.
	Existing(ctx context.Context, tenantID, parkID string, year int) (map[int]bool, bool, error)
	Create(ctx context.Context, p *SettlementPeriod) error
	CreateBatch(ctx context.Context, periods []SettlementPeriod) error
	Update(ctx context.Context, p *SettlementPeriod) error
	Delete(ctx context.Context, tenantID, id string) error
}
