package settlement

import "context"

// Repository persists energy settlements with their fund items. Get returns
// nil when the settlement does not exist for the tenant.
type Repository interface {
	Get(ctx context.Context, tenantID, id string) (*EnergySettlement, []EnergySettlementItem, error)
	ListByPark(ctx context.Context, tenantID, parkID string, year int) ([]EnergySettlement, error)
	Create(ctx context.Context, s *EnergySettlement, items []EnergySettlementItem) error
	Update(ctx context.Context, s *EnergySettlement) error
	ReplaceItems(ctx context.Context, settlementID string, items []EnergySettlementItem) error
	SaveCalculation(ctx context.Context, s *EnergySettlement, items []EnergySettlementItem) error
	Delete(ctx context.Context, tenantID, id string) error
}
