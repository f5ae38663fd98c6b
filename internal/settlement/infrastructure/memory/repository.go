package memory

import (
	"context"
	"sync"

	settlement "windshare/internal/settlement/domain"
)

// SettlementRepository is an in-memory settlement store for tests and local
// runs.
type SettlementRepository struct {
	mu    sync.RWMutex
	data  map[string]*settlement.EnergySettlement
	items map[string][]settlement.EnergySettlementItem
}

// NewSettlementRepository constructs a repository.
func NewSettlementRepository() *SettlementRepository {
	return &SettlementRepository{
		data:  make(map[string]*settlement.EnergySettlement),
		items: make(map[string][]settlement.EnergySettlementItem),
	}
}

// Get loads a settlement with items, nil when absent for the tenant.
func (r *SettlementRepository) Get(ctx context.Context, tenantID, id string) (*settlement.EnergySettlement, []settlement.EnergySettlementItem, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	es := r.data[id]
	if es == nil || es.TenantID != tenantID {
		return nil, nil, nil
	}
	return es.Clone(), settlement.CloneItems(r.items[id]), nil
}

// ListByPark lists a park's settlements, optionally narrowed to a year.
func (r *SettlementRepository) ListByPark(ctx context.Context, tenantID, parkID string, year int) ([]settlement.EnergySettlement, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []settlement.EnergySettlement
	for _, es := range r.data {
		if es.ParkID != parkID {
			continue
		}
		if es.TenantID != tenantID {
			continue
		}
		if year != 0 && es.Year != year {
			continue
		}
		out = append(out, *es.Clone())
	}
	return out, nil
}

// Create stores a new settlement with its items.
func (r *SettlementRepository) Create(ctx context.Context, s *settlement.EnergySettlement, items []settlement.EnergySettlementItem) error {
	_ = ctx
	if s == nil {
		return settlement.ErrNilSettlement
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[s.ID] = s.Clone()
	r.items[s.ID] = settlement.CloneItems(items)
	return nil
}

// Update overwrites the settlement head record.
func (r *SettlementRepository) Update(ctx context.Context, s *settlement.EnergySettlement) error {
	_ = ctx
	if s == nil {
		return settlement.ErrNilSettlement
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[s.ID] = s.Clone()
	return nil
}

// ReplaceItems swaps the item set of a settlement.
func (r *SettlementRepository) ReplaceItems(ctx context.Context, settlementID string, items []settlement.EnergySettlementItem) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[settlementID] = settlement.CloneItems(items)
	return nil
}

// SaveCalculation persists the calculation outcome.
func (r *SettlementRepository) SaveCalculation(ctx context.Context, s *settlement.EnergySettlement, items []settlement.EnergySettlementItem) error {
	_ = ctx
	if s == nil {
		return settlement.ErrNilSettlement
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[s.ID] = s.Clone()
	r.items[s.ID] = settlement.CloneItems(items)
	return nil
}

// Delete removes a settlement with its items.
func (r *SettlementRepository) Delete(ctx context.Context, tenantID, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	es := r.data[id]
	if es == nil || es.TenantID != tenantID {
		return nil
	}
	delete(r.data, id)
	delete(r.items, id)
	return nil
}
