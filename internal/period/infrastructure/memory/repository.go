package memory

import (
	"context"
	"sort"
	"sync"

	period "windshare/internal/period/domain"
)

// PeriodRepository is an in-memory period store for tests and local runs.
type PeriodRepository struct {
	mu   sync.RWMutex
	data map[string]*period.SettlementPeriod
}

// NewPeriodRepository constructs a repository.
func NewPeriodRepository() *PeriodRepository {
	return &PeriodRepository{data: make(map[string]*period.SettlementPeriod)}
}

// Get loads a period, nil when absent for the tenant.
func (r *PeriodRepository) Get(ctx context.Context, tenantID, id string) (*period.SettlementPeriod, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	p := r.data[id]
	if p == nil || p.TenantID != tenantID {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

// ListByPark lists a park's periods ordered by year, month.
func (r *PeriodRepository) ListByPark(ctx context.Context, tenantID, parkID string, year int) ([]period.SettlementPeriod, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []period.SettlementPeriod
	for _, p := range r.data {
		if p.ParkID != parkID {
			continue
		}
		if p.TenantID != tenantID {
			continue
		}
		if year != 0 && p.Year != year {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

// Existing reports the ADVANCE months present and whether a FINAL period
// exists for a park and year.
func (r *PeriodRepository) Existing(ctx context.Context, tenantID, parkID string, year int) (map[int]bool, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	months := make(map[int]bool)
	hasFinal := false
	for _, p := range r.data {
		if p.ParkID != parkID || p.Year != year {
			continue
		}
		if p.TenantID != tenantID {
			continue
		}
		switch p.PeriodType {
		case period.TypeAdvance:
			months[p.Month] = true
		case period.TypeFinal:
			hasFinal = true
		}
	}
	return months, hasFinal, nil
}

// Create stores a new period.
func (r *PeriodRepository) Create(ctx context.Context, p *period.SettlementPeriod) error {
	_ = ctx
	if p == nil {
		return period.ErrNilPeriod
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *p
	r.data[p.ID] = &clone
	return nil
}

// CreateBatch stores all periods or none.
func (r *PeriodRepository) CreateBatch(ctx context.Context, periods []period.SettlementPeriod) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range periods {
		clone := periods[i]
		r.data[clone.ID] = &clone
	}
	return nil
}

// Update overwrites a period.
func (r *PeriodRepository) Update(ctx context.Context, p *period.SettlementPeriod) error {
	_ = ctx
	if p == nil {
		return period.ErrNilPeriod
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *p
	r.data[p.ID] = &clone
	return nil
}

// Delete removes a period.
func (r *PeriodRepository) Delete(ctx context.Context, tenantID, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.data[id]
	if p == nil || p.TenantID != tenantID {
		return nil
	}
	delete(r.data, id)
	return nil
}
