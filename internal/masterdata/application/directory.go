package application

import (
	"context"
	"errors"

	"windshare/internal/apperrors"
	masterdatarepo "windshare/internal/masterdata/infrastructure/postgres"
)

// Directory resolves master-data display names across the park, turbine and
// fund repositories. Lookups are tenant-scoped.
type Directory struct {
	parks    *masterdatarepo.ParkRepository
	turbines *masterdatarepo.TurbineRepository
	funds    *masterdatarepo.FundRepository
}

// NewDirectory constructs a directory.
func NewDirectory(parks *masterdatarepo.ParkRepository, turbines *masterdatarepo.TurbineRepository, funds *masterdatarepo.FundRepository) (*Directory, error) {
	if parks == nil || turbines == nil || funds == nil {
		return nil, errors.New("directory: nil repository")
	}
	return &Directory{parks: parks, turbines: turbines, funds: funds}, nil
}

// ParkName returns the display name of a tenant's park.
func (d *Directory) ParkName(ctx context.Context, tenantID, parkID string) (string, error) {
	park, err := d.parks.Get(ctx, parkID)
	if err != nil {
		return "", err
	}
	if park == nil || park.TenantID != tenantID {
		return "", apperrors.NotFound("park")
	}
	return park.Name, nil
}

// TurbineName returns the designation of a tenant's turbine.
func (d *Directory) TurbineName(ctx context.Context, tenantID, turbineID string) (string, error) {
	turbine, err := d.turbines.Get(ctx, turbineID)
	if err != nil {
		return "", err
	}
	if turbine == nil || turbine.TenantID != tenantID {
		return "", apperrors.NotFound("turbine")
	}
	return turbine.Designation, nil
}

// FundNames resolves fund names for a tenant in one query.
func (d *Directory) FundNames(ctx context.Context, tenantID string, fundIDs []string) (map[string]string, error) {
	return d.funds.NamesByID(ctx, tenantID, fundIDs)
}
