package auth

import (
	"context"
	"database/sql"
	"errors"

	masterdatarepo "windshare/internal/masterdata/infrastructure/postgres"
)

var (
	// ErrTenantMismatch indicates resource belongs to a different tenant.
	ErrTenantMismatch = errors.New("tenant mismatch")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("resource not found")
)

// ParkTenantChecker validates park tenant ownership.
type ParkTenantChecker interface {
	EnsureParkTenant(ctx context.Context, tenantID, parkID string) error
}

// ParkChecker checks park ownership using masterdata.
type ParkChecker struct {
	repo *masterdatarepo.ParkRepository
}

// NewParkChecker constructs a ParkChecker.
func NewParkChecker(db *sql.DB) *ParkChecker {
	if db == nil {
		return nil
	}
	return &ParkChecker{repo: masterdatarepo.NewParkRepository(db)}
}

// EnsureParkTenant verifies park belongs to tenant.
func (c *ParkChecker) EnsureParkTenant(ctx context.Context, tenantID, parkID string) error {
	if c == nil || c.repo == nil {
		return nil
	}
	if tenantID == "" || parkID == "" {
		return nil
	}
	park, err := c.repo.Get(ctx, parkID)
	if err != nil {
		return err
	}
	if park == nil {
		return ErrNotFound
	}
	if park.TenantID != tenantID {
		return ErrTenantMismatch
	}
	return nil
}
