package production

import (
	"time"

	"github.com/shopspring/decimal"
)

// Production record status values.
const (
	StatusDraft     = "DRAFT"
	StatusConfirmed = "CONFIRMED"
	StatusInvoiced  = "INVOICED"
)

// TurbineProduction is one turbine's metered production for a period.
type TurbineProduction struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	ParkID    string `json:"park_id"`
	TurbineID string `json:"turbine_id"`
	Year      int    `json:"year"`
	// Month is 1-12, or 0 for annual records.
	Month int `json:"month,omitempty"`

	ProductionKWh decimal.Decimal `json:"production_kwh"`
	Status        string          `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
