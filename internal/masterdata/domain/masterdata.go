package masterdata

import "time"

// Park is a wind park grouping turbines under one billing entity.
type Park struct {
	ID        string
	TenantID  string
	Name      string
	Operator  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Turbine is a single wind turbine inside a park.
type Turbine struct {
	ID          string
	TenantID    string
	ParkID      string
	Designation string
	CreatedAt   time.Time
}

// Fund is a legal entity holding contractual shares of a park's turbines.
type Fund struct {
	ID        string
	TenantID  string
	Name      string
	LegalForm string
	CreatedAt time.Time
}
