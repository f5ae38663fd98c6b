package period

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"windshare/internal/apperrors"
)

// Period status values of the administrative workflow.
const (
	StatusOpen          = "OPEN"
	StatusInProgress    = "IN_PROGRESS"
	StatusPendingReview = "PENDING_REVIEW"
	StatusApproved      = "APPROVED"
	StatusClosed        = "CLOSED"
	StatusCancelled     = "CANCELLED"
)

// Period types. ADVANCE periods cover a month, the FINAL period a whole year.
const (
	TypeAdvance = "ADVANCE"
	TypeFinal   = "FINAL"
)

// Bulk creation frequencies.
const (
	FrequencyMonthly   = "MONTHLY"
	FrequencyQuarterly = "QUARTERLY"
)

// SettlementPeriod is the administrative container for a park and
// year(+month). Its workflow is independent of the settlement lifecycle.
type SettlementPeriod struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	ParkID   string `json:"park_id"`
	Year     int    `json:"year"`
	// Month is 1-12 for ADVANCE periods and 0 for the annual FINAL period.
	Month      int    `json:"month,omitempty"`
	PeriodType string `json:"period_type"`
	Status     string `json:"status"`

	SettlementID string `json:"settlement_id,omitempty"`

	ReviewedBy  string    `json:"reviewed_by,omitempty"`
	ReviewedAt  time.Time `json:"reviewed_at,omitempty"`
	ReviewNotes string    `json:"review_notes,omitempty"`

	RevenueEUR     decimal.NullDecimal `json:"revenue_eur,omitempty"`
	MinimumRentEUR decimal.NullDecimal `json:"minimum_rent_eur,omitempty"`
	ActualRentEUR  decimal.NullDecimal `json:"actual_rent_eur,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Label renders the covered period, "2026-03" or "2026".
func (p *SettlementPeriod) Label() string {
	if p == nil {
		return ""
	}
	if p.Month >= 1 && p.Month <= 12 {
		return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
	}
	return fmt.Sprintf("%04d", p.Year)
}

var transitions = map[string][]string{
	StatusOpen:          {StatusInProgress, StatusCancelled},
	StatusInProgress:    {StatusPendingReview, StatusOpen, StatusCancelled},
	StatusPendingReview: {StatusApproved, StatusInProgress, StatusCancelled},
	StatusApproved:      {StatusClosed},
	StatusClosed:        nil,
	StatusCancelled:     nil,
}

// AllowedTransitions returns the statuses reachable from status.
func AllowedTransitions(status string) []string {
	return transitions[status]
}

// CanTransition reports whether from -> to is in the transition matrix.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ApplyTransition moves the period to the target status. Entering
// PENDING_REVIEW clears the review metadata so a fresh review cycle never
// carries stale approval context.
func (p *SettlementPeriod) ApplyTransition(to string, now time.Time) error {
	if p == nil {
		return ErrNilPeriod
	}
	if !CanTransition(p.Status, to) {
		return apperrors.InvalidState(p.Status+" -> "+to, AllowedTransitions(p.Status))
	}
	if to == StatusPendingReview {
		p.ReviewedBy = ""
		p.ReviewedAt = time.Time{}
		p.ReviewNotes = ""
	}
	p.Status = to
	p.UpdatedAt = now
	return nil
}

// ValidFrequency reports whether freq is a known bulk creation frequency.
func ValidFrequency(freq string) bool {
	return freq == FrequencyMonthly || freq == FrequencyQuarterly
}

// FrequencyMonths returns the ADVANCE months covered by a frequency.
func FrequencyMonths(freq string) []int {
	switch freq {
	case FrequencyMonthly:
		return []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	case FrequencyQuarterly:
		return []int{3, 6, 9, 12}
	default:
		return nil
	}
}
