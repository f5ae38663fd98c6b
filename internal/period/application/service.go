package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"windshare/internal/apperrors"
	"windshare/internal/observability/metrics"
	period "windshare/internal/period/domain"
)

// PeriodService drives the administrative settlement-period workflow.
type PeriodService struct {
	repo period.Repository
	now  func() time.Time
}

// NewPeriodService constructs a service.
func NewPeriodService(repo period.Repository) (*PeriodService, error) {
	if repo == nil {
		return nil, errors.New("period service: nil repo")
	}
	return &PeriodService{repo: repo, now: time.Now}, nil
}

// PeriodInput carries the fields of a single period creation.
type PeriodInput struct {
	ParkID     string `json:"park_id"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	PeriodType string `json:"period_type"`

	SettlementID string `json:"settlement_id"`

	RevenueEUR     decimal.NullDecimal `json:"revenue_eur"`
	MinimumRentEUR decimal.NullDecimal `json:"minimum_rent_eur"`
	ActualRentEUR  decimal.NullDecimal `json:"actual_rent_eur"`
}

// BulkInput describes a bulk period creation for one park and year.
type BulkInput struct {
	ParkID       string `json:"park_id"`
	Year         int    `json:"year"`
	Frequency    string `json:"frequency"`
	IncludeFinal bool   `json:"include_final"`
}

func validatePeriodInput(in PeriodInput) error {
	if in.ParkID == "" {
		return apperrors.Validation("park_id", "required")
	}
	if in.Year < 2000 || in.Year > 2100 {
		return apperrors.Validation("year", "out of range")
	}
	switch in.PeriodType {
	case period.TypeAdvance:
		if in.Month < 1 || in.Month > 12 {
			return apperrors.Validation("month", "ADVANCE periods require a month 1-12")
		}
	case period.TypeFinal:
		if in.Month != 0 {
			return apperrors.Validation("month", "FINAL periods cover the whole year")
		}
	default:
		return apperrors.Validation("period_type", "unknown period type")
	}
	return nil
}

// Create stores a single OPEN period, rejecting duplicates for the covered
// park and span.
func (s *PeriodService) Create(ctx context.Context, tenantID string, in PeriodInput) (*period.SettlementPeriod, error) {
	if tenantID == "" {
		return nil, apperrors.Forbidden("missing tenant")
	}
	if err := validatePeriodInput(in); err != nil {
		return nil, err
	}

	months, hasFinal, err := s.repo.Existing(ctx, tenantID, in.ParkID, in.Year)
	if err != nil {
		return nil, err
	}
	if in.PeriodType == period.TypeAdvance && months[in.Month] {
		return nil, apperrors.Conflict(fmt.Sprintf("ADVANCE period %04d-%02d already exists", in.Year, in.Month))
	}
	if in.PeriodType == period.TypeFinal && hasFinal {
		return nil, apperrors.Conflict(fmt.Sprintf("FINAL period %04d already exists", in.Year))
	}

	p := s.build(tenantID, in)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get loads a period.
func (s *PeriodService) Get(ctx context.Context, tenantID, id string) (*period.SettlementPeriod, error) {
	if tenantID == "" {
		return nil, apperrors.Forbidden("missing tenant")
	}
	p, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.NotFound("period")
	}
	return p, nil
}

// ListByPark lists a park's periods, optionally narrowed to one year.
func (s *PeriodService) ListByPark(ctx context.Context, tenantID, parkID string, year int) ([]period.SettlementPeriod, error) {
	if tenantID == "" {
		return nil, apperrors.Forbidden("missing tenant")
	}
	if parkID == "" {
		return nil, apperrors.Validation("park_id", "required")
	}
	return s.repo.ListByPark(ctx, tenantID, parkID, year)
}

// BulkCreate creates the missing ADVANCE periods of a year per the requested
// frequency, plus the FINAL period when asked for and absent. Months that
// already have an ADVANCE period are skipped. When nothing remains to create
// the call fails with a conflict.
func (s *PeriodService) BulkCreate(ctx context.Context, tenantID string, in BulkInput) ([]period.SettlementPeriod, error) {
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObservePeriodBulkCreate(result)
	}()

	if tenantID == "" {
		result = metrics.ResultError
		return nil, apperrors.Forbidden("missing tenant")
	}
	if in.ParkID == "" {
		result = metrics.ResultError
		return nil, apperrors.Validation("park_id", "required")
	}
	if in.Year < 2000 || in.Year > 2100 {
		result = metrics.ResultError
		return nil, apperrors.Validation("year", "out of range")
	}
	if !period.ValidFrequency(in.Frequency) {
		result = metrics.ResultError
		return nil, apperrors.Validation("frequency", "unknown frequency")
	}

	existing, hasFinal, err := s.repo.Existing(ctx, tenantID, in.ParkID, in.Year)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}

	var toCreate []period.SettlementPeriod
	for _, month := range period.FrequencyMonths(in.Frequency) {
		if existing[month] {
			continue
		}
		toCreate = append(toCreate, *s.build(tenantID, PeriodInput{
			ParkID: in.ParkID, Year: in.Year, Month: month, PeriodType: period.TypeAdvance,
		}))
	}
	if in.IncludeFinal && !hasFinal {
		toCreate = append(toCreate, *s.build(tenantID, PeriodInput{
			ParkID: in.ParkID, Year: in.Year, PeriodType: period.TypeFinal,
		}))
	}
	if len(toCreate) == 0 {
		result = metrics.ResultError
		return nil, apperrors.Conflict(fmt.Sprintf("all periods for %s %d already exist", in.ParkID, in.Year))
	}

	if err := s.repo.CreateBatch(ctx, toCreate); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	return toCreate, nil
}

// Transition moves a period through the workflow. Transitions out of
// PENDING_REVIEW record the reviewing actor and notes.
func (s *PeriodService) Transition(ctx context.Context, tenantID, id, to, actor, notes string) (*period.SettlementPeriod, error) {
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObservePeriodTransition(to, result)
	}()

	p, err := s.Get(ctx, tenantID, id)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}

	now := s.now().UTC()
	reviewing := p.Status == period.StatusPendingReview
	if err := p.ApplyTransition(to, now); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if reviewing {
		p.ReviewedBy = actor
		p.ReviewedAt = now
		p.ReviewNotes = notes
	}

	if err := s.repo.Update(ctx, p); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	return p, nil
}

// UpdateTotals edits the monetary totals and settlement link of a period
// that is still in flight.
func (s *PeriodService) UpdateTotals(ctx context.Context, tenantID, id string, in PeriodInput) (*period.SettlementPeriod, error) {
	p, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if p.Status == period.StatusClosed || p.Status == period.StatusCancelled {
		return nil, apperrors.InvalidState("update", period.AllowedTransitions(p.Status))
	}

	p.SettlementID = in.SettlementID
	p.RevenueEUR = in.RevenueEUR
	p.MinimumRentEUR = in.MinimumRentEUR
	p.ActualRentEUR = in.ActualRentEUR
	p.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a period, allowed only while OPEN.
func (s *PeriodService) Delete(ctx context.Context, tenantID, id string) error {
	p, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if p.Status != period.StatusOpen {
		return apperrors.InvalidState("delete", []string{period.StatusOpen})
	}
	return s.repo.Delete(ctx, tenantID, id)
}

func (s *PeriodService) build(tenantID string, in PeriodInput) *period.SettlementPeriod {
	now := s.now().UTC()
	return &period.SettlementPeriod{
		ID:             newID("sp"),
		TenantID:       tenantID,
		ParkID:         in.ParkID,
		Year:           in.Year,
		Month:          in.Month,
		PeriodType:     in.PeriodType,
		Status:         period.StatusOpen,
		SettlementID:   in.SettlementID,
		RevenueEUR:     in.RevenueEUR,
		MinimumRentEUR: in.MinimumRentEUR,
		ActualRentEUR:  in.ActualRentEUR,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func newID(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return prefix + "-" + hex.EncodeToString(buf)
}
