package application

import (
	"context"
	"testing"
	"time"

	"windshare/internal/apperrors"
	period "windshare/internal/period/domain"
	periodmem "windshare/internal/period/infrastructure/memory"
)

func newService(t *testing.T) (*PeriodService, *periodmem.PeriodRepository) {
	t.Helper()
	repo := periodmem.NewPeriodRepository()
	svc, err := NewPeriodService(repo)
	if err != nil {
		t.Fatalf("NewPeriodService: %v", err)
	}
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestBulkCreate_FillsMissingMonths(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for month := 1; month <= 6; month++ {
		_, err := svc.Create(ctx, "tenant-a", PeriodInput{
			ParkID: "park-1", Year: 2026, Month: month, PeriodType: period.TypeAdvance,
		})
		if err != nil {
			t.Fatalf("seed month %d: %v", month, err)
		}
	}

	created, err := svc.BulkCreate(ctx, "tenant-a", BulkInput{
		ParkID: "park-1", Year: 2026, Frequency: period.FrequencyMonthly, IncludeFinal: true,
	})
	if err != nil {
		t.Fatalf("BulkCreate: %v", err)
	}
	// Months 7-12 plus the FINAL period.
	if len(created) != 7 {
		t.Fatalf("created %d periods, want 7", len(created))
	}
	months := make(map[int]bool)
	finals := 0
	for _, p := range created {
		if p.Status != period.StatusOpen {
			t.Fatalf("period %s created in status %s", p.ID, p.Status)
		}
		switch p.PeriodType {
		case period.TypeAdvance:
			months[p.Month] = true
		case period.TypeFinal:
			finals++
		}
	}
	for month := 7; month <= 12; month++ {
		if !months[month] {
			t.Errorf("month %d not created", month)
		}
	}
	if finals != 1 {
		t.Fatalf("created %d FINAL periods, want 1", finals)
	}
}

func TestBulkCreate_NothingLeftConflicts(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	in := BulkInput{ParkID: "park-1", Year: 2026, Frequency: period.FrequencyMonthly, IncludeFinal: true}
	if _, err := svc.BulkCreate(ctx, "tenant-a", in); err != nil {
		t.Fatalf("first BulkCreate: %v", err)
	}
	_, err := svc.BulkCreate(ctx, "tenant-a", in)
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("second BulkCreate: got %v, want conflict", err)
	}
}

func TestBulkCreate_Quarterly(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.BulkCreate(ctx, "tenant-a", BulkInput{
		ParkID: "park-1", Year: 2026, Frequency: period.FrequencyQuarterly,
	})
	if err != nil {
		t.Fatalf("BulkCreate: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("created %d periods, want 4", len(created))
	}
	want := map[int]bool{3: true, 6: true, 9: true, 12: true}
	for _, p := range created {
		if !want[p.Month] {
			t.Errorf("unexpected month %d", p.Month)
		}
	}
}

func TestCreate_DuplicateConflicts(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	in := PeriodInput{ParkID: "park-1", Year: 2026, Month: 3, PeriodType: period.TypeAdvance}
	if _, err := svc.Create(ctx, "tenant-a", in); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := svc.Create(ctx, "tenant-a", in)
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("duplicate Create: got %v, want conflict", err)
	}

	final := PeriodInput{ParkID: "park-1", Year: 2026, PeriodType: period.TypeFinal}
	if _, err := svc.Create(ctx, "tenant-a", final); err != nil {
		t.Fatalf("FINAL Create: %v", err)
	}
	_, err = svc.Create(ctx, "tenant-a", final)
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("duplicate FINAL Create: got %v, want conflict", err)
	}
}

func TestTransition_RecordsReviewer(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "tenant-a", PeriodInput{
		ParkID: "park-1", Year: 2026, Month: 1, PeriodType: period.TypeAdvance,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, to := range []string{period.StatusInProgress, period.StatusPendingReview} {
		if _, err := svc.Transition(ctx, "tenant-a", p.ID, to, "user-1", ""); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
	}

	approved, err := svc.Transition(ctx, "tenant-a", p.ID, period.StatusApproved, "reviewer-1", "looks right")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.ReviewedBy != "reviewer-1" || approved.ReviewNotes != "looks right" || approved.ReviewedAt.IsZero() {
		t.Fatalf("review metadata not recorded: %+v", approved)
	}

	_, err = svc.Transition(ctx, "tenant-a", p.ID, period.StatusPendingReview, "user-1", "")
	if !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("APPROVED -> PENDING_REVIEW: got %v, want invalid state", err)
	}
}

func TestDelete_OnlyWhileOpen(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "tenant-a", PeriodInput{
		ParkID: "park-1", Year: 2026, Month: 2, PeriodType: period.TypeAdvance,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Transition(ctx, "tenant-a", p.ID, period.StatusInProgress, "user-1", ""); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := svc.Delete(ctx, "tenant-a", p.ID); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("delete in-progress: got %v, want invalid state", err)
	}

	if _, err := svc.Transition(ctx, "tenant-a", p.ID, period.StatusOpen, "user-1", ""); err != nil {
		t.Fatalf("transition back: %v", err)
	}
	if err := svc.Delete(ctx, "tenant-a", p.ID); err != nil {
		t.Fatalf("delete open: %v", err)
	}
	if _, err := svc.Get(ctx, "tenant-a", p.ID); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("get after delete: got %v, want not found", err)
	}
}

func TestMissingTenantRejected(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "tenant-a", PeriodInput{
		ParkID: "park-1", Year: 2026, Month: 3, PeriodType: period.TypeAdvance,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(ctx, "", p.ID); !apperrors.IsKind(err, apperrors.KindForbidden) {
		t.Fatalf("get without tenant: got %v, want forbidden", err)
	}
	if _, err := svc.ListByPark(ctx, "", "park-1", 2026); !apperrors.IsKind(err, apperrors.KindForbidden) {
		t.Fatalf("list without tenant: got %v, want forbidden", err)
	}
	if _, err := svc.Transition(ctx, "", p.ID, period.StatusInProgress, "actor", ""); !apperrors.IsKind(err, apperrors.KindForbidden) {
		t.Fatalf("transition without tenant: got %v, want forbidden", err)
	}
	if err := svc.Delete(ctx, "", p.ID); !apperrors.IsKind(err, apperrors.KindForbidden) {
		t.Fatalf("delete without tenant: got %v, want forbidden", err)
	}

	// Another tenant's id does not reach the period either.
	if _, err := svc.Get(ctx, "tenant-b", p.ID); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("cross-tenant get: got %v, want not found", err)
	}
}
