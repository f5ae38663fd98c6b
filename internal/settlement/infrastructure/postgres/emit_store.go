package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"windshare/internal/apperrors"
	invoicing "windshare/internal/invoicing/domain"
	invoicingrepo "windshare/internal/invoicing/infrastructure/postgres"
	productionrepo "windshare/internal/production/infrastructure/postgres"
	"windshare/internal/settlement/application"
	settlement "windshare/internal/settlement/domain"
	"windshare/internal/storage"
)

// EmitStore persists emit plans transactionally. Document numbers are issued
// inside the transaction so a failed run never burns a number.
type EmitStore struct {
	db      *sql.DB
	numbers *invoicingrepo.NumberSequence
	now     func() time.Time
}

// NewEmitStore constructs a store.
func NewEmitStore(db *sql.DB, numbers *invoicingrepo.NumberSequence) (*EmitStore, error) {
	if db == nil || numbers == nil {
		return nil, errors.New("emit store: nil dependency")
	}
	return &EmitStore{db: db, numbers: numbers, now: time.Now}, nil
}

// Emit writes all invoices, links the settlement items and flips the
// settlement to INVOICED in one transaction. Concurrent emits on the same
// settlement lose on the item link guard and roll back with a conflict.
func (s *EmitStore) Emit(ctx context.Context, plan application.EmitPlan) ([]invoicing.Invoice, error) {
	if plan.Settlement == nil {
		return nil, settlement.ErrNilSettlement
	}
	es := plan.Settlement

	out := make([]invoicing.Invoice, 0, len(plan.Invoices))
	err := storage.RunAtomic(ctx, s.db, func(tx *sql.Tx) error {
		out = out[:0]
		for _, planned := range plan.Invoices {
			inv := planned.Invoice
			number, err := s.numbers.Next(ctx, tx, inv.TenantID, inv.Type, inv.IssueDate.Year())
			if err != nil {
				return err
			}
			inv.Number = number

			if err := invoicingrepo.CreateWithLines(ctx, tx, &inv, planned.Lines); err != nil {
				return err
			}

			res, err := tx.ExecContext(ctx, `UPDATE energy_settlement_items
				SET invoice_id = $1 WHERE id = $2 AND invoice_id IS NULL`, inv.ID, planned.ItemID)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected != 1 {
				return apperrors.Conflict("settlement item " + planned.ItemID + " already invoiced")
			}
			out = append(out, inv)
		}

		res, err := tx.ExecContext(ctx, `UPDATE energy_settlements
			SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
			es.ID, settlement.StatusInvoiced, s.now().UTC(), settlement.StatusCalculated)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected != 1 {
			return apperrors.Conflict("settlement no longer in " + settlement.StatusCalculated)
		}

		_, err = productionrepo.MarkInvoiced(ctx, tx, es.TenantID, es.ParkID, es.Year, es.Month, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
