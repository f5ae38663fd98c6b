package postgres

import (
	"context"
	"database/sql"
	"errors"

	invoicing "windshare/internal/invoicing/domain"
	"windshare/internal/storage"
)

// InvoiceRepository persists credit-note invoices.
type InvoiceRepository struct {
	db *sql.DB
}

// NewInvoiceRepository constructs a repository.
func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// CreateWithLines inserts an invoice and its ordered lines using q, which may
// be a surrounding transaction.
func CreateWithLines(ctx context.Context, q storage.Querier, invoice *invoicing.Invoice, lines []invoicing.Line) error {
	if q == nil {
		return errors.New("invoice repo: nil querier")
	}
	if invoice == nil {
		return errors.New("invoice repo: nil invoice")
	}
	_, err := q.ExecContext(ctx, `
INSERT INTO invoices (
	id, tenant_id, number, type, status, recipient_fund_id, recipient_name,
	settlement_id, settlement_item_id, service_period, issue_date, due_date,
	net_total_eur, tax_total_eur, gross_total_eur, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
)`,
		invoice.ID, invoice.TenantID, invoice.Number, invoice.Type, invoice.Status,
		invoice.RecipientFundID, invoice.RecipientName,
		invoice.SettlementID, invoice.SettlementItemID, invoice.ServicePeriod,
		invoice.IssueDate, invoice.DueDate,
		invoice.NetTotalEUR, invoice.TaxTotalEUR, invoice.GrossTotalEUR, invoice.CreatedAt,
	)
	if err != nil {
		return err
	}
	for _, line := range lines {
		_, err := q.ExecContext(ctx, `
INSERT INTO invoice_lines (
	invoice_id, position, revenue_code, description,
	quantity_kwh, unit_price_eur, net_eur, tax_rate, tax_eur, gross_eur
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			invoice.ID, line.Position, line.RevenueCode, line.Description,
			line.QuantityKWh, line.UnitPriceEUR, line.NetEUR, line.TaxRate, line.TaxEUR, line.GrossEUR)
		if err != nil {
			return err
		}
	}
	return nil
}

// Get fetches an invoice with its lines, nil when absent.
func (r *InvoiceRepository) Get(ctx context.Context, id string) (*invoicing.Invoice, []invoicing.Line, error) {
	if r == nil || r.db == nil {
		return nil, nil, errors.New("invoice repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, tenant_id, number, type, status, recipient_fund_id, recipient_name,
	settlement_id, settlement_item_id, service_period, issue_date, due_date,
	net_total_eur, tax_total_eur, gross_total_eur, created_at
FROM invoices
WHERE id = $1
LIMIT 1`, id)

	var invoice invoicing.Invoice
	err := row.Scan(
		&invoice.ID, &invoice.TenantID, &invoice.Number, &invoice.Type, &invoice.Status,
		&invoice.RecipientFundID, &invoice.RecipientName,
		&invoice.SettlementID, &invoice.SettlementItemID, &invoice.ServicePeriod,
		&invoice.IssueDate, &invoice.DueDate,
		&invoice.NetTotalEUR, &invoice.TaxTotalEUR, &invoice.GrossTotalEUR, &invoice.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	invoice.IssueDate = invoice.IssueDate.UTC()
	invoice.DueDate = invoice.DueDate.UTC()
	invoice.CreatedAt = invoice.CreatedAt.UTC()

	lines, err := r.listLines(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &invoice, lines, nil
}

// ListBySettlement returns all invoices linked to a settlement.
func (r *InvoiceRepository) ListBySettlement(ctx context.Context, tenantID, settlementID string) ([]invoicing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, tenant_id, number, type, status, recipient_fund_id, recipient_name,
	settlement_id, settlement_item_id, service_period, issue_date, due_date,
	net_total_eur, tax_total_eur, gross_total_eur, created_at
FROM invoices
WHERE tenant_id = $1 AND settlement_id = $2
ORDER BY number ASC`, tenantID, settlementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []invoicing.Invoice
	for rows.Next() {
		var invoice invoicing.Invoice
		if err := rows.Scan(
			&invoice.ID, &invoice.TenantID, &invoice.Number, &invoice.Type, &invoice.Status,
			&invoice.RecipientFundID, &invoice.RecipientName,
			&invoice.SettlementID, &invoice.SettlementItemID, &invoice.ServicePeriod,
			&invoice.IssueDate, &invoice.DueDate,
			&invoice.NetTotalEUR, &invoice.TaxTotalEUR, &invoice.GrossTotalEUR, &invoice.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, invoice)
	}
	return result, rows.Err()
}

func (r *InvoiceRepository) listLines(ctx context.Context, invoiceID string) ([]invoicing.Line, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT invoice_id, position, revenue_code, description,
	quantity_kwh, unit_price_eur, net_eur, tax_rate, tax_eur, gross_eur
FROM invoice_lines
WHERE invoice_id = $1
ORDER BY position ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []invoicing.Line
	for rows.Next() {
		var line invoicing.Line
		if err := rows.Scan(
			&line.InvoiceID, &line.Position, &line.RevenueCode, &line.Description,
			&line.QuantityKWh, &line.UnitPriceEUR, &line.NetEUR, &line.TaxRate, &line.TaxEUR, &line.GrossEUR,
		); err != nil {
			return nil, err
		}
		result = append(result, line)
	}
	return result, rows.Err()
}
