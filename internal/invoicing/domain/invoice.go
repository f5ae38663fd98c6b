package invoicing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Document types issued by this system.
const (
	TypeCreditNote = "CREDIT_NOTE"
)

// Invoice status values. Only DRAFT is produced here; the downstream dunning
// workflow owns the rest.
const (
	StatusDraft = "DRAFT"
)

// DueDays is the payment term applied to credit notes.
const DueDays = 14

// Invoice is a credit-note document issued to a revenue recipient.
type Invoice struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Number   string `json:"number"`
	Type     string `json:"type"`
	Status   string `json:"status"`

	RecipientFundID string `json:"recipient_fund_id"`
	RecipientName   string `json:"recipient_name"`

	SettlementID     string `json:"settlement_id"`
	SettlementItemID string `json:"settlement_item_id"`
	ServicePeriod    string `json:"service_period"`

	IssueDate time.Time `json:"issue_date"`
	DueDate   time.Time `json:"due_date"`

	NetTotalEUR   decimal.Decimal `json:"net_total_eur"`
	TaxTotalEUR   decimal.Decimal `json:"tax_total_eur"`
	GrossTotalEUR decimal.Decimal `json:"gross_total_eur"`

	CreatedAt time.Time `json:"created_at"`
}

// Line is one ordered position on an invoice.
type Line struct {
	InvoiceID   string `json:"invoice_id"`
	Position    int    `json:"position"`
	RevenueCode string `json:"revenue_code"`
	Description string `json:"description"`

	QuantityKWh  decimal.Decimal `json:"quantity_kwh"`
	UnitPriceEUR decimal.Decimal `json:"unit_price_eur"`
	NetEUR       decimal.Decimal `json:"net_eur"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	TaxEUR       decimal.Decimal `json:"tax_eur"`
	GrossEUR     decimal.Decimal `json:"gross_eur"`
}
