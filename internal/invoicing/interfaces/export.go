package interfaces

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	invoicing "windshare/internal/invoicing/domain"
)

// BuildInvoicePDF renders a credit-note document.
func BuildInvoicePDF(inv *invoicing.Invoice, lines []invoicing.Line) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Credit Note "+inv.Number)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Recipient: %s", inv.RecipientName))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Service period: %s", inv.ServicePeriod))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Issue date: %s", inv.IssueDate.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Due date: %s", inv.DueDate.Format("2006-01-02")))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(70, 6, "Description", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 6, "kWh", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Net EUR", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Tax %", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Tax EUR", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Gross EUR", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, line := range lines {
		pdf.CellFormat(70, 6, line.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, line.QuantityKWh.StringFixed(3), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, line.NetEUR.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, line.TaxRate.StringFixed(0), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, line.TaxEUR.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, line.GrossEUR.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Net total: %s EUR", inv.NetTotalEUR.StringFixed(2)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Tax total: %s EUR", inv.TaxTotalEUR.StringFixed(2)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Gross total: %s EUR", inv.GrossTotalEUR.StringFixed(2)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
