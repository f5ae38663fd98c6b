package interfaces

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	settlement "windshare/internal/settlement/domain"
)

// BuildSettlementXLSX renders a settlement overview workbook.
func BuildSettlementXLSX(es *settlement.EnergySettlement, items []settlement.EnergySettlementItem) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	itemsSheet := "items"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(itemsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Energy Settlement")
	_ = f.SetCellValue(summarySheet, "A3", "Park")
	_ = f.SetCellValue(summarySheet, "B3", es.ParkID)
	_ = f.SetCellValue(summarySheet, "A4", "Period")
	_ = f.SetCellValue(summarySheet, "B4", es.PeriodLabel())
	_ = f.SetCellValue(summarySheet, "A5", "Status")
	_ = f.SetCellValue(summarySheet, "B5", es.Status)
	_ = f.SetCellValue(summarySheet, "A6", "Distribution mode")
	_ = f.SetCellValue(summarySheet, "B6", es.DistributionMode)
	_ = f.SetCellValue(summarySheet, "A7", "Net operator revenue (EUR)")
	_ = f.SetCellValue(summarySheet, "B7", es.NetOperatorRevenueEUR.StringFixed(2))
	_ = f.SetCellValue(summarySheet, "A8", "Total production (kWh)")
	_ = f.SetCellValue(summarySheet, "B8", es.TotalProductionKWh.StringFixed(3))
	if es.HasRegulatorySplit() {
		_ = f.SetCellValue(summarySheet, "A9", "EEG revenue (EUR)")
		_ = f.SetCellValue(summarySheet, "B9", es.EEGRevenueEUR.Decimal.StringFixed(2))
		_ = f.SetCellValue(summarySheet, "A10", "Market premium revenue (EUR)")
		_ = f.SetCellValue(summarySheet, "B10", es.DVRevenueEUR.Decimal.StringFixed(2))
	}

	_ = f.SetCellValue(itemsSheet, "A1", "Fund")
	_ = f.SetCellValue(itemsSheet, "B1", "Turbine")
	_ = f.SetCellValue(itemsSheet, "C1", "Production (kWh)")
	_ = f.SetCellValue(itemsSheet, "D1", "Revenue share (EUR)")
	_ = f.SetCellValue(itemsSheet, "E1", "Invoice")
	for i, item := range items {
		row := i + 2
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("A%d", row), item.FundID)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("B%d", row), item.TurbineID)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("C%d", row), item.ProductionShareKWh.StringFixed(3))
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("D%d", row), item.RevenueShareEUR.StringFixed(2))
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("E%d", row), item.InvoiceID)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
