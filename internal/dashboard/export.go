package dashboard

import (
	"bytes"
	"fmt"

	"gcdl-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const salesSheet = "Sales"

var salesHeader = []any{
	"Receipt", "Date", "Time", "Branch", "Produce", "Agent",
	"Buyer", "Buyer contact", "Tonnage", "Amount paid (UGX)",
}

// WriteSalesReport renders sales as an xlsx workbook with a totals row.
func WriteSalesReport(rows []models.Sale) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", salesSheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(salesSheet, "A1", &salesHeader); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(salesSheet, 1, 1, bold); err != nil {
		return nil, err
	}

	tonnage, amount := decimal.Zero, decimal.Zero
	for i := range rows {
		s := &rows[i]
		var branch, produce, agent string
		if s.Branch != nil {
			branch = s.Branch.Name
		}
		if s.Produce != nil {
			produce = s.Produce.Name
		}
		if s.Agent != nil {
			agent = s.Agent.Username
		}
		line := []any{
			s.ReceiptNumber, s.Date, s.Time, branch, produce, agent,
			s.BuyerName, s.BuyerContact, s.Tonnage.InexactFloat64(), s.AmountPaid.InexactFloat64(),
		}
		if err := f.SetSheetRow(salesSheet, fmt.Sprintf("A%d", i+2), &line); err != nil {
			return nil, err
		}
		tonnage = tonnage.Add(s.Tonnage)
		amount = amount.Add(s.AmountPaid)
	}

	totalRow := len(rows) + 2
	totals := []any{"Total", "", "", "", "", "", "", "", tonnage.InexactFloat64(), amount.InexactFloat64()}
	if err := f.SetSheetRow(salesSheet, fmt.Sprintf("A%d", totalRow), &totals); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(salesSheet, totalRow, totalRow, bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(salesSheet, "A", "J", 18); err != nil {
		return nil, err
	}
	return f.WriteToBuffer()
}
