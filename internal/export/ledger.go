// Package export renders reports as spreadsheet workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/cycleshop/internal/domain/models"
)

// ContentType is the MIME type of the produced workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	SheetSummary     = "Summary"
	SheetReceivables = "Receivables"
	SheetPayables    = "Payables"

	dateLayout = "2006-01-02"
)

var entryHeadings = []interface{}{"Party", "Invoice", "Description", "Original", "Settled", "Balance", "Status", "Created"}

// WriteLedgerSummary writes the open balances as a workbook with one sheet for
// the totals and one per side.
func WriteLedgerSummary(w io.Writer, summary *models.LedgerSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	totals := summary.Summary
	rows := [][]interface{}{
		{"Metric", "Amount", "Open entries"},
		{"Total receivable", totals.TotalReceivable, totals.TotalReceivableCount},
		{"Total payable", totals.TotalPayable, totals.TotalPayableCount},
		{"Net position", totals.NetPosition},
	}
	if err := setRows(f, SheetSummary, rows); err != nil {
		return err
	}

	if err := writeEntries(f, SheetReceivables, summary.Receivables); err != nil {
		return err
	}
	if err := writeEntries(f, SheetPayables, summary.Payables); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeEntries(f *excelize.File, sheet string, entries []models.LedgerEntryDetail) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	rows := make([][]interface{}, 0, len(entries)+1)
	rows = append(rows, entryHeadings)
	for _, e := range entries {
		party, number := "", ""
		if e.Party != nil {
			party = e.Party.PartyName
		}
		if e.Invoice != nil {
			number = e.Invoice.InvoiceNumber
		}
		rows = append(rows, []interface{}{
			party, number, e.Description,
			e.OriginalAmount, e.SettledAmount, e.BalanceAmount,
			string(e.Status), e.CreatedAt.Format(dateLayout),
		})
	}
	return setRows(f, sheet, rows)
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("fill %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
