// Package sheets appends daily report snapshots to a Google spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/cycleshop/internal/config"
	"github.com/mamadbah2/cycleshop/internal/domain/models"
)

const (
	dateLayout = "2006-01-02"
	// ReportsRange is the tab the daily rows are appended to.
	ReportsRange = "DailyReports!A:J"
)

// ValuesAppender is the slice of the Sheets API the exporter needs.
type ValuesAppender interface {
	Append(ctx context.Context, spreadsheetID, sheetRange string, rows [][]interface{}) error
}

type apiAppender struct {
	service *sheetsapi.Service
}

func (a apiAppender) Append(ctx context.Context, spreadsheetID, sheetRange string, rows [][]interface{}) error {
	payload := &sheetsapi.ValueRange{Values: rows}
	_, err := a.service.Spreadsheets.Values.Append(spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// ReportSheet writes one row per daily report.
type ReportSheet struct {
	values        ValuesAppender
	spreadsheetID string
	logger        *zap.Logger
}

// NewReportSheet builds a Google Sheets backed exporter.
func NewReportSheet(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*ReportSheet, error) {
	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}
	return NewReportSheetWith(apiAppender{service: service}, cfg.SpreadsheetID, logger), nil
}

// NewReportSheetWith builds an exporter over any appender.
func NewReportSheetWith(values ValuesAppender, spreadsheetID string, logger *zap.Logger) *ReportSheet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportSheet{values: values, spreadsheetID: spreadsheetID, logger: logger}
}

// AppendDailyReport adds the report as a new row.
func (r *ReportSheet) AppendDailyReport(ctx context.Context, report models.DailyReport) error {
	if err := r.values.Append(ctx, r.spreadsheetID, ReportsRange, [][]interface{}{Row(report)}); err != nil {
		return fmt.Errorf("append row into range %s: %w", ReportsRange, err)
	}
	r.logger.Debug("daily report appended to sheet", zap.String("date", report.Date.Format(dateLayout)))
	return nil
}

// Row lays a report out in the column order of the sheet.
func Row(report models.DailyReport) []interface{} {
	return []interface{}{
		report.Date.Format(dateLayout),
		report.SalesCount,
		report.SalesAmount,
		report.PurchaseCount,
		report.PurchaseAmount,
		report.SettlementsCollected,
		report.SettlementsPaid,
		report.TotalReceivable,
		report.TotalPayable,
		strings.Join(report.LowStockItems, ", "),
	}
}
