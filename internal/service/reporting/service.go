// Package reporting builds the end-of-day business snapshot and publishes it.
package reporting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/repository"
	"github.com/mamadbah2/cycleshop/internal/service/inventory"
	"github.com/mamadbah2/cycleshop/internal/service/ledger"
	"github.com/mamadbah2/cycleshop/pkg/clients/whatsapp"
	"github.com/mamadbah2/cycleshop/pkg/money"
)

const (
	dateLayout = "2006-01-02"
	// DefaultLowStockThreshold flags items with this many units or fewer.
	DefaultLowStockThreshold = 2
)

// SheetAppender receives every generated report.
type SheetAppender interface {
	AppendDailyReport(ctx context.Context, report models.DailyReport) error
}

// Options configures where reports go. Zero values disable a destination.
type Options struct {
	Sheet             SheetAppender
	Sender            whatsapp.Sender
	OwnerID           string
	LowStockThreshold int
	Location          *time.Location
}

type Service struct {
	store     repository.Store
	ledger    *ledger.Service
	inventory *inventory.Service
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(store repository.Store, ledgerSvc *ledger.Service, inventorySvc *inventory.Service, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = DefaultLowStockThreshold
	}
	return &Service{
		store:     store,
		ledger:    ledgerSvc,
		inventory: inventorySvc,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Today is the current day in the reporting timezone.
func (s *Service) Today() time.Time {
	return s.now().In(s.opts.Location)
}

// Build computes the snapshot for the calendar day containing day, in the
// reporting timezone. Nothing is stored.
func (s *Service) Build(ctx context.Context, day time.Time) (*models.DailyReport, error) {
	day = day.In(s.opts.Location)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.opts.Location)
	end := start.AddDate(0, 0, 1)

	report := &models.DailyReport{
		Date:          start,
		LowStockItems: []string{},
		CreatedAt:     s.now().UTC(),
	}

	invoices, err := s.store.Invoices().List(ctx, models.InvoiceFilter{From: &start, To: &end})
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	var sales, purchases []float64
	for _, inv := range invoices {
		if inv.InvoiceType == models.InvoiceSale {
			sales = append(sales, inv.TotalAmount)
		} else {
			purchases = append(purchases, inv.TotalAmount)
		}
	}
	report.SalesAmount, report.SalesCount = money.Sum(sales...), len(sales)
	report.PurchaseAmount, report.PurchaseCount = money.Sum(purchases...), len(purchases)

	entries, err := s.store.Ledger().List(ctx, models.LedgerFilter{})
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	var collected, paid []float64
	for _, e := range entries {
		for _, st := range e.Settlements {
			if st.Date.Before(start) || !st.Date.Before(end) {
				continue
			}
			if e.TransactionType == models.Receivable {
				collected = append(collected, st.Amount)
			} else {
				paid = append(paid, st.Amount)
			}
		}
	}
	report.SettlementsCollected = money.Sum(collected...)
	report.SettlementsPaid = money.Sum(paid...)

	summary, err := s.ledger.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger summary: %w", err)
	}
	report.TotalReceivable = summary.Summary.TotalReceivable
	report.TotalPayable = summary.Summary.TotalPayable
	report.NetPosition = summary.Summary.NetPosition

	low, err := s.inventory.LowStock(ctx, s.opts.LowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("low stock: %w", err)
	}
	for _, item := range low {
		report.LowStockItems = append(report.LowStockItems, item.ItemName)
	}
	sort.Strings(report.LowStockItems)

	return report, nil
}

// Generate builds, stores and publishes the report for day. Publishing failures
// are logged; only build and store failures are returned.
func (s *Service) Generate(ctx context.Context, day time.Time) (*models.DailyReport, error) {
	report, err := s.Build(ctx, day)
	if err != nil {
		return nil, err
	}
	if err := s.store.Reports().SaveDailyReport(ctx, *report); err != nil {
		return nil, fmt.Errorf("save daily report: %w", err)
	}

	date := report.Date.Format(dateLayout)
	s.logger.Info("daily report generated",
		zap.String("date", date),
		zap.Int("sales", report.SalesCount),
		zap.Float64("sales_amount", report.SalesAmount))

	if s.opts.Sheet != nil {
		if err := s.opts.Sheet.AppendDailyReport(ctx, *report); err != nil {
			s.logger.Warn("failed to append daily report to sheet", zap.String("date", date), zap.Error(err))
		}
	}
	if s.opts.Sender != nil && s.opts.OwnerID != "" {
		if _, err := s.opts.Sender.SendText(ctx, s.opts.OwnerID, FormatMessage(*report)); err != nil {
			s.logger.Warn("failed to send daily report", zap.String("date", date), zap.Error(err))
		}
	}
	return report, nil
}

// FormatMessage renders a report for a chat message.
func FormatMessage(r models.DailyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily report %s\n", r.Date.Format(dateLayout))
	fmt.Fprintf(&b, "Sales: %d invoice(s), %.2f\n", r.SalesCount, r.SalesAmount)
	fmt.Fprintf(&b, "Purchases: %d invoice(s), %.2f\n", r.PurchaseCount, r.PurchaseAmount)
	fmt.Fprintf(&b, "Collected: %.2f | Paid out: %.2f\n", r.SettlementsCollected, r.SettlementsPaid)
	fmt.Fprintf(&b, "Receivable: %.2f | Payable: %.2f | Net: %.2f\n", r.TotalReceivable, r.TotalPayable, r.NetPosition)
	if len(r.LowStockItems) == 0 {
		b.WriteString("Low stock: none")
	} else {
		fmt.Fprintf(&b, "Low stock (%d): %s", len(r.LowStockItems), strings.Join(r.LowStockItems, ", "))
	}
	return b.String()
}
