// Package commands answers the shop owner's chat commands from live data.
package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/service/reporting"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// ErrUnsupportedCommand indicates we do not support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

// HelpText lists the supported commands.
const HelpText = "Commands:\n" +
	"dues - open receivables and payables\n" +
	"stock <name> - quantity of matching items\n" +
	"report - today's figures so far\n" +
	"help - this message"

const (
	maxStockLines = 10
	maxDueLines   = 5
)

// LedgerReader provides the open-balance summary.
type LedgerReader interface {
	Summary(ctx context.Context) (*models.LedgerSummary, error)
}

// StockSearcher finds items by name.
type StockSearcher interface {
	Search(ctx context.Context, term string) ([]models.InventoryItem, error)
}

// ReportBuilder produces an unsaved daily snapshot.
type ReportBuilder interface {
	Today() time.Time
	Build(ctx context.Context, day time.Time) (*models.DailyReport, error)
}

// Dispatcher executes parsed commands and returns the reply text.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	ledger    LedgerReader
	stock     StockSearcher
	reporting ReportBuilder
	logger    *zap.Logger
}

// NewService constructs a command dispatcher.
func NewService(ledger LedgerReader, stock StockSearcher, reports ReportBuilder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ledger: ledger, stock: stock, reporting: reports, logger: logger}
}

func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandDues:
		return s.dues(ctx)
	case models.CommandStock:
		return s.stockLevels(ctx, cmd.Args)
	case models.CommandReport:
		report, err := s.reporting.Build(ctx, s.reporting.Today())
		if err != nil {
			return "", err
		}
		return reporting.FormatMessage(*report), nil
	case models.CommandHelp:
		return HelpText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCommand, cmd.Raw)
	}
}

func (s *Service) dues(ctx context.Context) (string, error) {
	summary, err := s.ledger.Summary(ctx)
	if err != nil {
		return "", err
	}
	totals := summary.Summary

	var b strings.Builder
	fmt.Fprintf(&b, "Receivable: %.2f (%d open)\n", totals.TotalReceivable, totals.TotalReceivableCount)
	fmt.Fprintf(&b, "Payable: %.2f (%d open)\n", totals.TotalPayable, totals.TotalPayableCount)
	fmt.Fprintf(&b, "Net: %.2f", totals.NetPosition)

	top := append([]models.LedgerEntryDetail(nil), summary.Receivables...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].BalanceAmount > top[j].BalanceAmount })
	if len(top) > maxDueLines {
		top = top[:maxDueLines]
	}
	if len(top) > 0 {
		b.WriteString("\nLargest dues:")
	}
	for _, e := range top {
		name := e.Description
		if e.Party != nil {
			name = e.Party.PartyName
		}
		fmt.Fprintf(&b, "\n- %s: %.2f", name, e.BalanceAmount)
	}
	return b.String(), nil
}

func (s *Service) stockLevels(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("%w: usage stock <name>", ErrInvalidArguments)
	}
	term := strings.Join(args, " ")
	items, err := s.stock.Search(ctx, term)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return fmt.Sprintf("No items match %q.", term), nil
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].ItemName < items[j].ItemName })
	var b strings.Builder
	fmt.Fprintf(&b, "Stock for %q:", term)
	for i, item := range items {
		if i == maxStockLines {
			fmt.Fprintf(&b, "\n...and %d more", len(items)-maxStockLines)
			break
		}
		fmt.Fprintf(&b, "\n- %s: %d", item.ItemName, item.QuantityAvailable)
	}
	return b.String(), nil
}
