package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/cycleshop/internal/domain/models"
)

type fakeLedger struct {
	summary *models.LedgerSummary
	err     error
}

func (f fakeLedger) Summary(context.Context) (*models.LedgerSummary, error) { return f.summary, f.err }

type fakeStock struct {
	items []models.InventoryItem
	term  string
}

func (f *fakeStock) Search(_ context.Context, term string) ([]models.InventoryItem, error) {
	f.term = term
	return f.items, nil
}

type fakeReports struct{}

func (fakeReports) Today() time.Time { return time.Date(2025, 5, 2, 18, 0, 0, 0, time.UTC) }

func (fakeReports) Build(_ context.Context, day time.Time) (*models.DailyReport, error) {
	return &models.DailyReport{Date: day, SalesCount: 4, SalesAmount: 2100, LowStockItems: []string{}}, nil
}

func newDispatcher(stock *fakeStock) *Service {
	summary := &models.LedgerSummary{
		Receivables: []models.LedgerEntryDetail{
			{LedgerEntry: models.LedgerEntry{BalanceAmount: 200, Description: "Sale Invoice #1"}, Party: &models.Party{PartyName: "Ravi Cycles"}},
			{LedgerEntry: models.LedgerEntry{BalanceAmount: 650, Description: "Sale Invoice #2"}},
		},
		Summary: models.LedgerTotals{TotalReceivable: 850, TotalPayable: 300, NetPosition: 550, TotalReceivableCount: 2, TotalPayableCount: 1},
	}
	return NewService(fakeLedger{summary: summary}, stock, fakeReports{}, nil)
}

func TestHandleCommand(t *testing.T) {
	stock := &fakeStock{items: []models.InventoryItem{
		{ItemName: "Tube 26", QuantityAvailable: 4},
		{ItemName: "Tube 20", QuantityAvailable: 0},
	}}
	d := newDispatcher(stock)

	tests := []struct {
		name     string
		message  string
		contains []string
	}{
		{
			name:     "dues",
			message:  "dues",
			contains: []string{"Receivable: 850.00 (2 open)", "Payable: 300.00 (1 open)", "Net: 550.00", "- Sale Invoice #2: 650.00\n- Ravi Cycles: 200.00"},
		},
		{
			name:     "stock sorted by name",
			message:  "/stock tube",
			contains: []string{`Stock for "tube":`, "- Tube 20: 0\n- Tube 26: 4"},
		},
		{
			name:     "report",
			message:  "report",
			contains: []string{"Daily report 2025-05-02", "Sales: 4 invoice(s), 2100.00"},
		},
		{
			name:     "help",
			message:  "start",
			contains: []string{"stock <name>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := d.HandleCommand(context.Background(), models.ParseCommand(tt.message), "919800000000")
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, reply, want)
			}
		})
	}
}

func TestHandleCommand_Errors(t *testing.T) {
	d := newDispatcher(&fakeStock{})

	_, err := d.HandleCommand(context.Background(), models.ParseCommand("stock"), "1")
	assert.ErrorIs(t, err, ErrInvalidArguments)

	_, err = d.HandleCommand(context.Background(), models.ParseCommand("sell 4 tubes"), "1")
	assert.ErrorIs(t, err, ErrUnsupportedCommand)

	failing := NewService(fakeLedger{err: errors.New("db down")}, &fakeStock{}, fakeReports{}, nil)
	_, err = failing.HandleCommand(context.Background(), models.ParseCommand("dues"), "1")
	assert.EqualError(t, err, "db down")
}

func TestHandleCommand_NoStockMatch(t *testing.T) {
	stock := &fakeStock{}
	reply, err := newDispatcher(stock).HandleCommand(context.Background(), models.ParseCommand("stock hero sprint"), "1")
	require.NoError(t, err)
	assert.Equal(t, "hero sprint", stock.term)
	assert.Equal(t, `No items match "hero sprint".`, reply)
}
