package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/repository/memory"
	"github.com/mamadbah2/cycleshop/internal/service/inventory"
	"github.com/mamadbah2/cycleshop/internal/service/invoice"
)

var checkedAt = time.Date(2025, 5, 2, 23, 0, 0, 0, time.UTC)

type seeded struct {
	store   *memory.Store
	itemID  primitive.ObjectID
	partyID primitive.ObjectID
	invoice *models.InvoiceDetail
}

// seed builds a consistent shop: one item created through the inventory service
// and one partially paid sale.
func seed(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	item, err := inventory.NewService(store, nil, nil).Create(ctx, models.CreateInventoryItemInput{
		ItemName:          "Brake Cable",
		Category:          models.CategorySparePart,
		UnitType:          models.UnitPiece,
		QuantityAvailable: 20,
	})
	require.NoError(t, err)

	party := &models.Party{PartyName: "Sai Cycles", PartyType: models.PartyDebtor, Transactions: []primitive.ObjectID{}, CreatedAt: checkedAt}
	require.NoError(t, store.Parties().Insert(ctx, party))

	balance := 50.0
	inv, err := invoice.NewService(store, nil, nil).Create(ctx, models.CreateInvoiceInput{
		InvoiceNumber: "A-1",
		PartyID:       party.ID.Hex(),
		InvoiceType:   models.InvoiceSale,
		PaymentStatus: models.PaymentPartial,
		BalanceAmount: &balance,
		Items:         []models.InvoiceItemInput{{ItemID: item.ID.Hex(), Quantity: 4, PricePerUnit: 30}},
	})
	require.NoError(t, err)

	return seeded{store: store, itemID: item.ID, partyID: party.ID, invoice: inv}
}

func newService(store *memory.Store) *Service {
	svc := NewService(store, nil)
	svc.now = func() time.Time { return checkedAt }
	return svc
}

func TestRun_Clean(t *testing.T) {
	s := seed(t)

	report, err := newService(s.store).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Clean(), "%+v", report.Findings)
	assert.Equal(t, checkedAt, report.CheckedAt)
	assert.Equal(t, 1, report.Items)
	assert.Equal(t, 1, report.Invoices)
	assert.Equal(t, 1, report.LedgerEntries)
	assert.Equal(t, 1, report.Parties)
}

func TestRun_Findings(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(t *testing.T, s seeded)
		rules   []string
	}{
		{
			name: "quantity changed without history",
			corrupt: func(t *testing.T, s seeded) {
				require.NoError(t, s.store.Inventory().SetQuantity(context.Background(), s.itemID, 7, checkedAt))
			},
			rules: []string{RuleStockMatchesHistory},
		},
		{
			name: "negative quantity",
			corrupt: func(t *testing.T, s seeded) {
				require.NoError(t, s.store.Inventory().SetQuantity(context.Background(), s.itemID, -1, checkedAt))
			},
			rules: []string{RuleStockNonNegative, RuleStockMatchesHistory},
		},
		{
			name: "ledger balance and status drift",
			corrupt: func(t *testing.T, s seeded) {
				ctx := context.Background()
				entry, err := s.store.Ledger().FindByInvoice(ctx, s.invoice.ID)
				require.NoError(t, err)
				entry.BalanceAmount = 10
				entry.Status = models.LedgerSettled
				require.NoError(t, s.store.Ledger().Replace(ctx, entry))
			},
			rules: []string{RuleLedgerBalance, RuleLedgerStatus, RuleInvoiceMirrorsLedger},
		},
		{
			name: "settlement records exceed settled amount",
			corrupt: func(t *testing.T, s seeded) {
				ctx := context.Background()
				entry, err := s.store.Ledger().FindByInvoice(ctx, s.invoice.ID)
				require.NoError(t, err)
				entry.Settlements = append(entry.Settlements, models.Settlement{Date: checkedAt, Amount: 100, Mode: models.PaymentCash})
				require.NoError(t, s.store.Ledger().Replace(ctx, entry))
			},
			rules: []string{RuleLedgerSettlements},
		},
		{
			name: "invoice total differs from lines",
			corrupt: func(t *testing.T, s seeded) {
				ctx := context.Background()
				inv, err := s.store.Invoices().FindByID(ctx, s.invoice.ID)
				require.NoError(t, err)
				inv.TotalAmount = 999
				require.NoError(t, s.store.Invoices().Replace(ctx, inv))
			},
			rules: []string{RuleInvoiceTotal},
		},
		{
			name: "party lost the invoice",
			corrupt: func(t *testing.T, s seeded) {
				ctx := context.Background()
				party, err := s.store.Parties().FindByID(ctx, s.partyID)
				require.NoError(t, err)
				party.RemoveTransaction(s.invoice.ID)
				require.NoError(t, s.store.Parties().SaveAccount(ctx, party))
			},
			rules: []string{RulePartyReferences},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seed(t)
			tt.corrupt(t, s)

			report, err := newService(s.store).Run(context.Background())
			require.NoError(t, err)

			var rules []string
			for _, f := range report.Findings {
				rules = append(rules, f.Rule)
			}
			assert.ElementsMatch(t, tt.rules, rules)
		})
	}
}
