package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/repository/memory"
)

func seedEntry(t *testing.T, store *memory.Store, partyID primitive.ObjectID, typ models.TransactionType, original, settled float64) *models.LedgerEntry {
	t.Helper()
	entry := &models.LedgerEntry{PartyID: partyID, TransactionType: typ, Settlements: []models.Settlement{}}
	entry.SetAmounts(original, settled)
	require.NoError(t, store.Ledger().Insert(context.Background(), entry))
	return entry
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	party := &models.Party{PartyName: "Ravi Cycles"}
	require.NoError(t, store.Parties().Insert(ctx, party))

	seedEntry(t, store, party.ID, models.Receivable, 500, 0)
	seedEntry(t, store, party.ID, models.Receivable, 300, 100.25)
	seedEntry(t, store, party.ID, models.Receivable, 900, 900)
	seedEntry(t, store, party.ID, models.Payable, 1200, 200)

	summary, err := NewService(store, nil).Summary(ctx)
	require.NoError(t, err)

	assert.Len(t, summary.Receivables, 2)
	assert.Len(t, summary.Payables, 1)
	assert.Equal(t, models.LedgerTotals{
		TotalReceivable:      699.75,
		TotalPayable:         1000,
		NetPosition:          -300.25,
		TotalReceivableCount: 2,
		TotalPayableCount:    1,
	}, summary.Summary)
	require.NotNil(t, summary.Payables[0].Party)
	assert.Equal(t, "Ravi Cycles", summary.Payables[0].Party.PartyName)
}

func TestCreateListGet(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewService(store, nil)
	party := &models.Party{PartyName: "Landlord"}
	require.NoError(t, store.Parties().Insert(ctx, party))

	entry, err := svc.Create(ctx, models.CreateLedgerEntryInput{
		PartyID:         party.ID.Hex(),
		TransactionType: models.Payable,
		OriginalAmount:  15000,
		Description:     "Shop rent, May",
	})
	require.NoError(t, err)
	assert.Equal(t, models.LedgerPending, entry.Status)
	assert.Equal(t, 15000.0, entry.BalanceAmount)

	got, err := svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Invoice)
	assert.Equal(t, "Landlord", got.Party.PartyName)

	list, err := svc.List(ctx, models.LedgerFilter{TransactionType: models.Receivable})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.Get(ctx, primitive.NewObjectID())
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	_, err = svc.Create(ctx, models.CreateLedgerEntryInput{
		PartyID:         primitive.NewObjectID().Hex(),
		TransactionType: models.Payable,
		OriginalAmount:  10,
		Description:     "x",
	})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}
