package party

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

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewService(store, nil)

	party, err := svc.Create(ctx, models.CreatePartyInput{
		PartyName:   "Atlas Wholesale",
		PartyType:   models.PartyCreditor,
		PhoneNumber: "9876543210",
		State:       "Punjab",
		City:        "Ludhiana",
		Address:     "Industrial Area B",
	})
	require.NoError(t, err)
	assert.Zero(t, party.BalanceAmount)

	inv := &models.Invoice{InvoiceNumber: "PUR-1", PartyID: party.ID}
	require.NoError(t, store.Invoices().Insert(ctx, inv))
	party.AddTransaction(inv.ID)
	party.AddTransaction(primitive.NewObjectID())
	require.NoError(t, store.Parties().SaveAccount(ctx, party))

	detail, err := svc.Get(ctx, party.ID)
	require.NoError(t, err)
	require.Len(t, detail.Invoices, 1)
	assert.Equal(t, "PUR-1", detail.Invoices[0].InvoiceNumber)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(memory.New(), nil)
	_, err := svc.Create(context.Background(), models.CreatePartyInput{PartyName: "X", PartyType: "vendor"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "partyType must be one of [creditor debtor]")
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(memory.New(), nil)
	_, err := svc.Get(context.Background(), primitive.NewObjectID())
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}
