package stock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/repository/memory"
)

func TestBatchMove(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	store := memory.New()
	item := &models.InventoryItem{ItemName: "Brake cable", QuantityAvailable: 4}
	require.NoError(t, store.Inventory().Insert(ctx, item))

	batch := NewBatch(store, at)

	first, err := batch.Move(ctx, item.ID, -3, "sale Invoice #1")
	require.NoError(t, err)
	assert.Equal(t, 4, first.PreviousQty)
	assert.Equal(t, 1, first.NewQty)

	t.Run("second line on the same item sees the first", func(t *testing.T) {
		_, err := batch.Move(ctx, item.ID, -2, "sale Invoice #1")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindInsufficientStock, apperrors.KindOf(err))
		assert.Equal(t, "Insufficient stock for Brake cable. Available: 1, Required: 2", err.Error())
	})

	t.Run("missing item", func(t *testing.T) {
		_, err := batch.Move(ctx, primitive.NewObjectID(), 1, "x")
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	})

	got, err := store.Inventory().FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.QuantityAvailable)
	assert.Equal(t, at, got.UpdatedAt)

	history, err := store.StockHistory().ListByItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, -3, history[0].Change)
	assert.Equal(t, "sale Invoice #1", history[0].Reason)
}
