// Package stock holds the one rule every quantity change obeys: the result may not
// be negative, and the change is recorded in the item's history.
package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/repository"
)

// Store is the part of repository.Store a Batch needs.
type Store interface {
	Inventory() repository.InventoryRepository
	StockHistory() repository.StockHistoryRepository
}

// Batch applies movements within one unit of work. Items are loaded once, so
// several lines on the same item see each other's effect.
type Batch struct {
	store Store
	at    time.Time
	items map[primitive.ObjectID]*models.InventoryItem
}

// NewBatch stamps every movement with at.
func NewBatch(store Store, at time.Time) *Batch {
	return &Batch{
		store: store,
		at:    at,
		items: make(map[primitive.ObjectID]*models.InventoryItem),
	}
}

// Item returns the item as currently seen by the batch. A missing item is
// reported as repository.ErrNotFound.
func (b *Batch) Item(ctx context.Context, id primitive.ObjectID) (*models.InventoryItem, error) {
	if item, ok := b.items[id]; ok {
		return item, nil
	}
	item, err := b.store.Inventory().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	b.items[id] = item
	return item, nil
}

// Move changes the item's quantity by change and appends the history entry.
func (b *Batch) Move(ctx context.Context, id primitive.ObjectID, change int, reason string) (*models.StockHistoryEntry, error) {
	item, err := b.Item(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Item not found: %s", id.Hex())
		}
		return nil, err
	}

	previous := item.QuantityAvailable
	next := previous + change
	if next < 0 {
		return nil, apperrors.InsufficientStock(item.ItemName, previous, -change)
	}

	if err := b.store.Inventory().SetQuantity(ctx, id, next, b.at); err != nil {
		return nil, fmt.Errorf("failed to set quantity of %s: %w", item.ItemName, err)
	}

	entry := &models.StockHistoryEntry{
		ID:          primitive.NewObjectID(),
		ItemID:      id,
		Change:      change,
		Reason:      reason,
		PreviousQty: previous,
		NewQty:      next,
		Date:        b.at,
		CreatedAt:   b.at,
	}
	if err := b.store.StockHistory().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record stock history for %s: %w", item.ItemName, err)
	}

	item.QuantityAvailable = next
	item.UpdatedAt = b.at
	return entry, nil
}
