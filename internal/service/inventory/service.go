// Package inventory manages stock items outside the invoice flow.
package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/lock"
	"github.com/mamadbah2/cycleshop/internal/repository"
	"github.com/mamadbah2/cycleshop/internal/service/stock"
)

// InitialStockReason is recorded when an item is created.
const InitialStockReason = "Initial stock"

type Service struct {
	store  repository.Store
	locker lock.Locker
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store repository.Store, locker lock.Locker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = lock.Noop{}
	}
	return &Service{
		store:  store,
		locker: locker,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts the item and records its opening quantity as the first history
// entry.
func (s *Service) Create(ctx context.Context, in models.CreateInventoryItemInput) (*models.InventoryItem, error) {
	now := s.now()
	item, err := in.Build(now)
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		if item.PartyID != nil {
			if _, err := s.store.Parties().FindByID(ctx, *item.PartyID); errors.Is(err, repository.ErrNotFound) {
				return apperrors.NotFound("Party not found")
			} else if err != nil {
				return err
			}
		}
		if err := s.store.Inventory().Insert(ctx, item); err != nil {
			return err
		}
		_, err := stock.NewBatch(s.store, now).Move(ctx, item.ID, in.QuantityAvailable, InitialStockReason)
		return err
	})
	if err != nil {
		return nil, apperrors.Aborted(repository.AsAppError(err))
	}

	item.QuantityAvailable = in.QuantityAvailable
	s.logger.Info("inventory item created", zap.String("item_id", item.ID.Hex()), zap.String("name", item.ItemName), zap.Int("quantity", item.QuantityAvailable))
	return item, nil
}

// Adjust applies a manual stock correction.
func (s *Service) Adjust(ctx context.Context, in models.StockAdjustmentInput) (*models.InventoryItem, error) {
	if err := models.Validate(in); err != nil {
		return nil, err
	}
	id, err := models.ParseID("itemId", in.ItemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, lock.Key("item", id.Hex()))
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			return nil, apperrors.Conflict(err, "Another request is updating the same records, please try again")
		}
		return nil, apperrors.Internal(err, "Internal server error")
	}
	defer release()

	now := s.now()
	var adjusted *models.InventoryItem
	err = s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		batch := stock.NewBatch(s.store, now)
		if _, err := batch.Move(ctx, id, in.Adjustment, strings.TrimSpace(in.Reason)); err != nil {
			return err
		}
		item, err := batch.Item(ctx, id)
		adjusted = item
		return err
	})
	if err != nil {
		return nil, apperrors.Aborted(repository.AsAppError(err))
	}

	s.logger.Info("stock adjusted",
		zap.String("item_id", id.Hex()),
		zap.Int("adjustment", in.Adjustment),
		zap.Int("quantity", adjusted.QuantityAvailable),
		zap.String("reason", in.Reason),
	)
	return adjusted, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.InventoryItem, error) {
	item, err := s.store.Inventory().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Item not found")
	}
	if err != nil {
		return nil, repository.AsAppError(err)
	}
	return item, nil
}

func (s *Service) List(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := s.store.Inventory().List(ctx)
	if err != nil {
		return nil, repository.AsAppError(err)
	}
	return items, nil
}

// Search returns items whose name contains term, case-insensitively.
func (s *Service) Search(ctx context.Context, term string) ([]models.InventoryItem, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return items, nil
	}
	out := make([]models.InventoryItem, 0)
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.ItemName), term) {
			out = append(out, item)
		}
	}
	return out, nil
}

// LowStock returns items at or below threshold.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]models.InventoryItem, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.InventoryItem, 0)
	for _, item := range items {
		if item.QuantityAvailable <= threshold {
			out = append(out, item)
		}
	}
	return out, nil
}

// History returns the item's movements, oldest first.
func (s *Service) History(ctx context.Context, id primitive.ObjectID) ([]models.StockHistoryEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.store.StockHistory().ListByItem(ctx, id)
	if err != nil {
		return nil, repository.AsAppError(err)
	}
	return history, nil
}
