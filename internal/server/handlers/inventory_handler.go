package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
	"github.com/mamadbah2/cycleshop/internal/domain/models"
)

// InventoryService manages items and direct stock adjustments.
type InventoryService interface {
	List(ctx context.Context) ([]models.InventoryItem, error)
	Search(ctx context.Context, term string) ([]models.InventoryItem, error)
	LowStock(ctx context.Context, threshold int) ([]models.InventoryItem, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.InventoryItem, error)
	History(ctx context.Context, id primitive.ObjectID) ([]models.StockHistoryEntry, error)
	Create(ctx context.Context, in models.CreateInventoryItemInput) (*models.InventoryItem, error)
	Adjust(ctx context.Context, in models.StockAdjustmentInput) (*models.InventoryItem, error)
}

type InventoryHandler struct {
	svc    InventoryService
	logger *zap.Logger
}

func NewInventoryHandler(svc InventoryService, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{svc: svc, logger: logger}
}

// List handles GET /inventory, optionally narrowed by ?search= or ?lowStock=<n>.
func (h *InventoryHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		items []models.InventoryItem
		err   error
	)
	switch {
	case c.Query("lowStock") != "":
		threshold, convErr := strconv.Atoi(c.Query("lowStock"))
		if convErr != nil || threshold < 0 {
			respondError(c, h.logger, apperrors.Validation("lowStock must be a non-negative integer"))
			return
		}
		items, err = h.svc.LowStock(ctx, threshold)
	case c.Query("search") != "":
		items, err = h.svc.Search(ctx, c.Query("search"))
	default:
		items, err = h.svc.List(ctx)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *InventoryHandler) Get(c *gin.Context) {
	id, err := pathID(c, "item")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	item, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *InventoryHandler) History(c *gin.Context) {
	id, err := pathID(c, "item")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	history, err := h.svc.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *InventoryHandler) Create(c *gin.Context) {
	var in models.CreateInventoryItemInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}
	item, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Adjust handles POST /inventory/adjust.
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var in models.StockAdjustmentInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}
	item, err := h.svc.Adjust(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}
