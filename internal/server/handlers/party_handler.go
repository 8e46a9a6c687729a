package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/domain/models"
)

type PartyService interface {
	List(ctx context.Context) ([]models.Party, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.PartyDetail, error)
	Create(ctx context.Context, in models.CreatePartyInput) (*models.Party, error)
}

type PartyHandler struct {
	svc    PartyService
	logger *zap.Logger
}

func NewPartyHandler(svc PartyService, logger *zap.Logger) *PartyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PartyHandler{svc: svc, logger: logger}
}

func (h *PartyHandler) List(c *gin.Context) {
	parties, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, parties)
}

func (h *PartyHandler) Get(c *gin.Context) {
	id, err := pathID(c, "party")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	party, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, party)
}

func (h *PartyHandler) Create(c *gin.Context) {
	var in models.CreatePartyInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}
	party, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, party)
}
