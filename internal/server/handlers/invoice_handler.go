package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
	"github.com/mamadbah2/cycleshop/internal/domain/models"
)

// InvoiceService is the invoice engine as seen by HTTP.
type InvoiceService interface {
	List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceDetail, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.InvoiceDetail, error)
	Create(ctx context.Context, in models.CreateInvoiceInput) (*models.InvoiceDetail, error)
	Update(ctx context.Context, id primitive.ObjectID, in models.UpdateInvoiceInput) (*models.InvoiceDetail, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type InvoiceHandler struct {
	svc    InvoiceService
	logger *zap.Logger
}

func NewInvoiceHandler(svc InvoiceService, logger *zap.Logger) *InvoiceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceHandler{svc: svc, logger: logger}
}

// List handles GET /invoices?type=&partyId=&customerId=&from=&to=.
func (h *InvoiceHandler) List(c *gin.Context) {
	filter, err := invoiceFilter(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	invoices, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := pathID(c, "invoice")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	invoice, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) Create(c *gin.Context) {
	var in models.CreateInvoiceInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}
	invoice, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (h *InvoiceHandler) Update(c *gin.Context) {
	id, err := pathID(c, "invoice")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var in models.UpdateInvoiceInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}
	invoice, err := h.svc.Update(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "invoice")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func invoiceFilter(c *gin.Context) (models.InvoiceFilter, error) {
	var (
		f   models.InvoiceFilter
		err error
	)
	switch t := models.InvoiceType(c.Query("type")); t {
	case "", models.InvoicePurchase, models.InvoiceSale:
		f.InvoiceType = t
	default:
		return f, apperrors.Validation("type must be one of [purchase sale]")
	}
	if f.PartyID, err = queryID(c, "partyId"); err != nil {
		return f, err
	}
	if f.CustomerID, err = queryID(c, "customerId"); err != nil {
		return f, err
	}
	if f.From, err = queryTime(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryTime(c, "to"); err != nil {
		return f, err
	}
	return f, nil
}
