package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/export"
)

// LedgerService serves ledger reads and manual entries.
type LedgerService interface {
	List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntryDetail, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.LedgerEntryDetail, error)
	Create(ctx context.Context, in models.CreateLedgerEntryInput) (*models.LedgerEntry, error)
	Summary(ctx context.Context) (*models.LedgerSummary, error)
}

// SettlementService records payments.
type SettlementService interface {
	AddSettlement(ctx context.Context, entryID primitive.ObjectID, in models.SettlementInput) (*models.LedgerEntry, error)
}

type LedgerHandler struct {
	ledger      LedgerService
	settlements SettlementService
	logger      *zap.Logger
}

func NewLedgerHandler(ledger LedgerService, settlements SettlementService, logger *zap.Logger) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{ledger: ledger, settlements: settlements, logger: logger}
}

// List handles GET /ledger?transactionType=&status=pending,partial&partyId=&customerId=.
func (h *LedgerHandler) List(c *gin.Context) {
	filter, err := ledgerFilter(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	entries, err := h.ledger.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *LedgerHandler) Get(c *gin.Context) {
	id, err := pathID(c, "ledger entry")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	entry, err := h.ledger.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *LedgerHandler) Create(c *gin.Context) {
	var in models.CreateLedgerEntryInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}
	entry, err := h.ledger.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Settle handles POST /ledger/:id/settlement.
func (h *LedgerHandler) Settle(c *gin.Context) {
	id, err := pathID(c, "ledger entry")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var in models.SettlementInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}
	entry, err := h.settlements.AddSettlement(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *LedgerHandler) Summary(c *gin.Context) {
	summary, err := h.ledger.Summary(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ExportSummary streams the summary as an xlsx workbook.
func (h *LedgerHandler) ExportSummary(c *gin.Context) {
	summary, err := h.ledger.Summary(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Header("Content-Type", export.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=ledger-summary-%s.xlsx", summaryDate()))
	c.Status(http.StatusOK)
	if err := export.WriteLedgerSummary(c.Writer, summary); err != nil {
		h.logger.Error("failed to write ledger workbook", zap.Error(err))
	}
}

func summaryDate() string {
	return time.Now().Format(dateLayout)
}

func ledgerFilter(c *gin.Context) (models.LedgerFilter, error) {
	var (
		f   models.LedgerFilter
		err error
	)
	switch t := models.TransactionType(c.Query("transactionType")); t {
	case "", models.Receivable, models.Payable:
		f.TransactionType = t
	default:
		return f, apperrors.Validation("transactionType must be one of [receivable payable]")
	}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			switch s := models.LedgerStatus(strings.TrimSpace(part)); s {
			case models.LedgerPending, models.LedgerPartial, models.LedgerSettled:
				f.Statuses = append(f.Statuses, s)
			default:
				return f, apperrors.Validation("status must be one of [pending partial settled]")
			}
		}
	}
	if f.PartyID, err = queryID(c, "partyId"); err != nil {
		return f, err
	}
	if f.CustomerID, err = queryID(c, "customerId"); err != nil {
		return f, err
	}
	return f, nil
}
