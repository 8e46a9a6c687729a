package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
	"github.com/mamadbah2/cycleshop/internal/domain/models"
)

type ReportService interface {
	Today() time.Time
	Generate(ctx context.Context, day time.Time) (*models.DailyReport, error)
}

type AuditService interface {
	Run(ctx context.Context) (*models.AuditReport, error)
}

type ReportHandler struct {
	reports ReportService
	audit   AuditService
	logger  *zap.Logger
}

func NewReportHandler(reports ReportService, audit AuditService, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reports: reports, audit: audit, logger: logger}
}

// Daily handles POST /reports/daily?date=YYYY-MM-DD; today when no date is given.
func (h *ReportHandler) Daily(c *gin.Context) {
	day := h.reports.Today()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, day.Location())
		if err != nil {
			respondError(c, h.logger, apperrors.Validation("date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	report, err := h.reports.Generate(c.Request.Context(), day)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// Audit handles GET /audit.
func (h *ReportHandler) Audit(c *gin.Context) {
	report, err := h.audit.Run(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
