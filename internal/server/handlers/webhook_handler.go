package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/server/middleware"
	"github.com/mamadbah2/cycleshop/internal/service/whatsapp"
)

// hubChallenge is the query Meta sends when a webhook subscription is created.
type hubChallenge struct {
	Mode      string `form:"hub.mode"`
	Token     string `form:"hub.verify_token"`
	Challenge string `form:"hub.challenge"`
}

// WebhookHandler serves the WhatsApp webhook and the manual send endpoint.
type WebhookHandler struct {
	messaging whatsapp.MessagingService
	logger    *zap.Logger
}

func NewWebhookHandler(messaging whatsapp.MessagingService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{messaging: messaging, logger: logger}
}

// Verify handles GET /webhook.
func (h *WebhookHandler) Verify(c *gin.Context) {
	var q hubChallenge
	_ = c.ShouldBindQuery(&q)

	challenge, err := h.messaging.VerifyWebhookToken(q.Mode, q.Token, q.Challenge)
	if err != nil {
		h.logger.Warn("webhook subscription rejected",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

// Receive handles POST /webhook. Once the body parses, Meta always gets a 200.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := bindJSON(c, &payload); err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.messaging.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Error("webhook handling failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Int("entries", len(payload.Entry)),
			zap.Error(err))
	}
	c.Status(http.StatusOK)
}

// SendMessage handles POST /send-message.
func (h *WebhookHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	err := h.messaging.SendOutbound(c.Request.Context(), req)
	switch {
	case err == nil:
		c.Status(http.StatusAccepted)
	case apperrors.Is(err, apperrors.KindValidation):
		respondError(c, h.logger, err)
	default:
		h.logger.Error("outbound message failed", zap.String("to", req.To), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
	}
}
