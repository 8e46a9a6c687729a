// Package handlers adapts the services to gin.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
)

const dateLayout = "2006-01-02"

// statusFor maps an error kind onto its HTTP status.
func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindValidation, apperrors.KindInsufficientStock, apperrors.KindInvalidSettlement, apperrors.KindConflict:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": message}. Errors without a kind are logged and
// hidden behind a generic message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	_ = c.Error(err)

	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperrors.KindInternal {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(statusFor(appErr.Kind), gin.H{"error": appErr.Message})
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return &apperrors.Error{Kind: apperrors.KindValidation, Message: "Invalid request body", Err: err}
	}
	return nil
}

func pathID(c *gin.Context, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return primitive.NilObjectID, apperrors.Validation("Invalid %s id", what)
	}
	return id, nil
}

func queryID(c *gin.Context, key string) (*primitive.ObjectID, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, apperrors.Validation("%s must be a valid id", key)
	}
	return &id, nil
}

// queryTime accepts RFC3339 or a plain date.
func queryTime(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, dateLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.Validation("%s must be a date (YYYY-MM-DD) or RFC3339 timestamp", key)
}
