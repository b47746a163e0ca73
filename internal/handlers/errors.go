package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-payments/internal/service"
	"github.com/akylbek/payment-system/pix-payments/internal/telemetry"
)

// writeError maps service errors to responses the payment page and admin UI
// can show as-is.
func writeError(c *gin.Context, err error) {
	var conflict *service.StateConflictError
	switch {
	case errors.As(err, &conflict):
		body := gin.H{
			"error":    conflict.Error(),
			"order_id": conflict.OrderID,
			"state":    conflict.State,
		}
		if conflict.At != nil {
			body["at"] = conflict.At.Format(time.RFC3339)
		}
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyExists), errors.Is(err, service.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, service.ErrInvalidOrderID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOperatorRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStockDecrement), errors.Is(err, service.ErrOrderUpdate):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "retryable": true})
	default:
		telemetry.Logger.Error("Unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
