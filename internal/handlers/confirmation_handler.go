package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akylbek/payment-system/pix-payments/internal/service"
)

// OperatorKey is the gin context key holding the authenticated operator.
const OperatorKey = "operator"

type ConfirmationHandler struct {
	confirmer *service.Confirmer
}

func NewConfirmationHandler(confirmer *service.Confirmer) *ConfirmationHandler {
	return &ConfirmationHandler{confirmer: confirmer}
}

func (h *ConfirmationHandler) ConfirmPayment(c *gin.Context) {
	operator := c.GetString(OperatorKey)

	req, err := h.confirmer.Confirm(c.Request.Context(), c.Param("order_id"), operator)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":     req.OrderID,
		"state":        req.State,
		"confirmed_at": formatTime(req.ConfirmedAt),
		"confirmed_by": req.ConfirmedBy,
	})
}
