package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-payments/internal/service"
	"github.com/akylbek/payment-system/pix-payments/internal/telemetry"
)

type PaymentHandler struct {
	lifecycle *service.Lifecycle
}

func NewPaymentHandler(lifecycle *service.Lifecycle) *PaymentHandler {
	return &PaymentHandler{lifecycle: lifecycle}
}

type createPaymentRequest struct {
	OrderID string          `json:"order_id" binding:"required"`
	Amount  decimal.Decimal `json:"amount"`
}

func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var body createPaymentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		telemetry.Logger.Warn("Error decoding create payment request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	view, err := h.lifecycle.Create(c.Request.Context(), body.OrderID, body.Amount)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order_id":              view.Request.OrderID,
		"transaction_reference": view.Request.TransactionReference,
		"brcode":                view.Payload,
		"amount":                view.Request.Amount.StringFixed(2),
		"expires_at":            view.Request.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	view, err := h.lifecycle.Get(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	req := view.Request
	c.JSON(http.StatusOK, gin.H{
		"order_id":              req.OrderID,
		"state":                 req.State,
		"amount":                req.Amount.StringFixed(2),
		"transaction_reference": req.TransactionReference,
		"brcode":                view.Payload,
		"created_at":            req.CreatedAt.Format(time.RFC3339),
		"expires_at":            req.ExpiresAt.Format(time.RFC3339),
		"confirmed_at":          formatTime(req.ConfirmedAt),
		"countdown_expired":     view.CountdownExpired,
		"remaining_seconds":     int64(view.Remaining / time.Second),
	})
}

func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	req, err := h.lifecycle.Cancel(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":     req.OrderID,
		"state":        req.State,
		"cancelled_at": formatTime(req.CancelledAt),
	})
}
