package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akylbek/payment-system/pix-payments/internal/handlers"
	"github.com/akylbek/payment-system/pix-payments/internal/interfaces"
	"github.com/akylbek/payment-system/pix-payments/internal/service"
	"github.com/akylbek/payment-system/pix-payments/internal/telemetry"
)

func NewRouter(lifecycle *service.Lifecycle, confirmer *service.Confirmer, auth interfaces.OperatorAuthenticator) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "pix-payments"})
	})

	// Checkout and payment page routes
	paymentHandler := handlers.NewPaymentHandler(lifecycle)
	r.POST("/pix/payments", paymentHandler.CreatePayment)
	r.GET("/pix/payments/:order_id", paymentHandler.GetPayment)
	r.POST("/pix/payments/:order_id/cancel", paymentHandler.CancelPayment)

	// Seller admin routes
	confirmationHandler := handlers.NewConfirmationHandler(confirmer)
	admin := r.Group("/admin", RequireOperator(auth))
	admin.POST("/pix/payments/:order_id/confirm", confirmationHandler.ConfirmPayment)

	return r
}
