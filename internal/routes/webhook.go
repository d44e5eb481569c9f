package routes

import (
	"github.com/gin-gonic/gin"

	"profitshare/internal/handlers"
	"profitshare/internal/middleware"
)

// SetupWebhookRoutes configures the payment gateway callback
func SetupWebhookRoutes(r *gin.Engine, h *handlers.Handler, secret string) {
	webhooks := r.Group("/webhooks", middleware.WebhookAuth(secret))
	{
		webhooks.POST("/payments", h.PaymentWebhook)
	}
}
