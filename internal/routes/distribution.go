package routes

import (
	"github.com/gin-gonic/gin"

	"profitshare/internal/handlers"
	"profitshare/internal/middleware"
)

// SetupDistributionRoutes configures routes for distribution management
func SetupDistributionRoutes(r *gin.Engine, h *handlers.Handler, jwtSecret []byte) {
	admin := r.Group("/api/admin/distributions", middleware.AuthMiddleware(jwtSecret), middleware.RequireAdmin())
	{
		admin.POST("", h.CreateDistribution)
		admin.PUT("/:id/settlement-reference", h.AttachSettlementReference)
		admin.GET("/:id/reconciliation", h.ReconcileDistribution)
		admin.GET("/:id/claims", h.ListDistributionClaims)
	}

	api := r.Group("/api", middleware.AuthMiddleware(jwtSecret))
	{
		api.GET("/projects/:project_id/distributions", h.ListProjectDistributions)
		api.GET("/distributions/:id", h.GetDistribution)
	}
}
