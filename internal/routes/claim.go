package routes

import (
	"github.com/gin-gonic/gin"

	"profitshare/internal/handlers"
	"profitshare/internal/middleware"
)

// SetupClaimRoutes configures routes for investor claims
func SetupClaimRoutes(r *gin.Engine, h *handlers.Handler, jwtSecret []byte) {
	api := r.Group("/api", middleware.AuthMiddleware(jwtSecret))
	{
		api.GET("/claims", h.ListMyClaims)
		api.GET("/claims/:id", h.GetClaim)
		api.POST("/claims/:id/request", h.RequestClaimByID)
		api.POST("/distributions/:id/claim", h.RequestClaim)
	}
}
