package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"profitshare/internal/handlers"
	"profitshare/internal/middleware"
)

// RouterConfig holds what the router needs besides the handler.
type RouterConfig struct {
	JWTSecret      []byte
	WebhookSecret  string
	AllowedOrigins []string
	RateLimit      middleware.RateLimiterConfig
	Logger         logrus.FieldLogger
}

// SetupRouter initializes and returns the Gin router with all routes configured.
// ctx bounds the rate limiter's background cleanup.
func SetupRouter(ctx context.Context, h *handlers.Handler, cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(cfg.Logger))

	r.Any("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	if cfg.RateLimit.RequestsPerSecond > 0 {
		r.Use(middleware.RateLimiterMiddleware(ctx, cfg.RateLimit))
	}

	SetupDistributionRoutes(r, h, cfg.JWTSecret)
	SetupClaimRoutes(r, h, cfg.JWTSecret)
	SetupWebhookRoutes(r, h, cfg.WebhookSecret)

	return r
}
