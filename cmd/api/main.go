package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"profitshare/internal/app"
	"profitshare/internal/handlers"
	"profitshare/internal/middleware"
	"profitshare/internal/routes"
	"profitshare/pkg/config"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := config.SetupLogger(settings.LogLevel)
	if settings.JWTSecret == "" || settings.WebhookSecret == "" {
		logger.Fatal("JWT_SECRET and WEBHOOK_SECRET are required")
	}
	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, settings, logger, app.Options{Broker: true})
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	var opts []handlers.Option
	if a.Publisher != nil {
		opts = append(opts, handlers.WithNotificationQueue(a.Publisher, settings.RabbitMQ.NotificationQueue))
		logger.Info("Payment notifications will be queued for the worker")
	} else {
		logger.Info("RabbitMQ not configured, payment notifications are applied inline")
	}
	h := handlers.NewHandler(a.Engine, logger, opts...)

	r := routes.SetupRouter(ctx, h, routes.RouterConfig{
		JWTSecret:      []byte(settings.JWTSecret),
		WebhookSecret:  settings.WebhookSecret,
		AllowedOrigins: settings.AllowedOrigins,
		RateLimit: middleware.RateLimiterConfig{
			RequestsPerSecond: settings.RateLimitRPS,
			Burst:             settings.RateLimitBurst,
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.WithField("port", settings.Port).Info("Server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
}
