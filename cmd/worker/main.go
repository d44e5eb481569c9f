package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"profitshare/internal/app"
	"profitshare/internal/worker"
	"profitshare/pkg/config"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := config.SetupLogger(settings.LogLevel)
	if !settings.RabbitMQ.Enabled() {
		logger.Fatal("RABBITMQ_HOST is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, settings, logger, app.Options{Broker: true})
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	msgConsumer, err := config.NewConsumer(a.Broker, settings.RabbitMQ.NotificationQueue, settings.WorkerPrefetch)
	if err != nil {
		logger.Fatalf("Failed to create consumer: %v", err)
	}
	defer msgConsumer.Close()

	handler := worker.NewNotificationHandler(a.Engine, logger)
	logger.WithField("queue", settings.RabbitMQ.NotificationQueue).Info("Payment notification worker started, waiting for messages...")

	if err := msgConsumer.Consume(ctx, handler.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("Consumer stopped: %v", err)
	}
	logger.Info("Worker stopped")
}
