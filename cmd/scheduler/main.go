package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"profitshare/internal/app"
	"profitshare/pkg/config"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := config.SetupLogger(settings.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, settings, logger, app.Options{Broker: true})
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err = c.AddFunc(settings.ReconcileCron, func() {
		reports, err := a.Engine.ReconcileDistributed(ctx)
		unbalanced := 0
		for _, r := range reports {
			if !r.Balanced {
				unbalanced++
			}
		}
		entry := logger.WithFields(logrus.Fields{
			"distributions": len(reports),
			"unbalanced":    unbalanced,
		})
		if err != nil {
			entry.Errorf("Reconciliation run failed: %v", err)
			return
		}
		entry.Info("Reconciliation run finished")
	})
	if err != nil {
		logger.Fatalf("Failed to add cron job: %v", err)
	}

	c.Start()
	logger.WithField("schedule", settings.ReconcileCron).Info("Reconciliation scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("Scheduler stopped")
}
