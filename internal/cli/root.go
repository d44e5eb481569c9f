// Package cli implements the profitctl operator commands.
package cli

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"profitshare/pkg/config"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "profitctl",
	Short:         "Operate the profit distribution service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// Execute runs the root command. ctx is cancelled on interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadSettings reads configuration and sets up a human-readable logger.
func loadSettings() (config.Settings, *logrus.Logger, error) {
	settings, err := config.Load()
	if err != nil {
		return config.Settings{}, nil, err
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	if lvl, err := logrus.ParseLevel(logLevel); err == nil {
		logger.SetLevel(lvl)
	}
	return settings, logger, nil
}
