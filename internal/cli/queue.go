package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"profitshare/pkg/config"
)

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queuePurgeCmd)
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect RabbitMQ queues",
}

var queuePurgeCmd = &cobra.Command{
	Use:   "purge QUEUE",
	Short: "Drop every message waiting on a queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, _, err := loadSettings()
		if err != nil {
			return err
		}
		if !settings.RabbitMQ.Enabled() {
			return fmt.Errorf("RABBITMQ_HOST is not set")
		}
		conn, err := config.InitRabbitMQ(cmd.Context(), settings.RabbitMQ)
		if err != nil {
			return err
		}
		defer config.CloseRabbitMQ()

		n, err := config.PurgeQueue(conn, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d messages from %s\n", n, args[0])
		return nil
	},
}
