package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"profitshare/pkg/config"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(s config.Settings) error {
			if err := config.ExecuteMigrations(config.DB, s.Database.MigrationsDir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(s config.Settings) error {
			if err := config.RollbackMigration(config.DB, s.Database.MigrationsDir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rolled back one migration")
			return nil
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(s config.Settings) error {
			version, dirty, err := config.MigrationVersion(config.DB, s.Database.MigrationsDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		})
	},
}

func withDB(fn func(config.Settings) error) error {
	settings, _, err := loadSettings()
	if err != nil {
		return err
	}
	if settings.UseMemoryStorage() {
		return fmt.Errorf("migrations need STORAGE_DRIVER=postgres")
	}
	if _, err := config.InitDB(settings.Database); err != nil {
		return err
	}
	defer config.CloseDB()
	return fn(settings)
}
