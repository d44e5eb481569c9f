package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"profitshare/internal/app"
	"profitshare/internal/distribution"
)

var errUnbalanced = errors.New("one or more distributions are unbalanced")

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().Bool("all", false, "Reconcile every distributed distribution")
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [DISTRIBUTION_ID]",
	Short: "Check distribution totals against their claims",
	Long: `Reconcile compares a distribution's distributed profit with the sum of its
claims and prints the report as JSON. The command exits non-zero when any
report is unbalanced.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if all == (len(args) == 1) {
		return fmt.Errorf("pass a distribution id or --all")
	}

	settings, logger, err := loadSettings()
	if err != nil {
		return err
	}
	a, err := app.Build(cmd.Context(), settings, logger, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	var reports []distribution.ReconciliationReport
	if all {
		reports, err = a.Engine.ReconcileDistributed(cmd.Context())
	} else {
		var r distribution.ReconciliationReport
		r, err = a.Engine.Reconcile(cmd.Context(), args[0])
		if err == nil {
			reports = append(reports, r)
		}
	}
	if err != nil && len(reports) == 0 {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(reports); encErr != nil {
		return encErr
	}
	if err != nil {
		return err
	}
	for _, r := range reports {
		if !r.Balanced {
			return errUnbalanced
		}
	}
	return nil
}
