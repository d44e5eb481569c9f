package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"profitshare/internal/middleware"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("user", "", "User id to embed in the token")
	tokenCmd.Flags().String("role", middleware.RoleInvestor, "Role: admin or investor")
	tokenCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token signed with JWT_SECRET",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if role != middleware.RoleAdmin && role != middleware.RoleInvestor {
			return fmt.Errorf("unknown role %q", role)
		}

		settings, _, err := loadSettings()
		if err != nil {
			return err
		}
		if settings.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is not set")
		}
		tok, err := middleware.IssueToken([]byte(settings.JWTSecret), user, role, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}
