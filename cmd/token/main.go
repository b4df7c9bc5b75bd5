package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"clinic-bot/internal/auth"
	"clinic-bot/internal/config"
	"clinic-bot/internal/rbac"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		userID  string
		role    string
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin API token signed with JWT_SECRET",
		Long: `token issues a bearer token for the /v1 admin API.

Examples:
  token --user cron --role operator
  token --user desk --role viewer --refresh`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadAuth()
			if err != nil {
				return err
			}
			return issue(cmd.OutOrStdout(), cfg, time.Now(), userID, role, refresh)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id placed in the token (required)")
	cmd.Flags().StringVar(&role, "role", rbac.RoleOperator, "role: owner, operator, viewer or super_admin")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "also print the refresh token")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func issue(w io.Writer, cfg config.AuthConfig, now time.Time, userID, role string, refresh bool) error {
	if !rbac.IsKnownRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}
	m, err := auth.NewManager(cfg)
	if err != nil {
		return err
	}
	pair, err := m.IssuePair(now, userID, role)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, pair.AccessToken)
	if refresh {
		fmt.Fprintln(w, pair.RefreshToken)
	}
	return nil
}
