package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/psds-microservice/casework-service/internal/auth"
	"github.com/spf13/cobra"
)

var (
	tokenAgentID string
	tokenEmail   string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for an agent, signed with AUTH_JWT_SECRET",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenAgentID, "agent", "", "agent id (token subject)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "agent login email")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.AuthJWTSecret == "" {
		return errors.New("token: AUTH_JWT_SECRET is not set")
	}
	if tokenAgentID == "" && tokenEmail == "" {
		return errors.New("token: --agent or --email is required")
	}
	tok, err := auth.IssueToken(cfg.AuthJWTSecret, tokenAgentID, tokenEmail, tokenTTL)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
