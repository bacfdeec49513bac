package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/betwiz-oauth/middleware"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Short:   "Work with user session tokens",
	Aliases: []string{"sessions"},
}

// Mints a token the way the user service does, for local testing of the
// authorize and revoke endpoints.
var sessionMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint an HS256 session token for a user id",
	RunE: func(cmd *cobra.Command, _ []string) error {
		userID, _ := cmd.Flags().GetString("user")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		if userID == "" {
			return errors.New("--user is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		token, err := middleware.NewSessionAuthenticator(cfg.JWTSecret, nil).IssueToken(userID, ttl)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionMintCmd)

	sessionMintCmd.Flags().String("user", "", "user id to put in the id claim")
	sessionMintCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
}
