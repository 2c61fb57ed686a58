package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/artpar/adminkit/adapters/auth"
	"github.com/artpar/adminkit/config"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Create admin credentials",
		Long: `Create credentials for the admin auth gate.

Examples:
  adminkit token hash my-admin-token     # value for auth.token_hash
  adminkit token secret                  # value for auth.jwt_secret
  adminkit token issue --subject alice   # signed JWT using auth.jwt_secret`,
	}

	cmd.AddCommand(newTokenHashCmd(), newTokenSecretCmd(), newTokenIssueCmd())
	return cmd
}

func newTokenHashCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash <token>",
		Short: "Print the bcrypt hash of a static admin token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashToken(args[0], cost)
			if err != nil {
				return fmt.Errorf("hash token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func newTokenSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "secret",
		Short: "Print a random JWT signing secret",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), auth.GenerateSecret())
		},
	}
}

func newTokenIssueCmd() *cobra.Command {
	var (
		subject string
		role    string
		secret  string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed admin JWT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				cfg, err := config.LoadWithFallback(cfgFile)
				if err != nil {
					return fmt.Errorf("config error: %w", err)
				}
				secret = cfg.Auth.JWTSecret
				if role == "" {
					role = cfg.Auth.JWTRole
				}
			}
			if secret == "" {
				return fmt.Errorf("no signing secret: pass --secret or set auth.jwt_secret")
			}

			token, expiresAt, err := auth.NewTokenService(secret, role, ttl).GenerateToken(subject, role)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(out, "# expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().StringVar(&role, "role", "", "role claim (default: auth.jwt_role)")
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (default: auth.jwt_secret)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
