package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leadpipe/internal/auth"
	"github.com/JonMunkholm/leadpipe/internal/config"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token [OWNER]",
		Short: "Issue a bearer token for an operator",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				root.owner = args[0]
			}
			op, err := root.operator()
			if err != nil {
				return err
			}

			var sec config.SecurityConfig
			if err := config.LoadSection(&sec); err != nil {
				return err
			}
			if ttl > 0 {
				sec.TokenTTL = ttl
			}

			tokens, err := auth.NewTokenManager(sec.JWTSecret, sec.JWTIssuer, sec.TokenTTL)
			if err != nil {
				return err
			}
			token, expires, err := tokens.Issue(op.OwnerID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "token for %s expires %s\n", op.OwnerID, expires.Format(time.RFC3339))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default: AUTH_TOKEN_TTL)")
	return cmd
}
