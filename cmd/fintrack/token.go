package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tokmz/fintrack/internal/app"
	"github.com/tokmz/fintrack/internal/auth"
)

func tokenCmd(configPath *string) *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for development",
		Long: `Issue an HS256 token signed with auth.secret.

The token is accepted by the REST API as "Authorization: Bearer <token>"
and by the realtime channel as {"type":"authenticate","token":"<token>"}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, source, err := app.Load(*configPath)
			if err != nil {
				return err
			}
			defer source.Close()

			tokens, err := auth.New(cfg.Auth)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id bound to the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to auth.ttl)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
